package repository

import (
	"context"
	"errors"

	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return pkgerrors.Wrap(r.DB.WithContext(ctx).Create(course).Error, "create course")
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "find course %d", id)
	}
	return &course, nil
}

func (r *CourseRepository) FindBySlug(ctx context.Context, slug string) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "find course by slug %q", slug)
	}
	return &course, nil
}

func (r *CourseRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return slugExists(ctx, r.DB, &model.Course{}, slug)
}

func (r *CourseRepository) List(ctx context.Context, page, limit int) ([]model.Course, int64, error) {
	var (
		courses []model.Course
		total   int64
	)
	query := r.DB.WithContext(ctx).Model(&model.Course{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count courses")
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&courses).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list courses")
	}
	return courses, total, nil
}

// slugExists 在 m 对应的表中查询 slug 是否已存在
func slugExists(ctx context.Context, db *gorm.DB, m interface{}, slug string) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(m).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, pkgerrors.Wrapf(err, "check slug %q", slug)
	}
	return count > 0, nil
}
