package repository

import (
	"context"
	"errors"

	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	return pkgerrors.Wrap(r.DB.WithContext(ctx).Create(lesson).Error, "create lesson")
}

func (r *LessonRepository) FindByID(ctx context.Context, id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).First(&lesson, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLessonNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "find lesson %d", id)
	}
	return &lesson, nil
}

func (r *LessonRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return slugExists(ctx, r.DB, &model.Lesson{}, slug)
}

func (r *LessonRepository) ListByModule(ctx context.Context, moduleID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).
		Where("module_id = ?", moduleID).
		Order("`order` ASC, created_at ASC, id ASC").
		Find(&lessons).Error
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "list lessons of module %d", moduleID)
	}
	return lessons, nil
}

func (r *LessonRepository) CountByModule(ctx context.Context, moduleID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Lesson{}).Where("module_id = ?", moduleID).Count(&count).Error
	return count, pkgerrors.Wrapf(err, "count lessons of module %d", moduleID)
}

func (r *LessonRepository) UpdateMedia(ctx context.Context, id uint, key, url string) error {
	res := r.DB.WithContext(ctx).Model(&model.Lesson{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"media_key": key, "media_url": url})
	if res.Error != nil {
		return pkgerrors.Wrapf(res.Error, "update media of lesson %d", id)
	}
	if res.RowsAffected == 0 {
		return util.ErrLessonNotFound
	}
	return nil
}

// Delete 删除单个课时，没有删除任何行时返回 util.ErrLessonNotFound
func (r *LessonRepository) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.Lesson{}, id)
	if res.Error != nil {
		return pkgerrors.Wrapf(res.Error, "delete lesson %d", id)
	}
	if res.RowsAffected == 0 {
		return util.ErrLessonNotFound
	}
	return nil
}
