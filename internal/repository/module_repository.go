package repository

import (
	"context"
	"errors"

	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

// CascadeResult 模块级联删除的结果
type CascadeResult struct {
	LessonsDeleted int64
	MediaKeys      []string // 被删除课时引用的对象存储文件
}

func (r *ModuleRepository) Create(ctx context.Context, module *model.CourseModule) error {
	return pkgerrors.Wrap(r.DB.WithContext(ctx).Create(module).Error, "create module")
}

func (r *ModuleRepository) FindByID(ctx context.Context, id uint) (*model.CourseModule, error) {
	var module model.CourseModule
	err := r.DB.WithContext(ctx).First(&module, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrModuleNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "find module %d", id)
	}
	return &module, nil
}

func (r *ModuleRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return slugExists(ctx, r.DB, &model.CourseModule{}, slug)
}

func (r *ModuleRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.CourseModule, error) {
	var modules []model.CourseModule
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("`order` ASC, created_at ASC, id ASC").
		Find(&modules).Error
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "list modules of course %d", courseID)
	}
	return modules, nil
}

// DeleteCascade 在同一个事务中先删除模块下的全部课时，再删除模块本身。
// 课时按 module_id 删除而不是按预先读取的列表删除，中途失败重试也是安全的。
// 模块已不存在时返回 util.ErrModuleNotFound，事务回滚。
func (r *ModuleRepository) DeleteCascade(ctx context.Context, id uint) (*CascadeResult, error) {
	result := &CascadeResult{}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 记录课时引用的媒体文件，提交后再清理
		if err := tx.Model(&model.Lesson{}).
			Where("module_id = ? AND media_key <> ''", id).
			Pluck("media_key", &result.MediaKeys).Error; err != nil {
			return pkgerrors.Wrap(err, "collect lesson media")
		}

		// 2. 删除子节点
		lessons := tx.Where("module_id = ?", id).Delete(&model.Lesson{})
		if lessons.Error != nil {
			return pkgerrors.Wrap(lessons.Error, "delete lessons")
		}
		result.LessonsDeleted = lessons.RowsAffected

		// 3. 最后删除模块本身
		self := tx.Delete(&model.CourseModule{}, id)
		if self.Error != nil {
			return pkgerrors.Wrap(self.Error, "delete module")
		}
		if self.RowsAffected == 0 {
			return util.ErrModuleNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
