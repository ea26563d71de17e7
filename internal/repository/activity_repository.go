package repository

import (
	"context"

	"course_hub_backend/internal/model"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// ActivityRepository 只追加，不提供更新和删除
type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *model.Activity) error {
	return pkgerrors.Wrap(r.DB.WithContext(ctx).Create(activity).Error, "create activity")
}

func (r *ActivityRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, pkgerrors.Wrapf(err, "list activities of user %d", userID)
}
