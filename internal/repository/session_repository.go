package repository

import (
	"context"
	"errors"
	"time"

	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.ClassSession) error {
	return pkgerrors.Wrap(r.DB.WithContext(ctx).Create(session).Error, "create session")
}

func (r *SessionRepository) FindByID(ctx context.Context, id uint) (*model.ClassSession, error) {
	var session model.ClassSession
	err := r.DB.WithContext(ctx).First(&session, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "find session %d", id)
	}
	return &session, nil
}

// ListUpcoming 返回 from 之后开始的课，按开始时间排序
func (r *SessionRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.DB.WithContext(ctx).
		Where("starts_at >= ?", from).
		Order("starts_at ASC, id ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, pkgerrors.Wrap(err, "list upcoming sessions")
}

func (r *SessionRepository) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.ClassSession{}, id)
	if res.Error != nil {
		return pkgerrors.Wrapf(res.Error, "delete session %d", id)
	}
	if res.RowsAffected == 0 {
		return util.ErrSessionNotFound
	}
	return nil
}
