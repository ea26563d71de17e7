package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course_hub_backend/internal/model"
	"course_hub_backend/internal/repository"
	"course_hub_backend/internal/util"
	"course_hub_backend/pkg/logger"
	"course_hub_backend/pkg/monitoring"
	"course_hub_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ModuleStore interface {
	Create(ctx context.Context, module *model.CourseModule) error
	FindByID(ctx context.Context, id uint) (*model.CourseModule, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListByCourse(ctx context.Context, courseID uint) ([]model.CourseModule, error)
	DeleteCascade(ctx context.Context, id uint) (*repository.CascadeResult, error)
}

type LessonStore interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	FindByID(ctx context.Context, id uint) (*model.Lesson, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListByModule(ctx context.Context, moduleID uint) ([]model.Lesson, error)
	UpdateMedia(ctx context.Context, id uint, key, url string) error
	Delete(ctx context.Context, id uint) error
}

type SessionStore interface {
	Create(ctx context.Context, session *model.ClassSession) error
	FindByID(ctx context.Context, id uint) (*model.ClassSession, error)
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]model.ClassSession, error)
	Delete(ctx context.Context, id uint) error
}

// MediaRemover 删除对象存储中的文件
type MediaRemover interface {
	Delete(ctx context.Context, filename string) error
}

type FailureReason string

const (
	ReasonUnauthenticated FailureReason = "unauthenticated"
	ReasonForbidden       FailureReason = "forbidden"
	ReasonNotFound        FailureReason = "not_found"
	ReasonUnexpected      FailureReason = "unexpected_error"
)

// OperationResult 删除操作对外只返回成功或失败，没有部分成功
type OperationResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Reason  FailureReason `json:"reason,omitempty"`
}

const (
	entityModule  = "module"
	entityLesson  = "lesson"
	entitySession = "session"
)

// HierarchyService 负责内容层级的删除：先鉴权，再确认存在，
// 模块先删除全部课时再删除自身。重复删除同一实体时第二次返回 NotFound。
type HierarchyService struct {
	Modules  ModuleStore
	Lessons  LessonStore
	Sessions SessionStore
	Recorder ActivityRecorder
	Media    MediaRemover
	Hooks    *PostCommit
}

func NewHierarchyService(modules ModuleStore, lessons LessonStore, sessions SessionStore, recorder ActivityRecorder, media MediaRemover, hooks *PostCommit) *HierarchyService {
	return &HierarchyService{
		Modules:  modules,
		Lessons:  lessons,
		Sessions: sessions,
		Recorder: recorder,
		Media:    media,
		Hooks:    hooks,
	}
}

func (s *HierarchyService) DeleteModule(ctx context.Context, principal *util.Claims, id uint) (result *OperationResult) {
	ctx, span := tracing.StartSpan(ctx, "HierarchyService.DeleteModule", attribute.Int64("module.id", int64(id)))
	var err error
	defer func() { tracing.EndSpan(span, err) }()
	defer s.guard(entityModule, id, &result)

	if err = util.Authorize(principal, model.Admin); err != nil {
		return s.fail(entityModule, id, err)
	}

	module, err := s.Modules.FindByID(ctx, id)
	if err != nil {
		return s.fail(entityModule, id, err)
	}

	cascade, err := s.Modules.DeleteCascade(ctx, id)
	if err != nil {
		return s.fail(entityModule, id, err)
	}
	monitoring.CascadedLessons.Add(float64(cascade.LessonsDeleted))

	result = s.succeed(entityModule, "module deleted successfully")

	s.Hooks.Run(ctx, "record module deletion", recordHook(s.Recorder, ActivityEvent{
		UserID:       principal.UserID,
		ActivityType: model.ActivityModuleDeleted,
		Title:        fmt.Sprintf("Deleted module %q", module.Title),
		Metadata: map[string]interface{}{
			"moduleId":       module.ID,
			"courseId":       module.CourseID,
			"slug":           module.Slug,
			"lessonsDeleted": cascade.LessonsDeleted,
		},
	}))
	s.removeMedia(ctx, cascade.MediaKeys...)

	return result
}

func (s *HierarchyService) DeleteLesson(ctx context.Context, principal *util.Claims, id uint) (result *OperationResult) {
	ctx, span := tracing.StartSpan(ctx, "HierarchyService.DeleteLesson", attribute.Int64("lesson.id", int64(id)))
	var err error
	defer func() { tracing.EndSpan(span, err) }()
	defer s.guard(entityLesson, id, &result)

	if err = util.Authorize(principal, model.Admin); err != nil {
		return s.fail(entityLesson, id, err)
	}

	lesson, err := s.Lessons.FindByID(ctx, id)
	if err != nil {
		return s.fail(entityLesson, id, err)
	}

	if err = s.Lessons.Delete(ctx, id); err != nil {
		return s.fail(entityLesson, id, err)
	}

	result = s.succeed(entityLesson, "lesson deleted successfully")

	s.Hooks.Run(ctx, "record lesson deletion", recordHook(s.Recorder, ActivityEvent{
		UserID:       principal.UserID,
		ActivityType: model.ActivityLessonDeleted,
		Title:        fmt.Sprintf("Deleted lesson %q", lesson.Title),
		Metadata: map[string]interface{}{
			"lessonId": lesson.ID,
			"moduleId": lesson.ModuleID,
			"slug":     lesson.Slug,
		},
	}))
	if lesson.MediaKey != "" {
		s.removeMedia(ctx, lesson.MediaKey)
	}

	return result
}

func (s *HierarchyService) DeleteSession(ctx context.Context, principal *util.Claims, id uint) (result *OperationResult) {
	ctx, span := tracing.StartSpan(ctx, "HierarchyService.DeleteSession", attribute.Int64("session.id", int64(id)))
	var err error
	defer func() { tracing.EndSpan(span, err) }()
	defer s.guard(entitySession, id, &result)

	if err = util.Authorize(principal, model.Admin); err != nil {
		return s.fail(entitySession, id, err)
	}

	session, err := s.Sessions.FindByID(ctx, id)
	if err != nil {
		return s.fail(entitySession, id, err)
	}

	if err = s.Sessions.Delete(ctx, id); err != nil {
		return s.fail(entitySession, id, err)
	}

	result = s.succeed(entitySession, "session deleted successfully")

	s.Hooks.Run(ctx, "record session deletion", recordHook(s.Recorder, ActivityEvent{
		UserID:       principal.UserID,
		ActivityType: model.ActivitySessionDeleted,
		Title:        fmt.Sprintf("Deleted session %q", session.Title),
		Metadata: map[string]interface{}{
			"sessionId": session.ID,
			"startsAt":  session.StartsAt,
		},
	}))

	return result
}

func (s *HierarchyService) removeMedia(ctx context.Context, keys ...string) {
	if s.Media == nil || len(keys) == 0 {
		return
	}
	s.Hooks.Run(ctx, "remove lesson media", func(ctx context.Context) error {
		var errs []error
		for _, key := range keys {
			if err := s.Media.Delete(ctx, key); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
		return errors.Join(errs...)
	})
}

func (s *HierarchyService) succeed(entity, message string) *OperationResult {
	monitoring.ContentDeletions.WithLabelValues(entity, "success").Inc()
	return &OperationResult{Success: true, Message: message}
}

// fail 把内部错误转换为对外结果，未知错误只返回通用提示
func (s *HierarchyService) fail(entity string, id uint, err error) *OperationResult {
	res := &OperationResult{}
	switch {
	case errors.Is(err, util.ErrUnauthenticated):
		res.Reason = ReasonUnauthenticated
		res.Message = "authentication required"
	case errors.Is(err, util.ErrForbidden):
		res.Reason = ReasonForbidden
		res.Message = "admin role required"
	case errors.Is(err, util.ErrNotFound):
		res.Reason = ReasonNotFound
		res.Message = fmt.Sprintf("%s not found", entity)
	default:
		res.Reason = ReasonUnexpected
		res.Message = fmt.Sprintf("failed to delete %s, please try again later", entity)
		logger.Log.Error("hierarchy deletion failed",
			zap.String("entity", entity),
			zap.Uint("id", id),
			zap.Error(err),
		)
	}

	monitoring.ContentDeletions.WithLabelValues(entity, string(res.Reason)).Inc()
	return res
}

// guard 把 panic 转换为 UnexpectedError，保证调用方总能拿到结果
func (s *HierarchyService) guard(entity string, id uint, result **OperationResult) {
	if r := recover(); r != nil {
		*result = s.fail(entity, id, fmt.Errorf("panic: %v", r))
	}
}
