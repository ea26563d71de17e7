package service

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"course_hub_backend/internal/config"
	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"
	"course_hub_backend/pkg/logger"
	"course_hub_backend/pkg/monitoring"
	"course_hub_backend/pkg/tracing"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// mimetype 识别只需要文件头
const mediaSniffBytes = 3072

type CourseStore interface {
	Create(ctx context.Context, course *model.Course) error
	FindByID(ctx context.Context, id uint) (*model.Course, error)
	FindBySlug(ctx context.Context, slug string) (*model.Course, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, page, limit int) ([]model.Course, int64, error)
}

// MediaStore 课时媒体的对象存储
type MediaStore interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, filename string) error
}

type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
}

type CreateModuleRequest struct {
	CourseID    uint   `json:"courseId" binding:"required"`
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

type CreateLessonRequest struct {
	ModuleID uint   `json:"moduleId" binding:"required"`
	Title    string `json:"title" binding:"required,max=255"`
	Content  string `json:"content"`
	Order    int    `json:"order"`
}

type CreateSessionRequest struct {
	Title           string    `json:"title" binding:"required,max=255"`
	Description     string    `json:"description"`
	StartsAt        time.Time `json:"startsAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"omitempty,min=1"`
}

// CourseService 负责内容的创建与读取，创建时生成唯一 slug
type CourseService struct {
	Courses  CourseStore
	Modules  ModuleStore
	Lessons  LessonStore
	Sessions SessionStore
	Recorder ActivityRecorder
	Media    MediaStore
	Hooks    *PostCommit

	mu   sync.RWMutex
	slug config.SlugConfig
}

func NewCourseService(courses CourseStore, modules ModuleStore, lessons LessonStore, sessions SessionStore,
	recorder ActivityRecorder, media MediaStore, hooks *PostCommit, slugCfg config.SlugConfig) *CourseService {
	s := &CourseService{
		Courses:  courses,
		Modules:  modules,
		Lessons:  lessons,
		Sessions: sessions,
		Recorder: recorder,
		Media:    media,
		Hooks:    hooks,
	}
	s.SetSlugConfig(slugCfg)
	return s
}

// SetSlugConfig 配置热更新时调用
func (s *CourseService) SetSlugConfig(cfg config.SlugConfig) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = util.SlugMaxAttempts
	}
	if cfg.PersistRetries < 0 {
		cfg.PersistRetries = 0
	}
	s.mu.Lock()
	s.slug = cfg
	s.mu.Unlock()
}

func (s *CourseService) slugConfig() config.SlugConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slug
}

// createWithUniqueSlug 解析唯一 slug 后交给 persist 写入。
// 检查和写入之间存在竞争，写入时撞上唯一索引会重新解析再试。
func (s *CourseService) createWithUniqueSlug(ctx context.Context, title, fallback string,
	exists util.SlugExistsFunc, persist func(slug string) error) (string, error) {
	cfg := s.slugConfig()

	base := util.Slugify(title)
	if base == "" {
		base = fallback
	}

	for attempt := 0; attempt <= cfg.PersistRetries; attempt++ {
		slug := util.ResolveUniqueSlugN(ctx, base, exists, cfg.MaxAttempts)
		err := persist(slug)
		if err == nil {
			return slug, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", err
		}
		monitoring.SlugPersistConflicts.Inc()
		logger.Log.Info("slug taken at persist time, retrying",
			zap.String("slug", slug),
			zap.Int("attempt", attempt+1),
		)
	}
	return "", pkgerrors.Wrapf(util.ErrSlugUnavailable, "base %q", base)
}

func (s *CourseService) CreateCourse(ctx context.Context, principal *util.Claims, req CreateCourseRequest) (course *model.Course, err error) {
	ctx, span := tracing.StartSpan(ctx, "CourseService.CreateCourse")
	defer func() { tracing.EndSpan(span, err) }()

	if err = util.Authorize(principal, model.Teacher); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, pkgerrors.Wrap(util.ErrInvalidInput, "title is required")
	}

	_, err = s.createWithUniqueSlug(ctx, req.Title, util.DefaultCourseSlug, s.Courses.SlugExists, func(slug string) error {
		course = &model.Course{
			Title:       req.Title,
			Description: req.Description,
			Slug:        slug,
			AuthorID:    principal.UserID,
		}
		return s.Courses.Create(ctx, course)
	})
	if err != nil {
		return nil, err
	}

	s.Hooks.Run(ctx, "record course creation", recordHook(s.Recorder, ActivityEvent{
		UserID:       principal.UserID,
		ActivityType: model.ActivityCourseCreated,
		Title:        fmt.Sprintf("Created course %q", course.Title),
		Metadata:     map[string]interface{}{"courseId": course.ID, "slug": course.Slug},
	}))
	return course, nil
}

func (s *CourseService) CreateModule(ctx context.Context, principal *util.Claims, req CreateModuleRequest) (module *model.CourseModule, err error) {
	ctx, span := tracing.StartSpan(ctx, "CourseService.CreateModule", attribute.Int64("course.id", int64(req.CourseID)))
	defer func() { tracing.EndSpan(span, err) }()

	if err = util.Authorize(principal, model.Teacher); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, pkgerrors.Wrap(util.ErrInvalidInput, "title is required")
	}
	if _, err = s.Courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, err
	}

	_, err = s.createWithUniqueSlug(ctx, req.Title, util.DefaultModuleSlug, s.Modules.SlugExists, func(slug string) error {
		module = &model.CourseModule{
			CourseID:    req.CourseID,
			Title:       req.Title,
			Description: req.Description,
			Order:       req.Order,
			Slug:        slug,
		}
		return s.Modules.Create(ctx, module)
	})
	if err != nil {
		return nil, err
	}

	s.Hooks.Run(ctx, "record module creation", recordHook(s.Recorder, ActivityEvent{
		UserID:       principal.UserID,
		ActivityType: model.ActivityModuleCreated,
		Title:        fmt.Sprintf("Created module %q", module.Title),
		Metadata:     map[string]interface{}{"moduleId": module.ID, "courseId": module.CourseID, "slug": module.Slug},
	}))
	return module, nil
}

func (s *CourseService) CreateLesson(ctx context.Context, principal *util.Claims, req CreateLessonRequest) (lesson *model.Lesson, err error) {
	ctx, span := tracing.StartSpan(ctx, "CourseService.CreateLesson", attribute.Int64("module.id", int64(req.ModuleID)))
	defer func() { tracing.EndSpan(span, err) }()

	if err = util.Authorize(principal, model.Teacher); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, pkgerrors.Wrap(util.ErrInvalidInput, "title is required")
	}
	if _, err = s.Modules.FindByID(ctx, req.ModuleID); err != nil {
		return nil, err
	}

	_, err = s.createWithUniqueSlug(ctx, req.Title, util.DefaultLessonSlug, s.Lessons.SlugExists, func(slug string) error {
		lesson = &model.Lesson{
			ModuleID: req.ModuleID,
			Title:    req.Title,
			Content:  req.Content,
			Order:    req.Order,
			Slug:     slug,
		}
		return s.Lessons.Create(ctx, lesson)
	})
	if err != nil {
		return nil, err
	}

	s.Hooks.Run(ctx, "record lesson creation", recordHook(s.Recorder, ActivityEvent{
		UserID:       principal.UserID,
		ActivityType: model.ActivityLessonCreated,
		Title:        fmt.Sprintf("Created lesson %q", lesson.Title),
		Metadata:     map[string]interface{}{"lessonId": lesson.ID, "moduleId": lesson.ModuleID, "slug": lesson.Slug},
	}))
	return lesson, nil
}

func (s *CourseService) CreateSession(ctx context.Context, principal *util.Claims, req CreateSessionRequest) (session *model.ClassSession, err error) {
	ctx, span := tracing.StartSpan(ctx, "CourseService.CreateSession")
	defer func() { tracing.EndSpan(span, err) }()

	if err = util.Authorize(principal, model.Teacher); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" || req.StartsAt.IsZero() {
		return nil, pkgerrors.Wrap(util.ErrInvalidInput, "title and startsAt are required")
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = 60
	}
	session = &model.ClassSession{
		Title:           req.Title,
		Description:     req.Description,
		HostID:          principal.UserID,
		StartsAt:        req.StartsAt.UTC(),
		DurationMinutes: duration,
	}
	if err = s.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.Hooks.Run(ctx, "record session creation", recordHook(s.Recorder, ActivityEvent{
		UserID:       principal.UserID,
		ActivityType: model.ActivitySessionCreated,
		Title:        fmt.Sprintf("Scheduled session %q", session.Title),
		Metadata:     map[string]interface{}{"sessionId": session.ID, "startsAt": session.StartsAt},
	}))
	return session, nil
}

// UploadLessonMedia 上传课时媒体文件并替换旧文件，旧文件在提交后删除
func (s *CourseService) UploadLessonMedia(ctx context.Context, principal *util.Claims, lessonID uint,
	filename string, size int64, reader io.Reader) (lesson *model.Lesson, err error) {
	ctx, span := tracing.StartSpan(ctx, "CourseService.UploadLessonMedia", attribute.Int64("lesson.id", int64(lessonID)))
	defer func() { tracing.EndSpan(span, err) }()

	if err = util.Authorize(principal, model.Teacher); err != nil {
		return nil, err
	}
	if s.Media == nil {
		return nil, errors.New("media storage is not configured")
	}

	lesson, err = s.Lessons.FindByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	buffered := bufio.NewReaderSize(reader, mediaSniffBytes)
	head, err := buffered.Peek(mediaSniffBytes)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, pkgerrors.Wrap(err, "read media header")
	}
	contentType, err := util.DetectMimeType(bytes.NewReader(head), util.AllowedLessonMediaTypes)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("lessons/%d/%s%s", lessonID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
	url, err := s.Media.Upload(ctx, key, buffered, size, contentType)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "upload lesson media")
	}

	if err = s.Lessons.UpdateMedia(ctx, lessonID, key, url); err != nil {
		// 课时已不存在时清理刚上传的文件
		s.Hooks.Run(ctx, "remove orphaned media", func(ctx context.Context) error {
			return s.Media.Delete(ctx, key)
		})
		return nil, err
	}

	oldKey := lesson.MediaKey
	lesson.MediaKey = key
	lesson.MediaURL = url
	if oldKey != "" && oldKey != key {
		s.Hooks.Run(ctx, "remove replaced media", func(ctx context.Context) error {
			return s.Media.Delete(ctx, oldKey)
		})
	}
	return lesson, nil
}

func (s *CourseService) ListCourses(ctx context.Context, page, limit int) ([]model.Course, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Courses.List(ctx, page, limit)
}

func (s *CourseService) GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error) {
	return s.Courses.FindBySlug(ctx, slug)
}

// ListModules 按展示顺序返回课程下的模块
func (s *CourseService) ListModules(ctx context.Context, courseSlug string) ([]model.CourseModule, error) {
	course, err := s.Courses.FindBySlug(ctx, courseSlug)
	if err != nil {
		return nil, err
	}
	return s.Modules.ListByCourse(ctx, course.ID)
}

func (s *CourseService) ListLessons(ctx context.Context, moduleID uint) ([]model.Lesson, error) {
	if _, err := s.Modules.FindByID(ctx, moduleID); err != nil {
		return nil, err
	}
	return s.Lessons.ListByModule(ctx, moduleID)
}

func (s *CourseService) ListUpcomingSessions(ctx context.Context, limit int) ([]model.ClassSession, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Sessions.ListUpcoming(ctx, time.Now().UTC(), limit)
}
