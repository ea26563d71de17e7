package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"course_hub_backend/internal/model"
	"course_hub_backend/internal/repository"
	"course_hub_backend/internal/util"

	"gorm.io/gorm"
)

// memStore 内存版存储，按表加锁模拟数据库行为
type memStore struct {
	mu       sync.Mutex
	nextID   uint
	courses  map[uint]*model.Course
	modules  map[uint]*model.CourseModule
	lessons  map[uint]*model.Lesson
	sessions map[uint]*model.ClassSession
	users    map[uint]*model.User

	// 注入的故障
	deleteErr    error
	deletePanic  bool
	createErrs   []error // 依次返回给 Create，用完后正常写入
	slugExistErr error
}

func newMemStore() *memStore {
	return &memStore{
		courses:  map[uint]*model.Course{},
		modules:  map[uint]*model.CourseModule{},
		lessons:  map[uint]*model.Lesson{},
		sessions: map[uint]*model.ClassSession{},
		users:    map[uint]*model.User{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

// popCreateErr 调用方需持有锁
func (m *memStore) popCreateErr() error {
	if len(m.createErrs) == 0 {
		return nil
	}
	err := m.createErrs[0]
	m.createErrs = m.createErrs[1:]
	return err
}

func (m *memStore) lessonCount(moduleID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.lessons {
		if l.ModuleID == moduleID {
			n++
		}
	}
	return n
}

type fakeCourses struct{ *memStore }

func (f fakeCourses) Create(ctx context.Context, course *model.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popCreateErr(); err != nil {
		return err
	}
	for _, c := range f.courses {
		if c.Slug == course.Slug {
			return gorm.ErrDuplicatedKey
		}
	}
	course.ID = f.id()
	course.CreatedAt = time.Now()
	cp := *course
	f.courses[course.ID] = &cp
	return nil
}

func (f fakeCourses) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return nil, util.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeCourses) FindBySlug(ctx context.Context, slug string) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.courses {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, util.ErrCourseNotFound
}

func (f fakeCourses) SlugExists(ctx context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slugExistErr != nil {
		return false, f.slugExistErr
	}
	for _, c := range f.courses {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeCourses) List(ctx context.Context, page, limit int) ([]model.Course, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Course
	for _, c := range f.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	start := (page - 1) * limit
	if start >= len(out) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

type fakeModules struct{ *memStore }

func (f fakeModules) Create(ctx context.Context, module *model.CourseModule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popCreateErr(); err != nil {
		return err
	}
	for _, m := range f.modules {
		if m.Slug == module.Slug {
			return gorm.ErrDuplicatedKey
		}
	}
	module.ID = f.id()
	module.CreatedAt = time.Now()
	cp := *module
	f.modules[module.ID] = &cp
	return nil
}

func (f fakeModules) FindByID(ctx context.Context, id uint) (*model.CourseModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.modules[id]
	if !ok {
		return nil, util.ErrModuleNotFound
	}
	cp := *m
	return &cp, nil
}

func (f fakeModules) SlugExists(ctx context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.modules {
		if m.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeModules) ListByCourse(ctx context.Context, courseID uint) ([]model.CourseModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CourseModule
	for _, m := range f.modules {
		if m.CourseID == courseID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f fakeModules) DeleteCascade(ctx context.Context, id uint) (*repository.CascadeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deletePanic {
		panic("storage exploded")
	}
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}

	res := &repository.CascadeResult{}
	for lid, l := range f.lessons {
		if l.ModuleID == id {
			if l.MediaKey != "" {
				res.MediaKeys = append(res.MediaKeys, l.MediaKey)
			}
			delete(f.lessons, lid)
			res.LessonsDeleted++
		}
	}
	if _, ok := f.modules[id]; !ok {
		return nil, util.ErrModuleNotFound
	}
	delete(f.modules, id)
	return res, nil
}

type fakeLessons struct{ *memStore }

func (f fakeLessons) Create(ctx context.Context, lesson *model.Lesson) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popCreateErr(); err != nil {
		return err
	}
	for _, l := range f.lessons {
		if l.Slug == lesson.Slug {
			return gorm.ErrDuplicatedKey
		}
	}
	lesson.ID = f.id()
	lesson.CreatedAt = time.Now()
	cp := *lesson
	f.lessons[lesson.ID] = &cp
	return nil
}

func (f fakeLessons) FindByID(ctx context.Context, id uint) (*model.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lessons[id]
	if !ok {
		return nil, util.ErrLessonNotFound
	}
	cp := *l
	return &cp, nil
}

func (f fakeLessons) SlugExists(ctx context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lessons {
		if l.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeLessons) ListByModule(ctx context.Context, moduleID uint) ([]model.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Lesson
	for _, l := range f.lessons {
		if l.ModuleID == moduleID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeLessons) UpdateMedia(ctx context.Context, id uint, key, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lessons[id]
	if !ok {
		return util.ErrLessonNotFound
	}
	l.MediaKey = key
	l.MediaURL = url
	return nil
}

func (f fakeLessons) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.lessons[id]; !ok {
		return util.ErrLessonNotFound
	}
	delete(f.lessons, id)
	return nil
}

type fakeSessions struct{ *memStore }

func (f fakeSessions) Create(ctx context.Context, session *model.ClassSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.ID = f.id()
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f fakeSessions) FindByID(ctx context.Context, id uint) (*model.ClassSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f fakeSessions) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]model.ClassSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ClassSession
	for _, s := range f.sessions {
		if !s.StartsAt.Before(from) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeSessions) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.sessions[id]; !ok {
		return util.ErrSessionNotFound
	}
	delete(f.sessions, id)
	return nil
}

type fakeUsers struct{ *memStore }

func (f fakeUsers) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return util.ErrEmailRegistered
		}
	}
	user.ID = f.id()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f fakeUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, util.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, util.ErrUserNotFound
}

// fakeRecorder 记录收到的事件，可以配置为失败或 panic
type fakeRecorder struct {
	mu     sync.Mutex
	events []ActivityEvent
	fail   bool
	panics bool
}

func (r *fakeRecorder) Record(ctx context.Context, event ActivityEvent) RecordResult {
	if r.panics {
		panic("recorder exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return RecordResult{Err: context.DeadlineExceeded}
	}
	r.events = append(r.events, event)
	return RecordResult{Success: true}
}

func (r *fakeRecorder) Events() []ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ActivityEvent(nil), r.events...)
}

type fakeMedia struct {
	mu       sync.Mutex
	uploaded map[string]string // key -> content type
	deleted  []string
	err      error
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{uploaded: map[string]string{}}
}

func (m *fakeMedia) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.uploaded[filename] = contentType
	return "/uploads/" + filename, nil
}

func (m *fakeMedia) Delete(ctx context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, filename)
	return nil
}

func (m *fakeMedia) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func adminClaims() *util.Claims {
	return &util.Claims{UserID: 1, Role: model.Admin, Email: "admin@example.com"}
}

func teacherClaims() *util.Claims {
	return &util.Claims{UserID: 2, Role: model.Teacher, Email: "teacher@example.com"}
}

func studentClaims() *util.Claims {
	return &util.Claims{UserID: 3, Role: model.Student, Email: "student@example.com"}
}
