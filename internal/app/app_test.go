package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"course_hub_backend/internal/config"
	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"
	"course_hub_backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "test-secret-with-enough-length-0123456789"

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	app    *App
	upload string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	uploads := t.TempDir()
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: "test"},
		JWT:       config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Storage:   config.StorageConfig{Type: util.StorageLocal, LocalPath: uploads, PublicBaseURL: "/uploads"},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
		Slug:      config.SlugConfig{MaxAttempts: 100, PersistRetries: 3},
		Activity:  config.ActivityConfig{Timeout: time.Second, FeedSize: 20},
	}

	return &testServer{t: t, app: New(cfg, db, nil), upload: uploads}
}

func (s *testServer) token(id uint, role model.UserRole) string {
	s.t.Helper()
	token, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: id}, Role: role}, testSecret, time.Hour)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *testServer) serve(req *http.Request) (*httptest.ResponseRecorder, apiResponse) {
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Header().Get("Content-Type") != "" && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// seedHierarchy 通过 HTTP 创建一门课程、一个模块和若干课时
func (s *testServer) seedHierarchy(lessons int) (model.Course, model.CourseModule, []model.Lesson) {
	s.t.Helper()
	teacher := s.token(2, model.Teacher)

	w, resp := s.do(http.MethodPost, "/api/teacher/courses", teacher, map[string]interface{}{"title": "Go Programming"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	course := decode[model.Course](s.t, resp.Data)

	w, resp = s.do(http.MethodPost, "/api/teacher/modules", teacher, map[string]interface{}{"courseId": course.ID, "title": "Basics"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	module := decode[model.CourseModule](s.t, resp.Data)

	var created []model.Lesson
	for i := 0; i < lessons; i++ {
		w, resp = s.do(http.MethodPost, "/api/teacher/lessons", teacher, map[string]interface{}{
			"moduleId": module.ID,
			"title":    fmt.Sprintf("Lesson %d", i+1),
			"order":    i,
		})
		require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
		created = append(created, decode[model.Lesson](s.t, resp.Data))
	}
	return course, module, created
}

func TestDeleteModuleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	course, module, lessons := s.seedHierarchy(3)
	require.Len(t, lessons, 3)
	admin := s.token(1, model.Admin)
	path := fmt.Sprintf("/api/admin/modules/%d", module.ID)

	w, resp := s.do(http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[map[string]interface{}](t, resp.Data)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "module deleted successfully", result["message"])

	// 课时随模块一起删除
	var remaining int64
	require.NoError(t, s.app.DB.Model(&model.Lesson{}).Where("module_id = ?", module.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	w, _ = s.do(http.MethodGet, fmt.Sprintf("/api/modules/%d/lessons", module.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = s.do(http.MethodGet, "/api/courses/"+course.Slug+"/modules", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]model.CourseModule](t, resp.Data))

	// 第二次删除返回 404
	w, resp = s.do(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	result = decode[map[string]interface{}](t, resp.Data)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "module not found", result["message"])

	// 记录了删除动态
	var activities []model.Activity
	require.NoError(t, s.app.DB.Where("activity_type = ?", model.ActivityModuleDeleted).Find(&activities).Error)
	require.Len(t, activities, 1)
	assert.Equal(t, uint(1), activities[0].UserID)
}

func TestDeleteRequiresAdminOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, module, _ := s.seedHierarchy(1)
	path := fmt.Sprintf("/api/admin/modules/%d", module.ID)

	w, _ := s.do(http.MethodDelete, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodDelete, path, s.token(2, model.Teacher), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodDelete, path, "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodDelete, "/api/admin/modules/abc", s.token(1, model.Admin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, s.app.DB.Model(&model.CourseModule{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDeleteLessonAndSessionOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, module, lessons := s.seedHierarchy(2)
	admin := s.token(1, model.Admin)

	w, _ := s.do(http.MethodDelete, fmt.Sprintf("/api/admin/lessons/%d", lessons[0].ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := s.do(http.MethodGet, fmt.Sprintf("/api/modules/%d/lessons", module.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	remaining := decode[[]model.Lesson](t, resp.Data)
	require.Len(t, remaining, 1)
	assert.Equal(t, lessons[1].ID, remaining[0].ID)

	w, resp = s.do(http.MethodPost, "/api/teacher/sessions", s.token(2, model.Teacher), map[string]interface{}{
		"title":    "Office hours",
		"startsAt": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[model.ClassSession](t, resp.Data)

	w, resp = s.do(http.MethodGet, "/api/sessions/upcoming", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.ClassSession](t, resp.Data), 1)

	path := fmt.Sprintf("/api/admin/sessions/%d", session.ID)
	w, _ = s.do(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateCourseSlugsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	teacher := s.token(2, model.Teacher)

	var slugs []string
	for _, title := range []string{"Data Structures", "Data   Structures!", "???"} {
		w, resp := s.do(http.MethodPost, "/api/teacher/courses", teacher, map[string]interface{}{"title": title})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		slugs = append(slugs, decode[model.Course](t, resp.Data).Slug)
	}
	assert.Equal(t, []string{"data-structures", "data-structures-1", "course"}, slugs)

	w, resp := s.do(http.MethodGet, "/api/courses/data-structures-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Data   Structures!", decode[model.Course](t, resp.Data).Title)

	w, _ = s.do(http.MethodPost, "/api/teacher/courses", s.token(3, model.Student), map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, "/api/teacher/courses", teacher, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/teacher/modules", teacher, map[string]interface{}{"courseId": 999, "title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = s.do(http.MethodGet, "/api/courses?page=1&limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Items []model.Course `json:"items"`
		Total int64          `json:"total"`
	}](t, resp.Data)
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 3, page.Total)
}

func TestLessonMediaLifecycle(t *testing.T) {
	s := newTestServer(t)
	_, module, lessons := s.seedHierarchy(1)
	teacher := s.token(2, model.Teacher)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "slides.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/teacher/lessons/%d/media", lessons[0].ID), &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+teacher)
	w, resp := s.serve(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	lesson := decode[model.Lesson](t, resp.Data)
	require.NotEmpty(t, lesson.MediaKey)
	stored := filepath.Join(s.upload, filepath.FromSlash(lesson.MediaKey))
	_, err = os.Stat(stored)
	require.NoError(t, err)

	// 删除模块后媒体文件也被清理
	w, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/modules/%d", module.ID), s.token(1, model.Admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))
}

func TestAuthFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodPost, "/api/register", "", map[string]interface{}{
		"name": "Grace", "email": "grace@example.com", "password": "password123", "role": "teacher",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.do(http.MethodPost, "/api/register", "", map[string]interface{}{
		"name": "Grace", "email": "grace@example.com", "password": "password123", "role": "teacher",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPost, "/api/login", "", map[string]interface{}{"email": "grace@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := s.do(http.MethodPost, "/api/login", "", map[string]interface{}{"email": "grace@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[struct {
		Token string `json:"token"`
	}](t, resp.Data)
	require.NotEmpty(t, login.Token)

	w, resp = s.do(http.MethodGet, "/api/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "grace@example.com", decode[model.User](t, resp.Data).Email)

	w, resp = s.do(http.MethodPost, "/api/teacher/courses", login.Token, map[string]interface{}{"title": "Compilers"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp = s.do(http.MethodGet, "/api/activities/recent", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]map[string]interface{}](t, resp.Data)
	require.Len(t, entries, 1)
	assert.Equal(t, string(model.ActivityCourseCreated), entries[0]["activityType"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"redis":"disabled"`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.app.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestApplyConfigUpdatesServices(t *testing.T) {
	s := newTestServer(t)

	cfg := *s.app.Config
	cfg.Activity.Async = true
	cfg.Slug.MaxAttempts = 5
	s.app.ApplyConfig(&cfg)

	teacher := s.token(2, model.Teacher)
	w, _ := s.do(http.MethodPost, "/api/teacher/courses", teacher, map[string]interface{}{"title": "Async"})
	require.Equal(t, http.StatusCreated, w.Code)
	s.app.services.hooks.Wait()

	var count int64
	require.NoError(t, s.app.DB.Model(&model.Activity{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
