package repository

import (
	"context"
	"testing"

	"course_hub_backend/internal/model"
	"course_hub_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 每个测试一个独立的内存数据库
func newTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(tb, err)

	sqlDB, err := db.DB()
	require.NoError(tb, err)
	// 内存库每个连接都是独立的数据库，只允许一个连接
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(tb, database.Migrate(db))
	return db
}

func seedCourse(tb testing.TB, db *gorm.DB, slug string) *model.Course {
	tb.Helper()
	course := &model.Course{Title: slug, Slug: slug}
	require.NoError(tb, NewCourseRepository(db).Create(context.Background(), course))
	return course
}

func seedModule(tb testing.TB, db *gorm.DB, courseID uint, slug string, order int) *model.CourseModule {
	tb.Helper()
	module := &model.CourseModule{CourseID: courseID, Title: slug, Slug: slug, Order: order}
	require.NoError(tb, NewModuleRepository(db).Create(context.Background(), module))
	return module
}

func seedLesson(tb testing.TB, db *gorm.DB, moduleID uint, slug, mediaKey string) *model.Lesson {
	tb.Helper()
	lesson := &model.Lesson{ModuleID: moduleID, Title: slug, Slug: slug, MediaKey: mediaKey}
	require.NoError(tb, NewLessonRepository(db).Create(context.Background(), lesson))
	return lesson
}
