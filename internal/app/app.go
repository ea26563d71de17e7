package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course_hub_backend/internal/config"
	"course_hub_backend/internal/controller"
	"course_hub_backend/internal/repository"
	"course_hub_backend/internal/service"
	"course_hub_backend/pkg/database"
	"course_hub_backend/pkg/logger"
	"course_hub_backend/pkg/monitoring"
	"course_hub_backend/pkg/security"
	"course_hub_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	course   *repository.CourseRepository
	module   *repository.ModuleRepository
	lesson   *repository.LessonRepository
	session  *repository.SessionRepository
	activity *repository.ActivityRepository
}

type services struct {
	auth      *service.AuthService
	storage   *service.StorageService
	activity  *service.ActivityService
	course    *service.CourseService
	hierarchy *service.HierarchyService
	hooks     *service.PostCommit
}

type controllers struct {
	auth      *controller.AuthController
	course    *controller.CourseController
	hierarchy *controller.HierarchyController
	activity  *controller.ActivityController
	health    *controller.HealthController
}

// RegisterConfigCallback 配置热更新时依次调用
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 把重新加载的配置分发给已注册的回调
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		course:   repository.NewCourseRepository(db),
		module:   repository.NewModuleRepository(db),
		lesson:   repository.NewLessonRepository(db),
		session:  repository.NewSessionRepository(db),
		activity: repository.NewActivityRepository(db),
	}
}

func (a *App) initServices(r *repositories, cfg *config.Config, rdb *redis.Client) *services {
	hooks := service.NewPostCommit(cfg.Activity)
	storage := service.NewStorageService(cfg)
	activity := service.NewActivityService(r.activity, rdb, cfg.Activity.FeedSize)

	s := &services{
		auth:     service.NewAuthService(r.user, cfg),
		storage:  storage,
		activity: activity,
		hooks:    hooks,
		course: service.NewCourseService(r.course, r.module, r.lesson, r.session,
			activity, storage, hooks, cfg.Slug),
		hierarchy: service.NewHierarchyService(r.module, r.lesson, r.session, activity, storage, hooks),
	}

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		hooks.Configure(newCfg.Activity)
		s.course.SetSlugConfig(newCfg.Slug)
	})
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		course:    controller.NewCourseController(s.course),
		hierarchy: controller.NewHierarchyController(s.hierarchy),
		activity:  controller.NewActivityController(s.activity),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 组装应用。db 和 rdb 由调用方创建，rdb 可以为 nil
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(app.services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

// NewApp 连接数据库、Redis 和追踪后组装应用
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "initialize database")
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}, nil
	}

	// 动态流只是缓存，Redis 不可用时降级运行
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, activity feed falls back to database", zap.Error(err))
		rdb = nil
	}

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, errors.Wrap(err, "initialize tracing")
		}
	}

	app := New(cfg, db, rdb)
	app.tracer = tp
	return app, nil
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	errCh := make(chan error, 1)
	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	}
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	// 等待尚未完成的操作记录
	a.services.hooks.Wait()

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
	return nil
}
