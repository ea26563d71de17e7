package app

import (
	"course_hub_backend/docs"
	"course_hub_backend/internal/config"
	"course_hub_backend/internal/middleware"
	"course_hub_backend/internal/model"
	"course_hub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title CourseHub 后端 API
// @version 1.0
// @description 课程内容管理服务：课程、模块、课时与直播课。
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/me", c.auth.Me)
		authGroup.GET("/activities/recent", c.activity.Recent)

		// 教师相关接口
		a.registerTeacherRoutes(authGroup, c)

		// 管理员相关接口
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		public.GET("/courses", c.course.ListCourses)
		public.GET("/courses/:slug", c.course.GetCourse)
		public.GET("/courses/:slug/modules", c.course.ListModules)
		public.GET("/modules/:id/lessons", c.course.ListLessons)
		public.GET("/sessions/upcoming", c.course.ListSessions)
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/courses", c.course.CreateCourse)
		teacher.POST("/modules", c.course.CreateModule)
		teacher.POST("/lessons", c.course.CreateLesson)
		teacher.POST("/lessons/:id/media", c.course.UploadLessonMedia)
		teacher.POST("/sessions", c.course.CreateSession)
	}
}

// registerAdminRoutes 删除接口在服务层还会再次校验管理员身份
func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.DELETE("/modules/:id", c.hierarchy.DeleteModule)
		admin.DELETE("/lessons/:id", c.hierarchy.DeleteLesson)
		admin.DELETE("/sessions/:id", c.hierarchy.DeleteSession)
	}
}
