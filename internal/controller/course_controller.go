package controller

import (
	"strconv"

	"course_hub_backend/internal/service"
	"course_hub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// ListCourses godoc
// @Summary 课程列表
// @Tags 课程
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	courses, total, err := c.CourseService.ListCourses(ctx.Request.Context(), page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"items": courses,
		"total": total,
		"page":  page,
	})
}

// GetCourse godoc
// @Summary 按 slug 获取课程
// @Tags 课程
// @Produce json
// @Param slug path string true "课程 slug"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{slug} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	course, err := c.CourseService.GetCourseBySlug(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// ListModules godoc
// @Summary 课程下的模块
// @Description 按 order 排序，order 相同时按创建时间
// @Tags 课程
// @Produce json
// @Param slug path string true "课程 slug"
// @Success 200 {object} util.Response{data=[]model.CourseModule} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{slug}/modules [get]
func (c *CourseController) ListModules(ctx *gin.Context) {
	modules, err := c.CourseService.ListModules(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}

// ListLessons godoc
// @Summary 模块下的课时
// @Tags 课程
// @Produce json
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response{data=[]model.Lesson} "成功"
// @Failure 404 {object} util.Response "模块不存在"
// @Router /api/modules/{id}/lessons [get]
func (c *CourseController) ListLessons(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	lessons, err := c.CourseService.ListLessons(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// ListSessions godoc
// @Summary 即将开始的直播课
// @Tags 课程
// @Produce json
// @Param limit query int false "数量" default(20)
// @Success 200 {object} util.Response{data=[]model.ClassSession} "成功"
// @Router /api/sessions/upcoming [get]
func (c *CourseController) ListSessions(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	sessions, err := c.CourseService.ListUpcomingSessions(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, sessions)
}

// CreateCourse godoc
// @Summary 创建课程（教师）
// @Description slug 由标题生成，冲突时自动追加序号
// @Tags 教师
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateCourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "无权限"
// @Router /api/teacher/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req service.CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.CreateCourse(ctx.Request.Context(), util.GetUserFromContext(ctx), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// CreateModule godoc
// @Summary 创建模块（教师）
// @Tags 教师
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateModuleRequest true "模块信息"
// @Success 201 {object} util.Response{data=model.CourseModule} "创建成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/teacher/modules [post]
func (c *CourseController) CreateModule(ctx *gin.Context) {
	var req service.CreateModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	module, err := c.CourseService.CreateModule(ctx.Request.Context(), util.GetUserFromContext(ctx), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

// CreateLesson godoc
// @Summary 创建课时（教师）
// @Tags 教师
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateLessonRequest true "课时信息"
// @Success 201 {object} util.Response{data=model.Lesson} "创建成功"
// @Failure 404 {object} util.Response "模块不存在"
// @Router /api/teacher/lessons [post]
func (c *CourseController) CreateLesson(ctx *gin.Context) {
	var req service.CreateLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.CourseService.CreateLesson(ctx.Request.Context(), util.GetUserFromContext(ctx), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// CreateSession godoc
// @Summary 创建直播课（教师）
// @Tags 教师
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateSessionRequest true "直播课信息"
// @Success 201 {object} util.Response{data=model.ClassSession} "创建成功"
// @Router /api/teacher/sessions [post]
func (c *CourseController) CreateSession(ctx *gin.Context) {
	var req service.CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.CourseService.CreateSession(ctx.Request.Context(), util.GetUserFromContext(ctx), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, session)
}

// UploadLessonMedia godoc
// @Summary 上传课时媒体（教师）
// @Description 支持视频、图片和 PDF，按文件内容识别类型
// @Tags 教师
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Param file formData file true "媒体文件"
// @Success 200 {object} util.Response{data=model.Lesson} "上传成功"
// @Failure 400 {object} util.Response "文件类型不支持"
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/teacher/lessons/{id}/media [post]
func (c *CourseController) UploadLessonMedia(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	lesson, err := c.CourseService.UploadLessonMedia(ctx.Request.Context(), util.GetUserFromContext(ctx), id,
		header.Filename, header.Size, file)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}
