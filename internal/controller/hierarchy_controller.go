package controller

import (
	"context"
	"net/http"

	"course_hub_backend/internal/service"
	"course_hub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type HierarchyController struct {
	HierarchyService *service.HierarchyService
}

func NewHierarchyController(hierarchyService *service.HierarchyService) *HierarchyController {
	return &HierarchyController{HierarchyService: hierarchyService}
}

type deleteFunc func(ctx context.Context, principal *util.Claims, id uint) *service.OperationResult

// DeleteModule godoc
// @Summary 删除模块（仅管理员）
// @Description 删除模块及其下全部课时，重复删除返回 404
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response{data=service.OperationResult} "删除成功"
// @Failure 400 {object} util.Response "参数错误"
// @Failure 401 {object} util.Response{data=service.OperationResult} "未认证"
// @Failure 403 {object} util.Response{data=service.OperationResult} "无权限"
// @Failure 404 {object} util.Response{data=service.OperationResult} "模块不存在"
// @Failure 500 {object} util.Response{data=service.OperationResult} "服务器内部错误"
// @Router /api/admin/modules/{id} [delete]
func (c *HierarchyController) DeleteModule(ctx *gin.Context) {
	c.handleDelete(ctx, c.HierarchyService.DeleteModule)
}

// DeleteLesson godoc
// @Summary 删除课时（仅管理员）
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.OperationResult} "删除成功"
// @Failure 404 {object} util.Response{data=service.OperationResult} "课时不存在"
// @Router /api/admin/lessons/{id} [delete]
func (c *HierarchyController) DeleteLesson(ctx *gin.Context) {
	c.handleDelete(ctx, c.HierarchyService.DeleteLesson)
}

// DeleteSession godoc
// @Summary 删除直播课（仅管理员）
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "直播课ID"
// @Success 200 {object} util.Response{data=service.OperationResult} "删除成功"
// @Failure 404 {object} util.Response{data=service.OperationResult} "直播课不存在"
// @Router /api/admin/sessions/{id} [delete]
func (c *HierarchyController) DeleteSession(ctx *gin.Context) {
	c.handleDelete(ctx, c.HierarchyService.DeleteSession)
}

func (c *HierarchyController) handleDelete(ctx *gin.Context, del deleteFunc) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	res := del(ctx.Request.Context(), util.GetUserFromContext(ctx), id)
	status := statusForResult(res)
	ctx.JSON(status, util.Response{
		Code:    status,
		Message: res.Message,
		Data:    res,
	})
}

func statusForResult(res *service.OperationResult) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Reason {
	case service.ReasonUnauthenticated:
		return http.StatusUnauthorized
	case service.ReasonForbidden:
		return http.StatusForbidden
	case service.ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
