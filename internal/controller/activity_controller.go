package controller

import (
	"strconv"

	"course_hub_backend/internal/service"
	"course_hub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ActivityController struct {
	ActivityService *service.ActivityService
}

func NewActivityController(activityService *service.ActivityService) *ActivityController {
	return &ActivityController{ActivityService: activityService}
}

// Recent godoc
// @Summary 我的最近动态
// @Tags 动态
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量"
// @Success 200 {object} util.Response{data=[]service.FeedEntry} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/activities/recent [get]
func (c *ActivityController) Recent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	entries, err := c.ActivityService.Recent(ctx.Request.Context(), claims.UserID, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
