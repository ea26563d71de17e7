package controller

import (
	"errors"
	"net/http"

	"course_hub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 把服务层错误映射为 HTTP 响应，未知错误只返回通用提示
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUnauthenticated):
		util.Unauthorized(ctx)
	case errors.Is(err, util.ErrForbidden):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrInvalidInput), errors.Is(err, util.ErrInvalidMediaType):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrEmailRegistered):
		util.Conflict(ctx, util.ErrEmailRegistered.Error())
	case errors.Is(err, util.ErrSlugUnavailable):
		util.Error(ctx, http.StatusConflict, "slug conflict, please try again")
	default:
		util.LogInternalError(ctx, err)
	}
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, ok := util.ParseID(ctx.Param(name))
	if !ok {
		util.BadRequest(ctx, "invalid "+name)
	}
	return id, ok
}
