package util

import "course_hub_backend/internal/model"

// Authorize 判断主体是否具备 required 角色。管理员拥有全部角色的权限。
// 只做判断，不做认证，调用方须在任何写操作之前调用。
func Authorize(principal *Claims, required model.UserRole) error {
	if principal == nil || principal.UserID == 0 {
		return ErrUnauthenticated
	}
	if principal.Role == model.Admin || principal.Role == required {
		return nil
	}
	return ErrForbidden
}
