package util

import (
	"strconv"
)

// ParseID 解析路径中的数字 ID，非法或为 0 时返回 false
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
