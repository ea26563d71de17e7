package util

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidMediaType   = errors.New("invalid media type")
	ErrInvalidInput       = errors.New("invalid input")
	ErrSlugUnavailable    = errors.New("no unique slug available")

	ErrCourseNotFound  = fmt.Errorf("course %w", ErrNotFound)
	ErrModuleNotFound  = fmt.Errorf("module %w", ErrNotFound)
	ErrLessonNotFound  = fmt.Errorf("lesson %w", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
)
