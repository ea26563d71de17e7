package util

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"course_hub_backend/pkg/logger"
	"course_hub_backend/pkg/monitoring"

	"go.uber.org/zap"
)

const (
	// SlugMaxLength 规范化后 slug 的最大字符数
	SlugMaxLength = 50
	// SlugMaxAttempts 计数后缀方案最多检查的候选数，超过后改用时间戳
	SlugMaxAttempts = 100
)

var (
	slugInvalid = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)
	slugHyphens = regexp.MustCompile(`-{2,}`)
)

// SlugExistsFunc 查询 slug 是否已被占用
type SlugExistsFunc func(ctx context.Context, slug string) (bool, error)

// Slugify 把任意文本转换为 URL 安全的 slug
func Slugify(text string) string {
	// 按 Unicode 空白切分，全角空格、NBSP 等同样视为分隔符
	s := strings.Join(strings.FieldsFunc(strings.ToLower(text), unicode.IsSpace), "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if runes := []rune(s); len(runes) > SlugMaxLength {
		s = strings.TrimRight(string(runes[:SlugMaxLength]), "-")
	}
	return s
}

// ResolveUniqueSlug 返回第一个未被占用的候选 slug。
// 依次尝试 base, base-1, base-2 ...，检查 SlugMaxAttempts 次仍被占用时
// 返回 base-<毫秒时间戳>，该兜底值不再复查。
func ResolveUniqueSlug(ctx context.Context, base string, exists SlugExistsFunc) string {
	return resolveUniqueSlug(ctx, base, exists, SlugMaxAttempts)
}

// ResolveUniqueSlugN 与 ResolveUniqueSlug 相同，但可以指定最大检查次数
func ResolveUniqueSlugN(ctx context.Context, base string, exists SlugExistsFunc, maxAttempts int) string {
	if maxAttempts <= 0 {
		maxAttempts = SlugMaxAttempts
	}
	return resolveUniqueSlug(ctx, base, exists, maxAttempts)
}

func resolveUniqueSlug(ctx context.Context, base string, exists SlugExistsFunc, maxAttempts int) string {
	candidate := base
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			// 上下文已取消，返回未校验的候选值，后续写入会因 ctx 失败
			return candidate
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			// 查询失败时按已占用处理
			logger.Log.Warn("slug lookup failed",
				zap.String("candidate", candidate),
				zap.Error(err),
			)
			taken = true
		}
		if !taken {
			monitoring.SlugResolutionAttempts.Observe(float64(attempt))
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}

	monitoring.SlugResolutionFallbacks.Inc()
	fallback := fmt.Sprintf("%s-%d", base, time.Now().UnixMilli())
	logger.Log.Warn("slug resolution fell back to timestamp",
		zap.String("base", base),
		zap.String("slug", fallback),
	)
	return fallback
}
