package util

import (
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// DetectMimeType 根据文件内容识别 MIME 类型，allowedTypes 可以是前缀（如 "video/"）或完整类型
func DetectMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	mt, err := mimetype.DetectReader(reader)
	if err != nil {
		return "", errors.Wrap(err, "detect mime type")
	}

	mimeType := mt.String()
	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mt.Is(allowed) {
			return mimeType, nil
		}
	}

	return mimeType, errors.Wrapf(ErrInvalidMediaType, "got %s", mimeType)
}
