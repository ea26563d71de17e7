package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 课时媒体上传相关常量
const (
	MimeVideo = "video/"
	MimeImage = "image/"
	MimePDF   = "application/pdf"
)

var AllowedLessonMediaTypes = []string{MimeVideo, MimeImage, MimePDF}

// 内容实体标题为空或只含符号时使用的 slug 前缀
const (
	DefaultCourseSlug = "course"
	DefaultModuleSlug = "module"
	DefaultLessonSlug = "lesson"
)
