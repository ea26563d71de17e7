package model

// CourseModule 课程模块。Order 只用于展示排序，不要求唯一，
// 读取时以 created_at 作为第二排序键。
type CourseModule struct {
	BaseModel
	CourseID    uint     `gorm:"index;not null" json:"courseId"`
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Order       int      `gorm:"default:0" json:"order"`
	Slug        string   `gorm:"size:80;uniqueIndex;not null" json:"slug"`
	Lessons     []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}
