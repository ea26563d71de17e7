package model

// Course 课程，内容层级的根节点
type Course struct {
	BaseModel
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Slug        string         `gorm:"size:80;uniqueIndex;not null" json:"slug"`
	AuthorID    uint           `gorm:"index" json:"authorId"`
	Modules     []CourseModule `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}
