package model

type Lesson struct {
	BaseModel
	ModuleID uint   `gorm:"index;not null" json:"moduleId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	Order    int    `gorm:"default:0" json:"order"`
	Slug     string `gorm:"size:80;uniqueIndex;not null" json:"slug"`
	MediaKey string `gorm:"size:255" json:"mediaKey,omitempty"` // 对象存储中的文件名
	MediaURL string `gorm:"size:512" json:"mediaUrl,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}
