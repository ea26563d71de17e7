package model

import (
	"gorm.io/datatypes"
)

type ActivityType string

const (
	ActivityCourseCreated  ActivityType = "course_created"
	ActivityModuleCreated  ActivityType = "module_created"
	ActivityLessonCreated  ActivityType = "lesson_created"
	ActivitySessionCreated ActivityType = "session_created"
	ActivityModuleDeleted  ActivityType = "module_deleted"
	ActivityLessonDeleted  ActivityType = "lesson_deleted"
	ActivitySessionDeleted ActivityType = "session_deleted"
)

// Activity 用户操作记录，只写入一次，不更新
type Activity struct {
	UUIDBase
	UserID       uint              `gorm:"index;not null" json:"userId"`
	ActivityType ActivityType      `gorm:"size:50;index;not null" json:"activityType"`
	Title        string            `gorm:"size:255;not null" json:"title"`
	Description  string            `gorm:"type:text" json:"description,omitempty"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
}

func (Activity) TableName() string {
	return "activities"
}
