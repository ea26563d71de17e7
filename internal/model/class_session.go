package model

import "time"

// ClassSession 可排期的直播课，独立于课程层级，删除时没有级联
type ClassSession struct {
	BaseModel
	Title           string    `gorm:"size:255;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	HostID          uint      `gorm:"index" json:"hostId"`
	StartsAt        time.Time `gorm:"index" json:"startsAt"`
	DurationMinutes int       `gorm:"default:60" json:"durationMinutes"`
}

func (ClassSession) TableName() string {
	return "class_sessions"
}
