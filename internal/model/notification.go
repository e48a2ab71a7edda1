package model

import "time"

// UserNotification is an in-app notification record.
type UserNotification struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Type      string    `gorm:"size:40" json:"type"`
	Screen    *string   `gorm:"size:100" json:"screen"`
	Data      JSONMap   `gorm:"type:jsonb" json:"data"`
	Delivered bool      `gorm:"not null;default:false" json:"delivered"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserNotification) TableName() string {
	return "user_notifications"
}

// UserPushToken is a registered mobile push token.
type UserPushToken struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string    `gorm:"size:255;not null" json:"token"`
	Platform  string    `gorm:"size:20" json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserPushToken) TableName() string {
	return "user_push_tokens"
}
