package model

import (
	"time"
)

// User 匿名用户：只靠不透明 token 识别，没有账号密码体系
type User struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	AnonToken string `gorm:"type:varchar(64);uniqueIndex;not null"`
	// Email 可选，仅用于匹配成功后的通知
	Email     string `gorm:"type:varchar(255)"`
	Timezone  string `gorm:"type:varchar(50);default:UTC"`
	Locale    string `gorm:"type:varchar(10);default:en"`
	CreatedAt time.Time
}

func (User) TableName() string { return "users" }
