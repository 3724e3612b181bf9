package model

import (
	"time"
)

// PoolDayLayout 池日的日历格式
const PoolDayLayout = "2006-01-02"

// PoolDayOf 计算某时刻（UTC）所属池日
func PoolDayOf(t time.Time) string { return t.UTC().Format(PoolDayLayout) }

// Message 每个用户每个池日一条的匿名消息
type Message struct {
	ID      string `gorm:"primaryKey;type:varchar(36)"`
	UserID  string `gorm:"type:varchar(36);index;not null"`
	Content string `gorm:"type:text;not null"`
	// PoolDay 匹配池所属日历日（YYYY-MM-DD），创建后不变
	PoolDay      string `gorm:"type:varchar(10);index:idx_pool_created;not null"`
	AnalysisDone bool   `gorm:"not null;default:false"`
	// MatchedMessageID 一旦写入即为终态，后续匹配周期不再考虑该消息
	MatchedMessageID *string `gorm:"type:varchar(36);index"`
	MatchedAt        *time.Time
	Delivered        bool `gorm:"not null;default:false"`
	ReceivedAt       *time.Time
	// [MinDeliverTime, MaxDeliverTime] 之间才允许投递匹配结果
	MinDeliverTime time.Time `gorm:"not null"`
	MaxDeliverTime time.Time `gorm:"not null"`
	CreatedAt      time.Time `gorm:"index:idx_pool_created;not null"`

	Vibe *MessageVibe `gorm:"foreignKey:MessageID"`
}

func (Message) TableName() string { return "messages" }

// Matched 是否已处于匹配终态
func (m *Message) Matched() bool { return m.MatchedMessageID != nil }

// MessageStatus 轮询端看到的消息状态
const (
	StatusNoMessageSent = "no_message_sent"
	StatusWaiting       = "waiting"
	StatusPending       = "pending"
	StatusReceived      = "received"
	StatusNoMatchFound  = "no_match_found"
)
