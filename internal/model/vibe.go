package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Intent 消息意图枚举
const (
	IntentVenting       = "venting"
	IntentSeekingAdvice = "seeking_advice"
	IntentSharing       = "sharing"
)

// EmotionMap 情绪分类→强度，序列化为 JSON 存储
type EmotionMap map[string]float64

func (m EmotionMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *EmotionMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("emotion map: unsupported scan type")
	}
}

// StringList 话题标签列表，序列化为 JSON 存储
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("string list: unsupported scan type")
	}
}

// MessageVibe 提交时一次性产出的情绪特征，之后不再变更
type MessageVibe struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	MessageID string `gorm:"type:varchar(36);uniqueIndex;not null"`
	// SentimentScore ∈ [-1,1]
	SentimentScore float64    `gorm:"not null;default:0"`
	EmotionMap     EmotionMap `gorm:"type:text"`
	Intent         string     `gorm:"type:varchar(100)"`
	// EnergyScalar ∈ [0,1]
	EnergyScalar    float64    `gorm:"not null;default:0.5"`
	PolarityYinYang float64    `gorm:"not null;default:0"`
	LexicalDepth    float64    `gorm:"not null;default:0"`
	TopicTags       StringList `gorm:"type:text"`
	CreatedAt       time.Time
}

func (MessageVibe) TableName() string { return "message_vibes" }
