package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/killthisworld/vybrix/internal/model"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	// ErrAlreadyMatched 目标消息已被先前的指派占用（先到先得）
	ErrAlreadyMatched = errors.New("message already matched")
)

type MessageRepository interface {
	// Create 同一事务内落消息与特征行
	Create(ctx context.Context, msg *model.Message, vibe *model.MessageVibe) error
	CountForUserDay(ctx context.Context, userID, poolDay string) (int64, error)
	FindForUserDay(ctx context.Context, userID, poolDay string) (*model.Message, error)
	FindByID(ctx context.Context, id string) (*model.Message, error)
	// ListCandidates 返回指定池日内未匹配且已过最早投递时间的消息，
	// 按创建时间升序。该顺序决定指派扫描顺序，不能改。
	ListCandidates(ctx context.Context, poolDay string, now time.Time) ([]*model.Message, error)
	// SaveMatch 双向落一对匹配；任何一侧已有归属则整体放弃并报 ErrAlreadyMatched
	SaveMatch(ctx context.Context, idA, idB string, at time.Time) error
	MarkReceived(ctx context.Context, id string, at time.Time) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository { return &messageRepository{db: db} }

func (r *messageRepository) Create(ctx context.Context, msg *model.Message, vibe *model.MessageVibe) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Create(vibe).Error
	})
}

func (r *messageRepository) CountForUserDay(ctx context.Context, userID, poolDay string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("user_id = ? AND pool_day = ?", userID, poolDay).
		Count(&cnt).Error
	return cnt, err
}

func (r *messageRepository) FindForUserDay(ctx context.Context, userID, poolDay string) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).Preload("Vibe").
		Where("user_id = ? AND pool_day = ?", userID, poolDay).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListCandidates(ctx context.Context, poolDay string, now time.Time) ([]*model.Message, error) {
	var msgs []*model.Message
	err := r.db.WithContext(ctx).Preload("Vibe").
		Where("pool_day = ? AND matched_message_id IS NULL AND min_deliver_time <= ?", poolDay, now).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) SaveMatch(ctx context.Context, idA, idB string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, pair := range [][2]string{{idA, idB}, {idB, idA}} {
			res := tx.Model(&model.Message{}).
				Where("id = ? AND matched_message_id IS NULL", pair[0]).
				Updates(map[string]interface{}{
					"matched_message_id": pair[1],
					"matched_at":         at,
					"delivered":          true,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrAlreadyMatched
			}
		}
		return nil
	})
}

func (r *messageRepository) MarkReceived(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND received_at IS NULL", id).
		Update("received_at", at).Error
}
