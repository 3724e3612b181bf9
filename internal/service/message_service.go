package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/killthisworld/vybrix/config"
	"github.com/killthisworld/vybrix/internal/analysis"
	"github.com/killthisworld/vybrix/internal/model"
	"github.com/killthisworld/vybrix/internal/repository"
)

var (
	ErrEmptyContent = errors.New("message content is required")
	ErrInvalidToken = errors.New("invalid token")
	// ErrDailyLimit 每人每池日只能发一条
	ErrDailyLimit = errors.New("you can only send one message per day")
)

// statusCacheTTL 终态查询结果的缓存时长（终态不会再变，可放心缓存）
const statusCacheTTL = 10 * time.Minute

type SendResult struct {
	Token     string `json:"token"`
	MessageID string `json:"messageId"`
}

// ReceiveResult 轮询端的状态视图
type ReceiveResult struct {
	Status      string     `json:"status"`
	Message     string     `json:"message,omitempty"`
	MatchedAt   *time.Time `json:"matchedAt,omitempty"`
	MinutesLeft int        `json:"minutesLeft,omitempty"`
}

type MessageService interface {
	Send(ctx context.Context, content, token, email string) (*SendResult, error)
	Receive(ctx context.Context, token string, now time.Time) (*ReceiveResult, error)
}

type messageService struct {
	userRepo repository.UserRepository
	msgRepo  repository.MessageRepository
	rdb      *redis.Client
	minDelay time.Duration
	maxDelay time.Duration
}

func NewMessageService(userRepo repository.UserRepository, msgRepo repository.MessageRepository, rdb *redis.Client, cfg *config.Config) MessageService {
	return &messageService{
		userRepo: userRepo,
		msgRepo:  msgRepo,
		rdb:      rdb,
		minDelay: cfg.Matching.MinDeliverDelay,
		maxDelay: cfg.Matching.MaxDeliverDelay,
	}
}

// Send 接收一条匿名消息：无 token 时当场建新用户，
// 提交即做一次性特征分析并写死投递窗口。
func (s *messageService) Send(ctx context.Context, content, token, email string) (*SendResult, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}

	var user *model.User
	var err error
	if token != "" {
		user, err = s.userRepo.FindByToken(ctx, token)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		if err != nil {
			return nil, err
		}
	} else {
		token = uuid.New().String()
		user, err = s.userRepo.Create(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	if email != "" && email != user.Email {
		if err := s.userRepo.SetEmail(ctx, user.ID, email); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	poolDay := model.PoolDayOf(now)

	sent, err := s.msgRepo.CountForUserDay(ctx, user.ID, poolDay)
	if err != nil {
		return nil, err
	}
	if sent > 0 {
		return nil, ErrDailyLimit
	}

	res := analysis.Analyze(content)
	msg := &model.Message{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Content:        content,
		PoolDay:        poolDay,
		AnalysisDone:   true,
		MinDeliverTime: now.Add(s.minDelay),
		MaxDeliverTime: now.Add(s.maxDelay),
		CreatedAt:      now,
	}
	vibe := &model.MessageVibe{
		ID:              uuid.New().String(),
		MessageID:       msg.ID,
		SentimentScore:  res.SentimentScore,
		EmotionMap:      res.EmotionMap,
		Intent:          res.Intent,
		EnergyScalar:    res.EnergyScalar,
		PolarityYinYang: res.PolarityYinYang,
		LexicalDepth:    res.LexicalDepth,
		TopicTags:       res.TopicTags,
	}
	if err := s.msgRepo.Create(ctx, msg, vibe); err != nil {
		return nil, err
	}

	return &SendResult{Token: token, MessageID: msg.ID}, nil
}

// Receive 解析今天这条消息的投递状态。
// 判定顺序与状态机一致：已匹配已投递 → received；
// 未到最早投递时间 → waiting；过了最晚时间还没匹配 → no_match_found；
// 其余都是 pending。
func (s *messageService) Receive(ctx context.Context, token string, now time.Time) (*ReceiveResult, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.userRepo.FindByToken(ctx, token)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	poolDay := model.PoolDayOf(now)
	if cached := s.cachedStatus(ctx, user.ID, poolDay); cached != nil {
		return cached, nil
	}

	msg, err := s.msgRepo.FindForUserDay(ctx, user.ID, poolDay)
	if errors.Is(err, repository.ErrMessageNotFound) {
		return &ReceiveResult{
			Status:  model.StatusNoMessageSent,
			Message: "You haven't sent a message yet today",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if msg.Matched() && msg.Delivered {
		partner, err := s.msgRepo.FindByID(ctx, *msg.MatchedMessageID)
		if err == nil {
			_ = s.msgRepo.MarkReceived(ctx, msg.ID, now)
			out := &ReceiveResult{
				Status:    model.StatusReceived,
				Message:   partner.Content,
				MatchedAt: msg.MatchedAt,
			}
			s.cacheStatus(ctx, user.ID, poolDay, out)
			return out, nil
		}
	}

	if now.Before(msg.MinDeliverTime) {
		minutesLeft := int(math.Ceil(msg.MinDeliverTime.Sub(now).Minutes()))
		return &ReceiveResult{
			Status:      model.StatusWaiting,
			Message:     fmt.Sprintf("Your match will arrive in approximately %d minutes", minutesLeft),
			MinutesLeft: minutesLeft,
		}, nil
	}

	if now.After(msg.MaxDeliverTime) && !msg.Matched() {
		out := &ReceiveResult{
			Status:  model.StatusNoMatchFound,
			Message: "No matching message was found in the pool today. Try again tomorrow!",
		}
		s.cacheStatus(ctx, user.ID, poolDay, out)
		return out, nil
	}

	return &ReceiveResult{
		Status:  model.StatusPending,
		Message: "Looking for your match...",
	}, nil
}

func statusCacheKey(userID, poolDay string) string {
	return "vybrix:status:" + userID + ":" + poolDay
}

// cacheStatus 只缓存终态（received / no_match_found）
func (s *messageService) cacheStatus(ctx context.Context, userID, poolDay string, res *ReceiveResult) {
	if s.rdb == nil {
		return
	}
	if payload, err := json.Marshal(res); err == nil {
		_ = s.rdb.Set(ctx, statusCacheKey(userID, poolDay), payload, statusCacheTTL).Err()
	}
}

func (s *messageService) cachedStatus(ctx context.Context, userID, poolDay string) *ReceiveResult {
	if s.rdb == nil {
		return nil
	}
	data, err := s.rdb.Get(ctx, statusCacheKey(userID, poolDay)).Bytes()
	if err != nil {
		return nil
	}
	var out ReceiveResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}
