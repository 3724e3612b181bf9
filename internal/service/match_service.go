package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/killthisworld/vybrix/internal/matching"
	"github.com/killthisworld/vybrix/internal/model"
	"github.com/killthisworld/vybrix/internal/repository"
	"github.com/killthisworld/vybrix/pkg/logger"
)

var (
	ErrInvalidPoolDay = errors.New("invalid pool day")
	// ErrCycleInFlight 同一池日已有周期在执行（单飞约束）
	ErrCycleInFlight = errors.New("matching cycle already in flight")
)

// matchLockTTL 周期锁的保底过期时间，防宕机死锁
const matchLockTTL = 2 * time.Minute

// CycleReport 单个匹配周期的结果摘要。
// 零候选、零配对都是正常结束，不算失败。
type CycleReport struct {
	PoolDay       string  `json:"poolDay"`
	TotalMessages int     `json:"totalMessages"`
	PairsCreated  int     `json:"pairsCreated"`
	Attempted     int     `json:"attempted"`
	Skipped       int     `json:"skipped"`
	WriteErrors   int     `json:"writeErrors"`
	MatchRate     float64 `json:"matchRate"`
}

// MatchService 驱动匹配引擎跑批：读池 → 引擎 → 逐对落库 → 通知。
// 引擎本身无状态，周期间的全部状态都在消息行上。
type MatchService struct {
	msgRepo  repository.MessageRepository
	engine   *matching.Engine
	rdb      *redis.Client
	notifier *Notifier
}

func NewMatchService(msgRepo repository.MessageRepository, engine *matching.Engine, rdb *redis.Client, notifier *Notifier) *MatchService {
	return &MatchService{msgRepo: msgRepo, engine: engine, rdb: rdb, notifier: notifier}
}

// RunCycle 对指定池日执行一轮匹配。
// 落库采用先到先得：一侧已有归属的指派直接跳过，永不覆盖已建立的匹配；
// 单对写失败只计数，不中断其余指派。
func (s *MatchService) RunCycle(ctx context.Context, poolDay string, now time.Time) (*CycleReport, error) {
	if _, err := time.Parse(model.PoolDayLayout, poolDay); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPoolDay, poolDay)
	}

	unlock, err := s.acquireLock(ctx, poolDay)
	if err != nil {
		return nil, err
	}
	defer unlock()

	msgs, err := s.msgRepo.ListCandidates(ctx, poolDay, now)
	if err != nil {
		return nil, err
	}

	report := &CycleReport{PoolDay: poolDay, TotalMessages: len(msgs)}
	if len(msgs) == 0 {
		return report, nil
	}

	candidates := make([]matching.Candidate, len(msgs))
	owners := make(map[string]string, len(msgs))
	for i, m := range msgs {
		candidates[i] = toCandidate(m)
		owners[m.ID] = m.UserID
	}

	assignments := s.engine.RunCycle(candidates)
	report.Attempted = len(assignments)

	finalized := make(map[string]bool, len(msgs))
	for _, a := range assignments {
		if finalized[a.MessageID] || finalized[a.PartnerID] {
			report.Skipped++
			continue
		}
		err := s.msgRepo.SaveMatch(ctx, a.MessageID, a.PartnerID, now)
		switch {
		case errors.Is(err, repository.ErrAlreadyMatched):
			report.Skipped++
			continue
		case err != nil:
			report.WriteErrors++
			logger.Error("match save failed",
				zap.String("message", a.MessageID),
				zap.String("partner", a.PartnerID),
				zap.Error(err))
			continue
		}
		finalized[a.MessageID] = true
		finalized[a.PartnerID] = true
		report.PairsCreated++
		if s.notifier != nil {
			s.notifier.Enqueue(owners[a.MessageID])
			s.notifier.Enqueue(owners[a.PartnerID])
		}
	}

	report.MatchRate = float64(report.PairsCreated*2) / float64(report.TotalMessages)
	logger.Info("matching cycle complete",
		zap.String("pool_day", poolDay),
		zap.Int("total", report.TotalMessages),
		zap.Int("pairs", report.PairsCreated),
		zap.Int("skipped", report.Skipped),
		zap.Int("write_errors", report.WriteErrors))
	return report, nil
}

// RunToday 以当前 UTC 池日执行一轮
func (s *MatchService) RunToday(ctx context.Context) (*CycleReport, error) {
	now := time.Now().UTC()
	return s.RunCycle(ctx, model.PoolDayOf(now), now)
}

// acquireLock 用 redis SETNX 做单池日互斥，引擎自身不持锁
func (s *MatchService) acquireLock(ctx context.Context, poolDay string) (func(), error) {
	if s.rdb == nil {
		return func() {}, nil
	}
	key := "vybrix:match:lock:" + poolDay
	ok, err := s.rdb.SetNX(ctx, key, time.Now().Unix(), matchLockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCycleInFlight
	}
	return func() {
		delCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.rdb.Del(delCtx, key).Err()
	}, nil
}

// toCandidate 展开特征，缺失特征落到中性默认值
func toCandidate(m *model.Message) matching.Candidate {
	c := matching.Candidate{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Intent:    model.IntentSharing,
		Energy:    0.5,
	}
	if m.Vibe != nil {
		c.Sentiment = m.Vibe.SentimentScore
		if m.Vibe.Intent != "" {
			c.Intent = m.Vibe.Intent
		}
		c.Energy = m.Vibe.EnergyScalar
	}
	return c
}
