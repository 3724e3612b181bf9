package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/killthisworld/vybrix/internal/matching"
	"github.com/killthisworld/vybrix/internal/model"
	"github.com/killthisworld/vybrix/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Message{}, &model.MessageVibe{}))
	return db
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func newTestMatchService(t *testing.T, rdb *redis.Client) (*MatchService, repository.MessageRepository) {
	t.Helper()
	msgRepo := repository.NewMessageRepository(setupTestDB(t))
	cfg := matching.DefaultConfig()
	cfg.Jitter = false
	cfg.Workers = 1
	return NewMatchService(msgRepo, matching.NewEngine(cfg), rdb, nil), msgRepo
}

func seedCandidate(t *testing.T, repo repository.MessageRepository, id, poolDay string, createdAt time.Time, sentiment float64) {
	t.Helper()
	msg := &model.Message{
		ID:             id,
		UserID:         "user-" + id,
		Content:        "content " + id,
		PoolDay:        poolDay,
		AnalysisDone:   true,
		MinDeliverTime: createdAt.Add(time.Minute),
		MaxDeliverTime: createdAt.Add(10 * time.Hour),
		CreatedAt:      createdAt,
	}
	vibe := &model.MessageVibe{
		ID:             "vibe-" + id,
		MessageID:      id,
		SentimentScore: sentiment,
		Intent:         model.IntentSharing,
		EnergyScalar:   0.5,
	}
	require.NoError(t, repo.Create(context.Background(), msg, vibe))
}

func TestRunCycleInvalidPoolDay(t *testing.T) {
	_, rdb := setupTestRedis(t)
	svc, _ := newTestMatchService(t, rdb)
	_, err := svc.RunCycle(context.Background(), "09/01/2026", time.Now().UTC())
	assert.ErrorIs(t, err, ErrInvalidPoolDay)
}

// 空池不是错误，返回零配对的成功报告
func TestRunCycleEmptyPool(t *testing.T) {
	_, rdb := setupTestRedis(t)
	svc, _ := newTestMatchService(t, rdb)
	report, err := svc.RunCycle(context.Background(), "2026-09-01", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, report.PairsCreated)
	assert.Equal(t, 0, report.TotalMessages)
}

func TestRunCycleCreatesMutualPair(t *testing.T) {
	_, rdb := setupTestRedis(t)
	svc, msgRepo := newTestMatchService(t, rdb)
	ctx := context.Background()
	day := "2026-09-01"
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	seedCandidate(t, msgRepo, "a", day, now.Add(-2*time.Hour), -0.8)
	seedCandidate(t, msgRepo, "b", day, now.Add(-1*time.Hour), 0.8)

	report, err := svc.RunCycle(ctx, day, now)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalMessages)
	assert.Equal(t, 1, report.PairsCreated)
	assert.InDelta(t, 1.0, report.MatchRate, 1e-9)

	a, err := msgRepo.FindByID(ctx, "a")
	require.NoError(t, err)
	b, err := msgRepo.FindByID(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, a.MatchedMessageID)
	require.NotNil(t, b.MatchedMessageID)
	assert.Equal(t, "b", *a.MatchedMessageID)
	assert.Equal(t, "a", *b.MatchedMessageID)

	// 再跑一轮：已匹配的不再入池，也不会被改派
	report, err = svc.RunCycle(ctx, day, now)
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalMessages)
	assert.Equal(t, 0, report.PairsCreated)
	a, err = msgRepo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "b", *a.MatchedMessageID)
}

// 奇数池：一对成立，落单者保持未匹配等下一轮
func TestRunCycleOddPoolLeavesLeftover(t *testing.T) {
	_, rdb := setupTestRedis(t)
	svc, msgRepo := newTestMatchService(t, rdb)
	ctx := context.Background()
	day := "2026-09-01"
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	seedCandidate(t, msgRepo, "m1", day, now.Add(-3*time.Hour), -0.8)
	seedCandidate(t, msgRepo, "m2", day, now.Add(-2*time.Hour), -0.8)
	seedCandidate(t, msgRepo, "m3", day, now.Add(-1*time.Hour), 0.8)

	report, err := svc.RunCycle(ctx, day, now)
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalMessages)
	assert.Equal(t, 1, report.PairsCreated)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.WriteErrors)

	m2, err := msgRepo.FindByID(ctx, "m2")
	require.NoError(t, err)
	assert.Nil(t, m2.MatchedMessageID)
}

// 同池日锁被占时直接拒绝（协作式不重叠）
func TestRunCycleSingleFlight(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	svc, _ := newTestMatchService(t, rdb)

	require.NoError(t, mr.Set("vybrix:match:lock:2026-09-01", "1"))
	_, err := svc.RunCycle(context.Background(), "2026-09-01", time.Now().UTC())
	assert.ErrorIs(t, err, ErrCycleInFlight)

	// 锁释放后恢复可用
	mr.Del("vybrix:match:lock:2026-09-01")
	_, err = svc.RunCycle(context.Background(), "2026-09-01", time.Now().UTC())
	assert.NoError(t, err)
}

// 周期结束后锁必须释放
func TestRunCycleReleasesLock(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	svc, _ := newTestMatchService(t, rdb)

	_, err := svc.RunCycle(context.Background(), "2026-09-01", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, mr.Exists("vybrix:match:lock:2026-09-01"))
}
