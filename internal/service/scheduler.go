package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/killthisworld/vybrix/pkg/logger"
)

// MatchScheduler 周期触发匹配跑批。协作式不重叠：
// 锁被占（别的实例或 cron 接口在跑）就跳过本拍。
type MatchScheduler struct {
	svc      *MatchService
	interval time.Duration
}

func NewMatchScheduler(svc *MatchService, interval time.Duration) *MatchScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &MatchScheduler{svc: svc, interval: interval}
}

// Start 启动定时循环；返回停止函数
func (s *MatchScheduler) Start() func(context.Context) error {
	stop := make(chan struct{})
	go s.loop(stop)
	return func(ctx context.Context) error { close(stop); return nil }
}

func (s *MatchScheduler) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			_, err := s.svc.RunToday(ctx)
			cancel()
			if err != nil && !errors.Is(err, ErrCycleInFlight) {
				logger.Error("scheduled matching cycle failed", zap.Error(err))
			}
		}
	}
}
