package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/killthisworld/vybrix/internal/repository"
	"github.com/killthisworld/vybrix/pkg/logger"
)

// EmailSender 邮件出口，生产实现为 Resend API 客户端
type EmailSender interface {
	SendEmail(ctx context.Context, toEmail, subject, html string) error
	IsConfigured() bool
}

type notifyJob struct {
	userID string
	enqAt  time.Time
}

// Notifier 匹配成功后的异步邮件通知器。尽力而为：
// 队列满了直接丢弃；发信失败只记日志，绝不回滚匹配。
type Notifier struct {
	userRepo repository.UserRepository
	sender   EmailSender
	ch       chan notifyJob
}

func NewNotifier(userRepo repository.UserRepository, sender EmailSender, queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = 4096
	}
	return &Notifier{userRepo: userRepo, sender: sender, ch: make(chan notifyJob, queueSize)}
}

func (n *Notifier) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case job := <-n.ch:
					ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
					n.deliver(ctx, job)
					cancel()
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		// 给在途任务一点排空时间
		timeout := time.After(2 * time.Second)
		for {
			select {
			case <-timeout:
				return nil
			default:
				if len(n.ch) == 0 {
					return nil
				}
				time.Sleep(50 * time.Millisecond)
			}
		}
	}
}

// Enqueue 投递一条“有匹配了”的通知任务
func (n *Notifier) Enqueue(userID string) {
	if !n.sender.IsConfigured() {
		return
	}
	select {
	case n.ch <- notifyJob{userID: userID, enqAt: time.Now()}:
	default:
		logger.Warn("notifier queue full, drop job", zap.String("user", userID))
	}
}

func (n *Notifier) QueueLen() int { return len(n.ch) }

func (n *Notifier) deliver(ctx context.Context, job notifyJob) {
	user, err := n.userRepo.FindByID(ctx, job.userID)
	if err != nil {
		logger.Warn("notifier: load user failed", zap.String("user", job.userID), zap.Error(err))
		return
	}
	if user.Email == "" {
		return
	}
	if err := n.sender.SendEmail(ctx, user.Email, matchFoundSubject, matchFoundHTML); err != nil {
		logger.Warn("notifier: send failed", zap.String("user", job.userID), zap.Error(err))
	}
}

const matchFoundSubject = "🌟 Your message has found its match!"

var matchFoundHTML = fmt.Sprintf(`<!DOCTYPE html>
<html><body style="background:#000;color:#fff;font-family:sans-serif;text-align:center;padding:40px">
<h1 style="color:#a855f7">%s</h1>
<p><a href="https://vybrix.app/receive" style="color:#000;background:#a855f7;padding:16px 40px;border-radius:8px;text-decoration:none">Click to view your message</a></p>
<p style="opacity:.7">Vybrix - Cosmic connections, one message at a time</p>
</body></html>`, matchFoundSubject)
