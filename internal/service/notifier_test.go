package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killthisworld/vybrix/internal/repository"
)

type fakeSender struct {
	sent chan string
	fail bool
}

func (f *fakeSender) IsConfigured() bool { return true }

func (f *fakeSender) SendEmail(ctx context.Context, toEmail, subject, html string) error {
	if f.fail {
		return assert.AnError
	}
	f.sent <- toEmail
	return nil
}

func TestNotifierDeliversToUsersWithEmail(t *testing.T) {
	userRepo := repository.NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	withMail, err := userRepo.Create(ctx, "tok-mail")
	require.NoError(t, err)
	require.NoError(t, userRepo.SetEmail(ctx, withMail.ID, "stars@example.com"))
	silent, err := userRepo.Create(ctx, "tok-silent")
	require.NoError(t, err)

	sender := &fakeSender{sent: make(chan string, 8)}
	n := NewNotifier(userRepo, sender, 8)
	stop := n.Start(1)
	defer func() { _ = stop(context.Background()) }()

	n.Enqueue(silent.ID) // 无邮箱，静默跳过
	n.Enqueue(withMail.ID)

	select {
	case to := <-sender.sent:
		assert.Equal(t, "stars@example.com", to)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered in time")
	}
	assert.Empty(t, sender.sent)
}

// 发信失败只吞掉告警，不影响后续任务
func TestNotifierSendFailureIsBestEffort(t *testing.T) {
	userRepo := repository.NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	u, err := userRepo.Create(ctx, "tok-fail")
	require.NoError(t, err)
	require.NoError(t, userRepo.SetEmail(ctx, u.ID, "void@example.com"))

	sender := &fakeSender{sent: make(chan string, 1), fail: true}
	n := NewNotifier(userRepo, sender, 4)
	stop := n.Start(1)

	n.Enqueue(u.ID)
	require.NoError(t, stop(context.Background()))
	assert.Empty(t, sender.sent)
}
