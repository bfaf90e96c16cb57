//go:build !windows

package signal

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestNotifyContextCancelsOnSignal(t *testing.T) {
	ctx, stop := NotifyContext(context.Background(), zaptest.NewLogger(t))
	defer stop()

	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}

func TestStopCancelsContext(t *testing.T) {
	ctx, stop := NotifyContext(context.Background(), zaptest.NewLogger(t))
	stop()
	stop()
	assert.Error(t, ctx.Err())
}
