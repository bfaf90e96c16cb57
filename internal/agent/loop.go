// Package agent 主循环：每个 tick 依次处理每台矿机（认证、采集、上报）。
package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ppagent/internal/cgminer"
	"github.com/ppagent/internal/miner"
	"github.com/ppagent/internal/reading"
	"github.com/ppagent/pkg/metrics"
)

// DefaultTick 两轮之间的休眠时间
const DefaultTick = time.Second

// Uplink 主循环使用的远端会话能力，*uplink.Session 实现
type Uplink interface {
	OnReset(fn func())
	Authenticate(ctx context.Context, worker string) error
	Submit(ctx context.Context, r reading.Reading) error
	Close() error
}

// Loop 独占矿机列表与远端会话，单协程运行
type Loop struct {
	miners  []miner.Miner
	uplink  Uplink
	tick    time.Duration
	logger  *zap.Logger
	metrics *metrics.AgentMetrics
	now     func() time.Time
}

// Option Loop 可选项
type Option func(*Loop)

// WithTick 设置两轮之间的休眠时间
func WithTick(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.tick = d
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.AgentMetrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// WithClock 设置时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// New 创建主循环，并让远端断线时清除所有矿机的认证状态
func New(miners []miner.Miner, up Uplink, logger *zap.Logger, opts ...Option) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{
		miners: miners,
		uplink: up,
		tick:   DefaultTick,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.metrics == nil {
		l.metrics = metrics.NewNopAgentMetrics()
	}
	up.OnReset(func() {
		for _, m := range l.miners {
			m.Deauthenticate()
		}
	})
	return l
}

// Run 循环执行 Pass 直到 ctx 取消
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("agent loop started", zap.Int("miners", len(l.miners)), zap.Duration("tick", l.tick))
	defer func() {
		_ = l.uplink.Close()
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("shutting down agent loop", zap.Error(ctx.Err()))
			return nil
		case <-timer.C:
		}
		l.Pass(ctx)
		timer.Reset(l.tick)
	}
}

// Pass 按配置顺序处理每台矿机一次
func (l *Loop) Pass(ctx context.Context) {
	for _, m := range l.miners {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		l.process(ctx, m)
		l.metrics.PollDuration.WithLabelValues(m.Name()).Observe(time.Since(start).Seconds())
		l.metrics.QueueDepth.WithLabelValues(m.Name()).Set(float64(m.Queue().Len()))
	}
}

func (l *Loop) process(ctx context.Context, m miner.Miner) {
	log := l.logger.With(zap.String("miner", m.Name()))

	if !m.Authenticated() && !l.authenticate(ctx, m, log) {
		return
	}

	if err := m.Collect(ctx); err != nil {
		if cgminer.IsShapeError(err) {
			log.Error("unexpected response from miner, resetting", zap.Error(err))
		} else {
			log.Warn("problem collecting from miner, resetting", zap.Error(err))
		}
		m.Reset()
		return
	}

	l.transmit(ctx, m, log)
}

// authenticate 每个 tick 最多尝试一次
func (l *Loop) authenticate(ctx context.Context, m miner.Miner, log *zap.Logger) bool {
	worker, err := m.Worker(ctx)
	switch {
	case errors.Is(err, miner.ErrWorkerNotFound):
		log.Info("miner not connected to a matching pool, retrying next tick")
		return false
	case cgminer.IsShapeError(err):
		log.Error("unexpected pools response from miner, retrying next tick", zap.Error(err))
		return false
	case err != nil:
		log.Info("unable to reach miner, retrying next tick", zap.Error(err))
		return false
	}

	log.Debug("authenticating worker", zap.String("worker", worker))
	if err := l.uplink.Authenticate(ctx, worker); err != nil {
		log.Warn("failed to authenticate worker", zap.String("worker", worker), zap.Error(err))
		return false
	}
	log.Info("worker authenticated", zap.String("worker", worker))
	m.MarkAuthenticated(l.now())
	return true
}

// transmit 按顺序上报队列，遇到第一条失败即停止，只移除已送达的前缀
func (l *Loop) transmit(ctx context.Context, m miner.Miner, log *zap.Logger) {
	q := m.Queue()
	delivered := 0
	for _, r := range q.Items() {
		// 断线回调可能已清除认证，未认证的矿机不得上报
		if !m.Authenticated() {
			break
		}
		if err := l.uplink.Submit(ctx, r); err != nil {
			log.Warn("unable to deliver reading, will retry next tick",
				zap.String("kind", string(r.Kind)), zap.Int("pending", q.Len()-delivered), zap.Error(err))
			l.metrics.ReadingsRejected.WithLabelValues(m.Name()).Inc()
			break
		}
		log.Debug("reading delivered", zap.String("kind", string(r.Kind)), zap.Int64("ts", r.Timestamp))
		delivered++
	}
	q.TrimFront(delivered)
	l.metrics.ReadingsDelivered.WithLabelValues(m.Name()).Add(float64(delivered))
}
