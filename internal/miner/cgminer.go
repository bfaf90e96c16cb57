package miner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/ppagent/internal/cgminer"
	"github.com/ppagent/internal/reading"
	"github.com/ppagent/internal/version"
	"github.com/ppagent/pkg/config"
	"github.com/ppagent/pkg/hostinfo"
	"github.com/ppagent/pkg/metrics"
)

const (
	keyTemperature = "Temperature"
	keyTotalMH     = "Total MH"
)

// API cgminer 查询接口，*cgminer.Client 实现
type API interface {
	Devs(ctx context.Context) ([]map[string]any, error)
	Pools(ctx context.Context) ([]cgminer.Pool, error)
}

// HostFunc 采集本机信息
type HostFunc func(ctx context.Context) (hostinfo.Facts, error)

// CGMiner cgminer API 兼容的矿机（cgminer/sgminer/bfgminer/bmminer）
type CGMiner struct {
	name       string
	api        API
	remotes    []string
	thresholds map[string]any
	status     config.StatusCollectorConfig

	statusSched   *Schedule
	tempSched     *Schedule
	hashrateSched *Schedule

	authenticated  bool
	worker         string
	thresholdsSent bool
	last           []map[string]any
	lastAt         time.Time

	queue   *reading.Queue
	logger  *zap.Logger
	metrics *metrics.AgentMetrics
	now     func() time.Time
	host    HostFunc
}

// NewCGMiner 创建矿机；未启用的采集器没有调度器
func NewCGMiner(cfg config.MinerConfig, api API, remotes []string, opts Options) *CGMiner {
	opts = opts.withDefaults()
	m := &CGMiner{
		name:       cfg.Name,
		api:        api,
		remotes:    remotes,
		thresholds: cfg.Thresholds,
		status:     cfg.Collectors.Status,
		queue:      reading.NewQueue(opts.QueueSize),
		logger:     opts.Logger.With(zap.String("miner", cfg.Name)),
		metrics:    opts.Metrics,
		now:        opts.Now,
		host:       opts.Host,
	}
	if cfg.Collectors.Status.Enabled {
		m.statusSched = NewSchedule(cfg.Collectors.Status.Interval)
	}
	if cfg.Collectors.Temp.Enabled {
		m.tempSched = NewSchedule(cfg.Collectors.Temp.Interval)
	}
	if cfg.Collectors.Hashrate.Enabled {
		m.hashrateSched = NewSchedule(cfg.Collectors.Hashrate.Interval)
	}
	return m
}

func (m *CGMiner) Name() string { return m.name }

func (m *CGMiner) Authenticated() bool { return m.authenticated }

func (m *CGMiner) Queue() *reading.Queue { return m.queue }

func (m *CGMiner) schedules() []*Schedule {
	return []*Schedule{m.statusSched, m.tempSched, m.hashrateSched}
}

func (m *CGMiner) MarkAuthenticated(now time.Time) {
	m.authenticated = true
	m.thresholdsSent = false
	for _, s := range m.schedules() {
		if s != nil {
			s.Reset(now.Unix())
		}
	}
	m.metrics.Authenticated.WithLabelValues(m.name).Set(1)
}

func (m *CGMiner) Deauthenticate() {
	m.authenticated = false
	m.metrics.Authenticated.WithLabelValues(m.name).Set(0)
}

func (m *CGMiner) Reset() {
	m.Deauthenticate()
	m.worker = ""
	m.last = nil
	m.lastAt = time.Time{}
}

// Worker 第一个指向远端的矿池连接的 User 即 worker 名
func (m *CGMiner) Worker(ctx context.Context) (string, error) {
	if m.worker != "" {
		return m.worker, nil
	}
	pool, err := m.pool(ctx)
	if err != nil {
		return "", err
	}
	if pool == nil || pool.User == "" {
		return "", ErrWorkerNotFound
	}
	m.worker = pool.User
	return m.worker, nil
}

func (m *CGMiner) pool(ctx context.Context) (*cgminer.Pool, error) {
	pools, err := m.api.Pools(ctx)
	if err != nil {
		m.deviceError(err)
		return nil, err
	}
	for i := range pools {
		if pools[i].Matches(m.remotes) {
			return &pools[i], nil
		}
	}
	return nil, nil
}

// deviceError 套接字错误说明矿机程序可能已重启，worker 需要重新解析
func (m *CGMiner) deviceError(err error) {
	reason := "shape"
	if errors.Is(err, cgminer.ErrTransport) {
		reason = "transport"
		m.worker = ""
		m.Deauthenticate()
	}
	m.metrics.DeviceErrors.WithLabelValues(m.name, reason).Inc()
}

func (m *CGMiner) push(kind reading.Kind, payload any, ts int64) {
	dropped := m.queue.Push(reading.New(kind, m.worker, payload, ts))
	m.metrics.ReadingsQueued.WithLabelValues(m.name, string(kind)).Inc()
	if dropped > 0 {
		m.metrics.ReadingsDropped.WithLabelValues(m.name).Add(float64(dropped))
		m.logger.Debug("send queue full, dropped oldest readings", zap.Int("dropped", dropped))
	}
}

// Collect 认证后每个 tick 调用一次。先完成全部设备查询，失败的 tick 不入队任何读数。
func (m *CGMiner) Collect(ctx context.Context) error {
	if m.worker == "" {
		return errors.New("collect called before worker was resolved")
	}
	now := m.now()
	ts := now.Unix()

	devs, err := m.api.Devs(ctx)
	if err != nil {
		m.deviceError(err)
		return err
	}
	temps := temperatures(devs)
	rates, err := m.rates(devs, now)
	if err != nil {
		m.deviceError(err)
		return err
	}

	var status map[string]any
	statusDue := m.statusSched != nil && m.statusSched.Due(ts)
	if statusDue {
		if status, err = m.statusPayload(ctx, devs, temps, rates); err != nil {
			return err
		}
	}
	m.last, m.lastAt = devs, now

	if !m.thresholdsSent {
		if len(m.thresholds) > 0 {
			m.push(reading.KindThresholds, m.thresholds, ts)
		}
		m.thresholdsSent = true
	}
	if statusDue {
		m.push(reading.KindStatus, status, ts)
		m.statusSched.Fire(ts)
	}
	if m.tempSched != nil && m.tempSched.Due(ts) {
		m.push(reading.KindTemp, temps, ts)
		m.tempSched.Fire(ts)
	}
	// 没有算力数据时不推进 hashrate 调度，下个 tick 再试
	if len(rates) > 0 && m.hashrateSched != nil && m.hashrateSched.Due(ts) {
		m.push(reading.KindHashrate, rates, ts)
		m.hashrateSched.Fire(ts)
	}
	return nil
}

// temperatures 缺少 Temperature 的单元记为 null
func temperatures(devs []map[string]any) []any {
	out := make([]any, len(devs))
	for i, d := range devs {
		out[i] = d[keyTemperature]
	}
	return out
}

// rates 两次采样之间每个单元的平均算力（MH/s，保留 3 位小数）。
// 首次采样、单元数量变化或时钟未前进时返回空。
func (m *CGMiner) rates(devs []map[string]any, now time.Time) ([]float64, error) {
	totals := make([]float64, len(devs))
	for i, d := range devs {
		v, ok := cgminer.Float(d[keyTotalMH])
		if !ok {
			return nil, &cgminer.ShapeError{Command: "devs", Key: keyTotalMH}
		}
		totals[i] = v
	}
	if m.last == nil || len(m.last) != len(devs) {
		return nil, nil
	}
	elapsed := now.Sub(m.lastAt).Seconds()
	if elapsed <= 0 {
		return nil, nil
	}
	out := make([]float64, len(devs))
	for i, prev := range m.last {
		p, _ := cgminer.Float(prev[keyTotalMH])
		out[i] = round3((totals[i] - p) / elapsed)
	}
	return out, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func (m *CGMiner) statusPayload(ctx context.Context, devs []map[string]any, temps []any, rates []float64) (map[string]any, error) {
	gpus := make([]map[string]any, len(devs))
	for i, d := range devs {
		g := map[string]any{}
		if m.status.Temperature {
			g["temp"] = temps[i]
		}
		if m.status.MHps && i < len(rates) {
			g["hash"] = rates[i]
		}
		if m.status.Details {
			for k, v := range d {
				if k != keyTemperature {
					g[k] = v
				}
			}
		}
		gpus[i] = g
	}

	poolStat := map[string]any{}
	pool, err := m.pool(ctx)
	if err != nil {
		return nil, fmt.Errorf("pool stats: %w", err)
	}
	if pool != nil {
		poolStat = pool.Raw
	}

	out := map[string]any{
		"type": "cgminer",
		"gpus": gpus,
		"pool": poolStat,
		"v":    version.Version,
	}
	if m.status.Host && m.host != nil {
		facts, err := m.host(ctx)
		if err != nil {
			m.logger.Debug("host facts unavailable", zap.Error(err))
		} else {
			out["host"] = facts
		}
	}
	return out, nil
}
