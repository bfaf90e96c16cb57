package miner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppagent/internal/cgminer"
	"github.com/ppagent/pkg/config"
	"github.com/ppagent/pkg/hostinfo"
	"github.com/ppagent/pkg/metrics"
)

// Options 构建矿机时注入的依赖
type Options struct {
	Logger    *zap.Logger
	Metrics   *metrics.AgentMetrics
	QueueSize int
	Now       func() time.Time
	Host      HostFunc
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewNopAgentMetrics()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Factory 按配置创建一种矿机
type Factory func(cfg config.MinerConfig, remotes []string, opts Options) (Miner, error)

// Registry 启动时构建的矿机类型表（类型名 -> 工厂）
type Registry struct {
	factories map[string]Factory
}

// NewRegistry 内置 cgminer API 兼容的全部类型
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	for _, typ := range []string{"cgminer", "sgminer", "bfgminer", "bmminer"} {
		_ = r.Register(typ, newCGMinerFactory)
	}
	return r
}

// Register 注册矿机类型，名称重复时报错
func (r *Registry) Register(typ string, f Factory) error {
	typ = strings.ToLower(typ)
	if _, ok := r.factories[typ]; ok {
		return fmt.Errorf("miner type %q already registered", typ)
	}
	r.factories[typ] = f
	return nil
}

// Types 已注册类型（排序）
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build 按 cfg.Type 创建矿机
func (r *Registry) Build(cfg config.MinerConfig, remotes []string, opts Options) (Miner, error) {
	f, ok := r.factories[strings.ToLower(cfg.Type)]
	if !ok {
		return nil, fmt.Errorf("unknown miner type %q (known: %s)", cfg.Type, strings.Join(r.Types(), ", "))
	}
	return f(cfg, remotes, opts)
}

func newCGMinerFactory(cfg config.MinerConfig, remotes []string, opts Options) (Miner, error) {
	if opts.Host == nil && cfg.Collectors.Status.Host {
		opts.Host = hostinfo.Collect
	}
	client := cgminer.NewClient(cfg.Address, cfg.Port, cfg.Timeout)
	return NewCGMiner(cfg, client, remotes, opts), nil
}
