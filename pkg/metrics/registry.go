package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registers MetricFactory 注册 AgentMetrics 时使用的注册器。
// 进程内只有一个：root 命令创建的 *prometheus.Registry，同时由 /metrics 暴露；
// 测试与 NewNopAgentMetrics 各自使用独立实例，避免重复注册。
type Registers interface {
	prometheus.Registerer
}

// promRegistry Registers 的 prometheus 实现
type promRegistry struct {
	registry *prometheus.Registry
}

// NewPromRegistry 包裹给定的 registry
func NewPromRegistry(registry *prometheus.Registry) Registers {
	return &promRegistry{registry: registry}
}

func (p *promRegistry) Register(c prometheus.Collector) error {
	return p.registry.Register(c)
}

// MustRegister 注册失败（通常是同名指标注册两次）时 panic
func (p *promRegistry) MustRegister(cs ...prometheus.Collector) {
	p.registry.MustRegister(cs...)
}

func (p *promRegistry) Unregister(c prometheus.Collector) bool {
	return p.registry.Unregister(c)
}
