package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace 所有指标的前缀
const Namespace = "ppagent"

// AgentMetrics agent 自身运行指标
//
// 标签说明：
//
//	miner: 矿机名称（默认 address:port）
//	kind:  读数类型 status/temp/hashrate/thresholds
//	reason: 设备查询失败原因 transport/shape
type AgentMetrics struct {
	ReadingsQueued    *prometheus.CounterVec
	ReadingsDropped   *prometheus.CounterVec
	ReadingsDelivered *prometheus.CounterVec
	ReadingsRejected  *prometheus.CounterVec
	QueueDepth        *prometheus.GaugeVec
	Authenticated     *prometheus.GaugeVec
	DeviceErrors      *prometheus.CounterVec
	PollDuration      *prometheus.HistogramVec
	UplinkConnects    prometheus.Counter
	UplinkResets      prometheus.Counter
}

// NewAgentMetrics 创建并注册全部 agent 指标
func (f *MetricFactory) NewAgentMetrics() *AgentMetrics {
	return &AgentMetrics{
		ReadingsQueued:    f.counterVec("readings_queued_total", "Readings appended to a miner send queue", "miner", "kind"),
		ReadingsDropped:   f.counterVec("readings_dropped_total", "Readings discarded because the send queue was full", "miner"),
		ReadingsDelivered: f.counterVec("readings_delivered_total", "Readings accepted by the collector", "miner"),
		ReadingsRejected:  f.counterVec("readings_rejected_total", "Readings the collector answered with an error", "miner"),
		QueueDepth:        f.gaugeVec("queue_depth", "Readings waiting in a miner send queue", "miner"),
		Authenticated:     f.gaugeVec("miner_authenticated", "1 when the miner's worker is authenticated on the uplink", "miner"),
		DeviceErrors:      f.counterVec("device_errors_total", "Failed device API queries", "miner", "reason"),
		PollDuration: promauto.With(f.reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of one collection pass per miner",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms ~ 2.56s
		}, []string{"miner"}),
		UplinkConnects: f.counter("uplink_connects_total", "Successful connections to the collector"),
		UplinkResets:   f.counter("uplink_resets_total", "Collector connections torn down after an I/O or protocol error"),
	}
}

// NewNopAgentMetrics 指标注册到一次性注册器，测试与未启用指标服务时使用
func NewNopAgentMetrics() *AgentMetrics {
	return NewMetricFactory(NewPromRegistry(prometheus.NewRegistry())).NewAgentMetrics()
}
