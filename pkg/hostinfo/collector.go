package hostinfo

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Collector 在每次抓取时读取本机信息并导出为 gauge
type Collector struct {
	logger  *zap.Logger
	timeout time.Duration
	collect func(context.Context) (Facts, error)

	info   *prometheus.Desc
	cpus   *prometheus.Desc
	load   *prometheus.Desc
	mem    *prometheus.Desc
	uptime *prometheus.Desc
	errors prometheus.Counter
}

// NewCollector 创建本机信息采集器，namespace 为指标前缀
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return &Collector{
		logger:  logger,
		timeout: 2 * time.Second,
		collect: Collect,
		info: prometheus.NewDesc(namespace+"_host_info",
			"Host identification, constant 1", []string{"hostname", "os", "platform", "kernel"}, nil),
		cpus: prometheus.NewDesc(namespace+"_host_cpus",
			"Number of logical CPUs", nil, nil),
		load: prometheus.NewDesc(namespace+"_host_load",
			"System load average", []string{"window"}, nil),
		mem: prometheus.NewDesc(namespace+"_host_memory_used_ratio",
			"Used memory ratio (0-1)", nil, nil),
		uptime: prometheus.NewDesc(namespace+"_host_uptime_seconds",
			"Host uptime", nil, nil),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_collect_errors_total",
			Help:      "Host information reads that failed",
		}),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.info
	ch <- c.cpus
	ch <- c.load
	ch <- c.mem
	ch <- c.uptime
	c.errors.Describe(ch)
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	defer c.errors.Collect(ch)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	f, err := c.collect(ctx)
	if err != nil {
		c.errors.Inc()
		c.logger.Warn("collect host info failed", zap.Error(err))
		return
	}

	ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1, f.Hostname, f.OS, f.Platform, f.KernelVersion)
	ch <- prometheus.MustNewConstMetric(c.cpus, prometheus.GaugeValue, float64(f.CPUs))
	ch <- prometheus.MustNewConstMetric(c.load, prometheus.GaugeValue, f.Load1, "1m")
	ch <- prometheus.MustNewConstMetric(c.load, prometheus.GaugeValue, f.Load5, "5m")
	ch <- prometheus.MustNewConstMetric(c.load, prometheus.GaugeValue, f.Load15, "15m")
	ch <- prometheus.MustNewConstMetric(c.mem, prometheus.GaugeValue, f.MemUsed/100)
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, float64(f.Uptime))
}
