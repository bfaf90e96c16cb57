package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricFactory(NewPromRegistry(reg)).NewAgentMetrics()

	m.ReadingsQueued.WithLabelValues("rig", "temp").Add(3)
	m.QueueDepth.WithLabelValues("rig").Set(2)
	m.UplinkResets.Inc()
	m.PollDuration.WithLabelValues("rig").Observe(0.02)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ReadingsQueued.WithLabelValues("rig", "temp")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueDepth.WithLabelValues("rig")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UplinkResets))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ppagent_readings_queued_total"])
	assert.True(t, names["ppagent_poll_duration_seconds"])
	assert.True(t, names["ppagent_uplink_resets_total"])
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	f := NewMetricFactory(NewPromRegistry(prometheus.NewRegistry()))
	f.NewAgentMetrics()
	assert.Panics(t, func() { f.NewAgentMetrics() })
}

func TestNopMetricsIndependent(t *testing.T) {
	a := NewNopAgentMetrics()
	b := NewNopAgentMetrics()
	a.UplinkConnects.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.UplinkConnects))
}
