package hostinfo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCollectorExportsFacts(t *testing.T) {
	c := NewCollector("ppagent", zaptest.NewLogger(t))
	c.collect = func(context.Context) (Facts, error) {
		return Facts{Hostname: "rig1", OS: "linux", CPUs: 4, Load1: 0.5, Load5: 0.25, Load15: 0.125, MemUsed: 50, Uptime: 60}, nil
	}

	expected := `
# HELP ppagent_host_cpus Number of logical CPUs
# TYPE ppagent_host_cpus gauge
ppagent_host_cpus 4
# HELP ppagent_host_load System load average
# TYPE ppagent_host_load gauge
ppagent_host_load{window="15m"} 0.125
ppagent_host_load{window="1m"} 0.5
ppagent_host_load{window="5m"} 0.25
# HELP ppagent_host_memory_used_ratio Used memory ratio (0-1)
# TYPE ppagent_host_memory_used_ratio gauge
ppagent_host_memory_used_ratio 0.5
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"ppagent_host_cpus", "ppagent_host_load", "ppagent_host_memory_used_ratio"))
}

func TestCollectorCountsErrors(t *testing.T) {
	c := NewCollector("ppagent", zaptest.NewLogger(t))
	c.collect = func(context.Context) (Facts, error) {
		return Facts{}, errors.New("no /proc")
	}

	assert.Equal(t, 1, testutil.CollectAndCount(c))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors))
}
