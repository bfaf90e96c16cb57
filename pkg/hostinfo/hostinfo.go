// Package hostinfo 采集随 status 读数上报的本机信息
package hostinfo

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Facts 本机信息快照，字段缺失（平台不支持）时为零值
type Facts struct {
	Hostname      string  `json:"hostname"`
	OS            string  `json:"os"`
	Platform      string  `json:"platform,omitempty"`
	KernelVersion string  `json:"kernel,omitempty"`
	Uptime        uint64  `json:"uptime"`
	CPUs          int     `json:"cpus"`
	Load1         float64 `json:"load1"`
	Load5         float64 `json:"load5"`
	Load15        float64 `json:"load15"`
	MemUsed       float64 `json:"mem_used_percent"`
}

// Collect 读取本机信息；只要 host.Info 成功即返回，其余失败项留空
func Collect(ctx context.Context) (Facts, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return Facts{}, err
	}
	f := Facts{
		Hostname:      info.Hostname,
		OS:            info.OS,
		Platform:      info.Platform,
		KernelVersion: info.KernelVersion,
		Uptime:        info.Uptime,
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		f.CPUs = n
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		f.Load1, f.Load5, f.Load15 = avg.Load1, avg.Load5, avg.Load15
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		f.MemUsed = vm.UsedPercent
	}
	return f, nil
}
