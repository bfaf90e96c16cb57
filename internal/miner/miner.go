// Package miner 矿机设备：轮询状态、认证状态机、对齐调度与发送队列。
package miner

import (
	"context"
	"errors"
	"time"

	"github.com/ppagent/internal/reading"
)

// ErrWorkerNotFound 矿机在线，但没有任何矿池连接指向配置的远端
var ErrWorkerNotFound = errors.New("worker not found in pool connections")

// Miner 一台被监控的矿机程序。只在主循环协程中使用，不做并发保护。
type Miner interface {
	Name() string

	// Authenticated 当前认证周期是否有效
	Authenticated() bool
	// MarkAuthenticated 认证成功：重置全部调度并准备一次 thresholds 上报
	MarkAuthenticated(now time.Time)
	// Deauthenticate 仅清除认证标记（远端连接断开时）
	Deauthenticate()
	// Reset 完全重置：认证、worker 缓存、上一次采样
	Reset()

	// Worker 解析（并缓存）该矿机在远端矿池上的 worker 名
	Worker(ctx context.Context) (string, error)
	// Collect 执行一次采集，把到期的读数追加到队列
	Collect(ctx context.Context) error

	Queue() *reading.Queue
}
