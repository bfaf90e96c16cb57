// Package version 构建版本信息，可通过 -ldflags "-X github.com/ppagent/internal/version.Version=..." 覆盖
package version

// Version agent 版本，随每条 status 读数（字段 v）上报
var Version = "0.3.0"
