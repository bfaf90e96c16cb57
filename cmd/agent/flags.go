package agent

import (
	"github.com/spf13/cobra"

	"github.com/ppagent/pkg/config"
)

var defaultCfg = config.NewDefaultConfig()

// flag 名与配置键一致（uplink.port -> uplink.port），由 LoadConfigWithCli 绑定到 viper

func initUplinkFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	p := "uplink."

	f.StringP(p+"address", "a", defaultCfg.Uplink.Address,
		"-> Remote collector address | 远端采集服务地址")
	f.IntP(p+"port", "p", defaultCfg.Uplink.Port,
		"-> Remote collector port | 远端采集服务端口")
	f.Float64(p+"protocol_version", defaultCfg.Uplink.ProtocolVersion,
		"-> Protocol version sent in hello | hello 消息协议版本")
	f.Duration(p+"dial_timeout", defaultCfg.Uplink.DialTimeout,
		"-> Connect timeout | 建连超时")
	f.Duration(p+"write_timeout", defaultCfg.Uplink.WriteTimeout,
		"-> Send timeout | 发送超时")
	f.Duration(p+"read_timeout", defaultCfg.Uplink.ReadTimeout,
		"-> Time to wait for a reply | 等待回复超时")
	f.Duration(p+"reconnect_delay", defaultCfg.Uplink.ReconnectDelay,
		"-> Minimum delay between reconnects | 两次重连最小间隔")
}

func initAgentFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.Duration("agent.tick", defaultCfg.Agent.Tick,
		"-> Sleep between polling passes | 两轮轮询之间的休眠时间")
	f.Int("agent.queue_size", defaultCfg.Agent.QueueSize,
		"-> Per-miner send queue capacity | 每台矿机发送队列容量")
}

func initServerFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.Bool("server.enable", defaultCfg.Server.Enable,
		"-> Serve /metrics and /health | 启用指标HTTP服务")
	f.String("server.addr", defaultCfg.Server.Addr,
		"-> HTTP listening address | HTTP监听地址")
}

func initLogFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	p := "log."

	f.StringP(p+"level", "l", defaultCfg.Log.Level,
		"-> Log level [debug,info,warn,error] | 日志级别")
	f.String(p+"format", defaultCfg.Log.Format,
		"-> Console log format [console,json] | 日志格式")
	f.String(p+"path", defaultCfg.Log.Path,
		"-> Log file directory, empty for console only | 日志路径")
	f.Int(p+"max_size", defaultCfg.Log.MaxSize,
		"-> Max size of single log file (MB) | 单文件最大MB")
	f.Int(p+"max_age", defaultCfg.Log.MaxAge,
		"-> Maximum retention days of log files | 保存天数")
}
