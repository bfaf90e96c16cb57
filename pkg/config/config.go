package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var valid = validator.New()

// Config 全局配置结构体（聚合所有核心模块）
type Config struct {
	Uplink UplinkConfig  `yaml:"uplink" mapstructure:"uplink" comment:"远端采集服务连接配置"`
	Agent  AgentConfig   `yaml:"agent" mapstructure:"agent" comment:"主循环配置"`
	Server ServerConfig  `yaml:"server" mapstructure:"server" comment:"指标HTTP服务配置"`
	Log    ZapLogConfig  `yaml:"log" mapstructure:"log" comment:"日志配置"`
	Miners []MinerConfig `yaml:"miners" mapstructure:"-" comment:"矿机列表"` // 单独按类型默认值深度合并解码
}

// UplinkConfig 远端采集服务（PowerPool agent server）连接配置
type UplinkConfig struct {
	Address         string        `yaml:"address" mapstructure:"address" env:"PPAGENT_UPLINK_ADDRESS" validate:"required,hostname_rfc1123|ip" comment:"远端地址"`
	Port            int           `yaml:"port" mapstructure:"port" env:"PPAGENT_UPLINK_PORT" validate:"required,gt=0,lte=65535" comment:"远端端口"`
	ProtocolVersion float64       `yaml:"protocol_version" mapstructure:"protocol_version" validate:"gt=0" comment:"hello 消息中的协议版本"`
	DialTimeout     time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout" validate:"gt=0" comment:"建连超时"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gt=0" comment:"等待回复超时"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gt=0" comment:"发送超时"`
	ReconnectDelay  time.Duration `yaml:"reconnect_delay" mapstructure:"reconnect_delay" validate:"gte=0" comment:"两次重连之间的最小间隔"`
}

// AgentConfig 主循环配置
type AgentConfig struct {
	Tick      time.Duration `yaml:"tick" mapstructure:"tick" validate:"gt=0" comment:"两轮轮询之间的休眠时间"`
	QueueSize int           `yaml:"queue_size" mapstructure:"queue_size" validate:"gt=0" comment:"每台矿机发送队列容量"`
}

// ServerConfig 指标HTTP服务配置（/metrics /health）
type ServerConfig struct {
	Enable bool   `yaml:"enable" mapstructure:"enable" env:"PPAGENT_SERVER_ENABLE" comment:"是否启用指标服务"`
	Addr   string `yaml:"addr" mapstructure:"addr" env:"PPAGENT_SERVER_ADDR" validate:"required_if=Enable true" comment:"监听地址（格式：ip:port）"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Level   string `yaml:"level" mapstructure:"level" env:"PPAGENT_LOG_LEVEL" validate:"required,oneof=debug info warn error DEBUG INFO WARN ERROR" comment:"日志级别" default:"info"`
	Format  string `yaml:"format" mapstructure:"format" validate:"required,oneof=json console" comment:"控制台日志格式（json/console）" default:"console"`
	Path    string `yaml:"path" mapstructure:"path" comment:"日志文件目录，为空则只输出到控制台"`
	MaxSize int    `yaml:"max_size" mapstructure:"max_size" validate:"gte=0" comment:"单个日志文件最大大小（MB）" default:"100"`
	MaxAge  int    `yaml:"max_age" mapstructure:"max_age" validate:"gte=0" comment:"日志文件最大保存天数" default:"7"`
}

// NewDefaultConfig 创建默认配置（不含矿机列表）
func NewDefaultConfig() *Config {
	return &Config{
		Uplink: UplinkConfig{
			Address:         "stratum.simpledoge.com",
			Port:            4444,
			ProtocolVersion: 0.1,
			DialTimeout:     10 * time.Second,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ReconnectDelay:  5 * time.Second,
		},
		Agent: AgentConfig{
			Tick:      time.Second,
			QueueSize: 10,
		},
		Server: ServerConfig{
			Enable: false,
			Addr:   "127.0.0.1:9091",
		},
		Log: ZapLogConfig{
			Level:   "info",
			Format:  "console",
			Path:    "",
			MaxSize: 100,
			MaxAge:  7,
		},
	}
}

// Remotes 返回用于匹配矿机矿池连接的远端地址（uplink 地址 + 矿机额外配置）
func (c *Config) Remotes(m MinerConfig) []string {
	out := []string{c.Uplink.Address}
	return append(out, m.Remotes...)
}
