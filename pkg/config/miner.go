package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// DefaultMinerType 未声明 type 时使用的矿机类型
const DefaultMinerType = "cgminer"

// MinerConfig 单台矿机配置
type MinerConfig struct {
	Name       string           `yaml:"name" mapstructure:"name" comment:"日志与指标中使用的名称，默认 address:port"`
	Type       string           `yaml:"type" mapstructure:"type" validate:"required" comment:"矿机程序类型"`
	Address    string           `yaml:"address" mapstructure:"address" validate:"required" comment:"API 地址"`
	Port       int              `yaml:"port" mapstructure:"port" validate:"gt=0,lte=65535" comment:"API 端口"`
	Timeout    time.Duration    `yaml:"timeout" mapstructure:"timeout" validate:"gt=0" comment:"单次 API 调用超时"`
	Remotes    []string         `yaml:"remotes" mapstructure:"remotes" comment:"额外的矿池地址，用于匹配 worker"`
	Thresholds map[string]any   `yaml:"thresholds" mapstructure:"thresholds" comment:"告警阈值，认证后上报一次"`
	Collectors CollectorsConfig `yaml:"collectors" mapstructure:"collectors"`
}

// CollectorsConfig 各采集器配置
type CollectorsConfig struct {
	Status   StatusCollectorConfig   `yaml:"status" mapstructure:"status"`
	Temp     IntervalCollectorConfig `yaml:"temp" mapstructure:"temp"`
	Hashrate IntervalCollectorConfig `yaml:"hashrate" mapstructure:"hashrate"`
}

// IntervalCollectorConfig 定时采集器通用配置（interval 单位：秒）
type IntervalCollectorConfig struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	Interval int  `yaml:"interval" mapstructure:"interval" validate:"gt=0"`
}

// StatusCollectorConfig status 采集器配置
type StatusCollectorConfig struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	Interval    int  `yaml:"interval" mapstructure:"interval" validate:"gt=0"`
	Temperature bool `yaml:"temperature" mapstructure:"temperature" comment:"上报每个单元温度"`
	MHps        bool `yaml:"mhps" mapstructure:"mhps" comment:"上报每个单元算力"`
	Details     bool `yaml:"details" mapstructure:"details" comment:"上报 devs 返回的其它字段"`
	Host        bool `yaml:"host" mapstructure:"host" comment:"附带本机主机信息"`
}

// minerDefaults 每种矿机类型的默认配置，用户配置在其之上深度合并
var minerDefaults = map[string]func() MinerConfig{
	"cgminer":  cgminerDefaults,
	"sgminer":  cgminerDefaults,
	"bfgminer": cgminerDefaults,
	"bmminer":  cgminerDefaults,
}

func cgminerDefaults() MinerConfig {
	return MinerConfig{
		Type:    DefaultMinerType,
		Address: "127.0.0.1",
		Port:    4028,
		Timeout: 5 * time.Second,
		Collectors: CollectorsConfig{
			Status: StatusCollectorConfig{
				Enabled:     true,
				Interval:    60,
				Temperature: true,
				MHps:        true,
				Details:     true,
				Host:        true,
			},
			Temp:     IntervalCollectorConfig{Enabled: true, Interval: 60},
			Hashrate: IntervalCollectorConfig{Enabled: true, Interval: 60},
		},
	}
}

// MinerTypes 返回支持的矿机类型
func MinerTypes() []string {
	out := make([]string, 0, len(minerDefaults))
	for k := range minerDefaults {
		out = append(out, k)
	}
	return out
}

// DefaultMinerConfig 返回指定类型的默认配置
func DefaultMinerConfig(typ string) (MinerConfig, error) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" {
		typ = DefaultMinerType
	}
	fn, ok := minerDefaults[typ]
	if !ok {
		return MinerConfig{}, fmt.Errorf("unknown miner type %q", typ)
	}
	cfg := fn()
	cfg.Type = typ
	return cfg, nil
}

// DecodeMiner 把用户提供的矿机配置深度合并到该类型的默认配置上：
// 只覆盖出现的键，同级未出现的键保留默认值。
func DecodeMiner(raw map[string]any) (MinerConfig, error) {
	typ, _ := lookup(raw, "type").(string)
	cfg, err := DefaultMinerConfig(typ)
	if err != nil {
		return MinerConfig{}, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ZeroFields:       false,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return MinerConfig{}, fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return MinerConfig{}, fmt.Errorf("decode miner: %w", err)
	}
	cfg.Type = strings.ToLower(cfg.Type)
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	}
	return cfg, nil
}

// lookup 忽略大小写读取 map 中的键（viper 会把键转为小写）
func lookup(m map[string]any, key string) any {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

// Validate 矿机配置校验
func (m *MinerConfig) Validate() error {
	if err := valid.Struct(m); err != nil {
		return fmt.Errorf("miner %s: %w", m.Name, err)
	}
	if _, ok := minerDefaults[m.Type]; !ok {
		return fmt.Errorf("miner %s: unknown type %q", m.Name, m.Type)
	}
	c := m.Collectors
	if !c.Status.Enabled && !c.Temp.Enabled && !c.Hashrate.Enabled {
		return fmt.Errorf("miner %s: at least one collector must be enabled (status/temp/hashrate)", m.Name)
	}
	for i, r := range m.Remotes {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("miner %s: remotes[%d] cannot be empty", m.Name, i)
		}
	}
	return nil
}
