package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀（PPAGENT_UPLINK_ADDRESS -> uplink.address）
const EnvPrefix = "PPAGENT"

// ErrNoConfigFile 指定的配置文件不存在
var ErrNoConfigFile = errors.New("config file does not exist")

// DefaultConfigPath 未指定 --config 时使用的配置文件路径
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "ppagent.json"
	}
	return filepath.Join(home, ".ppagent", "config.json")
}

// LoadConfigWithCli 加载配置（Flags > ENV > 配置文件 > 默认值）
//
// configFile 为空时使用 DefaultConfigPath，并在文件不存在时写入默认配置；
// 显式指定但不存在的文件直接返回错误。
func LoadConfigWithCli(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	// 2. 解析配置文件
	if configFile == "" {
		configFile = DefaultConfigPath()
		if err := EnsureDefaultFile(configFile); err != nil {
			return nil, err
		}
	}
	rawMiners, err := readFile(v, configFile)
	if err != nil {
		return nil, err
	}

	// 3. 绑定环境变量
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return decode(v, rawMiners)
}

// minersFile 单独解码 miners 列表。viper 会把所有键转为小写，
// 而 thresholds 需要按原样上报，所以不经过 viper。
type minersFile struct {
	Miners any `json:"miners" yaml:"miners"`
}

// readFile 读取配置文件，.json/.jsonc 允许注释和尾逗号；返回原样解码的 miners 列表
func readFile(v *viper.Viper, path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoConfigFile, path)
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var (
		raw       minersFile
		rawErr    error
		extension = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	)
	switch extension {
	case "json", "jsonc", "":
		v.SetConfigType("json")
		data = jsonc.ToJSON(data)
		rawErr = json.Unmarshal(data, &raw)
	case "yaml", "yml":
		v.SetConfigType("yaml")
		rawErr = yaml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported config file type %q", extension)
	}

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if rawErr != nil {
		return nil, fmt.Errorf("parse miners in %s: %w", path, rawErr)
	}
	return raw.Miners, nil
}

// decode 解码反序列化到结构体（支持 time.Duration），矿机列表逐条与类型默认值合并
func decode(v *viper.Viper, rawMiners any) (*Config, error) {
	cfg := NewDefaultConfig()

	settings := v.AllSettings()
	delete(settings, "miners")

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	miners, err := decodeMiners(rawMiners)
	if err != nil {
		return nil, err
	}
	cfg.Miners = miners

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func decodeMiners(raw any) ([]MinerConfig, error) {
	if raw == nil {
		def, _ := DefaultMinerConfig(DefaultMinerType)
		def.Name = fmt.Sprintf("%s:%d", def.Address, def.Port)
		return []MinerConfig{def}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("miners must be a list, got %T", raw)
	}
	out := make([]MinerConfig, 0, len(list))
	for i, item := range list {
		m, ok := toStringMap(item)
		if !ok {
			return nil, fmt.Errorf("miners[%d] must be a mapping, got %T", i, item)
		}
		mc, err := DecodeMiner(m)
		if err != nil {
			return nil, fmt.Errorf("miners[%d]: %w", i, err)
		}
		out = append(out, mc)
	}
	return out, nil
}

func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
