package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFileContent 首次运行时写入的默认配置文件
const DefaultFileContent = `{
    // 远端采集服务
    "uplink": {
        "address": "stratum.simpledoge.com",
        "port": 4444
    },
    // 本机 cgminer API，未声明的字段使用默认值
    "miners": [
        {"type": "cgminer"}
    ]
}
`

// EnsureDefaultFile 配置文件不存在时创建目录并写入默认配置
func EnsureDefaultFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file %s: %w", path, err)
	}
	return WriteDefaultFile(path)
}

// WriteDefaultFile 写入（覆盖）默认配置文件
func WriteDefaultFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o751); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultFileContent), 0o644); err != nil {
		return fmt.Errorf("write default config %s: %w", path, err)
	}
	return nil
}
