package config

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	// 	1，校验远端连接配置
	if err := c.Uplink.Validate(); err != nil {
		return err
	}
	// 	2，校验指标服务配置
	if err := c.Server.Validate(); err != nil {
		return err
	}
	// 	3，校验日志配置
	if err := c.Log.Validate(); err != nil {
		return err
	}
	// 	4，校验矿机配置
	if len(c.Miners) == 0 {
		return errors.New("at least one miner must be configured")
	}
	seen := map[string]bool{}
	for i := range c.Miners {
		if err := c.Miners[i].Validate(); err != nil {
			return err
		}
		if seen[c.Miners[i].Name] {
			return fmt.Errorf("duplicate miner name %q", c.Miners[i].Name)
		}
		seen[c.Miners[i].Name] = true
	}
	return nil
}

// Validate 远端连接配置校验
func (u *UplinkConfig) Validate() error {
	if err := valid.Struct(u); err != nil {
		return err
	}
	if u.ReadTimeout < 100*time.Millisecond {
		return fmt.Errorf("uplink.read_timeout must be at least 100ms, got %s", u.ReadTimeout)
	}
	return nil
}

// Validate 指标服务配置校验
func (s *ServerConfig) Validate() error {
	if !s.Enable {
		return nil
	}
	// 	用net包解析地址，验证格式合法性
	if _, err := net.ResolveTCPAddr("tcp", s.Addr); err != nil {
		return fmt.Errorf("server.addr format invalid (expected: :port or ip:port), got %s: %w", s.Addr, err)
	}
	return nil
}
