package cgminer

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// Pool pools 命令返回的一条矿池连接
type Pool struct {
	URL        string
	StratumURL string
	User       string
	Raw        map[string]any
}

func newPool(row map[string]any) Pool {
	p := Pool{Raw: row}
	p.URL, _ = row["URL"].(string)
	p.StratumURL, _ = row["Stratum URL"].(string)
	p.User, _ = row["User"].(string)
	return p
}

// Host 返回矿池地址中的主机名，兼容 stratum+tcp://host:port 与纯 host 两种写法
func (p Pool) Host() string {
	return hostOf(p.URL)
}

// Matches 判断该矿池连接是否指向给定的远端地址之一
func (p Pool) Matches(remotes []string) bool {
	for _, remote := range remotes {
		r := strings.ToLower(strings.TrimSpace(remote))
		if r == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(p.StratumURL), r) || hostOf(p.StratumURL) == r {
			return true
		}
		if p.Host() == r {
			return true
		}
	}
	return false
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "tcp://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Float 宽松地把 JSON 数值（float64/json.Number/字符串）转为 float64
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
