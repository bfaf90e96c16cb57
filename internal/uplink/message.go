package uplink

import (
	"bytes"
	"encoding/json"
	"errors"
)

const (
	MethodHello        = "hello"
	MethodAuthenticate = "worker.authenticate"
	MethodSubmit       = "stats.submit"
)

var (
	// ErrNotConnected 当前没有打开的连接（Receive 不阻塞直接返回）
	ErrNotConnected = errors.New("uplink: not connected")
	// ErrClosed 远端关闭了连接（读到空行/EOF）
	ErrClosed = errors.New("uplink: connection closed by remote")
	// ErrFrameTooLarge 回复行超过上限，视为协议违规
	ErrFrameTooLarge = errors.New("uplink: reply line too large")
	// ErrMalformedReply 回复不是一个 JSON 对象
	ErrMalformedReply = errors.New("uplink: malformed reply")
	// ErrRejected 远端返回了非空 error
	ErrRejected = errors.New("uplink: request rejected by remote")
	// ErrThrottled 距上次建连不足 reconnect_delay
	ErrThrottled = errors.New("uplink: reconnect throttled")
)

// Request 一行 JSON 请求
type Request struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// Reply 一行 JSON 回复。区分 error 字段缺失与显式 null。
type Reply struct {
	Fields     map[string]json.RawMessage
	errPresent bool
}

func parseReply(line []byte) (*Reply, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil || fields == nil {
		return nil, ErrMalformedReply
	}
	_, present := fields["error"]
	return &Reply{Fields: fields, errPresent: present}, nil
}

func (r *Reply) errNull() bool {
	return bytes.Equal(bytes.TrimSpace(r.Fields["error"]), []byte("null"))
}

// ExplicitSuccess error 字段存在且为 null（认证成功的唯一条件）
func (r *Reply) ExplicitSuccess() bool {
	return r.errPresent && r.errNull()
}

// Succeeded error 为 null 或缺失
func (r *Reply) Succeeded() bool {
	return !r.errPresent || r.errNull()
}

// ErrorText error 字段原文，便于日志
func (r *Reply) ErrorText() string {
	if !r.errPresent {
		return "<absent>"
	}
	return string(r.Fields["error"])
}
