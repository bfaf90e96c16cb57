// Package cgminer 实现 cgminer API（TCP 4028）的单次请求/响应查询。
//
// 协议：建立连接，发送一行 {"command":"<name>"}，读取一帧 JSON（以 \n、NUL 或 EOF 结束），关闭连接。
package cgminer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const (
	DefaultPort = 4028

	defaultTimeout = 5 * time.Second
	maxFrameSize   = 1 << 20
)

// ErrTransport 套接字层错误（连接、写入、读取失败）。
// 通常表示矿机程序不可达或已重启。
var ErrTransport = errors.New("cgminer transport failure")

// ShapeError 响应结构不符合预期（无法解析或缺少关键字段）
type ShapeError struct {
	Command string
	Key     string
	Err     error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cgminer %s: malformed response: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("cgminer %s: response missing %q", e.Command, e.Key)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// IsShapeError 判断错误是否为响应结构错误
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// Client cgminer API 客户端（无状态，每次调用独立建连）
type Client struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// NewClient 创建客户端，timeout <= 0 时使用默认 5s
func NewClient(address string, port int, timeout time.Duration) *Client {
	if port <= 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		addr:    net.JoinHostPort(address, strconv.Itoa(port)),
		timeout: timeout,
		dialer:  net.Dialer{Timeout: timeout},
	}
}

// Addr 目标地址（host:port）
func (c *Client) Addr() string { return c.addr }

// Call 执行一条命令并返回解析后的顶层 JSON 对象
func (c *Client) Call(ctx context.Context, command string) (map[string]json.RawMessage, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrTransport, c.addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	req, _ := json.Marshal(map[string]string{"command": command})
	if _, err := conn.Write(req); err != nil {
		return nil, fmt.Errorf("%w: write %s: %v", ErrTransport, c.addr, err)
	}

	frame, err := readFrame(bufio.NewReader(conn))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTransport, c.addr, err)
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(frame, &out); err != nil {
		return nil, &ShapeError{Command: command, Err: err}
	}
	return out, nil
}

// readFrame 读取一帧响应，以 \n 或 NUL 结束；对端直接关闭连接也视为结束
func readFrame(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && buf.Len() > 0 {
				break
			}
			return nil, err
		}
		if b == '\n' || b == 0 {
			break
		}
		if buf.Len() >= maxFrameSize {
			return nil, fmt.Errorf("response exceeds %d bytes", maxFrameSize)
		}
		buf.WriteByte(b)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// Devs 查询 devs，返回每个计算单元（GPU/ASIC 链）的原始字段
func (c *Client) Devs(ctx context.Context) ([]map[string]any, error) {
	return c.section(ctx, "devs", "DEVS")
}

// Pools 查询 pools
func (c *Client) Pools(ctx context.Context) ([]Pool, error) {
	rows, err := c.section(ctx, "pools", "POOLS")
	if err != nil {
		return nil, err
	}
	pools := make([]Pool, 0, len(rows))
	for _, row := range rows {
		pools = append(pools, newPool(row))
	}
	return pools, nil
}

func (c *Client) section(ctx context.Context, command, key string) ([]map[string]any, error) {
	resp, err := c.Call(ctx, command)
	if err != nil {
		return nil, err
	}
	raw, ok := resp[key]
	if !ok {
		return nil, &ShapeError{Command: command, Key: key}
	}
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &ShapeError{Command: command, Key: key, Err: err}
	}
	return rows, nil
}
