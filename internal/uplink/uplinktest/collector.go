// Package uplinktest 提供进程内的远端采集服务替身，供测试使用
package uplinktest

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ppagent/internal/uplink"
	"github.com/ppagent/pkg/config"
)

// Handler 处理一条非 hello 请求；ok=false 表示不回复
type Handler func(req uplink.Request) (reply string, ok bool)

// Accept 对所有请求回复 {"error": null}
func Accept(uplink.Request) (string, bool) { return `{"id":1,"result":true,"error":null}`, true }

// Collector 监听 127.0.0.1 随机端口的假远端
type Collector struct {
	ln      net.Listener
	handler Handler

	mu       sync.Mutex
	requests []uplink.Request
	conns    []net.Conn
	accepted int
}

// New 启动假远端，测试结束时自动关闭
func New(t testing.TB, h Handler) *Collector {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	c := &Collector{ln: ln, handler: h}
	go c.serve()
	t.Cleanup(c.Close)
	return c
}

// SetHandler 替换处理函数
func (c *Collector) SetHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Config 指向本假远端、超时较短、不限制重连的配置
func (c *Collector) Config() config.UplinkConfig {
	addr := c.ln.Addr().(*net.TCPAddr)
	return config.UplinkConfig{
		Address:         addr.IP.String(),
		Port:            addr.Port,
		ProtocolVersion: 0.1,
		DialTimeout:     time.Second,
		ReadTimeout:     500 * time.Millisecond,
		WriteTimeout:    time.Second,
	}
}

// Requests 按到达顺序返回收到的全部请求（含 hello）
func (c *Collector) Requests() []uplink.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uplink.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Methods 收到的请求方法名序列
func (c *Collector) Methods() []string {
	var out []string
	for _, r := range c.Requests() {
		out = append(out, r.Method)
	}
	return out
}

// Accepted 已接受的连接数
func (c *Collector) Accepted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accepted
}

// DropConnections 从服务端关闭当前所有连接，模拟远端断开
func (c *Collector) DropConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conn := range c.conns {
		_ = conn.Close()
	}
	c.conns = nil
}

// Close 停止监听并断开所有连接
func (c *Collector) Close() {
	_ = c.ln.Close()
	c.DropConnections()
}

func (c *Collector) serve() {
	for {
		conn, err := c.ln.Accept()
		if err != nil {
			return
		}
		c.mu.Lock()
		c.accepted++
		c.conns = append(c.conns, conn)
		c.mu.Unlock()
		go c.handle(conn)
	}
}

func (c *Collector) handle(conn net.Conn) {
	defer conn.Close()
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		var req uplink.Request
		if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
			return
		}
		c.mu.Lock()
		c.requests = append(c.requests, req)
		h := c.handler
		c.mu.Unlock()

		if req.Method == uplink.MethodHello || h == nil {
			continue
		}
		reply, ok := h(req)
		if !ok {
			continue
		}
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
	}
}
