// Package uplink 维护到远端采集服务的唯一长连接：hello 握手、worker 认证、数据上报。
//
// 协议为按行分隔的 JSON，严格一问一答：发送一行后同步等待一行回复再发下一条。
package uplink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ppagent/internal/reading"
	"github.com/ppagent/pkg/config"
	"github.com/ppagent/pkg/metrics"
)

const (
	readBufferSize = 4096
	maxReplySize   = 4000
)

// Session 远端连接。conn 为 nil 表示未连接，下一次 Send 时惰性重连。
// 只在主循环协程中使用。
type Session struct {
	cfg     config.UplinkConfig
	addr    string
	dialer  net.Dialer
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.AgentMetrics

	conn    net.Conn
	reader  *bufio.Reader
	id      string
	onReset []func()
}

// New 创建会话，不建立连接
func New(cfg config.UplinkConfig, logger *zap.Logger, m *metrics.AgentMetrics) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNopAgentMetrics()
	}
	limit := rate.Inf
	if cfg.ReconnectDelay > 0 {
		limit = rate.Every(cfg.ReconnectDelay)
	}
	addr := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
	return &Session{
		cfg:     cfg,
		addr:    addr,
		dialer:  net.Dialer{Timeout: cfg.DialTimeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With(zap.String("remote", addr)),
		metrics: m,
	}
}

// OnReset 注册连接被拆除时的回调（用于清除所有矿机的认证状态）
func (s *Session) OnReset(fn func()) {
	s.onReset = append(s.onReset, fn)
}

// Connected 当前是否持有连接
func (s *Session) Connected() bool { return s.conn != nil }

// Addr 远端地址
func (s *Session) Addr() string { return s.addr }

func (s *Session) connect(ctx context.Context) error {
	if !s.limiter.Allow() {
		return ErrThrottled
	}
	s.logger.Debug("opening connection to remote")
	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.addr, err)
	}
	s.conn = conn
	s.reader = bufio.NewReaderSize(conn, readBufferSize)
	s.id = uuid.NewString()
	s.metrics.UplinkConnects.Inc()
	s.logger.Info("connected to remote", zap.String("session", s.id))

	// hello 不等待回复
	if err := s.write(ctx, Request{Method: MethodHello, Params: []any{s.cfg.ProtocolVersion}}); err != nil {
		return err
	}
	return nil
}

// reset 拆除连接并通知所有监听者
func (s *Session) reset(cause error) {
	if s.conn == nil {
		return
	}
	_ = s.conn.Close()
	s.logger.Info("disconnected from remote", zap.String("session", s.id), zap.Error(cause))
	s.conn, s.reader, s.id = nil, nil, ""
	s.metrics.UplinkResets.Inc()
	for _, fn := range s.onReset {
		fn()
	}
}

// Close 主动关闭连接
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn, s.reader, s.id = nil, nil, ""
	return err
}

// deadline 取 timeout 与 ctx 截止时间中较早者
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(d) {
		return dl
	}
	return d
}

// interruptOnCancel ctx 取消时让阻塞中的读写立即返回
func (s *Session) interruptOnCancel(ctx context.Context) func() bool {
	conn := s.conn
	return context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
}

func (s *Session) write(ctx context.Context, req Request) error {
	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s: %w", req.Method, err)
	}
	line = append(line, '\n')

	_ = s.conn.SetWriteDeadline(deadline(ctx, s.cfg.WriteTimeout))
	stop := s.interruptOnCancel(ctx)
	defer stop()
	if _, err := s.conn.Write(line); err != nil {
		err = fmt.Errorf("write %s: %w", req.Method, err)
		s.reset(err)
		return err
	}
	s.logger.Debug("sent to remote", zap.ByteString("line", line[:len(line)-1]))
	return nil
}

// Send 发送一行请求，未连接时先建连并发送 hello。任何 I/O 错误都会拆除连接。
func (s *Session) Send(ctx context.Context, req Request) error {
	if s.conn == nil {
		if err := s.connect(ctx); err != nil {
			return err
		}
	}
	return s.write(ctx, req)
}

// Receive 读取一行回复。未连接时立即返回 ErrNotConnected。
// 超长行、空读、超时与无法解析的回复都会拆除连接。
func (s *Session) Receive(ctx context.Context) (*Reply, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}

	_ = s.conn.SetReadDeadline(deadline(ctx, s.cfg.ReadTimeout))
	stop := s.interruptOnCancel(ctx)
	defer stop()

	line, err := s.reader.ReadSlice('\n')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		s.reset(ErrFrameTooLarge)
		return nil, ErrFrameTooLarge
	case errors.Is(err, io.EOF) && len(line) > 0:
		// 对端写完最后一行后关闭，先处理这一行
	case errors.Is(err, io.EOF):
		s.reset(ErrClosed)
		return nil, ErrClosed
	case err != nil:
		err = fmt.Errorf("read reply: %w", err)
		s.reset(err)
		return nil, err
	}

	if len(line) > maxReplySize {
		s.reset(ErrFrameTooLarge)
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(line))
	}
	s.logger.Debug("received from remote", zap.ByteString("line", line))

	reply, err := parseReply(line)
	if err != nil {
		s.reset(err)
		return nil, err
	}
	return reply, nil
}

// Call 发送请求并同步等待一行回复
func (s *Session) Call(ctx context.Context, method string, params ...any) (*Reply, error) {
	if params == nil {
		params = []any{}
	}
	if err := s.Send(ctx, Request{Method: method, Params: params}); err != nil {
		return nil, err
	}
	return s.Receive(ctx)
}

// Authenticate 认证 worker，只有显式 "error": null 才算成功
func (s *Session) Authenticate(ctx context.Context, worker string) error {
	reply, err := s.Call(ctx, MethodAuthenticate, worker)
	if err != nil {
		return err
	}
	if !reply.ExplicitSuccess() {
		return fmt.Errorf("%w: authenticate %s: error=%s", ErrRejected, worker, reply.ErrorText())
	}
	return nil
}

// Submit 上报一条读数，error 为 null 或缺失即视为送达
func (s *Session) Submit(ctx context.Context, r reading.Reading) error {
	reply, err := s.Call(ctx, MethodSubmit, r.Params()...)
	if err != nil {
		return err
	}
	if !reply.Succeeded() {
		return fmt.Errorf("%w: submit %s: error=%s", ErrRejected, r.Kind, reply.ErrorText())
	}
	return nil
}
