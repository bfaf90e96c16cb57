// Package server 提供 agent 自身的 HTTP 观测端点：/metrics（Prometheus）与 /health。
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// httpShutdownTimeout 优雅关闭超时时间，避免关闭流程无限阻塞
const httpShutdownTimeout = 5 * time.Second

// HTTPServer 封装监听地址、底层 http.Server 与指标注册器
type HTTPServer struct {
	addr     string
	server   *http.Server
	registry *prometheus.Registry
	logger   *zap.Logger
	ln       net.Listener
}

// statusWriter 包装 http.ResponseWriter，用于捕获响应状态码
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader 记录状态码后写出
func (w *statusWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// NewHTTPServer 创建 HTTP 服务（依赖注入）
//
//	addr: 监听地址（例：127.0.0.1:9091）
//	registry: 暴露在 /metrics 上的注册器
func NewHTTPServer(addr string, registry *prometheus.Registry, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")
	s := &HTTPServer{addr: addr, registry: registry, logger: logger}

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(logger),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.logged("metrics request received", metricsHandler))
	mux.Handle("/health", s.logged("health check received", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})))

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	return s
}

// logged 以 debug 级别记录请求方法、路径、来源、状态码与耗时
func (s *HTTPServer) logged(msg string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug(msg,
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Start 绑定端口后在子协程中提供服务（非阻塞）；绑定失败同步返回
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("starting HTTP server",
		zap.String("listen_addr", ln.Addr().String()),
		zap.Duration("read_timeout", s.server.ReadTimeout),
		zap.Duration("write_timeout", s.server.WriteTimeout),
	)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped unexpectedly", zap.Error(err))
			return
		}
		s.logger.Info("HTTP server stopped listening")
	}()
	return nil
}

// Addr 实际监听地址（Start 之后有效，便于使用 :0）
func (s *HTTPServer) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Shutdown 停止接收新请求，并在超时内等待现有请求完成
func (s *HTTPServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		// 超时视为关闭完成
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil
		}
		s.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP server shutdown successfully")
	return nil
}
