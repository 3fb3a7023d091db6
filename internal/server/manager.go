package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config 替身应用的监听配置
type Config struct {
	// Addr 监听地址，"127.0.0.1:0" 表示随机端口
	Addr string
	// ReadTimeout 同时约束请求头读取
	ReadTimeout time.Duration
	// ShutdownTimeout 优雅关闭上限
	ShutdownTimeout time.Duration
}

// DefaultConfig 监听原应用的开发端口 5173
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:5173",
		ReadTimeout:     15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

type state int

const (
	stateIdle state = iota
	stateServing
	stateStopped
)

// Manager 托管一个 http.Handler：Start 占用端口，Run 阻塞到 ctx 结束，Shutdown 释放
type Manager struct {
	srv    *http.Server
	cfg    Config
	logger *zap.Logger

	mu    sync.Mutex
	ln    net.Listener
	state state
	// served 接收 Serve 的返回值
	served chan error
}

// NewManager 创建 Manager，此时尚未监听
func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		srv: &http.Server{
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
		},
		cfg:    cfg,
		logger: logger.With(zap.String("component", "http_server")),
		served: make(chan error, 1),
	}
}

// Start 监听并在后台提供服务；返回后 URL 即可用
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateStopped:
		return fmt.Errorf("server is closed")
	case stateServing:
		return fmt.Errorf("server already started on %s", m.ln.Addr())
	}

	ln, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.cfg.Addr, err)
	}
	m.ln = ln
	m.state = stateServing
	m.logger.Info("serving", zap.String("url", "http://"+ln.Addr().String()))

	go func() { m.served <- m.srv.Serve(ln) }()
	return nil
}

// Run 阻塞直到 ctx 结束或服务异常退出，随后优雅关闭。尚未 Start 时先启动
func (m *Manager) Run(ctx context.Context) error {
	if m.ListenAddr() == "" {
		if err := m.Start(); err != nil {
			return err
		}
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-m.served:
		if !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("server exited unexpectedly", zap.Error(err))
			serveErr = err
		}
	}

	return errors.Join(serveErr, m.Shutdown(context.WithoutCancel(ctx)))
}

// Shutdown 优雅关闭；重复调用无副作用
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateStopped {
		return nil
	}
	wasServing := m.state == stateServing
	m.state = stateStopped
	if !wasServing {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	m.logger.Info("stopped")
	return nil
}

// ListenAddr 实际监听地址；未启动时为空
func (m *Manager) ListenAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln == nil {
		return ""
	}
	return m.ln.Addr().String()
}

// URL 服务根地址；未启动时为空
func (m *Manager) URL() string {
	if addr := m.ListenAddr(); addr != "" {
		return "http://" + addr
	}
	return ""
}

// IsRunning Start 之后、Shutdown 之前为 true
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == stateServing
}
