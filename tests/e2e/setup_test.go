// E2E 测试环境与通用辅助函数。
//
// 使用真实 Chrome 对内置替身应用执行验收，需设置 CREDITVERIFY_E2E=true。
//go:build e2e

package e2e

import (
	"context"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/creditverify/browser"
	"github.com/BaSui01/creditverify/config"
	"github.com/BaSui01/creditverify/internal/fakeapp"
)

// --- 测试环境 ---

// TestEnv E2E 测试环境
type TestEnv struct {
	Config   *config.Config
	Logger   *zap.Logger
	App      *fakeapp.App
	Server   *httptest.Server
	Launcher browser.Launcher

	ctx    context.Context
	cancel context.CancelFunc
}

// --- 环境设置 ---

// NewTestEnv 启动替身应用并返回指向它的配置
func NewTestEnv(t *testing.T, opts fakeapp.Options) *TestEnv {
	t.Helper()
	SkipIfNoE2E(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	logger, _ := zap.NewDevelopment()
	app := fakeapp.New(ctx, opts, logger)
	srv := httptest.NewServer(app)

	cfg := config.DefaultConfig()
	cfg.Target.BaseURL = srv.URL
	cfg.Evidence.Dir = t.TempDir()
	cfg.Timeouts.Checkpoint = 10 * time.Second
	cfg.Timeouts.Navigation = 20 * time.Second
	cfg.Timeouts.OTP = 5 * time.Second
	cfg.Browser.Headless = !envBool("CREDITVERIFY_E2E_HEADFUL")
	if path := os.Getenv("CREDITVERIFY_BROWSER_EXEC_PATH"); path != "" {
		cfg.Browser.ExecPath = path
	}

	bc := browser.DefaultBrowserConfig()
	bc.Headless = cfg.Browser.Headless
	bc.ExecPath = cfg.Browser.ExecPath
	bc.NoSandbox = true

	env := &TestEnv{
		Config:   cfg,
		Logger:   logger,
		App:      app,
		Server:   srv,
		Launcher: browser.NewChromeLauncher(bc, logger),
		ctx:      ctx,
		cancel:   cancel,
	}

	t.Cleanup(env.Cleanup)
	return env
}

// Context 返回测试上下文
func (e *TestEnv) Context() context.Context {
	return e.ctx
}

// Cleanup 清理测试环境
func (e *TestEnv) Cleanup() {
	e.Server.Close()
	e.cancel()
	if e.Logger != nil {
		_ = e.Logger.Sync()
	}
}

// --- 环境检查 ---

// SkipIfNoE2E 未开启浏览器测试时跳过
func SkipIfNoE2E(t *testing.T) {
	t.Helper()
	if !envBool("CREDITVERIFY_E2E") {
		t.Skip("Skipping test: set CREDITVERIFY_E2E=true to drive a real browser")
	}
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
