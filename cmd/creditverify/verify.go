package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/creditverify/browser"
	"github.com/BaSui01/creditverify/config"
	"github.com/BaSui01/creditverify/internal/fakeapp"
	"github.com/BaSui01/creditverify/internal/history"
	"github.com/BaSui01/creditverify/internal/metrics"
	"github.com/BaSui01/creditverify/internal/server"
	"github.com/BaSui01/creditverify/internal/telemetry"
	"github.com/BaSui01/creditverify/scenario"
)

// =============================================================================
// ✅ run 命令
// =============================================================================

func runVerify(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	withFakeApp := fs.Bool("fakeapp", false, "Verify against the bundled fake app")
	legacy := fs.Bool("legacy-empty-otp", false, "Fill the OTP field without waiting for the dialog")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitUsage
	}
	if *legacy {
		cfg.Run.LegacyEmptyOTP = true
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting creditverify",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
	)

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	opts := []scenario.RunnerOption{
		scenario.WithLogger(logger),
		scenario.WithReporter(scenario.NewReporter(stdout)),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, scenario.WithMetrics(metrics.NewCollector(cfg.Metrics.Namespace, logger)))
	}
	if instruments, err := telemetry.NewRunInstruments(nil); err != nil {
		logger.Warn("failed to create run instruments", zap.Error(err))
	} else {
		opts = append(opts, scenario.WithInstruments(instruments))
	}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History, logger)
		if err != nil {
			// 历史不可用不阻止验收
			logger.Warn("run history disabled", zap.Error(err))
		} else {
			defer store.Close()
			opts = append(opts, scenario.WithHistory(store))
		}
	}

	launcher := browser.NewChromeLauncher(browserConfig(cfg.Browser), logger)

	if !*withFakeApp {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "Invalid config: %v\n", err)
			return exitUsage
		}
		report := scenario.NewRunner(cfg, launcher, opts...).Run(ctx)
		return report.ExitCode(cfg.Run.FailOnAbort)
	}

	return verifyAgainstFakeApp(ctx, cfg, launcher, opts, stderr, logger)
}

// verifyAgainstFakeApp 在随机端口托管替身应用，验收结束后关闭
func verifyAgainstFakeApp(ctx context.Context, cfg *config.Config, launcher browser.Launcher,
	opts []scenario.RunnerOption, stderr io.Writer, logger *zap.Logger) int {
	g, gctx := errgroup.WithContext(ctx)
	srvCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	app := fakeapp.New(srvCtx, fakeapp.Options{
		Username: cfg.Target.Username,
		Password: cfg.Target.Password,
	}, logger)

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = "127.0.0.1:0"
	mgr := server.NewManager(app, srvCfg, logger)
	if err := mgr.Start(); err != nil {
		fmt.Fprintf(stderr, "Failed to start fake app: %v\n", err)
		return scenario.ExitSetup
	}
	cfg.Target.BaseURL = mgr.URL()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid config: %v\n", err)
		_ = mgr.Shutdown(context.WithoutCancel(ctx))
		return exitUsage
	}

	var report *scenario.Report
	g.Go(func() error { return mgr.Run(srvCtx) })
	g.Go(func() error {
		defer stopServer()
		report = scenario.NewRunner(cfg, launcher, opts...).Run(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("fake app failed during verification", zap.Error(err))
	}
	return report.ExitCode(cfg.Run.FailOnAbort)
}

// browserConfig 将配置映射为驱动配置
func browserConfig(c config.BrowserConfig) browser.BrowserConfig {
	bc := browser.DefaultBrowserConfig()
	bc.Headless = c.Headless
	bc.RemoteURL = c.RemoteURL
	bc.ExecPath = c.ExecPath
	bc.UserAgent = c.UserAgent
	bc.ProxyURL = c.ProxyURL
	bc.NoSandbox = c.NoSandbox
	if c.ViewportWidth > 0 {
		bc.ViewportWidth = c.ViewportWidth
	}
	if c.ViewportHeight > 0 {
		bc.ViewportHeight = c.ViewportHeight
	}
	if c.LaunchTimeout > 0 {
		bc.LaunchTimeout = c.LaunchTimeout
	}
	return bc
}
