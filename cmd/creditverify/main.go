// =============================================================================
// creditverify 主入口
// =============================================================================
// 信用管理应用的端到端验收检查
//
// 使用方法:
//
//	creditverify run                        # 按默认配置执行验收
//	creditverify run --config cv.yaml       # 指定配置文件
//	creditverify run --fakeapp              # 对内置替身应用执行验收
//	creditverify fakeapp --addr :5173       # 启动替身应用
//	creditverify history --limit 10         # 查看最近运行记录
//	creditverify version                    # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/creditverify/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// 退出码：参数或配置错误
const exitUsage = 2

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitUsage
	}

	switch args[0] {
	case "run":
		return runVerify(ctx, args[1:], stdout, stderr)
	case "fakeapp":
		return runFakeApp(ctx, args[1:], stdout, stderr)
	case "history":
		return runHistory(ctx, args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return exitUsage
	}
}

// loadConfig 默认值 → YAML → 环境变量
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.NewLoader().WithConfigPath(path).Load()
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "creditverify %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `creditverify - credit app end-to-end acceptance check

Usage:
  creditverify <command> [options]

Commands:
  run       Log in with OTP, add a cheque and verify it in the list
  fakeapp   Serve the bundled fake credit app
  history   List recent verification runs
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>       Path to configuration file (YAML)
  --fakeapp             Verify against the bundled fake app on a random port
  --legacy-empty-otp    Fill the OTP field without waiting for the dialog

Options for 'fakeapp':
  --addr <addr>         Listen address (default 127.0.0.1:5173)
  --suppress-otp-dialog Do not alert the OTP after login
  --hide-otp-field      Do not render the OTP input after login

Options for 'history':
  --config <path>       Path to configuration file (YAML)
  --limit <n>           Number of runs to list (default 20)
  --json                Print JSON instead of a table

Exit codes:
  0  verification completed (or aborted with run.fail_on_abort=false)
  1  verification aborted at a checkpoint
  2  setup failure: browser could not start, or invalid configuration

Examples:
  creditverify run
  CREDITVERIFY_TARGET_BASE_URL=http://localhost:5173 creditverify run
  creditverify run --fakeapp
  creditverify history --limit 5`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		// stdout 留给进度输出
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          "json",
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
