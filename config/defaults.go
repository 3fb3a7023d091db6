// =============================================================================
// 📦 creditverify 默认配置
// =============================================================================
// 默认值复现原始验收脚本的固定输入
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Target:    DefaultTargetConfig(),
		Browser:   DefaultBrowserConfig(),
		Timeouts:  DefaultTimeoutsConfig(),
		Cheque:    DefaultChequeConfig(),
		Evidence:  DefaultEvidenceConfig(),
		Run:       DefaultRunConfig(),
		History:   DefaultHistoryConfig(),
		Metrics:   DefaultMetricsConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultTargetConfig 返回默认被测应用配置
func DefaultTargetConfig() TargetConfig {
	return TargetConfig{
		BaseURL:  "http://localhost:5173",
		Username: "admin",
		Password: "admin",
	}
}

// DefaultBrowserConfig 返回默认浏览器配置
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 720,
		NoSandbox:      true,
		LaunchTimeout:  30 * time.Second,
	}
}

// DefaultTimeoutsConfig 返回默认等待上限
func DefaultTimeoutsConfig() TimeoutsConfig {
	return TimeoutsConfig{
		Checkpoint: 30 * time.Second,
		Navigation: 30 * time.Second,
		Dashboard:  5 * time.Second,
		OTP:        30 * time.Second,
	}
}

// DefaultChequeConfig 返回默认支票数据
func DefaultChequeConfig() ChequeConfig {
	return ChequeConfig{
		Number:     "CHK123456",
		Bank:       "BOC",
		Amount:     50000,
		PersonName: "John Doe",
		Contact:    "0771234567",
		DueInDays:  1,
	}
}

// DefaultEvidenceConfig 返回默认截图配置
func DefaultEvidenceConfig() EvidenceConfig {
	return EvidenceConfig{
		Dir:         "verification",
		SuccessFile: "checks_verification.png",
		FailureFile: "error_screenshot.png",
		Timeout:     10 * time.Second,
		Sidecar:     true,
	}
}

// DefaultRunConfig 返回默认运行策略
func DefaultRunConfig() RunConfig {
	return RunConfig{
		FailOnAbort:    true,
		LegacyEmptyOTP: false,
	}
}

// DefaultHistoryConfig 返回默认历史配置
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Enabled: false,
		Driver:  "sqlite",
		Path:    "creditverify.db",
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:      false,
		TextfilePath: "creditverify.prom",
		Namespace:    "creditverify",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "creditverify",
		SampleRate:   1.0,
	}
}
