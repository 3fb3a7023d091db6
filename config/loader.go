// =============================================================================
// 📦 creditverify 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("creditverify.yaml").
//	    WithEnvPrefix("CREDITVERIFY").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/creditverify/types"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 creditverify 的完整配置结构
type Config struct {
	// Target 被测应用
	Target TargetConfig `yaml:"target" env:"TARGET"`

	// Browser 浏览器配置
	Browser BrowserConfig `yaml:"browser" env:"BROWSER"`

	// Timeouts 检查点等待上限
	Timeouts TimeoutsConfig `yaml:"timeouts" env:"TIMEOUTS"`

	// Cheque 提交的支票数据
	Cheque ChequeConfig `yaml:"cheque" env:"CHEQUE"`

	// Evidence 截图产物
	Evidence EvidenceConfig `yaml:"evidence" env:"EVIDENCE"`

	// Run 运行策略
	Run RunConfig `yaml:"run" env:"RUN"`

	// History 运行历史存储
	History HistoryConfig `yaml:"history" env:"HISTORY"`

	// Metrics 指标输出
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// TargetConfig 被测应用配置
type TargetConfig struct {
	// 应用根地址
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 登录用户名
	Username string `yaml:"username" env:"USERNAME"`
	// 登录密码
	Password string `yaml:"password" env:"PASSWORD"`
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	// 是否无头模式
	Headless bool `yaml:"headless" env:"HEADLESS"`
	// 远程 DevTools 地址（ws://...），为空时本地启动
	RemoteURL string `yaml:"remote_url" env:"REMOTE_URL"`
	// Chrome 可执行文件路径（可选）
	ExecPath string `yaml:"exec_path" env:"EXEC_PATH"`
	// 视口宽度
	ViewportWidth int `yaml:"viewport_width" env:"VIEWPORT_WIDTH"`
	// 视口高度
	ViewportHeight int `yaml:"viewport_height" env:"VIEWPORT_HEIGHT"`
	// 自定义 UserAgent
	UserAgent string `yaml:"user_agent" env:"USER_AGENT"`
	// 代理地址
	ProxyURL string `yaml:"proxy_url" env:"PROXY_URL"`
	// 是否禁用沙箱（容器内运行时需要）
	NoSandbox bool `yaml:"no_sandbox" env:"NO_SANDBOX"`
	// 浏览器启动超时
	LaunchTimeout time.Duration `yaml:"launch_timeout" env:"LAUNCH_TIMEOUT"`
}

// TimeoutsConfig 等待上限
type TimeoutsConfig struct {
	// 默认检查点等待上限
	Checkpoint time.Duration `yaml:"checkpoint" env:"CHECKPOINT"`
	// 导航等待上限
	Navigation time.Duration `yaml:"navigation" env:"NAVIGATION"`
	// 进入仪表盘等待上限
	Dashboard time.Duration `yaml:"dashboard" env:"DASHBOARD"`
	// 等待 OTP 弹窗上限
	OTP time.Duration `yaml:"otp" env:"OTP"`
}

// ChequeConfig 提交的支票数据
type ChequeConfig struct {
	// 支票号
	Number string `yaml:"number" env:"NUMBER"`
	// 银行名
	Bank string `yaml:"bank" env:"BANK"`
	// 金额
	Amount float64 `yaml:"amount" env:"AMOUNT"`
	// 持票人
	PersonName string `yaml:"person_name" env:"PERSON_NAME"`
	// 联系电话
	Contact string `yaml:"contact" env:"CONTACT"`
	// 到期日相对运行日的天数（1 = 明天）
	DueInDays int `yaml:"due_in_days" env:"DUE_IN_DAYS"`
}

// EvidenceConfig 截图产物配置
type EvidenceConfig struct {
	// 输出目录
	Dir string `yaml:"dir" env:"DIR"`
	// 成功截图文件名
	SuccessFile string `yaml:"success_file" env:"SUCCESS_FILE"`
	// 失败截图文件名
	FailureFile string `yaml:"failure_file" env:"FAILURE_FILE"`
	// 截图超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 是否写入 JSON 旁注文件
	Sidecar bool `yaml:"sidecar" env:"SIDECAR"`
}

// RunConfig 运行策略
type RunConfig struct {
	// 流程中止时以非零状态码退出
	FailOnAbort bool `yaml:"fail_on_abort" env:"FAIL_ON_ABORT"`
	// 不等待 OTP 捕获，直接填入当前值（可能为空）
	LegacyEmptyOTP bool `yaml:"legacy_empty_otp" env:"LEGACY_EMPTY_OTP"`
}

// HistoryConfig 运行历史配置
type HistoryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 驱动：sqlite、postgres、mysql
	Driver string `yaml:"driver" env:"DRIVER"`
	// SQLite 文件路径
	Path string `yaml:"path" env:"PATH"`
	// postgres/mysql 连接串
	DSN string `yaml:"dsn" env:"DSN"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// node_exporter textfile 输出路径
	TextfilePath string `yaml:"textfile_path" env:"TEXTFILE_PATH"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "CREDITVERIFY",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration 按 "5s" 格式解析
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置，一次性返回全部错误
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.Target.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "target.base_url must be an absolute URL")
	}
	if c.Target.Username == "" {
		errs = append(errs, "target.username is required")
	}

	if c.Timeouts.Checkpoint <= 0 {
		errs = append(errs, "timeouts.checkpoint must be positive")
	}
	if c.Timeouts.Dashboard <= 0 {
		errs = append(errs, "timeouts.dashboard must be positive")
	}
	if c.Timeouts.OTP <= 0 {
		errs = append(errs, "timeouts.otp must be positive")
	}

	if c.Cheque.Number == "" || c.Cheque.PersonName == "" {
		errs = append(errs, "cheque.number and cheque.person_name are required")
	}
	if c.Cheque.Amount <= 0 {
		errs = append(errs, "cheque.amount must be positive")
	}

	if c.Evidence.SuccessFile == "" || c.Evidence.FailureFile == "" {
		errs = append(errs, "evidence.success_file and evidence.failure_file are required")
	}
	if c.Evidence.SuccessFile == c.Evidence.FailureFile {
		errs = append(errs, "evidence success and failure artifacts must differ")
	}

	if c.History.Enabled {
		switch c.History.Driver {
		case "", "sqlite":
			if c.History.Path == "" {
				errs = append(errs, "history.path is required for the sqlite driver")
			}
		case "postgres", "mysql":
			if c.History.DSN == "" {
				errs = append(errs, "history.dsn is required for the "+c.History.Driver+" driver")
			}
		default:
			errs = append(errs, fmt.Sprintf("history.driver %q is not supported", c.History.Driver))
		}
	}
	if c.Metrics.Enabled && c.Metrics.TextfilePath == "" {
		errs = append(errs, "metrics.textfile_path is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("config validation errors: %s", strings.Join(errs, "; ")))
	}

	return nil
}
