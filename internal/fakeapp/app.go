package fakeapp

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

//go:embed static
var staticFS embed.FS

// Options 控制应用行为；零值即原始应用的行为
type Options struct {
	// 登录凭据
	Username string
	Password string

	// SuppressOTPDialog 登录成功后不弹出 OTP 提示
	SuppressOTPDialog bool
	// HideOTPField 登录成功后不渲染 OTP 输入框
	HideOTPField bool

	// 登录与 OTP 校验的限流参数
	AuthRPS   float64
	AuthBurst int

	// TokenTTL 会话 token 有效期
	TokenTTL time.Duration

	// Now 时钟，决定到期分组
	Now func() time.Time
}

// DefaultOptions 返回默认选项
func DefaultOptions() Options {
	return Options{
		Username:  "admin",
		Password:  "admin",
		AuthRPS:   5,
		AuthBurst: 10,
		TokenTTL:  time.Hour,
		Now:       time.Now,
	}
}

// App 模拟信用管理应用：单页前端 + JSON API
type App struct {
	opts    Options
	secret  []byte
	handler http.Handler
	logger  *zap.Logger

	mu         sync.Mutex
	challenges map[string]string // challenge id -> otp
	cheques    []Cheque
	nextID     int
}

// New 创建应用。ctx 结束时停止限流器的后台清理
func New(ctx context.Context, opts Options, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.Username == "" {
		opts.Username = def.Username
	}
	if opts.Password == "" {
		opts.Password = def.Password
	}
	if opts.AuthRPS <= 0 {
		opts.AuthRPS = def.AuthRPS
	}
	if opts.AuthBurst <= 0 {
		opts.AuthBurst = def.AuthBurst
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = def.TokenTTL
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}

	secret := make([]byte, 32)
	_, _ = rand.Read(secret)

	a := &App{
		opts:       opts,
		secret:     secret,
		logger:     logger.With(zap.String("component", "fakeapp")),
		challenges: make(map[string]string),
	}
	a.handler = a.routes(ctx)
	return a
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) routes(ctx context.Context) http.Handler {
	static, _ := fs.Sub(staticFS, "static")

	limit := RateLimiter(ctx, a.opts.AuthRPS, a.opts.AuthBurst)
	auth := JWTAuth(a.secret, a.opts.Now, a.logger)

	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServerFS(static))
	mux.HandleFunc("GET /api/config", a.handleConfig)
	mux.Handle("POST /api/login", limit(http.HandlerFunc(a.handleLogin)))
	mux.Handle("POST /api/otp", limit(http.HandlerFunc(a.handleVerifyOTP)))
	mux.Handle("GET /api/cheques", auth(http.HandlerFunc(a.handleListCheques)))
	mux.Handle("POST /api/cheques", auth(http.HandlerFunc(a.handleAddCheque)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return Chain(mux, Recovery(a.logger), RequestLogger(a.logger))
}

// clientConfig 前端渲染开关
type clientConfig struct {
	HideOTPField bool `json:"hide_otp_field"`
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, clientConfig{HideOTPField: a.opts.HideOTPField})
}

// =============================================================================
// 📦 响应辅助
// =============================================================================

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON 写入 JSON 响应
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError 写入错误响应；message 原样作为前端 alert 文本
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// decodeJSON 解析请求体，限制 64KB
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
