package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/creditverify/types"
)

// Tag 区分成功与失败截图
type Tag string

const (
	TagSuccess Tag = "success"
	TagFailure Tag = "failure"
)

// Screenshotter 截图能力，browser.Page 满足该接口
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Config 证据输出配置
type Config struct {
	Dir         string
	SuccessFile string
	FailureFile string
	Timeout     time.Duration
	Sidecar     bool
}

// DefaultConfig 返回默认输出位置
func DefaultConfig() Config {
	return Config{
		Dir:         "verification",
		SuccessFile: "checks_verification.png",
		FailureFile: "error_screenshot.png",
		Timeout:     10 * time.Second,
		Sidecar:     true,
	}
}

// Meta 截图附带的运行信息
type Meta struct {
	RunID      string `json:"run_id"`
	Checkpoint int    `json:"checkpoint,omitempty"`
	Label      string `json:"label,omitempty"`
	Cause      string `json:"cause,omitempty"`
}

// Artifact 已写出的证据
type Artifact struct {
	Tag        Tag       `json:"tag"`
	Path       string    `json:"path"`
	Bytes      int       `json:"bytes"`
	RunID      string    `json:"run_id"`
	Checkpoint int       `json:"checkpoint,omitempty"`
	Label      string    `json:"label,omitempty"`
	Cause      string    `json:"cause,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// Capturer 每次运行结束时写出一张截图
type Capturer struct {
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// NewCapturer 创建截图器
func NewCapturer(config Config, logger *zap.Logger) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if config.SuccessFile == "" {
		config.SuccessFile = def.SuccessFile
	}
	if config.FailureFile == "" {
		config.FailureFile = def.FailureFile
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &Capturer{
		config: config,
		logger: logger.With(zap.String("component", "evidence")),
		now:    time.Now,
	}
}

// Path 返回 tag 对应的固定输出路径
func (c *Capturer) Path(tag Tag) string {
	name := c.config.SuccessFile
	if tag == TagFailure {
		name = c.config.FailureFile
	}
	if filepath.IsAbs(name) || c.config.Dir == "" {
		return name
	}
	return filepath.Join(c.config.Dir, name)
}

// Capture 截图并写入 tag 对应的路径，返回 EVIDENCE_FAILED 类错误
func (c *Capturer) Capture(ctx context.Context, page Screenshotter, tag Tag, meta Meta) (*Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	path := c.Path(tag)

	data, err := page.Screenshot(ctx)
	if err != nil {
		return nil, types.NewError(types.ErrEvidenceFailed, "screenshot failed").WithCause(err)
	}

	if err := writeAtomic(path, data, 0o644); err != nil {
		return nil, types.NewError(types.ErrEvidenceFailed, "failed to write screenshot").WithCause(err)
	}

	art := &Artifact{
		Tag:        tag,
		Path:       path,
		Bytes:      len(data),
		RunID:      meta.RunID,
		Checkpoint: meta.Checkpoint,
		Label:      meta.Label,
		Cause:      meta.Cause,
		CapturedAt: c.now().UTC(),
	}

	if c.config.Sidecar {
		sidecar, err := json.MarshalIndent(art, "", "  ")
		if err == nil {
			err = writeAtomic(path+".json", sidecar, 0o644)
		}
		if err != nil {
			// 截图已写出，旁路元数据失败仅记录
			c.logger.Warn("failed to write evidence sidecar", zap.String("path", path+".json"), zap.Error(err))
		}
	}

	c.logger.Info("evidence captured",
		zap.String("tag", string(tag)),
		zap.String("path", path),
		zap.Int("bytes", len(data)))

	return art, nil
}

// CaptureFailure 失败路径上的尽力截图：错误只记录，不向上替换中止原因
func (c *Capturer) CaptureFailure(ctx context.Context, page Screenshotter, meta Meta) (*Artifact, error) {
	art, err := c.Capture(ctx, page, TagFailure, meta)
	if err != nil {
		c.logger.Warn("failure screenshot not captured",
			zap.String("run_id", meta.RunID),
			zap.Int("checkpoint", meta.Checkpoint),
			zap.Error(err))
	}
	return art, err
}

// writeAtomic 先写临时文件再 rename，避免留下半截 PNG
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create evidence dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // rename 成功后为 no-op

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	return os.Rename(tmpPath, path)
}
