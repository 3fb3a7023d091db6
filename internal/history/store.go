package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BaSui01/creditverify/config"
	"github.com/BaSui01/creditverify/types"
)

// =============================================================================
// 🗄️ 运行历史存储
// =============================================================================

// RunRecord 一次验证运行
type RunRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"size:36;uniqueIndex" json:"run_id"`
	Outcome    string    `gorm:"size:16;index" json:"outcome"`
	Checkpoint int       `json:"checkpoint"`
	Label      string    `gorm:"size:128" json:"label"`
	Cause      string    `gorm:"type:text" json:"cause"`
	ErrorCode  string    `gorm:"size:32" json:"error_code"`
	Artifact   string    `gorm:"size:512" json:"artifact"`
	BaseURL    string    `gorm:"size:512" json:"base_url"`
	ChequeNo   string    `gorm:"size:64" json:"cheque_no"`
	DurationMS int64     `json:"duration_ms"`
	StartedAt  time.Time `gorm:"index" json:"started_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 表名
func (RunRecord) TableName() string { return "cv_runs" }

// Duration 运行耗时
func (r RunRecord) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// Store 基于 GORM 的运行历史存储
type Store struct {
	db     *gorm.DB
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// Open 按配置打开数据库并完成迁移
func Open(cfg config.HistoryConfig, zl *zap.Logger) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "failed to open history database").WithCause(err)
	}

	if cfg.Driver == "" || cfg.Driver == "sqlite" {
		// SQLite 单写者
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	return NewStore(db, zl)
}

func dialectorFor(cfg config.HistoryConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return sqlite.Open(cfg.Path), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("unsupported history driver %q", cfg.Driver))
	}
}

// NewStore 包装已打开的数据库并执行 AutoMigrate
func NewStore(db *gorm.DB, zl *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if zl == nil {
		zl = zap.NewNop()
	}
	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, types.NewError(types.ErrStorage, "failed to migrate history schema").WithCause(err)
	}
	return newStore(db, zl), nil
}

func newStore(db *gorm.DB, zl *zap.Logger) *Store {
	return &Store{db: db, logger: zl.With(zap.String("component", "history"))}
}

// Record 写入一条运行记录
func (s *Store) Record(ctx context.Context, rec *RunRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.NewError(types.ErrStorage, "history store is closed")
	}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return types.NewError(types.ErrStorage, "failed to record run").WithCause(err)
	}
	s.logger.Debug("run recorded",
		zap.String("run_id", rec.RunID),
		zap.String("outcome", rec.Outcome))
	return nil
}

// Recent 返回最近的运行记录，最新在前
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, types.NewError(types.ErrStorage, "history store is closed")
	}

	var out []RunRecord
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "failed to list runs").WithCause(err)
	}
	return out, nil
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("history store is closed")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Stats 连接池统计
func (s *Store) Stats() sql.DBStats {
	sqlDB, err := s.db.DB()
	if err != nil {
		return sql.DBStats{}
	}
	return sqlDB.Stats()
}

// Close 关闭数据库
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}
