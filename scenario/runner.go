package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/creditverify/browser"
	"github.com/BaSui01/creditverify/config"
	"github.com/BaSui01/creditverify/evidence"
	"github.com/BaSui01/creditverify/internal/history"
	"github.com/BaSui01/creditverify/internal/metrics"
	"github.com/BaSui01/creditverify/internal/telemetry"
	"github.com/BaSui01/creditverify/types"
	"github.com/BaSui01/creditverify/workflow"
)

// OutcomeSetupFailed 浏览器未能启动，流程没有开始
const OutcomeSetupFailed workflow.Outcome = "setup_failed"

// 退出码
const (
	ExitOK      = 0
	ExitAborted = 1
	ExitSetup   = 2
)

// HistoryRecorder 运行历史写入接口，*history.Store 满足该接口
type HistoryRecorder interface {
	Record(ctx context.Context, rec *history.RunRecord) error
}

// Report 一次运行的完整结果
type Report struct {
	RunID       string                 `json:"run_id"`
	Result      workflow.Result        `json:"result"`
	Artifact    *evidence.Artifact     `json:"artifact,omitempty"`
	EvidenceErr error                  `json:"-"`
	SetupErr    error                  `json:"-"`
	Dialogs     []browser.DialogRecord `json:"dialogs,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  time.Time              `json:"finished_at"`
}

// Outcome 返回运行结果分支
func (r *Report) Outcome() workflow.Outcome {
	if r.SetupErr != nil {
		return OutcomeSetupFailed
	}
	return r.Result.Outcome
}

// Completed 所有检查点均通过
func (r *Report) Completed() bool {
	return r.SetupErr == nil && r.Result.Completed()
}

// Err 返回中止原因；证据失败不计入
func (r *Report) Err() error {
	if r.SetupErr != nil {
		return r.SetupErr
	}
	return r.Result.Err()
}

// ExitCode 按退出策略计算进程退出码
func (r *Report) ExitCode(failOnAbort bool) int {
	switch {
	case r.SetupErr != nil:
		return ExitSetup
	case r.Completed():
		return ExitOK
	case failOnAbort:
		return ExitAborted
	default:
		return ExitOK
	}
}

// Runner 执行一次完整的验证：启动会话、运行检查点、截图、释放会话
type Runner struct {
	cfg         *config.Config
	launcher    browser.Launcher
	capturer    *evidence.Capturer
	history     HistoryRecorder
	metrics     *metrics.Collector
	instruments *telemetry.RunInstruments
	reporter    *Reporter
	tracer      trace.Tracer
	logger      *zap.Logger
	now         func() time.Time
}

// RunnerOption 配置 Runner
type RunnerOption func(*Runner)

// WithHistory 记录运行历史
func WithHistory(h HistoryRecorder) RunnerOption {
	return func(r *Runner) { r.history = h }
}

// WithMetrics 记录 Prometheus 指标
func WithMetrics(c *metrics.Collector) RunnerOption {
	return func(r *Runner) { r.metrics = c }
}

// WithInstruments 记录 OTel 运行指标
func WithInstruments(i *telemetry.RunInstruments) RunnerOption {
	return func(r *Runner) { r.instruments = i }
}

// WithReporter 设置进度输出
func WithReporter(rep *Reporter) RunnerOption {
	return func(r *Runner) { r.reporter = rep }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock 设置时钟，决定到期日与期望分组
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner 创建 Runner
func NewRunner(cfg *config.Config, launcher browser.Launcher, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:      cfg,
		launcher: launcher,
		reporter: NewReporter(nil),
		tracer:   otel.Tracer("github.com/BaSui01/creditverify/scenario"),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.capturer = evidence.NewCapturer(evidence.Config{
		Dir:         cfg.Evidence.Dir,
		SuccessFile: cfg.Evidence.SuccessFile,
		FailureFile: cfg.Evidence.FailureFile,
		Timeout:     cfg.Evidence.Timeout,
		Sidecar:     cfg.Evidence.Sidecar,
	}, r.logger)
	return r
}

// Run 执行验证。Run 不会 panic；报告总是非 nil
func (r *Runner) Run(ctx context.Context) (report *Report) {
	runID := uuid.NewString()
	started := r.now()
	report = &Report{RunID: runID, StartedAt: started}

	ctx = types.WithRunID(ctx, runID)
	logger := r.logger.With(zap.String("run_id", runID))

	ctx, span := r.tracer.Start(ctx, "creditverify.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("target.base_url", r.cfg.Target.BaseURL),
	))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			logger.Error("run panicked", zap.Any("panic", p), zap.Stack("stack"))
			report.Result = workflow.Result{
				Outcome: workflow.OutcomeAborted,
				Cause:   types.NewError(types.ErrAborted, fmt.Sprintf("run panicked: %v", p)),
			}
		}
		report.FinishedAt = r.now()
		r.finish(ctx, report, span, logger)
	}()

	sess, err := r.launcher.Launch(ctx)
	if err != nil {
		if types.GetErrorCode(err) == "" {
			err = types.NewError(types.ErrSetup, "failed to start browser").WithCause(err)
		}
		report.SetupErr = err
		r.reporter.Stepf("Verification failed: %v", err)
		return report
	}
	defer sess.Stop()
	logger = logger.With(zap.String("session_id", sess.ID()))

	params := Params{
		BaseURL:  r.cfg.Target.BaseURL,
		Username: r.cfg.Target.Username,
		Password: r.cfg.Target.Password,
		Cheque:   NewChequeRecord(r.cfg.Cheque, started),
		Now:      started,
		Timeouts: Timeouts{
			Navigation: r.cfg.Timeouts.Navigation,
			OTP:        r.cfg.Timeouts.OTP,
			Dashboard:  r.cfg.Timeouts.Dashboard,
		},
		LegacyEmptyOTP: r.cfg.Run.LegacyEmptyOTP,
	}

	opts := []workflow.Option{
		workflow.WithDefaultTimeout(r.cfg.Timeouts.Checkpoint),
		workflow.WithLogger(logger),
	}
	if r.metrics != nil {
		opts = append(opts, workflow.WithObserver(r.metrics))
	}
	flow := workflow.NewFlow("cheque-verification", opts...).
		Add(Checkpoints(sess, params, r.reporter, logger)...)

	report.Result = flow.Run(ctx)

	meta := evidence.Meta{RunID: runID}
	if report.Result.Completed() {
		r.reporter.Step("Taking screenshot...")
		report.Artifact, report.EvidenceErr = r.capturer.Capture(ctx, sess.Page(), evidence.TagSuccess, meta)
		if report.EvidenceErr != nil {
			logger.Warn("success screenshot not captured", zap.Error(report.EvidenceErr))
		}
		r.reporter.Step("Verification successful!")
	} else {
		r.reporter.Stepf("Verification failed: %v", report.Result.Err())
		meta.Checkpoint = report.Result.Checkpoint
		meta.Label = report.Result.Label
		if report.Result.Cause != nil {
			meta.Cause = report.Result.Cause.Error()
		}
		// 运行 ctx 可能已取消，失败截图仍需尝试
		report.Artifact, report.EvidenceErr = r.capturer.CaptureFailure(context.WithoutCancel(ctx), sess.Page(), meta)
	}

	report.Dialogs = sess.Dialogs()
	sess.Stop()
	return report
}

// finish 记录历史与指标；全部尽力而为，不改变运行结果
func (r *Runner) finish(ctx context.Context, report *Report, span trace.Span, logger *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	outcome := report.Outcome()
	duration := report.FinishedAt.Sub(report.StartedAt)

	span.SetAttributes(attribute.String("run.outcome", string(outcome)))
	if err := report.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if r.history != nil {
		if err := r.history.Record(ctx, r.historyRecord(report)); err != nil {
			logger.Warn("failed to record run history", zap.Error(err))
		}
	}

	if r.metrics != nil {
		res := report.Result
		if report.SetupErr != nil {
			res = workflow.Result{Outcome: OutcomeSetupFailed}
		}
		res.Duration = duration
		r.metrics.RecordRun(res, report.FinishedAt)
		if r.cfg.Metrics.Enabled && r.cfg.Metrics.TextfilePath != "" {
			if err := r.metrics.WriteTextfile(r.cfg.Metrics.TextfilePath); err != nil {
				logger.Warn("failed to write metrics textfile", zap.Error(err))
			}
		}
	}

	r.instruments.RecordRun(ctx, string(outcome), report.Result.Checkpoint, duration)

	fields := []zap.Field{
		zap.String("outcome", string(outcome)),
		zap.Duration("duration", duration),
	}
	if err := report.Err(); err != nil {
		fields = append(fields, zap.Error(err))
		logger.Error("verification run finished", fields...)
		return
	}
	logger.Info("verification run finished", fields...)
}

func (r *Runner) historyRecord(report *Report) *history.RunRecord {
	rec := &history.RunRecord{
		RunID:      report.RunID,
		Outcome:    string(report.Outcome()),
		Checkpoint: report.Result.Checkpoint,
		Label:      report.Result.Label,
		BaseURL:    r.cfg.Target.BaseURL,
		ChequeNo:   r.cfg.Cheque.Number,
		DurationMS: report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
		StartedAt:  report.StartedAt,
	}
	if err := report.Err(); err != nil {
		var abort *workflow.AbortError
		if errors.As(err, &abort) && abort.Cause != nil {
			rec.Cause = abort.Cause.Error()
		} else {
			rec.Cause = err.Error()
		}
		rec.ErrorCode = string(types.GetErrorCode(err))
	}
	if report.Artifact != nil {
		rec.Artifact = report.Artifact.Path
	}
	return rec
}
