package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/creditverify/types"
)

// DefaultTimeout bounds a checkpoint that does not set its own Timeout.
const DefaultTimeout = 30 * time.Second

const tracerName = "github.com/BaSui01/creditverify/workflow"

// Condition 前置条件：在截止时间内成立返回 nil
type Condition func(ctx context.Context) error

// Action 检查点动作
type Action func(ctx context.Context) error

// Checkpoint 流程中的一个有序步骤
// 前置条件必须先被观察到成立，动作才会执行；两者共享同一个等待上限
type Checkpoint struct {
	Label        string
	Precondition Condition
	Action       Action
	Timeout      time.Duration
}

// Outcome 运行结果分支
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeAborted   Outcome = "aborted"
)

// StepStatus 单个检查点状态
type StepStatus string

const (
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepRecord 单个检查点的执行记录
type StepRecord struct {
	Index    int           `json:"index"`
	Label    string        `json:"label"`
	Status   StepStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Result 是 Completed 或 Aborted{Checkpoint, Cause} 两条路径之一
type Result struct {
	Outcome    Outcome       `json:"outcome"`
	Checkpoint int           `json:"checkpoint,omitempty"`
	Label      string        `json:"label,omitempty"`
	Cause      error         `json:"-"`
	Steps      []StepRecord  `json:"steps"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Completed reports whether every checkpoint passed.
func (r Result) Completed() bool { return r.Outcome == OutcomeCompleted }

// Err returns nil for a completed run and an *AbortError otherwise.
func (r Result) Err() error {
	if r.Completed() {
		return nil
	}
	return &AbortError{Index: r.Checkpoint, Label: r.Label, Cause: r.Cause}
}

// String summarises the result for progress output.
func (r Result) String() string {
	if r.Completed() {
		return fmt.Sprintf("completed %d checkpoints in %s", len(r.Steps), r.Duration.Round(time.Millisecond))
	}
	return r.Err().Error()
}

// AbortError 描述中止位置与原因
type AbortError struct {
	Index int
	Label string
	Cause error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("aborted at checkpoint %d (%s): %v", e.Index, e.Label, e.Cause)
}

func (e *AbortError) Unwrap() error { return e.Cause }

// Observer 接收检查点生命周期事件
type Observer interface {
	CheckpointStarted(index int, label string)
	CheckpointFinished(rec StepRecord)
}

// Flow 严格按顺序执行检查点；任一检查点失败立即中止，不重试、不跳过
type Flow struct {
	name           string
	checkpoints    []Checkpoint
	defaultTimeout time.Duration
	observers      []Observer
	tracer         trace.Tracer
	logger         *zap.Logger
	now            func() time.Time
}

// Option 配置 Flow
type Option func(*Flow)

// WithDefaultTimeout 设置未指定 Timeout 的检查点的等待上限
func WithDefaultTimeout(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.defaultTimeout = d
		}
	}
}

// WithObserver 注册观察者
func WithObserver(o Observer) Option {
	return func(f *Flow) {
		if o != nil {
			f.observers = append(f.observers, o)
		}
	}
}

// WithTracer 设置 tracer，默认使用全局 TracerProvider
func WithTracer(t trace.Tracer) Option {
	return func(f *Flow) { f.tracer = t }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// withClock 测试用时钟
func withClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// NewFlow 创建检查点流程
func NewFlow(name string, opts ...Option) *Flow {
	f := &Flow{
		name:           name,
		defaultTimeout: DefaultTimeout,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.tracer == nil {
		f.tracer = otel.Tracer(tracerName)
	}
	f.logger = f.logger.With(zap.String("component", "flow"), zap.String("flow", name))
	return f
}

// Name 返回流程名称
func (f *Flow) Name() string { return f.name }

// Add 追加检查点
func (f *Flow) Add(cps ...Checkpoint) *Flow {
	f.checkpoints = append(f.checkpoints, cps...)
	return f
}

// Checkpoints 返回所有检查点
func (f *Flow) Checkpoints() []Checkpoint {
	return append([]Checkpoint(nil), f.checkpoints...)
}

// Run 执行流程。Run 从不 panic：动作中的 panic 被转换为中止原因
func (f *Flow) Run(ctx context.Context) Result {
	res := Result{StartedAt: f.now()}

	ctx, span := f.tracer.Start(ctx, "flow "+f.name,
		trace.WithAttributes(attribute.Int("flow.checkpoints", len(f.checkpoints))))
	defer span.End()

	for i, cp := range f.checkpoints {
		idx := i + 1

		var rec StepRecord
		if err := ctx.Err(); err != nil {
			rec = StepRecord{
				Index:  idx,
				Label:  cp.Label,
				Status: StepFailed,
				Err: types.NewError(types.ErrAborted, "run cancelled").
					WithCause(err).WithCheckpoint(cp.Label),
			}
			f.notifyStarted(idx, cp.Label)
			f.notifyFinished(rec)
		} else {
			rec = f.runCheckpoint(ctx, idx, cp)
		}
		res.Steps = append(res.Steps, rec)

		if rec.Err != nil {
			res.Outcome = OutcomeAborted
			res.Checkpoint = idx
			res.Label = cp.Label
			res.Cause = rec.Err
			for j := i + 1; j < len(f.checkpoints); j++ {
				res.Steps = append(res.Steps, StepRecord{Index: j + 1, Label: f.checkpoints[j].Label, Status: StepSkipped})
			}
			res.Duration = f.now().Sub(res.StartedAt)

			span.RecordError(rec.Err)
			span.SetStatus(codes.Error, rec.Err.Error())
			f.logger.Error("flow aborted",
				zap.Int("checkpoint", idx),
				zap.String("label", cp.Label),
				zap.Error(rec.Err))
			return res
		}
	}

	res.Outcome = OutcomeCompleted
	res.Duration = f.now().Sub(res.StartedAt)
	span.SetStatus(codes.Ok, "")
	f.logger.Info("flow completed",
		zap.Int("checkpoints", len(f.checkpoints)),
		zap.Duration("duration", res.Duration))
	return res
}

func (f *Flow) runCheckpoint(ctx context.Context, idx int, cp Checkpoint) (rec StepRecord) {
	timeout := cp.Timeout
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	rec = StepRecord{Index: idx, Label: cp.Label}
	start := f.now()

	cctx, cancel := context.WithTimeout(types.WithCheckpoint(ctx, cp.Label), timeout)
	defer cancel()

	cctx, span := f.tracer.Start(cctx, cp.Label, trace.WithAttributes(
		attribute.Int("checkpoint.index", idx),
		attribute.String("checkpoint.timeout", timeout.String()),
	))
	defer span.End()

	f.notifyStarted(idx, cp.Label)
	f.logger.Debug("checkpoint started", zap.Int("checkpoint", idx), zap.String("label", cp.Label))

	defer func() {
		if r := recover(); r != nil {
			rec.Err = classify(fmt.Errorf("panic: %v", r), types.ErrActionFailed, "checkpoint panicked", cp.Label)
		}
		rec.Duration = f.now().Sub(start)
		if rec.Err != nil {
			rec.Status = StepFailed
			span.RecordError(rec.Err)
			span.SetStatus(codes.Error, rec.Err.Error())
		} else {
			rec.Status = StepPassed
		}
		f.notifyFinished(rec)
	}()

	if cp.Precondition != nil {
		if err := cp.Precondition(cctx); err != nil {
			rec.Err = classify(err, types.ErrCheckpointTimeout,
				fmt.Sprintf("precondition not met within %s", timeout), cp.Label)
			return rec
		}
	}

	if cp.Action != nil {
		if err := cp.Action(cctx); err != nil {
			rec.Err = classify(err, types.ErrActionFailed, "action failed", cp.Label)
			return rec
		}
	}

	return rec
}

// classify 包装为 *types.Error；链中已有错误码时沿用原错误码
func classify(err error, code types.ErrorCode, message, label string) error {
	if existing := types.GetErrorCode(err); existing != "" {
		code = existing
	}
	if code == types.ErrActionFailed && errors.Is(err, context.DeadlineExceeded) {
		message = "action did not complete before the checkpoint deadline"
	}
	return types.NewError(code, message).WithCause(err).WithCheckpoint(label)
}

func (f *Flow) notifyStarted(idx int, label string) {
	for _, o := range f.observers {
		o.CheckpointStarted(idx, label)
	}
}

func (f *Flow) notifyFinished(rec StepRecord) {
	for _, o := range f.observers {
		o.CheckpointFinished(rec)
	}
}
