package scenario

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/creditverify/config"
	"github.com/BaSui01/creditverify/internal/history"
	"github.com/BaSui01/creditverify/internal/metrics"
	"github.com/BaSui01/creditverify/testutil"
	"github.com/BaSui01/creditverify/testutil/mocks"
	"github.com/BaSui01/creditverify/types"
	"github.com/BaSui01/creditverify/workflow"
)

var fixedNow = time.Date(2026, 10, 14, 10, 0, 0, 0, time.Local)

type memoryHistory struct {
	mu   sync.Mutex
	rows []*history.RunRecord
	err  error
}

func (h *memoryHistory) Record(_ context.Context, rec *history.RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rows = append(h.rows, rec)
	return h.err
}

func newTestRunner(t *testing.T, cfg *config.Config, page *mocks.FakePage, opts ...RunnerOption) (*Runner, *mocks.Launcher, *testutil.SyncBuffer) {
	t.Helper()
	out := &testutil.SyncBuffer{}
	launcher := mocks.NewLauncher(page)
	base := []RunnerOption{
		WithReporter(NewReporter(out)),
		WithClock(func() time.Time { return fixedNow }),
	}
	return NewRunner(cfg, launcher, append(base, opts...)...), launcher, out
}

func TestRunner_CompletesScenario(t *testing.T) {
	cfg := testutil.FastConfig(t)
	page := newCreditAppDouble(appOptions{now: fixedNow})
	runner, launcher, out := newTestRunner(t, cfg, page)

	report := runner.Run(testutil.TestContext(t))

	require.True(t, report.Completed(), "cause: %v", report.Err())
	assert.Equal(t, workflow.OutcomeCompleted, report.Outcome())
	assert.Equal(t, ExitOK, report.ExitCode(true))
	require.Len(t, report.Result.Steps, 12)

	assert.Equal(t, []string{
		"Navigating to app...",
		"Logging in...",
		"Entering OTP: ******",
		"Logged in successfully.",
		"Navigating to Checks tab...",
		"Adding a check...",
		"Verifying check in list...",
		"Taking screenshot...",
		"Verification successful!",
	}, out.Lines())

	assert.Equal(t, "CHK123456", page.Value(CheckNumberIn))
	assert.Equal(t, "50000", page.Value(AmountIn))
	assert.Equal(t, "2026-10-15", page.Value(DueDateIn))
	assert.Equal(t, "482913", page.Value(OTPInput))

	require.NotNil(t, report.Artifact)
	assert.Equal(t, filepath.Join(cfg.Evidence.Dir, "checks_verification.png"), report.Artifact.Path)
	assert.FileExists(t, report.Artifact.Path)
	assert.NoFileExists(t, filepath.Join(cfg.Evidence.Dir, "error_screenshot.png"))
	assert.Equal(t, 1, page.Screenshots())

	require.Len(t, report.Dialogs, 1)
	assert.True(t, report.Dialogs[0].Matched)
	assert.True(t, report.Dialogs[0].Accepted)
	assert.Equal(t, 1, launcher.Releases())
}

func TestRunner_NeverRaisedDialogAborts(t *testing.T) {
	cfg := testutil.FastConfig(t)
	page := newCreditAppDouble(appOptions{now: fixedNow, suppressDialog: true})
	runner, launcher, out := newTestRunner(t, cfg, page)

	report := runner.Run(testutil.TestContext(t))

	require.False(t, report.Completed())
	assert.GreaterOrEqual(t, report.Result.Checkpoint, 3)
	assert.Equal(t, 3, report.Result.Checkpoint)
	assert.Equal(t, LabelOTP, report.Result.Label)
	assert.Equal(t, types.ErrOTPNotCaptured, types.GetErrorCode(report.Result.Cause))
	assert.Equal(t, ExitAborted, report.ExitCode(true))
	assert.Equal(t, ExitOK, report.ExitCode(false))

	// OTP 未捕获时不得填写
	for _, c := range page.Calls() {
		assert.False(t, c.Op == "fill" && c.Locator == OTPInput, "otp filled: %s", c)
	}

	require.NotNil(t, report.Artifact)
	assert.Equal(t, filepath.Join(cfg.Evidence.Dir, "error_screenshot.png"), report.Artifact.Path)
	assert.Equal(t, 3, report.Artifact.Checkpoint)
	assert.Contains(t, out.String(), "Verification failed: aborted at checkpoint 3 (OTP prompt)")
	assert.Equal(t, 1, launcher.Releases())
}

func TestRunner_LegacyEmptyOTP(t *testing.T) {
	cfg := testutil.FastConfig(t)
	cfg.Run.LegacyEmptyOTP = true
	page := newCreditAppDouble(appOptions{now: fixedNow, suppressDialog: true})
	runner, _, out := newTestRunner(t, cfg, page)

	report := runner.Run(testutil.TestContext(t))

	require.False(t, report.Completed())
	assert.GreaterOrEqual(t, report.Result.Checkpoint, 3)
	assert.Equal(t, LabelDashboard, report.Result.Label)
	assert.Equal(t, "", page.Value(OTPInput))
	assert.Contains(t, out.String(), "Entering OTP: (empty)")
}

func TestRunner_OTPFieldNeverAppears(t *testing.T) {
	cfg := testutil.FastConfig(t)
	page := newCreditAppDouble(appOptions{now: fixedNow, hideOTPField: true})
	runner, launcher, _ := newTestRunner(t, cfg, page)

	var report *Report
	require.NotPanics(t, func() { report = runner.Run(testutil.TestContext(t)) })

	assert.Equal(t, 3, report.Result.Checkpoint)
	assert.Equal(t, types.ErrCheckpointTimeout, types.GetErrorCode(report.Result.Cause))
	assert.Equal(t, 1, page.Screenshots(), "failure screenshot attempted")
	assert.Equal(t, 1, launcher.Releases(), "teardown reached")
}

func TestRunner_LastOTPWins(t *testing.T) {
	cfg := testutil.FastConfig(t)
	page := newCreditAppDouble(appOptions{now: fixedNow, otps: []string{"111111", "222222"}})
	runner, _, _ := newTestRunner(t, cfg, page)

	report := runner.Run(testutil.TestContext(t))
	require.True(t, report.Completed(), "cause: %v", report.Err())
	assert.Equal(t, "222222", page.Value(OTPInput))
	assert.Len(t, report.Dialogs, 2)
}

func TestRunner_FailureScreenshotErrorKeepsCause(t *testing.T) {
	cfg := testutil.FastConfig(t)
	page := newCreditAppDouble(appOptions{now: fixedNow, hideOTPField: true})
	page.FailScreenshot(errors.New("target closed"))
	runner, _, _ := newTestRunner(t, cfg, page)

	report := runner.Run(testutil.TestContext(t))

	require.Error(t, report.EvidenceErr)
	assert.True(t, types.IsCode(report.EvidenceErr, types.ErrEvidenceFailed))
	assert.Nil(t, report.Artifact)
	assert.Equal(t, types.ErrCheckpointTimeout, types.GetErrorCode(report.Result.Cause))
}

func TestRunner_SetupFailure(t *testing.T) {
	cfg := testutil.FastConfig(t)
	store := &memoryHistory{}
	out := &testutil.SyncBuffer{}
	launcher := mocks.NewLauncher(mocks.NewFakePage()).WithError(errors.New("chrome not found"))
	runner := NewRunner(cfg, launcher, WithHistory(store), WithReporter(NewReporter(out)))

	report := runner.Run(context.Background())

	assert.Equal(t, OutcomeSetupFailed, report.Outcome())
	assert.True(t, types.IsCode(report.SetupErr, types.ErrSetup))
	assert.Equal(t, ExitSetup, report.ExitCode(false))
	assert.Nil(t, report.Artifact)
	assert.NoFileExists(t, filepath.Join(cfg.Evidence.Dir, "error_screenshot.png"))
	assert.Contains(t, out.String(), "Verification failed:")

	require.Len(t, store.rows, 1)
	assert.Equal(t, "setup_failed", store.rows[0].Outcome)
	assert.Equal(t, string(types.ErrSetup), store.rows[0].ErrorCode)
}

func TestRunner_RecordsHistoryAndMetrics(t *testing.T) {
	cfg := testutil.FastConfig(t)
	cfg.Metrics.Enabled = true
	cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "creditverify.prom")

	store := &memoryHistory{err: errors.New("disk full")}
	collector := metrics.NewCollector("cvtest", nil)
	page := newCreditAppDouble(appOptions{now: fixedNow, suppressDialog: true})
	runner, _, _ := newTestRunner(t, cfg, page, WithHistory(store), WithMetrics(collector))

	report := runner.Run(testutil.TestContext(t))
	require.False(t, report.Completed())

	// 历史写入失败不影响结果
	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, report.RunID, row.RunID)
	assert.Equal(t, "aborted", row.Outcome)
	assert.Equal(t, 3, row.Checkpoint)
	assert.Equal(t, string(types.ErrOTPNotCaptured), row.ErrorCode)
	assert.Equal(t, report.Artifact.Path, row.Artifact)
	assert.Equal(t, "CHK123456", row.ChequeNo)

	mfs, err := collector.Registry().Gather()
	require.NoError(t, err)
	found := map[string]bool{}
	for _, mf := range mfs {
		found[mf.GetName()] = true
	}
	assert.True(t, found["cvtest_run_total"])
	assert.True(t, found["cvtest_checkpoint_total"])
	assert.FileExists(t, cfg.Metrics.TextfilePath)
}

func TestRunner_CancelledContext(t *testing.T) {
	cfg := testutil.FastConfig(t)
	page := newCreditAppDouble(appOptions{now: fixedNow})
	runner, launcher, _ := newTestRunner(t, cfg, page)

	report := runner.Run(testutil.CancelledContext())
	require.False(t, report.Completed())
	assert.Equal(t, 1, report.Result.Checkpoint)
	assert.True(t, types.IsCode(report.Result.Cause, types.ErrAborted))
	// 失败截图不受运行 ctx 取消影响
	assert.NotNil(t, report.Artifact)
	assert.Equal(t, 1, launcher.Releases())
}
