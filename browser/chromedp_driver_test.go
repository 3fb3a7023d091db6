package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueryFor(t *testing.T) {
	sel, opt := queryFor(Placeholder("Enter Amount"))
	assert.Equal(t, `input[placeholder="Enter Amount"]`, sel)
	assert.NotNil(t, opt)

	sel, _ = queryFor(Button("Save Check"))
	assert.Equal(t, `//button[contains(normalize-space(.), "Save Check")]`, sel)
}

func TestChromePage_BindPropagatesDeadline(t *testing.T) {
	p := &ChromePage{ctx: context.Background(), logger: zap.NewNop()}

	caller, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	runCtx, release := p.bind(caller)
	defer release()

	dl, ok := runCtx.Deadline()
	require.True(t, ok)
	want, _ := caller.Deadline()
	assert.Equal(t, want, dl)

	select {
	case <-runCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("bound context did not expire with the caller deadline")
	}
}

func TestChromePage_BindPropagatesCancel(t *testing.T) {
	p := &ChromePage{ctx: context.Background(), logger: zap.NewNop()}

	caller, cancel := context.WithCancel(context.Background())
	runCtx, release := p.bind(caller)
	defer release()

	cancel()
	select {
	case <-runCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("bound context not cancelled with caller")
	}
}

func TestChromePage_BindFollowsTab(t *testing.T) {
	tab, closeTab := context.WithCancel(context.Background())
	p := &ChromePage{ctx: tab, logger: zap.NewNop()}

	runCtx, release := p.bind(context.Background())
	defer release()

	closeTab()
	select {
	case <-runCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("bound context must end when the tab closes")
	}
}

func TestExecOptions(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)

	minimal := execOptions(BrowserConfig{Headless: true, ViewportWidth: 800, ViewportHeight: 600})
	full := execOptions(BrowserConfig{
		Headless:       false,
		ViewportWidth:  800,
		ViewportHeight: 600,
		NoSandbox:      true,
		ExecPath:       "/usr/bin/chromium",
		UserAgent:      "creditverify",
		ProxyURL:       "http://proxy:3128",
	})

	assert.Equal(t, base+4, len(minimal))
	assert.Equal(t, base+8, len(full))
}

func TestFillNode_NoMatchingNode(t *testing.T) {
	err := fillNode(Placeholder("Enter Amount"), "50000")(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no element matches input[placeholder="Enter Amount"]`)
}

// findChrome 返回本机可用的 Chrome，找不到时跳过
func findChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	for _, name := range []string{"headless_shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome binary on PATH")
	return ""
}

const fillPage = `<!doctype html>
<html><body>
<input placeholder="Enter Amount">
<p id="events"></p>
<script>
const input = document.querySelector('input');
const events = document.getElementById('events');
input.addEventListener('input', () => { events.textContent += 'input;'; });
input.addEventListener('change', () => { events.textContent += 'change;'; });
</script>
</body></html>`

func TestChromePage_FillAgainstChrome(t *testing.T) {
	execPath := findChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, fillPage)
	}))
	defer srv.Close()

	cfg := DefaultBrowserConfig()
	cfg.ExecPath = execPath
	cfg.NoSandbox = true
	sess, err := NewChromeLauncher(cfg, zap.NewNop()).Launch(context.Background())
	require.NoError(t, err)
	defer sess.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	p := sess.Page().(*ChromePage)
	amount := Placeholder("Enter Amount")
	require.NoError(t, p.Navigate(ctx, srv.URL))
	require.NoError(t, p.Fill(ctx, amount, "50000"))

	var value, events string
	sel, opt := queryFor(amount)
	require.NoError(t, p.run(ctx,
		chromedp.Value(sel, &value, opt),
		chromedp.Text("#events", &events, chromedp.ByQuery),
	))
	assert.Equal(t, "50000", value)
	assert.Equal(t, "input;change;", events)

	short, cancelShort := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancelShort()
	assert.ErrorIs(t, p.Fill(short, Placeholder("Missing"), "x"), context.DeadlineExceeded)
}
