package mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/creditverify/browser"
)

func TestFakePage_WaitWakesOnShow(t *testing.T) {
	p := NewFakePage()
	loc := browser.Text("Admin Profile")

	go func() {
		time.Sleep(20 * time.Millisecond)
		p.Show(loc)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.WaitVisible(ctx, loc))
	assert.True(t, p.IsVisible(loc))
}

func TestFakePage_WaitTimesOut(t *testing.T) {
	p := NewFakePage()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.WaitVisible(ctx, browser.Button("Sign In"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, p.WaitAbsent(ctx, browser.Button("Sign In")))
}

func TestFakePage_ClickHookAndDialog(t *testing.T) {
	p := NewFakePage()
	btn := browser.Button("Sign In")
	p.Show(btn).OnClick(btn, func(p *FakePage) {
		p.RaiseDialog("Your OTP is: 654321")
		p.Hide(btn)
	})

	var seen []string
	p.OnDialog(func(d browser.Dialog) {
		seen = append(seen, d.Message())
		_ = d.Accept()
	})

	require.NoError(t, p.Click(context.Background(), btn))
	assert.Equal(t, []string{"Your OTP is: 654321"}, seen)
	assert.False(t, p.IsVisible(btn))

	dialogs := p.Dialogs()
	require.Len(t, dialogs, 1)
	assert.Equal(t, 1, dialogs[0].AcceptCount())
}

func TestFakePage_DialogWithoutHandlerIsAccepted(t *testing.T) {
	p := NewFakePage()
	d := p.RaiseDialog("hello")
	assert.True(t, d.Accepted())
	assert.False(t, p.HasHandler())
}

func TestFakePage_FillAndCalls(t *testing.T) {
	p := NewFakePage()
	user := browser.Placeholder("Username")
	p.Show(user)

	require.NoError(t, p.Fill(context.Background(), user, "admin"))
	assert.Equal(t, "admin", p.Value(user))

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "fill", calls[0].Op)
	assert.Contains(t, calls[0].String(), `"admin"`)
}

func TestFakePage_Failures(t *testing.T) {
	boom := errors.New("boom")
	btn := browser.Button("Save Check")
	p := NewFakePage().Show(btn).FailClick(btn, boom).FailNavigate(boom).FailScreenshot(boom)

	ctx := context.Background()
	assert.ErrorIs(t, p.Click(ctx, btn), boom)
	assert.ErrorIs(t, p.Navigate(ctx, "http://x"), boom)
	_, err := p.Screenshot(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, p.Screenshots())
}

func TestFakePage_Navigate(t *testing.T) {
	p := NewFakePage()
	p.OnNavigate(func(p *FakePage, url string) { p.Show(browser.Placeholder("Username")) })

	require.NoError(t, p.Navigate(context.Background(), "http://localhost:5173"))
	url, err := p.URL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5173", url)
	assert.True(t, p.IsVisible(browser.Placeholder("Username")))
}

func TestLauncher(t *testing.T) {
	p := NewFakePage()
	l := NewLauncher(p)

	sess, err := l.Launch(context.Background())
	require.NoError(t, err)
	assert.True(t, p.HasHandler())

	sess.Stop()
	sess.Stop()
	assert.Equal(t, 1, l.Releases())

	_, err = l.WithError(errors.New("no chrome")).Launch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, l.Launches())
}
