// FakePage 是 browser.Page 的可编排模拟实现。
//
// 元素可见性由测试显式控制，点击与导航可挂钩子模拟页面跳转，
// 并支持从钩子中弹出原生对话框。
package mocks

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/creditverify/browser"
)

// --- FakePage 结构 ---

// PageCall 记录一次页面调用
type PageCall struct {
	Op      string
	Locator browser.Locator
	Value   string
}

func (c PageCall) String() string {
	if c.Value != "" {
		return fmt.Sprintf("%s %s %q", c.Op, c.Locator, c.Value)
	}
	if c.Locator.Kind == "" {
		return c.Op
	}
	return fmt.Sprintf("%s %s", c.Op, c.Locator)
}

// FakePage 模拟浏览器页面
type FakePage struct {
	mu sync.Mutex

	visible map[browser.Locator]bool
	values  map[browser.Locator]string
	url     string

	handler browser.DialogHandler
	dialogs []*FakeDialog

	onClick    map[browser.Locator]func(p *FakePage)
	onNavigate func(p *FakePage, url string)

	clickErrs     map[browser.Locator]error
	navigateErr   error
	screenshotErr error
	screenshot    []byte
	screenshots   int

	calls   []PageCall
	changed chan struct{}
}

// NewFakePage 创建空白页面
func NewFakePage() *FakePage {
	return &FakePage{
		visible:    make(map[browser.Locator]bool),
		values:     make(map[browser.Locator]string),
		onClick:    make(map[browser.Locator]func(*FakePage)),
		clickErrs:  make(map[browser.Locator]error),
		screenshot: []byte("\x89PNG\r\n\x1a\nfake"),
		changed:    make(chan struct{}),
	}
}

// --- 编排方法 ---

// Show 使元素可见
func (p *FakePage) Show(locs ...browser.Locator) *FakePage {
	p.mu.Lock()
	for _, l := range locs {
		p.visible[l] = true
	}
	p.broadcastLocked()
	p.mu.Unlock()
	return p
}

// Hide 移除元素
func (p *FakePage) Hide(locs ...browser.Locator) *FakePage {
	p.mu.Lock()
	for _, l := range locs {
		delete(p.visible, l)
	}
	p.broadcastLocked()
	p.mu.Unlock()
	return p
}

// OnClick 设置点击钩子，钩子在锁外执行
func (p *FakePage) OnClick(loc browser.Locator, fn func(p *FakePage)) *FakePage {
	p.mu.Lock()
	p.onClick[loc] = fn
	p.mu.Unlock()
	return p
}

// OnNavigate 设置导航钩子
func (p *FakePage) OnNavigate(fn func(p *FakePage, url string)) *FakePage {
	p.mu.Lock()
	p.onNavigate = fn
	p.mu.Unlock()
	return p
}

// FailClick 使对 loc 的点击返回 err
func (p *FakePage) FailClick(loc browser.Locator, err error) *FakePage {
	p.mu.Lock()
	p.clickErrs[loc] = err
	p.mu.Unlock()
	return p
}

// FailNavigate 使导航返回 err
func (p *FakePage) FailNavigate(err error) *FakePage {
	p.mu.Lock()
	p.navigateErr = err
	p.mu.Unlock()
	return p
}

// FailScreenshot 使截图返回 err
func (p *FakePage) FailScreenshot(err error) *FakePage {
	p.mu.Lock()
	p.screenshotErr = err
	p.mu.Unlock()
	return p
}

// RaiseDialog 弹出原生对话框并同步交给处理器，未安装处理器时自动接受
func (p *FakePage) RaiseDialog(message string) *FakeDialog {
	d := &FakeDialog{message: message, typ: "alert"}

	p.mu.Lock()
	h := p.handler
	p.dialogs = append(p.dialogs, d)
	p.mu.Unlock()

	if h != nil {
		h(d)
	}
	if !d.Accepted() {
		_ = d.Accept()
	}
	return d
}

// --- 查询方法 ---

// Value 返回输入框的当前值
func (p *FakePage) Value(loc browser.Locator) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[loc]
}

// IsVisible 返回元素是否可见
func (p *FakePage) IsVisible(loc browser.Locator) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[loc]
}

// Calls 返回调用记录
func (p *FakePage) Calls() []PageCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PageCall(nil), p.calls...)
}

// Dialogs 返回弹出过的对话框
func (p *FakePage) Dialogs() []*FakeDialog {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*FakeDialog(nil), p.dialogs...)
}

// Screenshots 返回截图次数
func (p *FakePage) Screenshots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.screenshots
}

// HasHandler 报告是否已安装对话框处理器
func (p *FakePage) HasHandler() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handler != nil
}

// --- browser.Page 实现 ---

// Navigate implements browser.Page.
func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.record(PageCall{Op: "navigate", Value: url})
	err := p.navigateErr
	hook := p.onNavigate
	if err == nil {
		p.url = url
	}
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(p, url)
	}
	return ctx.Err()
}

// WaitVisible implements browser.Page.
func (p *FakePage) WaitVisible(ctx context.Context, loc browser.Locator) error {
	p.logCall(PageCall{Op: "wait_visible", Locator: loc})
	return p.waitFor(ctx, func() bool { return p.visible[loc] })
}

// WaitPresent implements browser.Page.
func (p *FakePage) WaitPresent(ctx context.Context, loc browser.Locator) error {
	p.logCall(PageCall{Op: "wait_present", Locator: loc})
	return p.waitFor(ctx, func() bool { return p.visible[loc] })
}

// WaitAbsent implements browser.Page.
func (p *FakePage) WaitAbsent(ctx context.Context, loc browser.Locator) error {
	p.logCall(PageCall{Op: "wait_absent", Locator: loc})
	return p.waitFor(ctx, func() bool { return !p.visible[loc] })
}

// Fill implements browser.Page.
func (p *FakePage) Fill(ctx context.Context, loc browser.Locator, value string) error {
	if err := p.waitFor(ctx, func() bool { return p.visible[loc] }); err != nil {
		return fmt.Errorf("fill %s: %w", loc, err)
	}
	p.mu.Lock()
	p.record(PageCall{Op: "fill", Locator: loc, Value: value})
	p.values[loc] = value
	p.broadcastLocked()
	p.mu.Unlock()
	return nil
}

// Click implements browser.Page.
func (p *FakePage) Click(ctx context.Context, loc browser.Locator) error {
	if err := p.waitFor(ctx, func() bool { return p.visible[loc] }); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	p.mu.Lock()
	p.record(PageCall{Op: "click", Locator: loc})
	err := p.clickErrs[loc]
	hook := p.onClick[loc]
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(p)
	}
	return nil
}

// Screenshot implements browser.Page.
func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(PageCall{Op: "screenshot"})
	p.screenshots++
	if p.screenshotErr != nil {
		return nil, p.screenshotErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]byte(nil), p.screenshot...), nil
}

// URL implements browser.Page.
func (p *FakePage) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

// OnDialog implements browser.Page.
func (p *FakePage) OnDialog(handler browser.DialogHandler) {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()
}

// --- 内部方法 ---

func (p *FakePage) record(c PageCall) {
	p.calls = append(p.calls, c)
}

func (p *FakePage) logCall(c PageCall) {
	p.mu.Lock()
	p.record(c)
	p.mu.Unlock()
}

// broadcastLocked 唤醒所有等待者；调用方须持有锁
func (p *FakePage) broadcastLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// waitFor 在状态变化时重新检查 cond，直到成立或 ctx 结束
func (p *FakePage) waitFor(ctx context.Context, cond func() bool) error {
	for {
		p.mu.Lock()
		ok := cond()
		ch := p.changed
		p.mu.Unlock()
		if ok {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// --- FakeDialog ---

// FakeDialog 模拟原生对话框
type FakeDialog struct {
	mu       sync.Mutex
	message  string
	typ      string
	accepted int
}

// Message implements browser.Dialog.
func (d *FakeDialog) Message() string { return d.message }

// Type implements browser.Dialog.
func (d *FakeDialog) Type() string { return d.typ }

// Accept implements browser.Dialog.
func (d *FakeDialog) Accept() error {
	d.mu.Lock()
	d.accepted++
	d.mu.Unlock()
	return nil
}

// Accepted 报告是否已被接受
func (d *FakeDialog) Accepted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepted > 0
}

// AcceptCount 返回被接受次数
func (d *FakeDialog) AcceptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepted
}

// --- Launcher ---

// Launcher 是 browser.Launcher 的模拟实现
type Launcher struct {
	mu       sync.Mutex
	page     browser.Page
	err      error
	launches int
	releases int
	logger   *zap.Logger
}

// NewLauncher 返回总是交付 page 的启动器
func NewLauncher(page browser.Page) *Launcher {
	return &Launcher{page: page, logger: zap.NewNop()}
}

// WithError 使 Launch 失败
func (l *Launcher) WithError(err error) *Launcher {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
	return l
}

// Launch implements browser.Launcher.
func (l *Launcher) Launch(ctx context.Context) (*browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return browser.NewSession(l.page, func() {
		l.mu.Lock()
		l.releases++
		l.mu.Unlock()
	}, l.logger), nil
}

// Launches 返回启动次数
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// Releases 返回会话释放次数
func (l *Launcher) Releases() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.releases
}
