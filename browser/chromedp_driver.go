package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/BaSui01/creditverify/types"
)

// dialogBuffer CDP 事件循环与分发协程之间可排队的弹窗数
const dialogBuffer = 16

// fillFunction 经原生 setter 写值并触发 input/change，受控输入框（React）才能感知
const fillFunction = `function(value) {
	const proto = this instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
	const setter = Object.getOwnPropertyDescriptor(proto, 'value').set;
	this.focus();
	setter.call(this, value);
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// ChromeLauncher 基于 chromedp 启动浏览器会话
type ChromeLauncher struct {
	config BrowserConfig
	logger *zap.Logger
}

// NewChromeLauncher 创建 chromedp 启动器
func NewChromeLauncher(config BrowserConfig, logger *zap.Logger) *ChromeLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeLauncher{config: config, logger: logger}
}

// Launch 启动浏览器并创建唯一页面；失败即返回 SETUP_FAILED，不重试
func (l *ChromeLauncher) Launch(ctx context.Context) (*Session, error) {
	cfg := l.config
	logger := l.logger.With(zap.String("component", "chromedp_driver"))

	// 浏览器生命周期独立于调用方 ctx，由 Session.Stop 统一释放
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), execOptions(cfg)...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...))
		}),
	)

	// 监听器必须先于首个 Run 注册，保证导航前已能拦截弹窗
	p := newChromePage(tabCtx, cfg, logger)
	sess := NewSession(p, func() {
		tabCancel()
		allocCancel()
	}, l.logger)

	launchCtx := ctx
	if cfg.LaunchTimeout > 0 {
		var cancel context.CancelFunc
		launchCtx, cancel = context.WithTimeout(ctx, cfg.LaunchTimeout)
		defer cancel()
	}

	// 首个 Run 分配浏览器；必须使用 tabCtx 本身，否则超时会连带关闭浏览器
	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(cfg.ViewportWidth), int64(cfg.ViewportHeight)))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			sess.Stop()
			return nil, types.NewError(types.ErrSetup, "failed to start browser").WithCause(err)
		}
	case <-launchCtx.Done():
		sess.Stop()
		<-errCh
		return nil, types.NewError(types.ErrSetup, "browser launch timed out").WithCause(launchCtx.Err())
	}

	logger.Info("chromedp browser started",
		zap.Bool("headless", cfg.Headless),
		zap.Bool("remote", cfg.RemoteURL != ""),
		zap.Int("viewport_w", cfg.ViewportWidth),
		zap.Int("viewport_h", cfg.ViewportHeight))

	return sess, nil
}

func execOptions(cfg BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyURL))
	}
	return opts
}

// ChromePage 基于 chromedp 的 Page 实现
type ChromePage struct {
	ctx    context.Context
	config BrowserConfig
	logger *zap.Logger

	// 串行化页面动作；弹窗应答不持有该锁
	mu sync.Mutex

	handlerMu sync.RWMutex
	handler   DialogHandler
	dialogs   chan *page.EventJavascriptDialogOpening
}

func newChromePage(tabCtx context.Context, config BrowserConfig, logger *zap.Logger) *ChromePage {
	p := &ChromePage{
		ctx:     tabCtx,
		config:  config,
		logger:  logger,
		dialogs: make(chan *page.EventJavascriptDialogOpening, dialogBuffer),
	}

	// CDP 事件回调内不能阻塞或直接发送命令，交给 dispatchDialogs 顺序处理
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			select {
			case p.dialogs <- e:
			case <-tabCtx.Done():
			}
		}
	})
	go p.dispatchDialogs()

	return p
}

// OnDialog 安装弹窗处理器
func (p *ChromePage) OnDialog(handler DialogHandler) {
	p.handlerMu.Lock()
	p.handler = handler
	p.handlerMu.Unlock()
}

func (p *ChromePage) dialogHandler() DialogHandler {
	p.handlerMu.RLock()
	defer p.handlerMu.RUnlock()
	return p.handler
}

func (p *ChromePage) dispatchDialogs() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case ev := <-p.dialogs:
			d := &chromeDialog{ctx: p.ctx, event: ev}
			if h := p.dialogHandler(); h != nil {
				h(d)
			}
			// 未被处理器应答的弹窗同样必须关闭，否则页面永久阻塞
			if err := d.Accept(); err != nil {
				p.logger.Warn("failed to accept dialog", zap.Error(err))
			}
		}
	}
}

// bind 将调用方 ctx 的截止时间与取消信号映射到 tab ctx 上
func (p *ChromePage) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(p.ctx)
	stop := context.AfterFunc(ctx, cancel)
	if dl, ok := ctx.Deadline(); ok {
		dlCtx, dlCancel := context.WithDeadline(runCtx, dl)
		return dlCtx, func() {
			stop()
			dlCancel()
			cancel()
		}
	}
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := p.bind(ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		// 调用方截止时间到达时统一报告为调用方的错误
		return ctx.Err()
	}
	return err
}

// Navigate 导航到 URL
func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("navigating", zap.String("url", url))
	return p.run(ctx, chromedp.Navigate(url))
}

// WaitVisible 等待元素可见
func (p *ChromePage) WaitVisible(ctx context.Context, loc Locator) error {
	sel, opt := queryFor(loc)
	return p.run(ctx, chromedp.WaitVisible(sel, opt))
}

// WaitPresent 等待元素出现在 DOM 中
func (p *ChromePage) WaitPresent(ctx context.Context, loc Locator) error {
	sel, opt := queryFor(loc)
	return p.run(ctx, chromedp.WaitReady(sel, opt))
}

// WaitAbsent 等待元素从 DOM 中消失
func (p *ChromePage) WaitAbsent(ctx context.Context, loc Locator) error {
	sel, opt := queryFor(loc)
	return p.run(ctx, chromedp.WaitNotPresent(sel, opt))
}

// Fill 填充输入框
func (p *ChromePage) Fill(ctx context.Context, loc Locator, value string) error {
	p.logger.Debug("filling", zap.Stringer("locator", loc))
	sel, opt := queryFor(loc)
	return p.run(ctx,
		chromedp.WaitVisible(sel, opt),
		chromedp.QueryAfter(sel, fillNode(loc, value), opt),
	)
}

// fillNode 通过 fillFunction 写入首个匹配节点
func fillNode(loc Locator, value string) func(context.Context, runtime.ExecutionContextID, ...*cdp.Node) error {
	return func(ctx context.Context, _ runtime.ExecutionContextID, nodes ...*cdp.Node) error {
		if len(nodes) == 0 {
			return fmt.Errorf("no element matches %s", loc)
		}
		obj, err := dom.ResolveNode().WithNodeID(nodes[0].NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", loc, err)
		}
		var ok bool
		withObject := func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}
		return chromedp.CallFunctionOn(fillFunction, &ok, withObject, value).Do(ctx)
	}
}

// Click 点击元素
func (p *ChromePage) Click(ctx context.Context, loc Locator) error {
	p.logger.Debug("clicking", zap.Stringer("locator", loc))
	sel, opt := queryFor(loc)
	return p.run(ctx, chromedp.Click(sel, opt, chromedp.NodeVisible))
}

// Screenshot 截取视口 PNG
func (p *ChromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// URL 获取当前 URL
func (p *ChromePage) URL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to get URL: %w", err)
	}
	return url, nil
}

// queryFor 将 Locator 映射为 chromedp 查询
func queryFor(loc Locator) (string, chromedp.QueryOption) {
	if css, ok := loc.CSS(); ok {
		return css, chromedp.ByQuery
	}
	return loc.XPath(), chromedp.BySearch
}

// chromeDialog 对应一次 Page.javascriptDialogOpening 事件
type chromeDialog struct {
	ctx   context.Context
	event *page.EventJavascriptDialogOpening

	once sync.Once
	err  error
}

func (d *chromeDialog) Message() string { return d.event.Message }

func (d *chromeDialog) Type() string { return d.event.Type.String() }

// Accept 关闭弹窗；重复调用只发送一次命令
func (d *chromeDialog) Accept() error {
	d.once.Do(func() {
		d.err = chromedp.Run(d.ctx, page.HandleJavaScriptDialog(true).WithPromptText(d.event.DefaultPrompt))
	})
	return d.err
}
