package scenario

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/creditverify/browser"
	"github.com/BaSui01/creditverify/types"
	"github.com/BaSui01/creditverify/workflow"
)

// 被测应用暴露的 UI 元素
var (
	UsernameInput   = browser.Placeholder("Username")
	PasswordInput   = browser.Placeholder("Password")
	SignInButton    = browser.Button("Sign In")
	OTPInput        = browser.Placeholder("Enter OTP")
	VerifyOTPButton = browser.Button("Verify OTP")
	AdminProfile    = browser.Text("Admin Profile")
	ChecksTab       = browser.Button("Checks")
	ComingAmount    = browser.Text("Coming Amount")
	GivenAmount     = browser.Text("Given Amount")
	AddCheckFAB     = browser.Class("fab-btn checks")
	AddCheckHeading = browser.Text("Add New Check")
	CheckNumberIn   = browser.Placeholder("Enter Check Number")
	BankNameIn      = browser.Placeholder("Enter Bank Name")
	AmountIn        = browser.Placeholder("Enter Amount")
	PersonNameIn    = browser.Placeholder("Enter Person Name")
	ContactIn       = browser.Placeholder("Enter Contact Number")
	DueDateIn       = browser.InputType("date")
	SaveCheckButton = browser.Button("Save Check")
)

// 检查点标签
const (
	LabelNavigate       = "Navigate"
	LabelAuthenticate   = "Authenticate"
	LabelOTP            = "OTP prompt"
	LabelDashboard      = "Dashboard reached"
	LabelSwitchView     = "Switch view"
	LabelListHeaders    = "List headers visible"
	LabelOpenForm       = "Open creation form"
	LabelFormReady      = "Form ready"
	LabelPopulateForm   = "Populate form"
	LabelRecordVisible  = "Record visible"
	LabelClassification = "Classification check"
	LabelTotal          = "Total check"
)

// Timeouts 各检查点等待上限，零值使用 Flow 默认值
type Timeouts struct {
	Navigation time.Duration
	OTP        time.Duration
	Dashboard  time.Duration
}

// Params 构造检查点所需的输入
type Params struct {
	BaseURL  string
	Username string
	Password string
	Cheque   ChequeRecord
	// Now 用于计算期望的到期分组
	Now      time.Time
	Timeouts Timeouts
	// LegacyEmptyOTP 不等待 OTP 捕获，直接填入当前值
	LegacyEmptyOTP bool
}

// Checkpoints 返回创建并验证一张支票的十二个有序检查点
func Checkpoints(sess *browser.Session, p Params, reporter *Reporter, logger *zap.Logger) []workflow.Checkpoint {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "scenario"))
	page := sess.Page()
	expect := func(as ...workflow.Assertion) workflow.Condition { return workflow.Expect(page, as...) }
	shown := workflow.Shown
	fill := func(loc browser.Locator, value string) workflow.Action {
		return func(ctx context.Context) error { return page.Fill(ctx, loc, value) }
	}
	click := func(loc browser.Locator) workflow.Action {
		return func(ctx context.Context) error { return page.Click(ctx, loc) }
	}
	say := func(msg string) workflow.Action {
		return func(context.Context) error { reporter.Step(msg); return nil }
	}

	cheque := p.Cheque
	bucket := Classify(cheque.Due, p.Now)

	return []workflow.Checkpoint{
		{
			Label:   LabelNavigate,
			Timeout: p.Timeouts.Navigation,
			Action: workflow.Steps(
				say("Navigating to app..."),
				func(ctx context.Context) error { return page.Navigate(ctx, p.BaseURL) },
			),
		},
		{
			Label:        LabelAuthenticate,
			Precondition: expect(shown(UsernameInput), shown(PasswordInput)),
			Action: workflow.Steps(
				say("Logging in..."),
				fill(UsernameInput, p.Username),
				fill(PasswordInput, p.Password),
				click(SignInButton),
			),
		},
		{
			Label:        LabelOTP,
			Timeout:      p.Timeouts.OTP,
			Precondition: workflow.All(expect(shown(OTPInput)), otpCaptured(sess, p.LegacyEmptyOTP)),
			Action: func(ctx context.Context) error {
				code, _ := sess.Secret().Value()
				if code == "" {
					logger.Warn("filling empty otp", zap.Bool("legacy_empty_otp", p.LegacyEmptyOTP))
				}
				reporter.Stepf("Entering OTP: %s", mask(code))
				if err := page.Fill(ctx, OTPInput, code); err != nil {
					return err
				}
				return page.Click(ctx, VerifyOTPButton)
			},
		},
		{
			Label:        LabelDashboard,
			Timeout:      p.Timeouts.Dashboard,
			Precondition: expect(shown(AdminProfile)),
			Action:       say("Logged in successfully."),
		},
		{
			Label:  LabelSwitchView,
			Action: workflow.Steps(say("Navigating to Checks tab..."), click(ChecksTab)),
		},
		{
			Label:        LabelListHeaders,
			Precondition: expect(shown(ComingAmount), shown(GivenAmount)),
		},
		{
			Label:  LabelOpenForm,
			Action: workflow.Steps(say("Adding a check..."), click(AddCheckFAB)),
		},
		{
			Label:        LabelFormReady,
			Precondition: expect(shown(AddCheckHeading)),
		},
		{
			Label: LabelPopulateForm,
			Precondition: expect(
				shown(CheckNumberIn), shown(BankNameIn), shown(AmountIn),
				shown(PersonNameIn), shown(ContactIn), shown(DueDateIn),
			),
			Action: workflow.Steps(
				fill(CheckNumberIn, cheque.Number),
				fill(BankNameIn, cheque.Bank),
				fill(AmountIn, cheque.AmountInput()),
				fill(PersonNameIn, cheque.PersonName),
				fill(ContactIn, cheque.Contact),
				fill(DueDateIn, cheque.DueISO()),
				click(SaveCheckButton),
				say("Verifying check in list..."),
			),
		},
		{
			Label:        LabelRecordVisible,
			Precondition: expect(shown(browser.Text(cheque.PersonName)), shown(browser.Text(cheque.Number))),
		},
		{
			Label:        LabelClassification,
			Precondition: expect(shown(browser.Text(bucket.String()))),
		},
		{
			Label:        LabelTotal,
			Precondition: expect(shown(browser.Text(cheque.AmountLabel()))),
		},
	}
}

// otpCaptured 等待会话捕获到 OTP；legacy 模式下直接通过
func otpCaptured(sess *browser.Session, legacy bool) workflow.Condition {
	return func(ctx context.Context) error {
		if legacy {
			return nil
		}
		if _, err := sess.Secret().Wait(ctx); err != nil {
			return types.NewError(types.ErrOTPNotCaptured, "no OTP dialog observed before the deadline").WithCause(err)
		}
		return nil
	}
}
