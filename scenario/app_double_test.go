package scenario

import (
	"strconv"
	"time"

	"github.com/BaSui01/creditverify/browser"
	"github.com/BaSui01/creditverify/testutil/mocks"
)

// appOptions 控制信用应用替身的行为
type appOptions struct {
	otps           []string // 依次弹出的 OTP，最后一个有效
	suppressDialog bool
	hideOTPField   bool
	now            time.Time
}

// newCreditAppDouble 在 FakePage 上编排与真实应用相同的 UI 流程
func newCreditAppDouble(opts appOptions) *mocks.FakePage {
	if len(opts.otps) == 0 {
		opts.otps = []string{"482913"}
	}
	valid := opts.otps[len(opts.otps)-1]
	form := []browser.Locator{
		AddCheckHeading, CheckNumberIn, BankNameIn, AmountIn,
		PersonNameIn, ContactIn, DueDateIn, SaveCheckButton,
	}

	p := mocks.NewFakePage()
	p.OnNavigate(func(p *mocks.FakePage, _ string) {
		p.Show(UsernameInput, PasswordInput, SignInButton)
	})

	p.OnClick(SignInButton, func(p *mocks.FakePage) {
		if p.Value(UsernameInput) != "admin" || p.Value(PasswordInput) != "admin" {
			p.RaiseDialog("Invalid credentials")
			return
		}
		if !opts.suppressDialog {
			for _, code := range opts.otps {
				p.RaiseDialog("Your OTP is: " + code)
			}
		}
		p.Hide(UsernameInput, PasswordInput, SignInButton)
		if !opts.hideOTPField {
			p.Show(OTPInput, VerifyOTPButton)
		}
	})

	p.OnClick(VerifyOTPButton, func(p *mocks.FakePage) {
		if p.Value(OTPInput) != valid {
			p.RaiseDialog("Invalid OTP")
			return
		}
		p.Hide(OTPInput, VerifyOTPButton)
		p.Show(AdminProfile, ChecksTab)
	})

	p.OnClick(ChecksTab, func(p *mocks.FakePage) {
		p.Show(ComingAmount, GivenAmount, AddCheckFAB)
	})

	p.OnClick(AddCheckFAB, func(p *mocks.FakePage) {
		p.Show(form...)
	})

	p.OnClick(SaveCheckButton, func(p *mocks.FakePage) {
		amount, err := strconv.ParseFloat(p.Value(AmountIn), 64)
		due, derr := time.ParseInLocation(ISODate, p.Value(DueDateIn), opts.now.Location())
		if err != nil || derr != nil || p.Value(CheckNumberIn) == "" || p.Value(PersonNameIn) == "" {
			p.RaiseDialog("Error: All fields are required")
			return
		}
		p.Hide(form...)
		p.Show(
			browser.Text(p.Value(PersonNameIn)),
			browser.Text(p.Value(CheckNumberIn)),
			browser.Text(Classify(due, opts.now).String()),
			browser.Text(FormatLKR(amount)),
		)
	})

	return p
}
