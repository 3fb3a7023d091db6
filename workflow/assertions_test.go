package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/creditverify/browser"
)

// visibilityPage 仅实现可见性查询
type visibilityPage struct {
	browser.Page
	visible map[browser.Locator]bool
	calls   []string
}

func (p *visibilityPage) WaitVisible(ctx context.Context, loc browser.Locator) error {
	p.calls = append(p.calls, "visible "+loc.String())
	if p.visible[loc] {
		return nil
	}
	return context.DeadlineExceeded
}

func (p *visibilityPage) WaitAbsent(ctx context.Context, loc browser.Locator) error {
	p.calls = append(p.calls, "absent "+loc.String())
	if !p.visible[loc] {
		return nil
	}
	return context.DeadlineExceeded
}

func TestExpect(t *testing.T) {
	signIn := browser.Button("Sign In")
	otp := browser.Placeholder("Enter OTP")
	page := &visibilityPage{visible: map[browser.Locator]bool{otp: true}}

	require.NoError(t, Expect(page, Shown(otp), Gone(signIn))(context.Background()))
	assert.Equal(t, []string{"visible " + otp.String(), "absent " + signIn.String()}, page.calls)

	err := Expect(page, Shown(signIn))(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "not visible")

	err = Expect(page, Gone(otp))(context.Background())
	assert.Contains(t, err.Error(), "not absent")
}

func TestAllAndSteps(t *testing.T) {
	var order []int
	step := func(i int, err error) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, i)
			return err
		}
	}
	boom := errors.New("boom")

	assert.NoError(t, All(step(1, nil), nil, step(2, nil))(context.Background()))
	assert.ErrorIs(t, Steps(step(3, nil), step(4, boom), step(5, nil))(context.Background()), boom)
	assert.Equal(t, []int{1, 2, 3, 4}, order)
}
