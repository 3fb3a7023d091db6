package workflow

import (
	"context"
	"fmt"

	"github.com/BaSui01/creditverify/browser"
)

// Assertion 对单个元素可见性的断言
type Assertion struct {
	Locator browser.Locator
	Visible bool
}

// Shown 断言元素可见
func Shown(loc browser.Locator) Assertion { return Assertion{Locator: loc, Visible: true} }

// Gone 断言元素不存在
func Gone(loc browser.Locator) Assertion { return Assertion{Locator: loc, Visible: false} }

// Expect 构造依次等待所有断言成立的前置条件
func Expect(page browser.Page, assertions ...Assertion) Condition {
	return func(ctx context.Context) error {
		for _, a := range assertions {
			var err error
			if a.Visible {
				err = page.WaitVisible(ctx, a.Locator)
			} else {
				err = page.WaitAbsent(ctx, a.Locator)
			}
			if err != nil {
				state := "visible"
				if !a.Visible {
					state = "absent"
				}
				return fmt.Errorf("%s not %s: %w", a.Locator, state, err)
			}
		}
		return nil
	}
}

// All 组合多个前置条件，按顺序全部成立才通过
func All(conds ...Condition) Condition {
	return func(ctx context.Context) error {
		for _, c := range conds {
			if c == nil {
				continue
			}
			if err := c(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Steps 组合多个动作，按顺序执行
func Steps(actions ...Action) Action {
	return func(ctx context.Context) error {
		for _, a := range actions {
			if a == nil {
				continue
			}
			if err := a(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
