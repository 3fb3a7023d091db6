// Package browser provides the browser session used by the verification flow.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LocatorKind identifies how a Locator addresses an element.
type LocatorKind string

const (
	LocatorPlaceholder LocatorKind = "placeholder"
	LocatorInputType   LocatorKind = "input_type"
	LocatorButton      LocatorKind = "button"
	LocatorClass       LocatorKind = "class"
	LocatorText        LocatorKind = "text"
)

// Locator addresses one element on the page the way the target UI exposes it:
// inputs by placeholder or type, buttons by label, controls by class, and
// markers by visible text. Locators are comparable and usable as map keys.
type Locator struct {
	Kind  LocatorKind `json:"kind"`
	Value string      `json:"value"`
}

// Placeholder addresses an input by its placeholder text.
func Placeholder(text string) Locator { return Locator{Kind: LocatorPlaceholder, Value: text} }

// InputType addresses an input by its type attribute.
func InputType(typ string) Locator { return Locator{Kind: LocatorInputType, Value: typ} }

// Button addresses a button by its visible label.
func Button(label string) Locator { return Locator{Kind: LocatorButton, Value: label} }

// Class addresses an element carrying every class in the space separated list.
func Class(classes string) Locator { return Locator{Kind: LocatorClass, Value: classes} }

// Text addresses the innermost element whose text contains the value.
func Text(text string) Locator { return Locator{Kind: LocatorText, Value: text} }

// String renders the locator in a playwright-like notation for logs.
func (l Locator) String() string {
	switch l.Kind {
	case LocatorPlaceholder:
		return fmt.Sprintf("input[placeholder=%q]", l.Value)
	case LocatorInputType:
		return fmt.Sprintf("input[type=%q]", l.Value)
	case LocatorButton:
		return fmt.Sprintf("button:has-text(%q)", l.Value)
	case LocatorClass:
		return "." + strings.Join(strings.Fields(l.Value), ".")
	case LocatorText:
		return fmt.Sprintf("text=%s", l.Value)
	default:
		return fmt.Sprintf("%s=%s", l.Kind, l.Value)
	}
}

// CSS returns the CSS selector for attribute and class locators. The second
// result is false for locators that can only be expressed as XPath.
func (l Locator) CSS() (string, bool) {
	switch l.Kind {
	case LocatorPlaceholder:
		return "input[placeholder=" + cssString(l.Value) + "]", true
	case LocatorInputType:
		return "input[type=" + cssString(l.Value) + "]", true
	case LocatorClass:
		fields := strings.Fields(l.Value)
		if len(fields) == 0 {
			return "", false
		}
		return "." + strings.Join(fields, "."), true
	default:
		return "", false
	}
}

// XPath returns an XPath expression equivalent to the locator.
func (l Locator) XPath() string {
	lit := xpathLiteral(l.Value)
	switch l.Kind {
	case LocatorPlaceholder:
		return "//input[@placeholder=" + lit + "]"
	case LocatorInputType:
		return "//input[@type=" + lit + "]"
	case LocatorButton:
		return "//button[contains(normalize-space(.), " + lit + ")]"
	case LocatorClass:
		var preds []string
		for _, c := range strings.Fields(l.Value) {
			preds = append(preds, "contains(concat(' ', normalize-space(@class), ' '), "+xpathLiteral(" "+c+" ")+")")
		}
		if len(preds) == 0 {
			return "//*[false()]"
		}
		return "//*[" + strings.Join(preds, " and ") + "]"
	default:
		// innermost element containing the text, as playwright text= does
		return "//*[not(self::script) and not(self::style) and contains(normalize-space(.), " + lit +
			") and not(./*[contains(normalize-space(.), " + lit + ")])]"
	}
}

func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		quoted = append(quoted, `"`+p+`"`)
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// Dialog is a native dialog (alert, confirm, prompt) raised by the page.
// The page stays blocked until Accept is called.
type Dialog interface {
	Message() string
	Type() string
	Accept() error
}

// DialogHandler receives every dialog in the order the page raises them.
type DialogHandler func(Dialog)

// Page is the browser capability the flow consumes. Every blocking call
// honours the deadline of ctx.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until the element is rendered and visible.
	WaitVisible(ctx context.Context, loc Locator) error
	// WaitPresent blocks until the element exists in the DOM.
	WaitPresent(ctx context.Context, loc Locator) error
	// WaitAbsent blocks until no element matches.
	WaitAbsent(ctx context.Context, loc Locator) error
	// Fill replaces the value of an input and fires input/change events.
	Fill(ctx context.Context, loc Locator, value string) error
	// Click clicks the element once it is visible.
	Click(ctx context.Context, loc Locator) error
	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// URL returns the current document location.
	URL(ctx context.Context) (string, error)
	// OnDialog installs the dialog handler. Dialogs raised while no handler
	// is installed are accepted.
	OnDialog(handler DialogHandler)
}

// BrowserConfig configures the browser automation.
type BrowserConfig struct {
	Headless       bool          `json:"headless"`
	RemoteURL      string        `json:"remote_url,omitempty"`
	ExecPath       string        `json:"exec_path,omitempty"`
	ViewportWidth  int           `json:"viewport_width"`
	ViewportHeight int           `json:"viewport_height"`
	UserAgent      string        `json:"user_agent,omitempty"`
	ProxyURL       string        `json:"proxy_url,omitempty"`
	NoSandbox      bool          `json:"no_sandbox"`
	LaunchTimeout  time.Duration `json:"launch_timeout"`
}

// DefaultBrowserConfig returns sensible defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 720,
		NoSandbox:      true,
		LaunchTimeout:  30 * time.Second,
	}
}
