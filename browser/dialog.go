package browser

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// otpPrefix is the message prefix of the dialog carrying the one-time password.
const otpPrefix = "Your OTP is"

// otpSeparator splits the message from the code.
const otpSeparator = ": "

// ParseOTP extracts the code from a "Your OTP is: <code>" dialog message.
// The code is everything after the first ": ", trimmed of surrounding
// whitespace and otherwise preserved. ok is false for any other message.
func ParseOTP(message string) (code string, ok bool) {
	msg := strings.TrimSpace(message)
	if !strings.HasPrefix(msg, otpPrefix) {
		return "", false
	}
	_, rest, found := strings.Cut(msg, otpSeparator)
	if !found {
		return "", false
	}
	code = strings.TrimSpace(rest)
	if code == "" {
		return "", false
	}
	return code, true
}

// DialogRecord is one dialog observed by the interceptor.
type DialogRecord struct {
	Message  string    `json:"message"`
	Type     string    `json:"type"`
	Matched  bool      `json:"matched"`
	Accepted bool      `json:"accepted"`
	At       time.Time `json:"at"`
}

// DialogInterceptor captures the OTP from dialogs into a SecretSlot and
// accepts every dialog before returning.
type DialogInterceptor struct {
	slot   *SecretSlot
	logger *zap.Logger

	mu      sync.Mutex
	records []DialogRecord
}

// NewDialogInterceptor creates an interceptor writing into slot.
func NewDialogInterceptor(slot *SecretSlot, logger *zap.Logger) *DialogInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DialogInterceptor{
		slot:   slot,
		logger: logger.With(zap.String("component", "dialog_interceptor")),
	}
}

// Handle processes one dialog. It is installed as the page's DialogHandler.
func (i *DialogInterceptor) Handle(d Dialog) {
	rec := DialogRecord{
		Message: d.Message(),
		Type:    d.Type(),
		At:      time.Now(),
	}

	if code, ok := ParseOTP(rec.Message); ok {
		i.slot.Put(code)
		rec.Matched = true
		i.logger.Info("otp dialog captured", zap.Int("code_length", len(code)))
		i.logger.Debug("otp dialog message", zap.String("message", rec.Message))
	} else {
		i.logger.Info("dialog observed", zap.String("type", rec.Type), zap.String("message", rec.Message))
	}

	if err := d.Accept(); err != nil {
		i.logger.Warn("failed to accept dialog", zap.Error(err))
	} else {
		rec.Accepted = true
	}

	i.mu.Lock()
	i.records = append(i.records, rec)
	i.mu.Unlock()
}

// Records returns the dialogs observed so far, oldest first.
func (i *DialogInterceptor) Records() []DialogRecord {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]DialogRecord(nil), i.records...)
}
