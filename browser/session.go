package browser

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Launcher acquires a browser session.
type Launcher interface {
	Launch(ctx context.Context) (*Session, error)
}

// Session owns one page and the state scoped to a single run: the captured
// secret and the dialog interceptor feeding it.
type Session struct {
	id          string
	page        Page
	secret      *SecretSlot
	interceptor *DialogInterceptor
	release     func()
	logger      *zap.Logger

	stopOnce sync.Once
	mu       sync.RWMutex
	stopped  bool
}

// NewSession wraps page in a run-scoped session and installs the dialog
// interceptor on it before returning, so that no dialog raised by a later
// navigation can be missed. release is called exactly once by Stop.
func NewSession(page Page, release func(), logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	logger = logger.With(zap.String("session_id", id))

	slot := NewSecretSlot()
	interceptor := NewDialogInterceptor(slot, logger)
	page.OnDialog(interceptor.Handle)

	return &Session{
		id:          id,
		page:        page,
		secret:      slot,
		interceptor: interceptor,
		release:     release,
		logger:      logger.With(zap.String("component", "session")),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Page returns the session page.
func (s *Session) Page() Page { return s.page }

// Secret returns the run's captured-secret mailbox.
func (s *Session) Secret() *SecretSlot { return s.secret }

// Dialogs returns every dialog observed during the session.
func (s *Session) Dialogs() []DialogRecord { return s.interceptor.Records() }

// Stopped reports whether Stop has run.
func (s *Session) Stopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

// Stop releases the browser. It is safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		s.logger.Info("stopping browser session")
		if s.release != nil {
			s.release()
		}
	})
}
