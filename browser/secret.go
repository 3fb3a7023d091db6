package browser

import (
	"context"
	"sync"
)

// SecretSlot is a one-slot mailbox for the OTP delivered through a dialog.
// The interceptor writes it from the dialog goroutine and the flow reads it
// from the orchestrating goroutine; a later Put overwrites the value.
type SecretSlot struct {
	mu    sync.Mutex
	value string
	set   bool
	puts  int
	ready chan struct{}
}

// NewSecretSlot returns an empty slot.
func NewSecretSlot() *SecretSlot {
	return &SecretSlot{ready: make(chan struct{})}
}

// Put stores v, replacing any earlier value, and wakes pending waiters.
func (s *SecretSlot) Put(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = v
	s.puts++
	if !s.set {
		s.set = true
		close(s.ready)
	}
}

// Value returns the current secret and whether one was ever stored.
func (s *SecretSlot) Value() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set
}

// Writes reports how many times the slot was written.
func (s *SecretSlot) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// Wait blocks until a secret is stored or ctx is done. It returns the most
// recent value at the moment it wakes.
func (s *SecretSlot) Wait(ctx context.Context) (string, error) {
	select {
	case <-s.ready:
		v, _ := s.Value()
		return v, nil
	case <-ctx.Done():
		// a value written at the deadline still wins
		if v, ok := s.Value(); ok {
			return v, nil
		}
		return "", ctx.Err()
	}
}
