package browser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretSlot_Empty(t *testing.T) {
	s := NewSecretSlot()
	v, ok := s.Value()
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.Zero(t, s.Writes())
}

func TestSecretSlot_LastWriteWins(t *testing.T) {
	s := NewSecretSlot()
	s.Put("1111")
	s.Put("2222")

	v, ok := s.Value()
	require.True(t, ok)
	assert.Equal(t, "2222", v)
	assert.Equal(t, 2, s.Writes())
}

func TestSecretSlot_WaitWakesOnPut(t *testing.T) {
	s := NewSecretSlot()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.Put("482910")
	}()

	v, err := s.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "482910", v)
}

func TestSecretSlot_WaitReturnsImmediatelyWhenSet(t *testing.T) {
	s := NewSecretSlot()
	s.Put("abc")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := s.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestSecretSlot_WaitTimesOut(t *testing.T) {
	s := NewSecretSlot()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	v, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, v)
}

func TestSecretSlot_ConcurrentAccess(t *testing.T) {
	s := NewSecretSlot()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Put("code")
		}()
		go func() {
			defer wg.Done()
			v, err := s.Wait(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "code", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, s.Writes())
}
