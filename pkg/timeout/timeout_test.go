package timeout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitUntilConditionWins(t *testing.T) {
	flag := New()
	ready := false
	go func() {
		time.Sleep(5 * time.Millisecond)
		ready = true
	}()
	met := WaitUntil(flag, func() bool { return ready }, time.Millisecond)
	assert.True(t, met)
	assert.False(t, flag.IsSet())
}

func TestWaitUntilTimeoutWins(t *testing.T) {
	flag := New()
	go func() {
		time.Sleep(2 * time.Millisecond)
		flag.Signal()
	}()
	met := WaitUntil(flag, func() bool { return false }, time.Millisecond)
	assert.False(t, met)
	// Flag must be cleared before WaitUntil returns.
	assert.False(t, flag.IsSet())
}

func TestSignalAndClear(t *testing.T) {
	flag := New()
	assert.False(t, flag.IsSet())
	flag.Signal()
	assert.True(t, flag.IsSet())
	flag.Clear()
	assert.False(t, flag.IsSet())
}
