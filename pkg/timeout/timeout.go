// Package timeout implements C3: the single shared boolean flag that any of
// the module's seven hardware timers sets on expiry. On a single-core MCU
// cooperative polling against this flag is sufficient and avoids
// re-entrancy on the shared UART (design notes 9); the host-side rewrite
// keeps the same contract with an atomic flag instead of a volatile one.
package timeout

import (
	"sync/atomic"
	"time"
)

// Flag is the TIMEOUT cell from spec 3. Exactly one flag exists per module;
// it is armed by pkg/role before a blocking wait and polled by the caller,
// which must clear it before returning control to the main loop (spec 5).
type Flag struct {
	set atomic.Bool
}

// New returns a cleared Flag.
func New() *Flag {
	return &Flag{}
}

// Signal marks the flag as set. Called from a timer callback; it must never
// block and never touch any state besides the flag itself (spec 5).
func (f *Flag) Signal() {
	f.set.Store(true)
}

// IsSet reports whether the flag is currently set, without clearing it.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}

// Clear resets the flag. Every polling loop that consults the flag clears
// it before returning (spec 5's re-entrancy rule).
func (f *Flag) Clear() {
	f.set.Store(false)
}

// WaitUntil cooperatively polls cond and the timeout flag until one of them
// becomes true, sleeping pollInterval between checks -- the host-side
// analog of the MCU's `while (!TIMEOUT && !condition)` idiom from spec 4.3.
// It reports whether cond became true (as opposed to the flag firing) and
// always clears the flag before returning, per the C2 invariant that
// TIMEOUT is cleared after any receive role.
func WaitUntil(flag *Flag, cond func() bool, pollInterval time.Duration) (conditionMet bool) {
	defer flag.Clear()
	if pollInterval <= 0 {
		pollInterval = time.Millisecond
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if cond() {
			return true
		}
		if flag.IsSet() {
			return false
		}
		<-ticker.C
	}
}
