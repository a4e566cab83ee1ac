// Package device wires C1-C6 together into a runnable module: the GPIO Hal
// the port-role controller drives, the servo coupler's raw transport, and
// the main bring-up/run sequence, grounded on the teacher's LocalNode
// aggregation of NMT/LSS/SDO/heartbeat into one node (pkg/node/local.go).
package device

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fieldrobotics/revomod/pkg/gpio"
	"github.com/fieldrobotics/revomod/pkg/role"
	"github.com/fieldrobotics/revomod/pkg/timeout"
)

// DefaultTimeout is the per-role wait window used when Durations has no
// entry for a role.
const DefaultTimeout = 100 * time.Millisecond

// TimerHal implements role.Hal over a GPIO bus-select/LED/indicator and a
// time.AfterFunc timer per role, the same pattern the teacher's heartbeat
// consumer uses to arm and cancel a single timer against a shared flag
// (pkg/heartbeat/consumer.go).
//
// Load/Unload are no-ops here: on the reference hardware they reconfigure
// the UART peripheral's direction and interrupt wiring per role, a
// byte-level peripheral concern spec 1 puts out of scope as an external
// collaborator. AttachBus, the LED and the indicator are the only
// observable GPIO side effects this host-side Hal can exercise.
type TimerHal struct {
	busSelect *gpio.BusSelect
	led       *gpio.LED
	indicator *gpio.Indicator
	durations map[role.Role]time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	timers map[role.Role]*time.Timer
}

// NewTimerHal builds a Hal. durations may be nil or partial; any role
// missing an entry uses DefaultTimeout.
func NewTimerHal(busSelect *gpio.BusSelect, led *gpio.LED, indicator *gpio.Indicator, durations map[role.Role]time.Duration, logger *slog.Logger) *TimerHal {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimerHal{
		busSelect: busSelect,
		led:       led,
		indicator: indicator,
		durations: durations,
		logger:    logger.With("service", "[hal]"),
		timers:    make(map[role.Role]*time.Timer),
	}
}

func (h *TimerHal) Quiesce() error {
	return h.busSelect.Quiesce()
}

func (h *TimerHal) Unload(role.Role) error { return nil }

func (h *TimerHal) Load(role.Role) error { return nil }

func (h *TimerHal) ArmTimer(r role.Role, flag *timeout.Flag) {
	d := h.durations[r]
	if d <= 0 {
		d = DefaultTimeout
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.timers[r]; ok {
		t.Stop()
	}
	h.timers[r] = time.AfterFunc(d, flag.Signal)
}

func (h *TimerHal) StopTimer(r role.Role) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.timers[r]; ok {
		t.Stop()
		delete(h.timers, r)
	}
}

func (h *TimerHal) AttachBus(allPins bool) {
	if err := h.busSelect.Attach(allPins); err != nil {
		h.logger.Warn("failed to attach bus", "err", err)
	}
}

func (h *TimerHal) SetConfiguredLED(on bool) {
	if err := h.led.Set(on); err != nil {
		h.logger.Warn("failed to set configured led", "err", err)
	}
}

func (h *TimerHal) SetServoIndicator(id byte) {
	if err := h.indicator.Set(id); err != nil {
		h.logger.Warn("failed to set servo indicator", "err", err)
	}
}
