// Package gpio implements C6, the GPIO surface: the configured-status LED,
// the six-pattern servo-ID indicator, and the pin-0 group-select bus-attach
// control. Real pins are periph.io gpio.PinOut values (the same pattern
// seedhammer-seedhammer's input and lcd drivers use); SimPin provides an
// in-memory Pin for host-side simulation and tests.
package gpio

import "periph.io/x/conn/v3/gpio"

// Pin is the narrow capability this package needs from a periph.io
// gpio.PinOut: drive it to a level. Any periph.io/x/host pin satisfies this
// interface already; SimPin (sim.go) satisfies it for tests.
type Pin interface {
	Out(level gpio.Level) error
}

// LED drives the configured-status indicator on pin 2.0, active low: the
// pin is driven Low when CONFIGURED is true, High (off) otherwise (spec
// 4.6).
type LED struct {
	pin Pin
}

func NewLED(pin Pin) *LED {
	return &LED{pin: pin}
}

// Set updates the LED to reflect on (CONFIGURED).
func (l *LED) Set(on bool) error {
	level := gpio.High
	if on {
		level = gpio.Low
	}
	return l.pin.Out(level)
}

// indicatorPatterns maps a servo ID 1..6 to a distinct 3-bit pattern on the
// servo-ID display pins. IDs outside this range are diagnostic-only and
// leave the indicator at whatever it last showed (spec 4.6).
var indicatorPatterns = map[byte][3]gpio.Level{
	1: {gpio.Low, gpio.Low, gpio.High},
	2: {gpio.Low, gpio.High, gpio.Low},
	3: {gpio.Low, gpio.High, gpio.High},
	4: {gpio.High, gpio.Low, gpio.Low},
	5: {gpio.High, gpio.Low, gpio.High},
	6: {gpio.High, gpio.High, gpio.Low},
}

// Indicator drives the servo-ID six-value bit pattern on pin 1.
type Indicator struct {
	pins [3]Pin
	last byte
}

func NewIndicator(pins [3]Pin) *Indicator {
	return &Indicator{pins: pins}
}

// Set updates the indicator for id. IDs outside 1..6 are a no-op: the
// display is diagnostic only and is defined to hold its previous value.
func (i *Indicator) Set(id byte) error {
	pattern, ok := indicatorPatterns[id]
	if !ok {
		return nil
	}
	for idx, p := range i.pins {
		if err := p.Out(pattern[idx]); err != nil {
			return err
		}
	}
	i.last = id
	return nil
}

// Last returns the most recently accepted servo ID (for diagnostics/tests).
func (i *Indicator) Last() byte {
	return i.last
}

// BusSelect controls the pin-0 group-select register: which of the five
// shared-bus pins are attached to the physical bus (spec 4.6).
type BusSelect struct {
	pins [5]Pin
}

func NewBusSelect(pins [5]Pin) *BusSelect {
	return &BusSelect{pins: pins}
}

// Quiesce drives every shared pin high, performed by the controller before
// any peripheral is torn down (spec 4.2 step 1). BusSelect keeps a single
// level per pin, the same level Attach uses to mark a pin attached, so
// there is no separate detach step.
func (b *BusSelect) Quiesce() error {
	for _, p := range b.pins {
		if err := p.Out(gpio.High); err != nil {
			return err
		}
	}
	return nil
}

// Attach reattaches the bus: every pin when allPins is true (CONFIGURED),
// otherwise only pin 0.
func (b *BusSelect) Attach(allPins bool) error {
	for idx, p := range b.pins {
		level := gpio.Low
		if allPins || idx == 0 {
			level = gpio.High
		}
		if err := p.Out(level); err != nil {
			return err
		}
	}
	return nil
}
