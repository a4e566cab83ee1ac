package gpio

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// InitHost initializes the periph.io host drivers for the current board.
// It must run once, before any call to NewRealPin, the same bring-up step
// seedhammer-seedhammer's input and lcd drivers perform before touching
// any bcm283x pin.
func InitHost() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("gpio: init host: %w", err)
	}
	return nil
}

// NewRealPin binds a real output pin by its periph.io name (e.g. "GPIO17"),
// the gpioreg.ByName lookup used to resolve a board header pin to a logical
// role without hard-coding a specific chip's pin type.
func NewRealPin(name string) (Pin, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: no such pin %q", name)
	}
	out, ok := p.(gpio.PinOut)
	if !ok {
		return nil, fmt.Errorf("gpio: pin %q does not support output", name)
	}
	return out, nil
}
