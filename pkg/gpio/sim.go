package gpio

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// SimPin is an in-memory Pin used for host-side simulation and tests, the
// same role pkg/bus/virtual plays for the shared bus: it lets the full
// device loop run and be asserted against without any real hardware.
type SimPin struct {
	mu    sync.Mutex
	name  string
	level gpio.Level
}

func NewSimPin(name string) *SimPin {
	return &SimPin{name: name, level: gpio.Low}
}

func (p *SimPin) Out(level gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	return nil
}

func (p *SimPin) Level() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *SimPin) String() string {
	return p.name
}
