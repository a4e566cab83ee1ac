package bus

import (
	"time"

	revomod "github.com/fieldrobotics/revomod"
	"github.com/fieldrobotics/revomod/pkg/timeout"
)

// SimChildSensor and SimEndSensor stand in, for simulation and tests, for
// the per-port byte-level detection hardware discovery.ChildSensor and
// discovery.EndSensor describe. On real hardware each downstream port has
// its own UART RX line; VirtualBus shares a single TCP link for every
// port, so a test drives these directly to announce which port "heard"
// a child rather than wiring four physical lines.
type SimChildSensor struct {
	events chan revomod.ChildPort
}

func NewSimChildSensor() *SimChildSensor {
	return &SimChildSensor{events: make(chan revomod.ChildPort, 1)}
}

// Announce simulates a child module transmitting its hello start byte on
// port.
func (s *SimChildSensor) Announce(port revomod.ChildPort) {
	select {
	case s.events <- port:
	default:
	}
}

func (s *SimChildSensor) Sense(flag *timeout.Flag) (revomod.ChildPort, bool) {
	var port revomod.ChildPort
	heard := timeout.WaitUntil(flag, func() bool {
		select {
		case port = <-s.events:
			return true
		default:
			return false
		}
	}, time.Millisecond)
	return port, heard
}

// SimEndSensor simulates the per-port end-of-transmission artifact a
// child_response role watches for.
type SimEndSensor struct {
	ends chan revomod.ChildPort
}

func NewSimEndSensor() *SimEndSensor {
	return &SimEndSensor{ends: make(chan revomod.ChildPort, 1)}
}

// SignalEnd simulates the downstream end marker arriving on port.
func (s *SimEndSensor) SignalEnd(port revomod.ChildPort) {
	select {
	case s.ends <- port:
	default:
	}
}

func (s *SimEndSensor) WaitEnd(port revomod.ChildPort, flag *timeout.Flag) bool {
	return timeout.WaitUntil(flag, func() bool {
		select {
		case p := <-s.ends:
			return p == port
		default:
			return false
		}
	}, time.Millisecond)
}
