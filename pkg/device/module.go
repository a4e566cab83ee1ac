package device

import (
	"fmt"
	"log/slog"
	"time"

	revomod "github.com/fieldrobotics/revomod"
	"github.com/fieldrobotics/revomod/pkg/bus"
	"github.com/fieldrobotics/revomod/pkg/discovery"
	"github.com/fieldrobotics/revomod/pkg/role"
	"github.com/fieldrobotics/revomod/pkg/servo"
	"github.com/fieldrobotics/revomod/pkg/timeout"
)

// RawBus is what Module needs from a transport beyond revomod.Bus: a way
// to exchange raw, un-framed bytes for the servo sub-protocol and to
// subscribe to decoded servo replies. Both pkg/bus transports implement
// this in addition to revomod.Bus.
type RawBus interface {
	revomod.Bus
	SendRaw(raw []byte) error
	SubscribeServo(listener bus.ServoReplyListener) (cancel func(), err error)
}

type rawTransport struct {
	transport interface{ SendRaw([]byte) error }
}

func (t rawTransport) Send(raw []byte) error { return t.transport.SendRaw(raw) }

// Module aggregates C1-C6 into one runnable module, the host-side
// equivalent of the teacher's LocalNode: shared State, the port-role
// controller, the servo coupler and the discovery decision table, all
// wired to one transport.
type Module struct {
	State      *revomod.State
	Controller *role.Controller
	Coupler    *servo.Coupler
	Discovery  *discovery.Module

	transport RawBus
	logger    *slog.Logger
}

// Options configures the servo coupler and the role controller's settle
// delay. Per-role timeout durations belong to the Hal implementation
// (TimerHal.durations), since Load/Unload/ArmTimer are Hal's concern.
type Options struct {
	ServoOptions servo.Options
	SettleDelay  time.Duration
}

// New wires a complete Module. hal drives the GPIO surface; sensor and
// endSensor back discovery's child-detection primitives (spec 1 treats
// both as out-of-scope external collaborators with documented
// interfaces).
func New(transport RawBus, hal role.Hal, sensor discovery.ChildSensor, endSensor discovery.EndSensor, opts Options, logger *slog.Logger) (*Module, error) {
	if transport == nil || hal == nil || sensor == nil || endSensor == nil {
		return nil, revomod.ErrIllegalArgument
	}
	if logger == nil {
		logger = slog.Default()
	}

	state := revomod.NewState()
	flag := timeout.New()

	controller, err := role.New(hal, flag, state, opts.SettleDelay, logger)
	if err != nil {
		return nil, fmt.Errorf("device: role controller: %w", err)
	}

	coupler, err := servo.NewCoupler(rawTransport{transport}, controller, flag, state, opts.ServoOptions, logger)
	if err != nil {
		return nil, fmt.Errorf("device: servo coupler: %w", err)
	}

	disco, err := discovery.New(state, controller, transport, flag, sensor, endSensor, coupler, logger)
	if err != nil {
		return nil, fmt.Errorf("device: discovery: %w", err)
	}

	if _, err := transport.Subscribe(disco); err != nil {
		return nil, fmt.Errorf("device: subscribe module frames: %w", err)
	}
	if _, err := transport.SubscribeServo(coupler); err != nil {
		return nil, fmt.Errorf("device: subscribe servo replies: %w", err)
	}

	return &Module{
		State:      state,
		Controller: controller,
		Coupler:    coupler,
		Discovery:  disco,
		transport:  transport,
		logger:     logger.With("service", "[device]"),
	}, nil
}

// Bootstrap runs the cold-start bring-up sequence: couple with the
// attached servo (spec 4.4's Phase A and Phase B), then settle into Wait
// for the discovery decision table to take over.
func (m *Module) Bootstrap() error {
	m.logger.Info("starting servo coupling")
	if err := m.Coupler.Couple(); err != nil {
		return fmt.Errorf("device: couple: %w", err)
	}
	m.logger.Info("servo coupled, module waiting", "servoId", m.State.ServoID())
	return nil
}
