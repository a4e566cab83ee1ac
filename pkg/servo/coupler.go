package servo

import (
	"log/slog"
	"time"

	revomod "github.com/fieldrobotics/revomod"
	"github.com/fieldrobotics/revomod/pkg/role"
	"github.com/fieldrobotics/revomod/pkg/timeout"
)

// DefaultCommAttempts is SERVO_COMM_ATTEMPTS from spec 4.4.
const DefaultCommAttempts = 10

// DefaultStatusReturnLevel is the compile-time STATUS_RET_LEVEL constant:
// the servo replies only to READs (spec 4.4).
const DefaultStatusReturnLevel byte = 1

// Options configures the coupling procedure's bounded-retry behavior and
// the optional recovery hooks design notes 9 says were commented out in
// the reference firmware and are preserved here as opt-in.
type Options struct {
	CommAttempts         int
	StatusReturnLevel    byte
	EnableRecoveryWrites bool
}

// DefaultOptions returns the spec's reference bring-up parameters, with
// recovery writes disabled (spec 9: "preserved as optional").
func DefaultOptions() Options {
	return Options{
		CommAttempts:      DefaultCommAttempts,
		StatusReturnLevel: DefaultStatusReturnLevel,
	}
}

// Transport is what the coupler needs from the shared UART to exchange
// servo-protocol bytes: send raw encoded commands and receive decoded
// replies through a callback, the same shape as the teacher's
// BusManager.Subscribe/Handle pair.
type Transport interface {
	Send(raw []byte) error
}

// RoleSwitcher is the subset of role.Controller the coupler drives: it must
// flip to MyResponse before transmitting and to ServoInit before listening
// (spec 4.4).
type RoleSwitcher interface {
	SwitchTo(r role.Role) error
	StopTimer(r role.Role)
}

// Coupler implements C4: servo ID discovery (Phase A), status-return-level
// pinning (Phase B), and the re-ID procedure invoked by discovery when the
// master assigns a new logical ID.
type Coupler struct {
	transport  Transport
	controller RoleSwitcher
	flag       *timeout.Flag
	state      *revomod.State
	opts       Options
	logger     *slog.Logger

	rx chan Reply
}

// NewCoupler wires a Coupler. The caller is responsible for delivering
// incoming servo replies to the returned Coupler's Handle method, typically
// by subscribing it to the ServoInit role's receive path.
func NewCoupler(transport Transport, controller RoleSwitcher, flag *timeout.Flag, state *revomod.State, opts Options, logger *slog.Logger) (*Coupler, error) {
	if transport == nil || controller == nil || flag == nil || state == nil {
		return nil, revomod.ErrIllegalArgument
	}
	if opts.CommAttempts <= 0 {
		opts.CommAttempts = DefaultCommAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coupler{
		transport:  transport,
		controller: controller,
		flag:       flag,
		state:      state,
		opts:       opts,
		logger:     logger.With("service", "[servo]"),
		rx:         make(chan Reply, 1),
	}, nil
}

// Handle delivers a decoded reply to the coupler. Like the teacher's
// LSSSlave.Handle, it never blocks: a full channel drops the frame.
func (c *Coupler) Handle(reply Reply) {
	select {
	case c.rx <- reply:
	default:
		c.logger.Warn("dropped servo reply, channel full")
	}
}

func (c *Coupler) send(cmd Command) error {
	if err := c.controller.SwitchTo(role.MyResponse); err != nil {
		return err
	}
	return c.transport.Send(cmd.Encode())
}

// waitForReply polls for one decoded reply or the shared timeout flag,
// whichever comes first, after switching to ServoInit.
func (c *Coupler) waitForReply() (Reply, bool) {
	if err := c.controller.SwitchTo(role.ServoInit); err != nil {
		return Reply{}, false
	}
	defer c.controller.StopTimer(role.ServoInit)

	var reply Reply
	got := timeout.WaitUntil(c.flag, func() bool {
		select {
		case reply = <-c.rx:
			return true
		default:
			return false
		}
	}, time.Millisecond)
	return reply, got
}

// DiscoverServoID runs Phase A (spec 4.4): broadcast PING up to
// CommAttempts times until a well-formed, non-erroring reply is observed,
// recording SERVO_ID. It is unbounded in outer iterations by design (spec
// 9, Open Question 1): the module refuses to function without a servo.
func (c *Coupler) DiscoverServoID() error {
	for c.state.ServoID() == revomod.ServoIDUnset {
		if c.discoverAttempt() {
			return nil
		}
		if c.opts.EnableRecoveryWrites {
			// Optional recovery: broadcast a RESET to widen the servo's
			// response window before retrying (spec 4.4, reference source
			// keeps this disabled).
			if err := c.send(Reset(BroadcastID)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Coupler) discoverAttempt() bool {
	for attempt := 0; attempt < c.opts.CommAttempts; attempt++ {
		if err := c.send(Ping(BroadcastID)); err != nil {
			c.logger.Warn("failed to send broadcast ping", "err", err)
			continue
		}
		reply, ok := c.waitForReply()
		if ok && reply.Error == 0 && reply.Source <= 253 {
			c.state.SetServoID(reply.Source)
			c.logger.Info("discovered servo", "servoId", reply.Source)
			return true
		}
	}
	return false
}

// PinStatusReturnLevel runs Phase B (spec 4.4): READ the status-return
// level repeatedly until it matches opts.StatusReturnLevel. Like Phase A,
// it is unbounded in outer iterations by design.
func (c *Coupler) PinStatusReturnLevel() error {
	for {
		if c.readStatusReturnLevel() {
			return nil
		}
		if c.opts.EnableRecoveryWrites {
			if err := c.send(Write(c.state.ServoID(), AddrStatusReturnLevel, c.opts.StatusReturnLevel)); err != nil {
				return err
			}
		}
	}
}

func (c *Coupler) readStatusReturnLevel() bool {
	servoID := c.state.ServoID()
	for attempt := 0; attempt < c.opts.CommAttempts; attempt++ {
		cmd := Read(servoID, AddrStatusReturnLevel, StatusReturnLevelWidth)
		if err := c.send(cmd); err != nil {
			c.logger.Warn("failed to send status-return-level read", "err", err)
			continue
		}
		reply, ok := c.waitForReply()
		if ok && reply.Error == 0 && reply.Param == c.opts.StatusReturnLevel {
			return true
		}
	}
	return false
}

// Couple runs the full bring-up sequence (Phase A then Phase B) and leaves
// the controller in Wait, matching spec 4.4's "after Phase B, C2
// transitions to Wait."
func (c *Coupler) Couple() error {
	if err := c.DiscoverServoID(); err != nil {
		return err
	}
	if err := c.PinStatusReturnLevel(); err != nil {
		return err
	}
	return c.controller.SwitchTo(role.Wait)
}

// ReID implements the re-ID procedure (spec 4.4): while ID != SERVO_ID,
// write the module's ID into the servo's ID register, then broadcast PING
// until a reply from the new ID confirms the change.
func (c *Coupler) ReID() error {
	for c.state.ID() != c.state.ServoID() {
		wantedID := c.state.ID()
		if err := c.send(Write(c.state.ServoID(), AddrID, wantedID)); err != nil {
			return err
		}
		confirmed := false
		for attempt := 0; attempt < c.opts.CommAttempts; attempt++ {
			if err := c.send(Ping(BroadcastID)); err != nil {
				c.logger.Warn("failed to send broadcast ping during re-id", "err", err)
				continue
			}
			reply, ok := c.waitForReply()
			if ok && reply.Error == 0 && reply.Source == wantedID {
				c.state.SetServoID(reply.Source)
				confirmed = true
				break
			}
		}
		if confirmed {
			break
		}
	}
	return c.controller.SwitchTo(role.Wait)
}
