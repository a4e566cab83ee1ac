// Package role implements C2, the port-role controller: it multiplexes the
// module's single UART peripheral across six logical roles and guarantees a
// clean quiesce -> unload -> load -> arm -> settle -> publish handover on
// every transition (spec 4.2).
package role

import (
	"log/slog"
	"sync"
	"time"

	revomod "github.com/fieldrobotics/revomod"
	"github.com/fieldrobotics/revomod/pkg/timeout"
)

// Role is one of the six mutually exclusive UART configurations, plus None
// for the one-time cold-start sentinel (spec 3, 4.2).
type Role uint8

const (
	None Role = iota
	Wait
	MyResponse
	Resp1
	Resp2
	Resp3
	Resp4
	HelloListen
	ServoInit
)

func (r Role) String() string {
	switch r {
	case None:
		return "NONE"
	case Wait:
		return "WAIT"
	case MyResponse:
		return "MY_RESPONSE"
	case Resp1:
		return "RESP1"
	case Resp2:
		return "RESP2"
	case Resp3:
		return "RESP3"
	case Resp4:
		return "RESP4"
	case HelloListen:
		return "HELLO_LISTEN"
	case ServoInit:
		return "SERVO_INIT"
	default:
		return "UNKNOWN"
	}
}

// AllRoles lists every loadable role, used for the blind cold-start
// teardown when STATE == None (spec 4.2 step 2).
var AllRoles = []Role{Wait, MyResponse, Resp1, Resp2, Resp3, Resp4, HelloListen, ServoInit}

// RespForChild maps a child port letter to its matching Resp_X role, used by
// child_response (spec 4.5).
func RespForChild(port revomod.ChildPort) Role {
	switch port {
	case revomod.PortA:
		return Resp1
	case revomod.PortB:
		return Resp2
	case revomod.PortC:
		return Resp3
	case revomod.PortD:
		return Resp4
	default:
		return None
	}
}

// isReceiveLike reports whether role is one of the bounded listen roles
// that arms a timer for the duration of the wait, per the roles table in
// spec 4.2. Wait is deliberately excluded: its Timer column is "--", since
// it is an unbounded idle listen for master traffic with no deadline and
// no caller ever clears its timer.
func isReceiveLike(r Role) bool {
	switch r {
	case Resp1, Resp2, Resp3, Resp4, HelloListen, ServoInit:
		return true
	default:
		return false
	}
}

// Hal is the abstract capability set the controller drives, per design
// notes 9: a thin state machine over Role sitting on top of whatever
// physical peripheral layer a concrete build provides (bit-banged GPIO and
// UART on firmware, or the simulated/serial Bus on this host-side rewrite).
type Hal interface {
	// Quiesce drives the five shared-bus pins high and detaches them from
	// the global bus, before any peripheral is torn down.
	Quiesce() error
	// Unload tears down the peripheral configuration for role.
	Unload(role Role) error
	// Load installs the peripheral configuration for role and starts its
	// receiver(s) or transmitter(s) with no parity.
	Load(role Role) error
	// ArmTimer starts the hardware timer associated with role.
	ArmTimer(role Role, flag *timeout.Flag)
	// StopTimer stops the timer associated with role.
	StopTimer(role Role)
	// AttachBus reattaches the global bus: all five pins if configured,
	// otherwise only pin 0.
	AttachBus(allPins bool)
	// SetConfiguredLED drives the configured-indicator LED.
	SetConfiguredLED(on bool)
	// SetServoIndicator updates the six-pattern servo-ID display. IDs
	// outside 1..6 must leave the indicator in its previous state.
	SetServoIndicator(id byte)
}

// Controller owns STATE, the single active UART role, and performs every
// transition through Hal (spec 4.2). It is the only writer of STATE.
type Controller struct {
	hal         Hal
	flag        *timeout.Flag
	state       *revomod.State
	logger      *slog.Logger
	settleDelay time.Duration

	mu   sync.Mutex
	role Role
}

// New returns a Controller in the None role (the one-time cold-start
// sentinel). settleDelay is the one timeout-timer-period delay MyResponse
// entry blocks on before any byte may be emitted (spec 4.2 step 5).
func New(hal Hal, flag *timeout.Flag, state *revomod.State, settleDelay time.Duration, logger *slog.Logger) (*Controller, error) {
	if hal == nil || flag == nil || state == nil {
		return nil, revomod.ErrIllegalArgument
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		hal:         hal,
		flag:        flag,
		state:       state,
		logger:      logger.With("service", "[role]"),
		settleDelay: settleDelay,
		role:        None,
	}, nil
}

// Current returns the currently active role.
func (c *Controller) Current() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// SwitchTo performs the full handover described in spec 4.2:
//
//  1. Quiesce: drive shared pins high and detach from the bus.
//  2. Unload: tear down the current role, or blindly tear down every role
//     on the one-time cold-start path (STATE == None).
//  3. Load: install role's peripheral configuration.
//  4. Arm: start role's timeout timer if it is receive-like or needs a
//     settle delay.
//  5. Settle: for MyResponse only, block one timeout period before
//     returning, giving peers time to finish their own handover.
//  6. Publish: STATE <- role, then reattach the bus and LED/indicator.
func (c *Controller) SwitchTo(role Role) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.hal.Quiesce(); err != nil {
		return err
	}

	if c.role == None {
		for _, r := range AllRoles {
			_ = c.hal.Unload(r)
		}
	} else {
		if err := c.hal.Unload(c.role); err != nil {
			return err
		}
	}

	if err := c.hal.Load(role); err != nil {
		return err
	}

	if isReceiveLike(role) || role == MyResponse {
		c.hal.ArmTimer(role, c.flag)
	}

	if role == MyResponse && c.settleDelay > 0 {
		time.Sleep(c.settleDelay)
	}

	c.role = role
	configured := c.state.Configured()
	c.hal.AttachBus(configured)
	c.hal.SetConfiguredLED(configured)
	if configured {
		c.hal.SetServoIndicator(c.state.ID())
	}

	c.logger.Debug("switched role", "role", role.String(), "configured", configured)
	return nil
}

// RefreshIndicators republishes the LED and bus-attach outputs from the
// current STATE without touching the active role or its timer. Discovery
// calls this after CLEAR_CONFIG, since clearing CONFIGURED changes what
// those outputs should show even though no role transition occurs (spec
// 4.6: "updated inside switch_to and on clear").
func (c *Controller) RefreshIndicators() {
	c.mu.Lock()
	defer c.mu.Unlock()
	configured := c.state.Configured()
	c.hal.AttachBus(configured)
	c.hal.SetConfiguredLED(configured)
}

// StopTimer stops role's timer and clears the shared flag, the cleanup a
// caller performs after a receive role's wait completes (spec 4.2's
// "after any receive role, TIMEOUT is cleared before returning to caller").
func (c *Controller) StopTimer(role Role) {
	c.hal.StopTimer(role)
	c.flag.Clear()
}
