// Package discovery implements C5, the frame decision table that drives
// discovery, ID assignment and config reset across the tree (spec 4.5). It
// is the glue layer: it owns no peripheral of its own, and instead drives
// the port-role controller and the shared bus to emit the right response
// for a frame arriving while the module is in Wait.
package discovery

import (
	"log/slog"

	revomod "github.com/fieldrobotics/revomod"
	"github.com/fieldrobotics/revomod/pkg/role"
	"github.com/fieldrobotics/revomod/pkg/timeout"
)

// ReIDer is the subset of servo.Coupler that an ID_ASSIGN may need to
// trigger: when the newly assigned ID no longer matches the locally
// discovered SERVO_ID, the servo's EEPROM must be rewritten to match.
type ReIDer interface {
	ReID() error
}

// RoleSwitcher is the subset of role.Controller the decision table drives
// directly (response emission doesn't need the full Controller surface).
type RoleSwitcher interface {
	Current() role.Role
	SwitchTo(r role.Role) error
	StopTimer(r role.Role)
	RefreshIndicators()
}

// ChildSensor stands in for the per-port byte-level detection hardware
// that watches the four HelloListen lines for a start byte. Spec 1 puts
// UART/peripheral byte-level drivers out of scope as an external
// collaborator with a documented interface; this is that interface.
type ChildSensor interface {
	// Sense blocks until a start byte is observed on one of the four
	// downstream lines, or flag fires, whichever comes first.
	Sense(flag *timeout.Flag) (revomod.ChildPort, bool)
}

// EndSensor stands in for the per-port end-of-transmission detection
// hardware a Resp_X role watches while forwarding a downstream reply's
// timing back to the master (spec 4.5: "signals only, does not forward
// the payload").
type EndSensor interface {
	// WaitEnd blocks until an end marker is observed on port's response
	// line, or flag fires.
	WaitEnd(port revomod.ChildPort, flag *timeout.Flag) bool
}

// Module implements C5 over a State, a Bus and a port-role controller.
type Module struct {
	state      *revomod.State
	controller RoleSwitcher
	bus        revomod.Bus
	flag       *timeout.Flag
	sensor     ChildSensor
	endSensor  EndSensor
	coupler    ReIDer
	logger     *slog.Logger
}

// New wires a discovery Module. coupler may be nil if the build has no
// attached servo to re-ID (spec's Non-goals do not require one).
func New(state *revomod.State, controller RoleSwitcher, bus revomod.Bus, flag *timeout.Flag, sensor ChildSensor, endSensor EndSensor, coupler ReIDer, logger *slog.Logger) (*Module, error) {
	if state == nil || controller == nil || bus == nil || flag == nil || sensor == nil || endSensor == nil {
		return nil, revomod.ErrIllegalArgument
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{
		state:      state,
		controller: controller,
		bus:        bus,
		flag:       flag,
		sensor:     sensor,
		endSensor:  endSensor,
		coupler:    coupler,
		logger:     logger.With("service", "[discovery]"),
	}, nil
}

// Handle is the revomod.FrameListener entry point. Per spec 4.5, the
// decision table only applies to frames observed while in Wait: during
// every other role the module's UART is pointed elsewhere.
func (m *Module) Handle(f revomod.Frame) {
	if m.controller.Current() != role.Wait {
		return
	}
	switch f.Type {
	case revomod.Hello:
		m.handleHello()
	case revomod.Ping:
		m.handlePing(f)
	case revomod.IDAssign:
		m.handleIDAssign(f)
	case revomod.ClearConfig:
		m.handleClearConfig(f)
	}
}

func (m *Module) handleHello() {
	if !m.state.Configured() {
		m.sayHello(revomod.NoChild)
		return
	}
	if child := m.state.Child(); child != revomod.NoChild {
		m.childResponse(child)
		return
	}
	if port, heard := m.childListen(); heard {
		m.state.SetChild(port)
		m.sayHello(port)
	}
}

func (m *Module) handlePing(f revomod.Frame) {
	id := m.state.ID()
	switch {
	case f.Destination == id:
		m.pingResponse()
	case f.Destination > id:
		m.childResponse(m.state.Child())
	}
}

func (m *Module) handleIDAssign(f revomod.Frame) {
	id := m.state.ID()
	switch {
	case f.Destination == id && f.Param >= revomod.IDMin && f.Param <= revomod.IDMax:
		oldServoID := m.state.ServoID()
		m.state.Assign(f.Param)
		m.assignedID()
		if m.coupler != nil && f.Param != oldServoID {
			if err := m.coupler.ReID(); err != nil {
				m.logger.Warn("re-id after assignment failed", "err", err)
			}
		}
	case f.Destination > id:
		m.childResponse(m.state.Child())
	}
}

func (m *Module) handleClearConfig(f revomod.Frame) {
	id := m.state.ID()
	switch {
	case f.Destination == id:
		m.configCleared()
		m.clear()
	case f.Destination == revomod.BroadcastID || f.Destination <= id:
		m.clear()
	}
}

func (m *Module) clear() {
	m.state.Clear()
	m.controller.RefreshIndicators()
}

// respond performs the response-emission sequence common to every ack
// (spec 4.5): enter MyResponse, send the frame, return to Wait.
func (m *Module) respond(f revomod.Frame) {
	if err := m.controller.SwitchTo(role.MyResponse); err != nil {
		m.logger.Warn("failed to enter MY_RESPONSE", "err", err)
		return
	}
	if err := m.bus.Send(f); err != nil {
		m.logger.Warn("failed to send response frame", "type", f.Type.String(), "err", err)
	}
	if err := m.controller.SwitchTo(role.Wait); err != nil {
		m.logger.Warn("failed to return to WAIT", "err", err)
	}
}

func (m *Module) sayHello(child revomod.ChildPort) {
	m.respond(revomod.NewFrame(m.state.ID(), revomod.MasterID, revomod.Hello, byte(child)))
}

func (m *Module) pingResponse() {
	m.respond(revomod.NewFrame(m.state.ID(), revomod.MasterID, revomod.Ping, 0))
}

func (m *Module) assignedID() {
	m.respond(revomod.NewFrame(m.state.ID(), revomod.MasterID, revomod.IDAssignOK, 0))
}

func (m *Module) configCleared() {
	m.respond(revomod.NewFrame(m.state.ID(), revomod.MasterID, revomod.ConfigCleared, 0))
}

// childListen runs child_listen (spec 4.5): enter HelloListen and wait for
// a downstream hello start byte or the HelloListen timeout.
func (m *Module) childListen() (revomod.ChildPort, bool) {
	if err := m.controller.SwitchTo(role.HelloListen); err != nil {
		m.logger.Warn("failed to enter HELLO_LISTEN", "err", err)
		return revomod.NoChild, false
	}
	port, heard := m.sensor.Sense(m.flag)
	m.controller.StopTimer(role.HelloListen)
	if err := m.controller.SwitchTo(role.Wait); err != nil {
		m.logger.Warn("failed to return to WAIT", "err", err)
	}
	return port, heard
}

// childResponse runs child_response (spec 4.5): enter the Resp_X role
// matching port and wait for the downstream end marker or timeout. It
// signals only -- the payload is never inspected or forwarded, since on
// the reference hardware this is purely an analog bus-timing artifact.
func (m *Module) childResponse(port revomod.ChildPort) {
	r := role.RespForChild(port)
	if r == role.None {
		return
	}
	if err := m.controller.SwitchTo(r); err != nil {
		m.logger.Warn("failed to enter child response role", "role", r.String(), "err", err)
		return
	}
	m.endSensor.WaitEnd(port, m.flag)
	m.controller.StopTimer(r)
	if err := m.controller.SwitchTo(role.Wait); err != nil {
		m.logger.Warn("failed to return to WAIT", "err", err)
	}
}
