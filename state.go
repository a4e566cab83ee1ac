package revomod

import "sync"

// ServoIDUnset is the sentinel value of State.ServoID before the attached
// servo's factory ID has been discovered (spec 3).
const ServoIDUnset byte = 255

// State is the process-wide module record: ID, CONFIGURED, CHILD and
// SERVO_ID from spec 3, single-owned by the main control flow and shared by
// reference with the discovery state machine, the servo coupler and the
// port-role controller. It is the one piece of state that survives across
// main-loop iterations.
//
// STATE (the active port role) and TIMEOUT are intentionally not part of
// this struct: they are owned exclusively by pkg/role and pkg/timeout
// respectively, matching spec 3's invariant that STATE has exactly one
// writer.
type State struct {
	mu         sync.Mutex
	id         byte
	configured bool
	child      ChildPort
	servoID    byte
}

// NewState returns a State in its fresh-boot configuration:
// ID=DefaultID, CONFIGURED=false, CHILD=0, SERVO_ID=ServoIDUnset.
func NewState() *State {
	return &State{id: DefaultID, servoID: ServoIDUnset}
}

func (s *State) ID() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *State) Configured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configured
}

func (s *State) Child() ChildPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.child
}

func (s *State) ServoID() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.servoID
}

// SetServoID records the locally attached servo's ID. It is the only
// setter the servo coupler is allowed to use directly; ID/CONFIGURED/CHILD
// are owned by the discovery state machine.
func (s *State) SetServoID(id byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servoID = id
}

// Assign records a successful ID_ASSIGN: ID <- newID, CONFIGURED <- true.
func (s *State) Assign(newID byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = newID
	s.configured = true
}

// SetChild records which downstream port last heard a child hello.
func (s *State) SetChild(port ChildPort) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.child = port
}

// Clear implements the CLEAR_CONFIG postcondition: ID <- DefaultID,
// CONFIGURED <- false, CHILD <- 0. SERVO_ID is left untouched (spec 3).
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = DefaultID
	s.configured = false
	s.child = NoChild
}

// Snapshot is a point-in-time, race-free copy of the module record, useful
// for logging and tests.
type Snapshot struct {
	ID         byte
	Configured bool
	Child      ChildPort
	ServoID    byte
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{ID: s.id, Configured: s.configured, Child: s.child, ServoID: s.servoID}
}
