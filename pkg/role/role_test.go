package role

import (
	"testing"
	"time"

	revomod "github.com/fieldrobotics/revomod"
	"github.com/fieldrobotics/revomod/pkg/timeout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHal struct {
	quiesceCalls   int
	unloaded       []Role
	loaded         []Role
	armed          []Role
	stopped        []Role
	attachedAll    []bool
	ledOn          []bool
	servoIndicator []byte
}

func (f *fakeHal) Quiesce() error { f.quiesceCalls++; return nil }
func (f *fakeHal) Unload(role Role) error {
	f.unloaded = append(f.unloaded, role)
	return nil
}
func (f *fakeHal) Load(role Role) error {
	f.loaded = append(f.loaded, role)
	return nil
}
func (f *fakeHal) ArmTimer(role Role, flag *timeout.Flag) { f.armed = append(f.armed, role) }
func (f *fakeHal) StopTimer(role Role)                    { f.stopped = append(f.stopped, role) }
func (f *fakeHal) AttachBus(allPins bool)                 { f.attachedAll = append(f.attachedAll, allPins) }
func (f *fakeHal) SetConfiguredLED(on bool)               { f.ledOn = append(f.ledOn, on) }
func (f *fakeHal) SetServoIndicator(id byte)              { f.servoIndicator = append(f.servoIndicator, id) }

func TestColdStartTearsDownAllRoles(t *testing.T) {
	hal := &fakeHal{}
	flag := timeout.New()
	state := revomod.NewState()
	c, err := New(hal, flag, state, time.Millisecond, nil)
	require.NoError(t, err)

	require.NoError(t, c.SwitchTo(Wait))
	assert.Equal(t, 1, hal.quiesceCalls)
	assert.ElementsMatch(t, AllRoles, hal.unloaded)
	assert.Equal(t, []Role{Wait}, hal.loaded)
	assert.Equal(t, Wait, c.Current())
}

func TestWaitDoesNotArmATimer(t *testing.T) {
	hal := &fakeHal{}
	flag := timeout.New()
	state := revomod.NewState()
	c, _ := New(hal, flag, state, 0, nil)

	require.NoError(t, c.SwitchTo(Wait))
	assert.Empty(t, hal.armed)

	require.NoError(t, c.SwitchTo(HelloListen))
	require.NoError(t, c.SwitchTo(Wait))
	assert.Equal(t, []Role{HelloListen}, hal.armed)
}

func TestSubsequentTransitionOnlyUnloadsCurrentRole(t *testing.T) {
	hal := &fakeHal{}
	flag := timeout.New()
	state := revomod.NewState()
	c, _ := New(hal, flag, state, 0, nil)

	require.NoError(t, c.SwitchTo(Wait))
	hal.unloaded = nil

	require.NoError(t, c.SwitchTo(HelloListen))
	assert.Equal(t, []Role{Wait}, hal.unloaded)
}

func TestMyResponseSettlesBeforePublish(t *testing.T) {
	hal := &fakeHal{}
	flag := timeout.New()
	state := revomod.NewState()
	settle := 10 * time.Millisecond
	c, _ := New(hal, flag, state, settle, nil)

	start := time.Now()
	require.NoError(t, c.SwitchTo(MyResponse))
	assert.GreaterOrEqual(t, time.Since(start), settle)
	assert.Contains(t, hal.armed, MyResponse)
}

func TestPublishAttachesAllPinsOnlyWhenConfigured(t *testing.T) {
	hal := &fakeHal{}
	flag := timeout.New()
	state := revomod.NewState()
	c, _ := New(hal, flag, state, 0, nil)

	require.NoError(t, c.SwitchTo(Wait))
	assert.Equal(t, []bool{false}, hal.attachedAll)
	assert.Equal(t, []bool{false}, hal.ledOn)

	state.Assign(5)
	require.NoError(t, c.SwitchTo(HelloListen))
	assert.Equal(t, []bool{false, true}, hal.attachedAll)
	assert.Equal(t, []bool{false, true}, hal.ledOn)
	assert.Equal(t, []byte{5}, hal.servoIndicator)
}

func TestRespForChild(t *testing.T) {
	assert.Equal(t, Resp1, RespForChild(revomod.PortA))
	assert.Equal(t, Resp2, RespForChild(revomod.PortB))
	assert.Equal(t, Resp3, RespForChild(revomod.PortC))
	assert.Equal(t, Resp4, RespForChild(revomod.PortD))
	assert.Equal(t, None, RespForChild(revomod.NoChild))
}
