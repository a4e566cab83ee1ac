package bus

import (
	"sync"
	"testing"
	"time"

	revomod "github.com/fieldrobotics/revomod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	mu     sync.Mutex
	frames []revomod.Frame
}

func (r *recordingListener) Handle(f revomod.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recordingListener) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recordingListener) last() revomod.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func TestVirtualBusRoundTrip(t *testing.T) {
	broker, err := NewBroker("localhost:0")
	require.NoError(t, err)
	defer broker.Close()
	go broker.Serve()

	master := NewVirtualBus(broker.Addr())
	require.NoError(t, master.Connect())
	defer master.Disconnect()

	slave := NewVirtualBus(broker.Addr())
	require.NoError(t, slave.Connect())
	defer slave.Disconnect()

	listener := &recordingListener{}
	_, err = slave.Subscribe(listener)
	require.NoError(t, err)

	hello := revomod.NewFrame(revomod.MasterID, revomod.BroadcastID, revomod.Hello, 0)
	require.NoError(t, master.Send(hello))

	require.Eventually(t, func() bool { return listener.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, hello, listener.last())
}

func TestVirtualBusSendBeforeConnectFails(t *testing.T) {
	b := NewVirtualBus("localhost:0")
	err := b.Send(revomod.NewFrame(0, 1, revomod.Ping, 0))
	assert.ErrorIs(t, err, revomod.ErrNotConnected)
}
