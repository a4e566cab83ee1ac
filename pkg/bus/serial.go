package bus

import (
	"sync"
	"time"

	serial "github.com/tarm/serial"

	revomod "github.com/fieldrobotics/revomod"
	"github.com/fieldrobotics/revomod/pkg/frame"
	"github.com/fieldrobotics/revomod/pkg/servo"
)

// SerialBus is the real half-duplex UART transport: a single port shared
// by every logical role, opened once and never reconfigured mid-run (role
// switching lives entirely in pkg/role's GPIO-level Hal, not here). Like
// VirtualBus, it runs a frame.Reader and a servo.Reader in parallel over
// the same byte stream since both protocols share the one wire.
type SerialBus struct {
	name string
	baud int

	mu          sync.Mutex
	port        *serial.Port
	listener    revomod.FrameListener
	servoListen ServoReplyListener
	stopChan    chan struct{}
	wg          sync.WaitGroup
	running     bool
}

// NewSerialBus describes (without opening) a serial port, e.g.
// NewSerialBus("/dev/ttyS0", 57600).
func NewSerialBus(name string, baud int) *SerialBus {
	return &SerialBus{name: name, baud: baud}
}

func (b *SerialBus) Connect(...any) error {
	cfg := &serial.Config{Name: b.name, Baud: b.baud, ReadTimeout: 200 * time.Millisecond}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return err
	}
	b.port = port
	return nil
}

func (b *SerialBus) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		close(b.stopChan)
		b.wg.Wait()
	}
	if b.port != nil {
		return b.port.Close()
	}
	return nil
}

func (b *SerialBus) Send(f revomod.Frame) error {
	wire, err := frame.Encode(f)
	if err != nil {
		return err
	}
	return b.SendRaw(wire[:])
}

// SendRaw writes bytes directly to the port, bypassing module-frame
// encoding, for the servo coupler's vendor commands.
func (b *SerialBus) SendRaw(raw []byte) error {
	if b.port == nil {
		return revomod.ErrNotConnected
	}
	_, err := b.port.Write(raw)
	return err
}

func (b *SerialBus) Subscribe(listener revomod.FrameListener) (func(), error) {
	b.mu.Lock()
	b.listener = listener
	if b.running {
		b.mu.Unlock()
		return b.cancel, nil
	}
	if b.port == nil {
		b.mu.Unlock()
		return func() {}, revomod.ErrNotConnected
	}
	b.running = true
	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	b.mu.Unlock()

	go b.receive()
	return b.cancel, nil
}

// SubscribeServo registers listener for decoded servo replies observed on
// the same shared port.
func (b *SerialBus) SubscribeServo(listener ServoReplyListener) (func(), error) {
	b.mu.Lock()
	b.servoListen = listener
	if b.running {
		b.mu.Unlock()
		return b.cancel, nil
	}
	if b.port == nil {
		b.mu.Unlock()
		return func() {}, revomod.ErrNotConnected
	}
	b.running = true
	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	b.mu.Unlock()

	go b.receive()
	return b.cancel, nil
}

func (b *SerialBus) cancel() {
	_ = b.Disconnect()
}

func (b *SerialBus) receive() {
	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
		b.wg.Done()
	}()

	reader := frame.NewReader()
	servoReader := servo.NewReader()
	buf := make([]byte, 1)
	for {
		select {
		case <-b.stopChan:
			return
		default:
		}
		n, err := b.port.Read(buf)
		if err != nil {
			// tarm/serial surfaces a plain read timeout as an error rather
			// than a typed net.Error; treat any failed read as "nothing
			// arrived yet" and keep polling.
			time.Sleep(time.Millisecond)
			continue
		}
		if n == 0 {
			continue
		}
		if f, ok := reader.Push(buf[0]); ok && b.listener != nil {
			b.listener.Handle(f)
		}
		if r, ok := servoReader.Push(buf[0]); ok && b.servoListen != nil {
			b.servoListen.Handle(r)
		}
	}
}
