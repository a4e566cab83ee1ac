// Package bus implements the two concrete revomod.Bus transports: a TCP
// loopback broker used for host-side simulation and the end-to-end
// scenarios of spec 8 (grounded on the teacher's pkg/can/virtual), and a
// real half-duplex serial transport over github.com/tarm/serial.
package bus

import (
	"fmt"
	"net"
	"sync"
	"time"

	revomod "github.com/fieldrobotics/revomod"
	"github.com/fieldrobotics/revomod/pkg/frame"
	"github.com/fieldrobotics/revomod/pkg/servo"
)

// ServoReplyListener receives decoded servo replies observed on the shared
// wire. servo.Coupler satisfies this directly through its existing Handle
// method.
type ServoReplyListener interface {
	Handle(r servo.Reply)
}

// VirtualBus dials a broker TCP address and exchanges module frames encoded
// exactly as they would appear on the physical bus (pkg/frame's 8-byte
// double-start/double-end wire form), so the same decision-table code runs
// unmodified against a simulated or a real link.
//
// The module protocol and the servo sub-protocol share one physical UART,
// distinguished only by which port role is active, never by wire format
// (spec 4.1, 4.4). Host-side there is no cheap way to gate a byte stream
// by role, so the receive loop runs a frame.Reader and a servo.Reader in
// parallel over the same bytes: their start markers (0xF8 0xF8 vs 0xFF
// 0xFF) never collide, so each reader only ever completes on bytes meant
// for it.
type VirtualBus struct {
	addr string

	mu          sync.Mutex
	conn        net.Conn
	listener    revomod.FrameListener
	servoListen ServoReplyListener
	running     bool
	stopChan    chan struct{}
	wg          sync.WaitGroup
	recvErr     bool
}

// NewVirtualBus returns a bus that will dial addr on Connect, e.g.
// "localhost:18000" for a broker started by cmd/revomod's -sim mode.
func NewVirtualBus(addr string) *VirtualBus {
	return &VirtualBus{addr: addr, stopChan: make(chan struct{})}
}

func (b *VirtualBus) Connect(...any) error {
	conn, err := net.Dial("tcp", b.addr)
	if err != nil {
		return err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			return err
		}
	}
	b.conn = conn
	return nil
}

func (b *VirtualBus) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		close(b.stopChan)
		b.wg.Wait()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func (b *VirtualBus) Send(f revomod.Frame) error {
	wire, err := frame.Encode(f)
	if err != nil {
		return err
	}
	return b.SendRaw(wire[:])
}

// SendRaw writes bytes directly to the wire, bypassing module-frame
// encoding. It is how the servo coupler transmits vendor servo commands
// over the same link.
func (b *VirtualBus) SendRaw(raw []byte) error {
	if b.conn == nil {
		return revomod.ErrNotConnected
	}
	_ = b.conn.SetWriteDeadline(time.Now().Add(50 * time.Millisecond))
	_, err := b.conn.Write(raw)
	return err
}

// Subscribe starts a background reader that decodes bytes with a
// frame.Reader and hands completed frames to listener. Like the teacher's
// virtual bus, Handle runs synchronously from the reception goroutine.
func (b *VirtualBus) Subscribe(listener revomod.FrameListener) (func(), error) {
	b.mu.Lock()
	b.listener = listener
	if b.running {
		b.mu.Unlock()
		return b.cancel, nil
	}
	b.running = true
	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	b.mu.Unlock()

	go b.receive()
	return b.cancel, nil
}

// SubscribeServo registers listener for decoded servo replies, run off the
// same receive loop as Subscribe. Used by the servo coupler during Phase A
// and Phase B (spec 4.4).
func (b *VirtualBus) SubscribeServo(listener ServoReplyListener) (func(), error) {
	b.mu.Lock()
	b.servoListen = listener
	if b.running {
		b.mu.Unlock()
		return b.cancel, nil
	}
	b.running = true
	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	b.mu.Unlock()

	go b.receive()
	return b.cancel, nil
}

func (b *VirtualBus) cancel() {
	b.mu.Lock()
	running := b.running
	b.mu.Unlock()
	if running {
		_ = b.Disconnect()
	}
}

func (b *VirtualBus) receive() {
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
		_ = b.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, err := b.conn.Read(buf)
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			continue
		}
		if err != nil {
			b.mu.Lock()
			b.recvErr = true
			b.mu.Unlock()
			return
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

// Broker is a minimal TCP hub: every byte received from any connected
// client is fanned out to every other connected client, the "shared
// analog bus" a VirtualBus dials into. It exists for tests and for
// cmd/revomod's -sim mode, mirroring the teacher's statement that the
// virtual CAN bus "needs a broker server to send frames to all connected
// clients."
type Broker struct {
	ln net.Listener

	mu      sync.Mutex
	clients map[net.Conn]struct{}
}

// NewBroker starts listening on addr (e.g. "localhost:0" to pick a free
// port) and returns once the listener is ready; call Serve to start
// fanning out traffic.
func NewBroker(addr string) (*Broker, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("broker listen: %w", err)
	}
	return &Broker{ln: ln, clients: make(map[net.Conn]struct{})}, nil
}

// Addr returns the broker's bound address, useful when addr was ":0".
func (b *Broker) Addr() string {
	return b.ln.Addr().String()
}

// Serve accepts connections and relays bytes until Close is called.
func (b *Broker) Serve() error {
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return err
		}
		b.mu.Lock()
		b.clients[conn] = struct{}{}
		b.mu.Unlock()
		go b.relay(conn)
	}
}

func (b *Broker) relay(conn net.Conn) {
	defer func() {
		b.mu.Lock()
		delete(b.clients, conn)
		b.mu.Unlock()
		conn.Close()
	}()
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		b.mu.Lock()
		for c := range b.clients {
			if c == conn {
				continue
			}
			_, _ = c.Write(buf[:n])
		}
		b.mu.Unlock()
	}
}

// Close stops accepting new connections and closes every relayed client.
func (b *Broker) Close() error {
	err := b.ln.Close()
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		_ = c.Close()
	}
	return err
}
