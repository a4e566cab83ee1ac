package servo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumLaw(t *testing.T) {
	cases := []Command{
		Ping(1),
		Reset(BroadcastID),
		Read(1, AddrStatusReturnLevel, 1),
		Write(1, AddrID, 3),
	}
	for _, c := range cases {
		wire := c.Encode()
		checksum := wire[len(wire)-1]
		sum := 0
		for _, b := range wire[2 : len(wire)-1] {
			sum += int(b)
		}
		assert.Equal(t, 255, (sum+int(checksum))%256)
	}
}

func TestReIDScenarioChecksum(t *testing.T) {
	// Scenario 6 from spec 8: WRITE addressing id=1, addr=3, val=3.
	cmd := Write(1, AddrID, 3)
	wire := cmd.Encode()
	require.Equal(t, []byte{0xFF, 0xFF, 1, 4, byte(InstrWrite), 3, 3, 241}, wire)
}

func TestReaderDecodesReply(t *testing.T) {
	r := NewReader()
	wire := []byte{0xFF, 0xFF, 3, 2, 0, 0, 250}
	var last Reply
	var ok bool
	for _, b := range wire {
		last, ok = r.Push(b)
	}
	require.True(t, ok)
	assert.Equal(t, Reply{Source: 3, Length: 2, Error: 0, Param: 0}, last)
}

func TestReaderIgnoresStrayStartByte(t *testing.T) {
	r := NewReader()
	_, ok := r.Push(StartByte)
	assert.False(t, ok)
	_, ok = r.Push(0x01) // not a second start byte
	assert.False(t, ok)

	wire := []byte{0xFF, 0xFF, 1, 2, 0, 0, 252}
	var last Reply
	for _, b := range wire {
		last, ok = r.Push(b)
	}
	require.True(t, ok)
	assert.Equal(t, byte(1), last.Source)
}
