package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/gpio"
)

func TestLEDActiveLow(t *testing.T) {
	pin := NewSimPin("led")
	led := NewLED(pin)

	require := assert.New(t)
	require.NoError(led.Set(true))
	require.Equal(gpio.Low, pin.Level())

	require.NoError(led.Set(false))
	require.Equal(gpio.High, pin.Level())
}

func TestIndicatorOutsideRangeHoldsPreviousValue(t *testing.T) {
	pins := [3]Pin{NewSimPin("a"), NewSimPin("b"), NewSimPin("c")}
	ind := NewIndicator(pins)

	assert.NoError(t, ind.Set(3))
	assert.Equal(t, byte(3), ind.Last())

	assert.NoError(t, ind.Set(200))
	assert.Equal(t, byte(3), ind.Last(), "ids outside 1..6 must not update the display")
}

func TestBusSelectAttachesOnlyPinZeroWhenUnconfigured(t *testing.T) {
	raw := [5]*SimPin{NewSimPin("p0"), NewSimPin("p1"), NewSimPin("p2"), NewSimPin("p3"), NewSimPin("p4")}
	pins := [5]Pin{raw[0], raw[1], raw[2], raw[3], raw[4]}
	sel := NewBusSelect(pins)

	assert.NoError(t, sel.Attach(false))
	assert.Equal(t, gpio.High, raw[0].Level())
	for _, p := range raw[1:] {
		assert.Equal(t, gpio.Low, p.Level())
	}

	assert.NoError(t, sel.Attach(true))
	for _, p := range raw {
		assert.Equal(t, gpio.High, p.Level())
	}
}

func TestQuiesceDrivesAllPinsHigh(t *testing.T) {
	raw := [5]*SimPin{NewSimPin("p0"), NewSimPin("p1"), NewSimPin("p2"), NewSimPin("p3"), NewSimPin("p4")}
	pins := [5]Pin{raw[0], raw[1], raw[2], raw[3], raw[4]}
	sel := NewBusSelect(pins)

	assert.NoError(t, sel.Quiesce())
	for _, p := range raw {
		assert.Equal(t, gpio.High, p.Level())
	}
}
