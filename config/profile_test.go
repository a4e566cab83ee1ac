package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "module.ini")
	contents := `
[bus]
transport = serial
serial_port = /dev/ttyUSB0

[servo]
comm_attempts = 5
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "serial", p.Transport)
	assert.Equal(t, "/dev/ttyUSB0", p.SerialPort)
	assert.Equal(t, 5, p.ServoCommAttempts)

	// Untouched keys keep the reference default.
	assert.Equal(t, byte(1), p.ServoStatusLevel)
	assert.Equal(t, 57600, p.SerialBaud)
}

func TestLoadOverridesGPIOPinNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "module.ini")
	contents := `
[gpio]
led_pin = GPIO4
indicator_pin_0 = GPIO23
bus_select_pin_4 = GPIO12
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "GPIO4", p.LEDPin)
	assert.Equal(t, "GPIO23", p.IndicatorPins[0])
	assert.Equal(t, "GPIO12", p.BusSelectPins[4])

	// Untouched pin names keep the reference default.
	assert.Equal(t, "GPIO27", p.IndicatorPins[1])
	assert.Equal(t, "GPIO5", p.BusSelectPins[0])
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}
