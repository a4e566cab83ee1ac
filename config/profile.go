// Package config loads a module's bring-up profile from an ini file, the
// same human-editable format the teacher uses for its object-dictionary
// descriptors (pkg/od's EDS parser), repurposed here for bus and servo
// bring-up parameters instead of CANopen objects.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Profile holds everything a build of cmd/revomod needs to bring a module
// up: which transport to open and the servo coupling parameters (spec
// 4.4's SERVO_COMM_ATTEMPTS and STATUS_RET_LEVEL).
type Profile struct {
	Transport   string // "serial" or "virtual"
	SerialPort  string
	SerialBaud  int
	VirtualAddr string

	ServoCommAttempts int
	ServoStatusLevel  byte
	EnableRecovery    bool
	SettleDelayMillis int

	// GPIO pin names, resolved through periph.io's gpioreg.ByName when
	// cmd/revomod binds the board's real header pins (spec 4.6's LED,
	// six-pattern indicator and bus-attach group-select pins).
	LEDPin        string
	IndicatorPins [3]string
	BusSelectPins [5]string
}

// Default returns the reference bring-up profile: a virtual bus pointed
// at the local broker, the spec's default servo parameters, and the
// reference board's GPIO pin names.
func Default() Profile {
	return Profile{
		Transport:         "virtual",
		VirtualAddr:       "localhost:18000",
		SerialPort:        "/dev/ttyS0",
		SerialBaud:        57600,
		ServoCommAttempts: 10,
		ServoStatusLevel:  1,
		SettleDelayMillis: 50,
		LEDPin:            "GPIO2",
		IndicatorPins:     [3]string{"GPIO17", "GPIO27", "GPIO22"},
		BusSelectPins:     [5]string{"GPIO5", "GPIO6", "GPIO13", "GPIO19", "GPIO26"},
	}
}

// Load parses path (an ini file) over Default(), so a profile file only
// needs to override the fields that differ from the reference build.
func Load(path string) (Profile, error) {
	p := Default()

	f, err := ini.Load(path)
	if err != nil {
		return Profile{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	bus := f.Section("bus")
	p.Transport = bus.Key("transport").MustString(p.Transport)
	p.SerialPort = bus.Key("serial_port").MustString(p.SerialPort)
	p.SerialBaud = bus.Key("serial_baud").MustInt(p.SerialBaud)
	p.VirtualAddr = bus.Key("virtual_addr").MustString(p.VirtualAddr)

	servo := f.Section("servo")
	p.ServoCommAttempts = servo.Key("comm_attempts").MustInt(p.ServoCommAttempts)
	p.ServoStatusLevel = byte(servo.Key("status_return_level").MustInt(int(p.ServoStatusLevel)))
	p.EnableRecovery = servo.Key("enable_recovery_writes").MustBool(p.EnableRecovery)
	p.SettleDelayMillis = servo.Key("settle_delay_ms").MustInt(p.SettleDelayMillis)

	gp := f.Section("gpio")
	p.LEDPin = gp.Key("led_pin").MustString(p.LEDPin)
	for i := range p.IndicatorPins {
		p.IndicatorPins[i] = gp.Key(fmt.Sprintf("indicator_pin_%d", i)).MustString(p.IndicatorPins[i])
	}
	for i := range p.BusSelectPins {
		p.BusSelectPins[i] = gp.Key(fmt.Sprintf("bus_select_pin_%d", i)).MustString(p.BusSelectPins[i])
	}

	return p, nil
}
