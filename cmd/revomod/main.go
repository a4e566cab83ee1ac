// Command revomod runs a single revolute-module node against either a
// real serial bus or a virtual TCP bus, following the teacher's
// flag+logrus CLI entry points (cmd/sdo_client, examples/master).
package main

import (
	"flag"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fieldrobotics/revomod/config"
	"github.com/fieldrobotics/revomod/pkg/bus"
	"github.com/fieldrobotics/revomod/pkg/device"
	"github.com/fieldrobotics/revomod/pkg/gpio"
	"github.com/fieldrobotics/revomod/pkg/servo"
)

func main() {
	log.SetLevel(log.InfoLevel)

	configPath := flag.String("config", "", "path to a module.ini profile, overriding the built-in defaults")
	sim := flag.Bool("sim", false, "start a local broker and run against a virtual bus instead of a real serial port")
	flag.Parse()

	var err error
	profile := config.Default()
	if *configPath != "" {
		profile, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}
	if *sim {
		profile.Transport = "virtual"
	}

	var transport device.RawBus
	switch profile.Transport {
	case "virtual":
		if *sim {
			broker, err := bus.NewBroker(profile.VirtualAddr)
			if err != nil {
				log.Fatalf("starting broker: %v", err)
			}
			log.Infof("simulated bus broker listening on %s", broker.Addr())
			go func() {
				if err := broker.Serve(); err != nil {
					log.Warnf("broker stopped: %v", err)
				}
			}()
			profile.VirtualAddr = broker.Addr()
			time.Sleep(50 * time.Millisecond)
		}
		transport = bus.NewVirtualBus(profile.VirtualAddr)
	case "serial":
		transport = bus.NewSerialBus(profile.SerialPort, profile.SerialBaud)
	default:
		log.Fatalf("unknown transport %q", profile.Transport)
	}

	if err := transport.Connect(); err != nil {
		log.Fatalf("connecting transport: %v", err)
	}

	var hal *device.TimerHal
	if *sim {
		hal = newSimHal()
	} else {
		hal, err = newRealHal(profile)
		if err != nil {
			log.Fatalf("binding gpio: %v", err)
		}
	}

	opts := device.Options{
		ServoOptions: servo.Options{
			CommAttempts:         profile.ServoCommAttempts,
			StatusReturnLevel:    profile.ServoStatusLevel,
			EnableRecoveryWrites: profile.EnableRecovery,
		},
		SettleDelay: time.Duration(profile.SettleDelayMillis) * time.Millisecond,
	}

	mod, err := device.New(transport, hal, bus.NewSimChildSensor(), bus.NewSimEndSensor(), opts, nil)
	if err != nil {
		log.Fatalf("wiring module: %v", err)
	}

	log.Info("coupling with attached servo")
	if err := mod.Bootstrap(); err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	log.Info("module waiting for master traffic, ctrl-c to exit")
	select {}
}

// newSimHal builds a role.Hal over in-memory GPIO pins, used for -sim runs
// where there is no board to bind.
func newSimHal() *device.TimerHal {
	led := gpio.NewLED(gpio.NewSimPin("configured-led"))
	indicator := gpio.NewIndicator([3]gpio.Pin{
		gpio.NewSimPin("indicator-0"), gpio.NewSimPin("indicator-1"), gpio.NewSimPin("indicator-2"),
	})
	selectPins := gpio.NewBusSelect([5]gpio.Pin{
		gpio.NewSimPin("bus-0"), gpio.NewSimPin("bus-1"), gpio.NewSimPin("bus-2"),
		gpio.NewSimPin("bus-3"), gpio.NewSimPin("bus-4"),
	})
	return device.NewTimerHal(selectPins, led, indicator, nil, nil)
}

// newRealHal initializes the periph.io host drivers and binds profile's
// named pins to the board's real header, the same host.Init + gpioreg.ByName
// sequence seedhammer-seedhammer's input and lcd drivers use before touching
// any pin.
func newRealHal(profile config.Profile) (*device.TimerHal, error) {
	if err := gpio.InitHost(); err != nil {
		return nil, err
	}

	ledPin, err := gpio.NewRealPin(profile.LEDPin)
	if err != nil {
		return nil, err
	}
	led := gpio.NewLED(ledPin)

	var indicatorPins [3]gpio.Pin
	for i, name := range profile.IndicatorPins {
		p, err := gpio.NewRealPin(name)
		if err != nil {
			return nil, err
		}
		indicatorPins[i] = p
	}
	indicator := gpio.NewIndicator(indicatorPins)

	var busPins [5]gpio.Pin
	for i, name := range profile.BusSelectPins {
		p, err := gpio.NewRealPin(name)
		if err != nil {
			return nil, err
		}
		busPins[i] = p
	}
	selectPins := gpio.NewBusSelect(busPins)

	return device.NewTimerHal(selectPins, led, indicator, nil, nil), nil
}
