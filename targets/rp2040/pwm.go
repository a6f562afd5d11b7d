//go:build rp2040

package main

import (
	"errors"
	"machine"

	"mousebot/core"
)

var errPWMFrequency = errors.New("pwm: frequency must be non-zero")

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// RP2040PWMDriver implements core.PWMDriver on the RP2040's 8 hardware PWM
// slices with 2 channels each. Both motors sit on one slice, so they share
// a period.
type RP2040PWMDriver struct {
	// Key: slice number (0-7), Value: configured period in nanoseconds
	slices map[uint8]uint64

	// Key: pin number, Value: PWM channel
	channels map[uint32]uint8

	// Key: slice number (0-7), Value: PWM peripheral
	peripherals map[uint8]pwmPeripheral
}

// NewRP2040PWMDriver creates a new RP2040 PWM driver
func NewRP2040PWMDriver() *RP2040PWMDriver {
	return &RP2040PWMDriver{
		slices:      make(map[uint8]uint64),
		channels:    make(map[uint32]uint8),
		peripherals: make(map[uint8]pwmPeripheral),
	}
}

// ConfigureHardwarePWM configures a pin for hardware PWM output at frequency Hz
func (d *RP2040PWMDriver) ConfigureHardwarePWM(pin core.PWMPin, frequency uint32) error {
	if frequency == 0 {
		return errPWMFrequency
	}
	pinNum := uint32(pin)

	// GPIO pin N maps to slice (N >> 1) & 0x7, channel N & 1 (even=A, odd=B)
	sliceNum := uint8((pinNum >> 1) & 0x7)

	pwm, exists := d.peripherals[sliceNum]
	if !exists {
		pwm = d.getPWMPeripheral(sliceNum)
		d.peripherals[sliceNum] = pwm
	}

	period := uint64(1000000000) / uint64(frequency)
	if existing, ok := d.slices[sliceNum]; !ok || existing != period {
		if err := pwm.Configure(machine.PWMConfig{Period: period}); err != nil {
			return err
		}
		d.slices[sliceNum] = period
	}

	channel, err := pwm.Channel(machine.Pin(pinNum))
	if err != nil {
		return err
	}
	d.channels[pinNum] = channel
	pwm.Set(channel, 0)
	return nil
}

// SetDutyCycle sets the PWM duty cycle for a pin
// value: 0 (fully off) to core.PWMMax (fully on)
func (d *RP2040PWMDriver) SetDutyCycle(pin core.PWMPin, value core.PWMValue) {
	pinNum := uint32(pin)
	channel, exists := d.channels[pinNum]
	if !exists {
		return
	}
	pwm := d.peripherals[uint8((pinNum>>1)&0x7)]
	if value > core.PWMMax {
		value = core.PWMMax
	}

	// Scale 0-PWMMax to 0-Top()
	pwm.Set(channel, (uint32(value)*pwm.Top())/core.PWMMax)
}

// getPWMPeripheral returns the PWM peripheral for a given slice number
func (d *RP2040PWMDriver) getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	case 7:
		return machine.PWM7
	default:
		return machine.PWM0
	}
}
