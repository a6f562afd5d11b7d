//go:build rp2040

package main

import (
	"machine"

	"mousebot/core"
)

// RPGPIODriver implements core.GPIODriver for RP2040
type RPGPIODriver struct {
	// Track configured pins to prevent conflicts
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureOutput configures a pin as a digital output, driven low
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	machinePin.Low()
	d.configuredPins[pin] = machinePin
	return nil
}

// ConfigureInput configures a pin as a digital input. The encoder outputs
// are push-pull so no pull is enabled.
func (d *RPGPIODriver) ConfigureInput(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinInput})
	d.configuredPins[pin] = machinePin
	return nil
}

// OnChange runs handler on both edges of pin.
func (d *RPGPIODriver) OnChange(pin core.GPIOPin, handler core.EdgeHandler) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		if err := d.ConfigureInput(pin); err != nil {
			return err
		}
		machinePin = d.configuredPins[pin]
	}
	return machinePin.SetInterrupt(machine.PinToggle, func(machine.Pin) {
		handler()
	})
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) {
	if machinePin, exists := d.configuredPins[pin]; exists {
		machinePin.Set(value)
	}
}

// ReadPin reads the current pin state
func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false
	}
	return machinePin.Get()
}
