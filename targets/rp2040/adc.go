//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"

	"mousebot/core"
)

// The RP2040 has four ADC inputs, fewer than the eight the robot reads. A
// CD4051 multiplexer in front of ADC0 selects between them; its three select
// lines are driven before each conversion.
var (
	muxSelect = [3]machine.Pin{machine.GPIO13, machine.GPIO14, machine.GPIO15}
	muxInput  = machine.ADC0 // GPIO26
)

const muxChannels = 8

var errADCChannel = errors.New("adc: channel out of range")

// RpAdcDriver implements core.ADCDriver with single non-blocking
// conversions. Completion is detected by polling from the main loop.
type RpAdcDriver struct {
	handler  func()
	enabled  bool
	busy     bool
	result   core.ADCValue
	selected int8
}

// NewRPAdcDriver constructs the driver and powers up the ADC.
func NewRPAdcDriver() *RpAdcDriver {
	machine.InitADC()
	adc := machine.ADC{Pin: muxInput}
	adc.Configure(machine.ADCConfig{})
	for _, p := range muxSelect {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	// AINSEL 0 is ADC0
	rp.ADC.CS.ReplaceBits(0, rp.ADC_CS_AINSEL_Msk, 0)
	return &RpAdcDriver{selected: -1}
}

// ConfigureChannel checks that ch is one of the multiplexer inputs.
func (d *RpAdcDriver) ConfigureChannel(ch core.ADCChannelID) error {
	if ch >= muxChannels {
		return errADCChannel
	}
	return nil
}

func (d *RpAdcDriver) OnComplete(handler func()) { d.handler = handler }

func (d *RpAdcDriver) EnableCompletion(enabled bool) { d.enabled = enabled }

// StartConversion selects ch on the multiplexer and starts one conversion.
func (d *RpAdcDriver) StartConversion(ch core.ADCChannelID) {
	if int8(ch) != d.selected {
		for i, p := range muxSelect {
			p.Set(ch&(1<<i) != 0)
		}
		d.selected = int8(ch)
	}
	d.busy = true
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
}

func (d *RpAdcDriver) Result() core.ADCValue { return d.result }

// poll finishes a conversion if the hardware is done with it. READY lags
// START_ONCE by a cycle, so a conversion started by the handler is left for
// the next poll.
func (d *RpAdcDriver) poll() {
	if d.busy && rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
		d.busy = false
		d.result = core.ADCValue(rp.ADC.RESULT.Get())
		if d.enabled && d.handler != nil {
			d.handler()
		}
	}
}
