package sim

import (
	"fmt"

	"mousebot/core"
)

// GPIO is a simulated pin bank. Inputs are driven by the simulation, outputs
// by the firmware.
type GPIO struct {
	levels   map[core.GPIOPin]bool
	outputs  map[core.GPIOPin]bool
	inputs   map[core.GPIOPin]bool
	handlers map[core.GPIOPin]core.EdgeHandler
}

func newGPIO() *GPIO {
	return &GPIO{
		levels:   make(map[core.GPIOPin]bool),
		outputs:  make(map[core.GPIOPin]bool),
		inputs:   make(map[core.GPIOPin]bool),
		handlers: make(map[core.GPIOPin]core.EdgeHandler),
	}
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	if g.inputs[pin] {
		return fmt.Errorf("sim: pin %d already configured as input", pin)
	}
	g.outputs[pin] = true
	g.levels[pin] = false
	return nil
}

func (g *GPIO) ConfigureInput(pin core.GPIOPin) error {
	if g.outputs[pin] {
		return fmt.Errorf("sim: pin %d already configured as output", pin)
	}
	g.inputs[pin] = true
	return nil
}

func (g *GPIO) OnChange(pin core.GPIOPin, handler core.EdgeHandler) error {
	if !g.inputs[pin] {
		return fmt.Errorf("sim: pin %d is not an input", pin)
	}
	g.handlers[pin] = handler
	return nil
}

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) {
	g.levels[pin] = value
}

func (g *GPIO) ReadPin(pin core.GPIOPin) bool {
	return g.levels[pin]
}

// Level returns a pin's current level.
func (g *GPIO) Level(pin core.GPIOPin) bool {
	return g.levels[pin]
}

// drive sets an input and fires its change handler if the level moved.
func (g *GPIO) drive(pin core.GPIOPin, value bool) {
	if g.levels[pin] == value {
		return
	}
	g.levels[pin] = value
	if h := g.handlers[pin]; h != nil {
		h()
	}
}

// PWM is a simulated PWM block.
type PWM struct {
	duty map[core.PWMPin]core.PWMValue
	freq map[core.PWMPin]uint32
}

func newPWM() *PWM {
	return &PWM{duty: make(map[core.PWMPin]core.PWMValue), freq: make(map[core.PWMPin]uint32)}
}

func (p *PWM) ConfigureHardwarePWM(pin core.PWMPin, frequency uint32) error {
	if frequency == 0 {
		return fmt.Errorf("sim: pwm pin %d: zero frequency", pin)
	}
	p.freq[pin] = frequency
	p.duty[pin] = 0
	return nil
}

func (p *PWM) SetDutyCycle(pin core.PWMPin, value core.PWMValue) {
	if value > core.PWMMax {
		value = core.PWMMax
	}
	p.duty[pin] = value
}

// Duty returns the duty last written to pin.
func (p *PWM) Duty(pin core.PWMPin) core.PWMValue {
	return p.duty[pin]
}

// ADC samples the simulated world when a conversion starts and delivers the
// result on the next drain.
type ADC struct {
	sample     func(core.ADCChannelID) core.ADCValue
	configured map[core.ADCChannelID]bool
	handler    func()
	enabled    bool
	pending    bool
	next       core.ADCValue
	result     core.ADCValue
	count      uint64
}

func newADC(sample func(core.ADCChannelID) core.ADCValue) *ADC {
	return &ADC{sample: sample, configured: make(map[core.ADCChannelID]bool)}
}

func (a *ADC) ConfigureChannel(ch core.ADCChannelID) error {
	a.configured[ch] = true
	return nil
}

func (a *ADC) OnComplete(handler func()) { a.handler = handler }

func (a *ADC) EnableCompletion(enabled bool) { a.enabled = enabled }

func (a *ADC) StartConversion(ch core.ADCChannelID) {
	a.next = a.sample(ch)
	a.pending = true
}

func (a *ADC) Result() core.ADCValue { return a.result }

// Conversions returns how many conversions have been delivered.
func (a *ADC) Conversions() uint64 { return a.count }

// drain delivers completions until no conversion is pending or events are
// disabled.
func (a *ADC) drain() {
	for a.pending && a.enabled && a.handler != nil {
		a.pending = false
		a.result = a.next
		a.count++
		a.handler()
	}
}

// Ticks records the periodic registration; the Robot drives it.
type Ticks struct {
	hz      uint32
	handler func()
}

func (t *Ticks) RegisterPeriodic(hz uint32, handler func()) error {
	if hz == 0 {
		return fmt.Errorf("sim: zero tick rate")
	}
	t.hz = hz
	t.handler = handler
	return nil
}
