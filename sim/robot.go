// Package sim simulates the robot's hardware: two DC motors with first-order
// dynamics, wheels with quadrature encoders behind an XOR gate, reflectance
// sensors that respond to the emitter, a battery divider and the function
// switch ladder. The control core runs against it unchanged.
package sim

import (
	"time"

	"mousebot/core"
)

// Params describes the simulated world.
type Params struct {
	BatteryVolts      float64
	MotorGain         float64 // steady-state wheel speed per volt, mm/s/V
	MotorTimeConstant float64 // seconds
	SwitchRaw         core.ADCValue
	Ambient           [core.SensorCount]core.ADCValue
	Reflection        [core.SensorCount]core.ADCValue // added while the emitter is lit
}

// DefaultParams matches the stock configuration's feedforward, so the robot
// tracks speed commands closely even with small gains.
func DefaultParams() Params {
	p := Params{
		BatteryVolts:      8.0,
		MotorGain:         1 / 0.006,
		MotorTimeConstant: 0.05,
		SwitchRaw:         44,
	}
	for i := range p.Ambient {
		p.Ambient[i] = 40 + core.ADCValue(i)
		p.Reflection[i] = 300
	}
	return p
}

// gray is the (A, B) sequence the decoder counts as forward.
var gray = [4][2]bool{{false, false}, {false, true}, {true, true}, {true, false}}

type wheel struct {
	speed    float64 // mm/s
	travel   float64 // mm, physical
	counts   int64   // whole encoder steps emitted
	phase    int     // index into gray
	mmPer    float64
	encPol   int
	motorPol float64
	clk, b   core.GPIOPin
	dir      core.GPIOPin
	pwm      core.PWMPin
}

// Robot is a simulated robot ready to host a control core.
type Robot struct {
	cfg    core.Config
	params Params

	GPIO  *GPIO
	PWM   *PWM
	ADC   *ADC
	Ticks *Ticks

	left, right wheel
	now         time.Duration
	steps       uint64
}

// New builds a simulated robot wired the way cfg describes.
func New(cfg core.Config, params Params) *Robot {
	r := &Robot{
		cfg:    cfg,
		params: params,
		GPIO:   newGPIO(),
		PWM:    newPWM(),
		Ticks:  &Ticks{},
	}
	r.ADC = newADC(r.sample)
	pins := cfg.Pins
	r.left = wheel{
		mmPer:    float64(cfg.MMPerCountLeft()),
		encPol:   int(cfg.EncoderLeftPolarity),
		motorPol: float64(cfg.MotorLeftPolarity),
		clk:      pins.EncoderLeftClk,
		b:        pins.EncoderLeftB,
		dir:      pins.MotorLeftDir,
		pwm:      pins.MotorLeftPWM,
	}
	r.right = wheel{
		mmPer:    float64(cfg.MMPerCountRight()),
		encPol:   int(cfg.EncoderRightPolarity),
		motorPol: float64(cfg.MotorRightPolarity),
		clk:      pins.EncoderRightClk,
		b:        pins.EncoderRightB,
		dir:      pins.MotorRightDir,
		pwm:      pins.MotorRightPWM,
	}
	r.SetBattery(params.BatteryVolts)
	return r
}

// Hardware returns the capabilities to hand to core.NewControlCore.
func (r *Robot) Hardware() core.Hardware {
	return core.Hardware{GPIO: r.GPIO, PWM: r.PWM, ADC: r.ADC, Ticks: r.Ticks}
}

// SetBattery changes the simulated battery voltage.
func (r *Robot) SetBattery(volts float64) {
	r.params.BatteryVolts = volts
}

// SetSwitch changes the raw function switch reading.
func (r *Robot) SetSwitch(raw core.ADCValue) {
	r.params.SwitchRaw = raw
}

// Now returns the simulated time.
func (r *Robot) Now() time.Duration {
	return r.now
}

// Period returns the simulated tick period.
func (r *Robot) Period() time.Duration {
	hz := r.Ticks.hz
	if hz == 0 {
		hz = r.cfg.LoopFrequency
	}
	return time.Second / time.Duration(hz)
}

// Step advances the world by one tick period, then runs the control tick and
// lets its sensor scan complete.
func (r *Robot) Step() {
	dt := r.Period()
	secs := dt.Seconds()
	r.advance(&r.left, secs)
	r.advance(&r.right, secs)
	r.now += dt
	r.steps++
	core.SetTime(uint32(r.now / time.Microsecond))
	if r.Ticks.handler != nil {
		r.Ticks.handler()
	}
	r.ADC.drain()
}

// Run steps the simulation for at least d.
func (r *Robot) Run(d time.Duration) {
	end := r.now + d
	for r.now < end {
		r.Step()
	}
}

// WheelSpeeds returns the true wheel surface speeds in mm/s.
func (r *Robot) WheelSpeeds() (left, right float64) {
	return r.left.speed, r.right.speed
}

// Travel returns the true distance each wheel has rolled in mm.
func (r *Robot) Travel() (left, right float64) {
	return r.left.travel, r.right.travel
}

func (r *Robot) motorVolts(w *wheel) float64 {
	duty := float64(r.PWM.Duty(w.pwm)) / core.PWMMax
	v := duty * r.params.BatteryVolts
	if r.GPIO.Level(w.dir) {
		v = -v
	}
	return v * w.motorPol
}

func (r *Robot) advance(w *wheel, dt float64) {
	target := r.params.MotorGain * r.motorVolts(w)
	tau := r.params.MotorTimeConstant
	if tau <= dt {
		w.speed = target
	} else {
		w.speed += (target - w.speed) * dt / tau
	}
	w.travel += w.speed * dt

	want := int64(w.travel / w.mmPer)
	for w.counts < want {
		w.counts++
		r.emit(w, 1)
	}
	for w.counts > want {
		w.counts--
		r.emit(w, -1)
	}
}

// emit moves the encoder one step. The firmware applies the encoder polarity
// when it decodes, so the physical step is pre-multiplied by it here.
func (r *Robot) emit(w *wheel, dir int) {
	w.phase = (w.phase + dir*w.encPol + 4) % 4
	a, b := gray[w.phase][0], gray[w.phase][1]
	// B settles before the XOR output toggles
	r.GPIO.levels[w.b] = b
	r.GPIO.drive(w.clk, a != b)
}

func (r *Robot) sample(ch core.ADCChannelID) core.ADCValue {
	c := r.cfg.Channels
	switch ch {
	case c.Battery:
		raw := r.params.BatteryVolts / float64(r.cfg.BatteryDivider*r.cfg.ADCReference) * float64(r.cfg.ADCFullScale)
		if raw > float64(r.cfg.ADCFullScale-1) {
			raw = float64(r.cfg.ADCFullScale - 1)
		}
		if raw < 0 {
			raw = 0
		}
		return core.ADCValue(raw)
	case c.Switch:
		return r.params.SwitchRaw
	}
	for i, id := range c.Sensors {
		if id == ch {
			v := r.params.Ambient[i]
			if r.GPIO.Level(r.cfg.Pins.Emitter) {
				v += r.params.Reflection[i]
			}
			return v
		}
	}
	return 0
}
