package core

import "errors"

// Axis selects the forward or rotation controller.
type Axis uint8

const (
	AxisForward Axis = iota
	AxisRotation
)

// TickStats describes the control loop's timing.
type TickStats struct {
	Ticks    uint32
	Overruns uint32
	LastUS   uint32
	MaxUS    uint32
}

var ErrMissingHardware = errors.New("core: hardware capability missing")

// ControlCore owns all real-time state: encoders, odometry, the sensor scan,
// the motor controllers and the motion profiles. Hardware is injected.
//
// Fields written by interrupt handlers are only read here through the critical
// section. Everything else runs either in the tick or in the main context with
// interrupts masked around the shared fields.
type ControlCore struct {
	cfg Config
	hw  Hardware

	left  EncoderChannel
	right EncoderChannel
	odom  Odometry
	scan  ADCScan
	motor MotorController
	batt  Battery

	forward  Profile
	rotation Profile

	fwdSetpoint float32
	rotSetpoint float32

	periodUS   uint32
	stats      TickStats
	windowMax  uint32
	lowBattery bool
}

// NewControlCore validates cfg and builds a core bound to hw. Nothing touches
// the hardware until Start.
func NewControlCore(cfg Config, hw Hardware) (*ControlCore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hw.GPIO == nil || hw.PWM == nil || hw.ADC == nil || hw.Ticks == nil {
		return nil, ErrMissingHardware
	}
	dt := cfg.TickPeriod()
	c := &ControlCore{
		cfg:      cfg,
		hw:       hw,
		left:     newEncoderChannel(cfg.Pins.EncoderLeftClk, cfg.Pins.EncoderLeftB, cfg.EncoderLeftPolarity),
		right:    newEncoderChannel(cfg.Pins.EncoderRightClk, cfg.Pins.EncoderRightB, cfg.EncoderRightPolarity),
		odom:     newOdometry(&cfg),
		scan:     newADCScan(hw, &cfg),
		motor:    newMotorController(hw, &cfg),
		batt:     newBattery(&cfg),
		forward:  newProfile(dt),
		rotation: newProfile(dt),
		periodUS: 1000000 / cfg.LoopFrequency,
	}
	return c, nil
}

// Start configures the pins, hooks up the interrupt handlers and registers
// the periodic tick. Motors start stopped with the controllers disabled.
func (c *ControlCore) Start() error {
	gpio := c.hw.GPIO
	pins := c.cfg.Pins
	for _, pin := range []GPIOPin{pins.EncoderLeftClk, pins.EncoderLeftB, pins.EncoderRightClk, pins.EncoderRightB} {
		if err := gpio.ConfigureInput(pin); err != nil {
			return err
		}
	}
	if err := gpio.ConfigureOutput(pins.Emitter); err != nil {
		return err
	}
	gpio.SetPin(pins.Emitter, false)
	if err := c.motor.setup(c.cfg.PWMFrequency); err != nil {
		return err
	}
	c.motor.Disable()

	ch := c.cfg.Channels
	for _, id := range append([]ADCChannelID{ch.Battery, ch.Switch}, ch.Sensors[:]...) {
		if err := c.hw.ADC.ConfigureChannel(id); err != nil {
			return err
		}
	}
	c.hw.ADC.EnableCompletion(false)
	c.hw.ADC.OnComplete(c.scan.Complete)

	c.left.prime(gpio)
	c.right.prime(gpio)
	if err := gpio.OnChange(pins.EncoderLeftClk, c.left.handler(gpio)); err != nil {
		return err
	}
	if err := gpio.OnChange(pins.EncoderRightClk, c.right.handler(gpio)); err != nil {
		return err
	}
	return c.hw.Ticks.RegisterPeriodic(c.cfg.LoopFrequency, c.Tick)
}

// Tick is the fixed-rate control step. Its stages run in a fixed order:
// harvest encoder counts, odometry, battery, profiles, controllers and motor
// outputs, then start the next sensor scan.
func (c *ControlCore) Tick() {
	start := GetTime()

	state := lockInterrupts()
	l := c.left.takeDelta()
	r := c.right.takeDelta()
	c.left.total += int64(l)
	c.right.total += int64(r)
	unlockInterrupts(state)

	c.odom.update(l, r)

	c.batt.update(c.scan.Battery())
	volts := c.batt.volts
	low := !(volts > c.cfg.MinBatteryVolts)
	if low && !c.lowBattery {
		RecordTiming(EvtLowBattery, 0, start, uint32(volts*1000), 0)
	}
	c.lowBattery = low

	c.forward.Update()
	c.rotation.Update()
	fwd, rot := c.fwdSetpoint, c.rotSetpoint
	if c.forward.State() != ProfileIdle {
		fwd = c.forward.Speed()
	}
	if c.rotation.State() != ProfileIdle {
		rot = c.rotation.Speed()
	}
	o := c.odom.state
	c.motor.update(fwd, rot, o.Velocity, o.Omega, volts)

	if c.scan.Busy() {
		RecordTiming(EvtScanRestart, 0, start, uint32(c.scan.Phase()), 0)
	}
	c.scan.Start()

	c.finishTick(start)
}

func (c *ControlCore) finishTick(start uint32) {
	us := TimerToUS(GetTime() - start)
	s := c.stats
	s.Ticks++
	s.LastUS = us
	if us > s.MaxUS {
		s.MaxUS = us
	}
	if us > c.windowMax {
		c.windowMax = us
	}
	if us > c.periodUS {
		s.Overruns++
		RecordTiming(EvtTickOverrun, 0, start, us, c.periodUS)
	}
	if s.Ticks%c.cfg.LoopFrequency == 0 {
		RecordTiming(EvtTick, 0, start, c.windowMax, s.Ticks)
		c.windowMax = 0
	}
	state := lockInterrupts()
	c.stats = s
	unlockInterrupts(state)
}

// Config returns the configuration the core was built with.
func (c *ControlCore) Config() Config {
	return c.cfg
}

// Stats returns the tick timing counters.
func (c *ControlCore) Stats() TickStats {
	state := lockInterrupts()
	s := c.stats
	unlockInterrupts(state)
	return s
}

// ScanBusy reports whether a sensor scan is in progress.
func (c *ControlCore) ScanBusy() bool {
	return c.scan.Busy()
}

// --- odometry ---

// Odometry returns a consistent snapshot of the dead-reckoning state.
func (c *ControlCore) Odometry() OdometryState {
	state := lockInterrupts()
	s := c.odom.state
	unlockInterrupts(state)
	return s
}

func (c *ControlCore) Position() float32 { return c.Odometry().Position }
func (c *ControlCore) Heading() float32  { return c.Odometry().Heading }
func (c *ControlCore) Velocity() float32 { return c.Odometry().Velocity }
func (c *ControlCore) Omega() float32    { return c.Odometry().Omega }

// LeftTotal returns the cumulative left wheel count.
func (c *ControlCore) LeftTotal() int64 {
	state := lockInterrupts()
	t := c.left.total
	unlockInterrupts(state)
	return t
}

// RightTotal returns the cumulative right wheel count.
func (c *ControlCore) RightTotal() int64 {
	state := lockInterrupts()
	t := c.right.total
	unlockInterrupts(state)
	return t
}

// SetTotals overwrites the cumulative wheel counts.
func (c *ControlCore) SetTotals(left, right int64) {
	state := lockInterrupts()
	c.left.total = left
	c.right.total = right
	unlockInterrupts(state)
}

// ResetOdometry zeroes the pending counts, totals, position, heading and
// speed estimates.
func (c *ControlCore) ResetOdometry() {
	state := lockInterrupts()
	c.left.rawDelta = 0
	c.right.rawDelta = 0
	c.left.total = 0
	c.right.total = 0
	c.odom.reset()
	unlockInterrupts(state)
}

// InvalidTransitions returns the double-bit transition counts per wheel.
func (c *ControlCore) InvalidTransitions() (left, right uint32) {
	state := lockInterrupts()
	left, right = c.left.invalid, c.right.invalid
	unlockInterrupts(state)
	return left, right
}

// --- sensors ---

// DarkLitPair returns channel ch's readings from the last completed scan.
func (c *ControlCore) DarkLitPair(ch int) (dark, lit ADCValue, ok bool) {
	p, ok := c.scan.Pair(ch)
	return p.Dark, p.Lit, ok
}

// SensorPairs returns every channel's readings from the last completed scan.
func (c *ControlCore) SensorPairs() [SensorCount]SensorPair {
	return c.scan.Pairs()
}

// SensorScans returns the number of completed scans.
func (c *ControlCore) SensorScans() uint32 {
	return c.scan.Scans()
}

// ScanRestarts returns how many scans were still running when the next tick
// started a new one.
func (c *ControlCore) ScanRestarts() uint32 {
	return c.scan.Restarts()
}

// BatteryVolts returns the battery voltage computed at the last tick.
func (c *ControlCore) BatteryVolts() float32 {
	return c.batt.Volts()
}

// BatteryRaw returns the ADC value behind BatteryVolts.
func (c *ControlCore) BatteryRaw() ADCValue {
	return c.batt.Raw()
}

// SwitchRaw returns the latest function switch conversion.
func (c *ControlCore) SwitchRaw() ADCValue {
	return c.scan.Switch()
}

// FunctionSwitch returns the decoded function switch setting.
func (c *ControlCore) FunctionSwitch() int {
	return DecodeSwitch(c.scan.Switch(), c.cfg.ADCFullScale)
}

// EmitterEnabled reports whether scans light the emitter.
func (c *ControlCore) EmitterEnabled() bool {
	state := lockInterrupts()
	on := c.scan.EmitterEnabled
	unlockInterrupts(state)
	return on
}

// SetEmitterEnabled controls whether scans light the emitter.
// Turning the emitter off abandons a scan in progress so the emitter goes
// dark at once; the next tick starts a fresh scan.
func (c *ControlCore) SetEmitterEnabled(on bool) {
	state := lockInterrupts()
	c.scan.EmitterEnabled = on
	if !on && c.scan.Busy() {
		c.scan.Abort()
	}
	unlockInterrupts(state)
}

// --- control ---

// SetForwardSetpoint sets the forward speed target in mm/s and cancels any
// forward motion profile.
func (c *ControlCore) SetForwardSetpoint(v float32) {
	state := lockInterrupts()
	c.forward.Reset()
	c.fwdSetpoint = v
	unlockInterrupts(state)
}

// SetRotationSetpoint sets the rotation speed target in deg/s and cancels
// any rotation motion profile.
func (c *ControlCore) SetRotationSetpoint(v float32) {
	state := lockInterrupts()
	c.rotation.Reset()
	c.rotSetpoint = v
	unlockInterrupts(state)
}

// Setpoints returns the speed targets the controllers were last given.
func (c *ControlCore) Setpoints() (fwd, rot float32) {
	state := lockInterrupts()
	fwd, rot = c.motor.Forward.Setpoint(), c.motor.Rotation.Setpoint()
	unlockInterrupts(state)
	return fwd, rot
}

// EnableControllers starts closed-loop control.
func (c *ControlCore) EnableControllers() {
	state := lockInterrupts()
	was := c.motor.Enabled()
	c.motor.Enable()
	unlockInterrupts(state)
	if !was {
		RecordTiming(EvtControllers, 0, GetTime(), 1, 0)
	}
}

// DisableControllers stops closed-loop control and zeroes both motors.
// The integrals are kept.
func (c *ControlCore) DisableControllers() {
	state := lockInterrupts()
	was := c.motor.Enabled()
	c.motor.Disable()
	unlockInterrupts(state)
	if was {
		RecordTiming(EvtControllers, 0, GetTime(), 0, 0)
	}
}

// ControllersEnabled reports whether closed-loop control is running.
func (c *ControlCore) ControllersEnabled() bool {
	state := lockInterrupts()
	on := c.motor.Enabled()
	unlockInterrupts(state)
	return on
}

// ResetControllers clears the controllers' integral and derivative state.
func (c *ControlCore) ResetControllers() {
	state := lockInterrupts()
	c.motor.Reset()
	unlockInterrupts(state)
}

// StopAll disables the controllers, stops the motors and clears the
// profiles, setpoints and controller state.
func (c *ControlCore) StopAll() {
	c.DisableControllers()
	state := lockInterrupts()
	c.forward.Reset()
	c.rotation.Reset()
	c.fwdSetpoint = 0
	c.rotSetpoint = 0
	c.motor.Reset()
	unlockInterrupts(state)
}

// ControllerOutputs returns the last forward and rotation PID outputs in volts.
func (c *ControlCore) ControllerOutputs() (fwd, rot float32) {
	state := lockInterrupts()
	fwd, rot = c.motor.Forward.Output(), c.motor.Rotation.Output()
	unlockInterrupts(state)
	return fwd, rot
}

// Gains returns an axis' controller coefficients.
func (c *ControlCore) Gains(axis Axis) Gains {
	state := lockInterrupts()
	g := c.pid(axis).Gains
	unlockInterrupts(state)
	return g
}

// SetGains replaces an axis' controller coefficients.
func (c *ControlCore) SetGains(axis Axis, g Gains) {
	state := lockInterrupts()
	c.pid(axis).Gains = g
	unlockInterrupts(state)
}

func (c *ControlCore) pid(axis Axis) *PID {
	if axis == AxisRotation {
		return &c.motor.Rotation
	}
	return &c.motor.Forward
}

// Feedforward returns the speed feedforward switch and coefficient.
func (c *ControlCore) Feedforward() (enabled bool, k float32) {
	state := lockInterrupts()
	enabled, k = c.motor.FeedforwardEnabled, c.motor.SpeedFF
	unlockInterrupts(state)
	return enabled, k
}

// SetFeedforward sets the speed feedforward switch and coefficient.
func (c *ControlCore) SetFeedforward(enabled bool, k float32) {
	state := lockInterrupts()
	c.motor.FeedforwardEnabled = enabled
	c.motor.SpeedFF = k
	unlockInterrupts(state)
}

// --- open loop ---

// SetMotorVolts disables the controllers and drives the motors directly.
func (c *ControlCore) SetMotorVolts(left, right float32) {
	c.DisableControllers()
	state := lockInterrupts()
	c.motor.SetVolts(left, right, c.batt.volts)
	unlockInterrupts(state)
}

// SetMotorPWM disables the controllers and drives one motor with a signed duty.
func (c *ControlCore) SetMotorPWM(side MotorSide, pwm int32) {
	c.DisableControllers()
	state := lockInterrupts()
	c.motor.SetPWM(side, pwm)
	unlockInterrupts(state)
}

// MotorVolts returns the last commanded motor voltages.
func (c *ControlCore) MotorVolts() (left, right float32) {
	state := lockInterrupts()
	left, right = c.motor.Volts()
	unlockInterrupts(state)
	return left, right
}

// MotorOutputs returns the last duty and direction written to each motor.
func (c *ControlCore) MotorOutputs() (left, right MotorOutput) {
	state := lockInterrupts()
	left, right = c.motor.Outputs()
	unlockInterrupts(state)
	return left, right
}

// --- motion profiles ---

// StartMove runs a forward profile over distance mm and enables control.
func (c *ControlCore) StartMove(distance, topSpeed, finalSpeed, acceleration float32) {
	state := lockInterrupts()
	c.forward.Start(distance, topSpeed, finalSpeed, acceleration)
	unlockInterrupts(state)
	c.EnableControllers()
}

// StartTurn runs a rotation profile over angle degrees and enables control.
func (c *ControlCore) StartTurn(angle, topSpeed, finalSpeed, acceleration float32) {
	state := lockInterrupts()
	c.rotation.Start(angle, topSpeed, finalSpeed, acceleration)
	unlockInterrupts(state)
	c.EnableControllers()
}

// ProfileStates returns the state of the forward and rotation profiles.
func (c *ControlCore) ProfileStates() (fwd, rot ProfileState) {
	state := lockInterrupts()
	fwd, rot = c.forward.State(), c.rotation.State()
	unlockInterrupts(state)
	return fwd, rot
}
