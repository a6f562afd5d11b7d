package core

import "math"

// MotorOutput is the hardware command for one motor.
type MotorOutput struct {
	Duty    PWMValue
	Reverse bool // direction pin level
}

// MotorSide selects a motor.
type MotorSide uint8

const (
	MotorLeft MotorSide = iota
	MotorRight
)

// VoltsToPWM converts a drive voltage into a signed duty for the given battery
// voltage. The voltage is limited to ±maxVolts and the duty to ±PWMMax. A
// battery reading at or below minBattery yields zero.
func VoltsToPWM(volts, battery, maxVolts, minBattery float32) int32 {
	if !(battery > minBattery) || math.IsInf(float64(battery), 0) {
		return 0
	}
	if math.IsNaN(float64(volts)) {
		return 0
	}
	v := clamp(volts, -maxVolts, maxVolts)
	pwm := int32(v * PWMMax / battery)
	if pwm > PWMMax {
		pwm = PWMMax
	} else if pwm < -PWMMax {
		pwm = -PWMMax
	}
	return pwm
}

// outputFromPWM applies wiring polarity and splits sign from magnitude.
func outputFromPWM(pwm int32, polarity int8) MotorOutput {
	pwm *= int32(polarity)
	if pwm < 0 {
		return MotorOutput{Duty: PWMValue(-pwm), Reverse: true}
	}
	return MotorOutput{Duty: PWMValue(pwm)}
}

// MotorController combines the forward and rotation PIDs with feedforward and
// drives the two motors.
type MotorController struct {
	Forward  PID
	Rotation PID

	SpeedFF            float32
	FeedforwardEnabled bool

	gpio        GPIODriver
	pwm         PWMDriver
	pins        Pins
	polarityL   int8
	polarityR   int8
	maxVolts    float32
	minBattery  float32
	rotFFScale  float32 // mm/s of wheel speed per deg/s
	dt          float32
	leftVolts   float32
	rightVolts  float32
	left, right MotorOutput
}

func newMotorController(hw Hardware, cfg *Config) MotorController {
	return MotorController{
		Forward:            newPID(cfg.Forward, cfg.MaxMotorVolts),
		Rotation:           newPID(cfg.Rotation, cfg.MaxMotorVolts),
		SpeedFF:            cfg.SpeedFF,
		FeedforwardEnabled: cfg.FeedforwardEnabled,
		gpio:               hw.GPIO,
		pwm:                hw.PWM,
		pins:               cfg.Pins,
		polarityL:          cfg.MotorLeftPolarity,
		polarityR:          cfg.MotorRightPolarity,
		maxVolts:           cfg.MaxMotorVolts,
		minBattery:         cfg.MinBatteryVolts,
		rotFFScale:         cfg.MouseRadius() * math.Pi / 180,
		dt:                 cfg.TickPeriod(),
	}
}

func (m *MotorController) setup(frequency uint32) error {
	for _, pin := range []GPIOPin{m.pins.MotorLeftDir, m.pins.MotorRightDir} {
		if err := m.gpio.ConfigureOutput(pin); err != nil {
			return err
		}
	}
	for _, pin := range []PWMPin{m.pins.MotorLeftPWM, m.pins.MotorRightPWM} {
		if err := m.pwm.ConfigureHardwarePWM(pin, frequency); err != nil {
			return err
		}
	}
	return nil
}

// Enabled reports whether closed-loop control is running.
func (m *MotorController) Enabled() bool {
	return m.Forward.Enabled() && m.Rotation.Enabled()
}

// Enable starts closed-loop control on both axes.
func (m *MotorController) Enable() {
	m.Forward.Enable()
	m.Rotation.Enable()
}

// Disable stops closed-loop control and writes zero to both motors.
// Calling it again has no further effect.
func (m *MotorController) Disable() {
	m.Forward.Disable()
	m.Rotation.Disable()
	m.leftVolts, m.rightVolts = 0, 0
	m.writeOutputs(0, 0)
}

// Reset clears both controllers' accumulated state.
func (m *MotorController) Reset() {
	m.Forward.Reset()
	m.Rotation.Reset()
}

// update runs one control step. Nothing is written to the motors while the
// controllers are disabled, so open-loop commands persist.
func (m *MotorController) update(fwdSetpoint, rotSetpoint, velocity, omega, battery float32) {
	fwd := m.Forward.Update(fwdSetpoint, velocity, m.dt)
	rot := m.Rotation.Update(rotSetpoint, omega, m.dt)
	if !m.Enabled() {
		return
	}
	left := fwd - rot
	right := fwd + rot
	if m.FeedforwardEnabled {
		fwdFF := fwdSetpoint * m.SpeedFF
		rotFF := rotSetpoint * m.rotFFScale * m.SpeedFF
		left += fwdFF - rotFF
		right += fwdFF + rotFF
	}
	m.SetVolts(left, right, battery)
}

// SetVolts drives both motors with the given voltages.
func (m *MotorController) SetVolts(left, right, battery float32) {
	m.leftVolts = clamp(left, -m.maxVolts, m.maxVolts)
	m.rightVolts = clamp(right, -m.maxVolts, m.maxVolts)
	m.writeOutputs(
		VoltsToPWM(left, battery, m.maxVolts, m.minBattery),
		VoltsToPWM(right, battery, m.maxVolts, m.minBattery),
	)
}

// SetPWM drives one motor with a signed duty, bypassing the voltage model.
func (m *MotorController) SetPWM(side MotorSide, pwm int32) {
	if pwm > PWMMax {
		pwm = PWMMax
	} else if pwm < -PWMMax {
		pwm = -PWMMax
	}
	if side == MotorLeft {
		m.left = outputFromPWM(pwm, m.polarityL)
		m.apply(m.pins.MotorLeftDir, m.pins.MotorLeftPWM, m.left)
		return
	}
	m.right = outputFromPWM(pwm, m.polarityR)
	m.apply(m.pins.MotorRightDir, m.pins.MotorRightPWM, m.right)
}

func (m *MotorController) writeOutputs(left, right int32) {
	m.SetPWM(MotorLeft, left)
	m.SetPWM(MotorRight, right)
}

func (m *MotorController) apply(dir GPIOPin, pwm PWMPin, out MotorOutput) {
	m.gpio.SetPin(dir, out.Reverse)
	m.pwm.SetDutyCycle(pwm, out.Duty)
}

// Volts returns the last commanded voltages.
func (m *MotorController) Volts() (left, right float32) {
	return m.leftVolts, m.rightVolts
}

// Outputs returns the last hardware commands.
func (m *MotorController) Outputs() (left, right MotorOutput) {
	return m.left, m.right
}
