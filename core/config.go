package core

import (
	"errors"
	"math"
)

// SensorCount is the number of reflectance channels sampled per scan.
const SensorCount = 6

// Gains holds one controller's coefficients.
type Gains struct {
	KP float32
	KI float32
	KD float32
}

// Pins maps robot functions onto hardware pins.
type Pins struct {
	EncoderLeftClk  GPIOPin
	EncoderLeftB    GPIOPin
	EncoderRightClk GPIOPin
	EncoderRightB   GPIOPin
	MotorLeftDir    GPIOPin
	MotorRightDir   GPIOPin
	MotorLeftPWM    PWMPin
	MotorRightPWM   PWMPin
	Emitter         GPIOPin
}

// ADCChannels maps scan slots onto ADC inputs.
type ADCChannels struct {
	Battery ADCChannelID
	Switch  ADCChannelID
	Sensors [SensorCount]ADCChannelID
}

// Config is the compiled-in description of the robot: geometry, wiring,
// controller gains and limits.
type Config struct {
	LoopFrequency uint32 // control tick rate, Hz

	EncoderCountsPerRev int32
	GearRatio           float32
	WheelDiameter       float32 // mm
	WheelSeparation     float32 // mm
	RotationBias        float32 // positive makes the right wheel travel further per count

	EncoderLeftPolarity  int8
	EncoderRightPolarity int8
	MotorLeftPolarity    int8
	MotorRightPolarity   int8

	MaxMotorVolts   float32
	MinBatteryVolts float32 // below this no duty is computed
	PWMFrequency    uint32

	Forward            Gains
	Rotation           Gains
	SpeedFF            float32 // volts per mm/s
	FeedforwardEnabled bool

	BatteryDivider float32
	ADCReference   float32
	ADCFullScale   float32

	EmitterEnabled bool

	Pins     Pins
	Channels ADCChannels
}

// DefaultConfig returns the configuration of the stock robot.
func DefaultConfig() Config {
	return Config{
		LoopFrequency: 500,

		EncoderCountsPerRev: 12,
		GearRatio:           19.5,
		WheelDiameter:       32.5,
		WheelSeparation:     75.2,

		EncoderLeftPolarity:  -1,
		EncoderRightPolarity: 1,
		MotorLeftPolarity:    1,
		MotorRightPolarity:   -1,

		MaxMotorVolts:   6.0,
		MinBatteryVolts: 1.0,
		PWMFrequency:    31250,

		Forward:            Gains{KP: 0.004, KI: 0.02},
		Rotation:           Gains{KP: 0.003, KI: 0.01},
		SpeedFF:            0.006,
		FeedforwardEnabled: true,

		BatteryDivider: 2.0,
		ADCReference:   5.0,
		ADCFullScale:   1024,

		EmitterEnabled: true,

		Pins: Pins{
			EncoderLeftClk:  2,
			EncoderRightClk: 3,
			EncoderLeftB:    4,
			EncoderRightB:   5,
			MotorLeftDir:    7,
			MotorRightDir:   8,
			MotorLeftPWM:    9,
			MotorRightPWM:   10,
			Emitter:         12,
		},
		Channels: ADCChannels{
			Battery: 7,
			Switch:  6,
			Sensors: [SensorCount]ADCChannelID{0, 1, 2, 3, 4, 5},
		},
	}
}

var (
	ErrBadLoopFrequency = errors.New("core: loop frequency must be positive")
	ErrBadGeometry      = errors.New("core: wheel geometry must be positive")
	ErrBadPolarity      = errors.New("core: polarity must be +1 or -1")
	ErrBadVoltageLimit  = errors.New("core: motor voltage limit must be positive")
	ErrBadADCScale      = errors.New("core: ADC scaling must be positive")
)

// Validate checks that the configuration describes a physically sensible robot.
func (c *Config) Validate() error {
	if c.LoopFrequency == 0 {
		return ErrBadLoopFrequency
	}
	if c.EncoderCountsPerRev <= 0 || c.GearRatio <= 0 || c.WheelDiameter <= 0 || c.WheelSeparation <= 0 {
		return ErrBadGeometry
	}
	for _, p := range []int8{c.EncoderLeftPolarity, c.EncoderRightPolarity, c.MotorLeftPolarity, c.MotorRightPolarity} {
		if p != 1 && p != -1 {
			return ErrBadPolarity
		}
	}
	if c.MaxMotorVolts <= 0 {
		return ErrBadVoltageLimit
	}
	if c.BatteryDivider <= 0 || c.ADCReference <= 0 || c.ADCFullScale <= 0 {
		return ErrBadADCScale
	}
	return nil
}

// MouseRadius is half the wheel separation.
func (c *Config) MouseRadius() float32 {
	return c.WheelSeparation / 2
}

func (c *Config) wheelCircumferencePerCount() float32 {
	return math.Pi * c.WheelDiameter / (float32(c.EncoderCountsPerRev) * c.GearRatio)
}

// MMPerCountLeft is the left wheel travel per encoder count.
func (c *Config) MMPerCountLeft() float32 {
	return (1 - c.RotationBias) * c.wheelCircumferencePerCount()
}

// MMPerCountRight is the right wheel travel per encoder count.
func (c *Config) MMPerCountRight() float32 {
	return (1 + c.RotationBias) * c.wheelCircumferencePerCount()
}

// DegPerMMDifference converts a wheel travel difference into heading change.
func (c *Config) DegPerMMDifference() float32 {
	return 180 / (2 * c.MouseRadius() * math.Pi)
}

// TickPeriod is the control period in seconds.
func (c *Config) TickPeriod() float32 {
	return 1 / float32(c.LoopFrequency)
}
