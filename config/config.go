// Package config loads robot descriptions for the host-side programs: the
// simulator and the companion tools. Anything a file leaves out falls back
// to the stock robot.
package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"mousebot/core"
	"mousebot/sim"
)

// Geometry describes the drive train.
type Geometry struct {
	CountsPerRev    int32   `yaml:"counts_per_rev"`
	GearRatio       float32 `yaml:"gear_ratio"`
	WheelDiameter   float32 `yaml:"wheel_diameter"`
	WheelSeparation float32 `yaml:"wheel_separation"`
	RotationBias    float32 `yaml:"rotation_bias"`
}

// Polarity describes the wiring direction of encoders and motors.
type Polarity struct {
	EncoderLeft  int8 `yaml:"encoder_left"`
	EncoderRight int8 `yaml:"encoder_right"`
	MotorLeft    int8 `yaml:"motor_left"`
	MotorRight   int8 `yaml:"motor_right"`
}

// Motors holds drive limits.
type Motors struct {
	MaxVolts        float32 `yaml:"max_volts"`
	MinBatteryVolts float32 `yaml:"min_battery_volts"`
	PWMFrequency    uint32  `yaml:"pwm_frequency"`
}

// Gains are one controller's coefficients.
type Gains struct {
	KP float32 `yaml:"kp"`
	KI float32 `yaml:"ki"`
	KD float32 `yaml:"kd"`
}

// Feedforward configures the speed feedforward term.
type Feedforward struct {
	Enabled *bool   `yaml:"enabled"`
	SpeedFF float32 `yaml:"speed_ff"`
}

// Battery describes the battery sense divider and ADC.
type Battery struct {
	Divider      float32 `yaml:"divider"`
	ADCReference float32 `yaml:"adc_reference"`
	ADCFullScale float32 `yaml:"adc_full_scale"`
}

// Sim describes the simulated world.
type Sim struct {
	BatteryVolts      float64 `yaml:"battery_volts"`
	MotorGain         float64 `yaml:"motor_gain"`
	MotorTimeConstant float64 `yaml:"motor_time_constant"`
	SwitchRaw         uint16  `yaml:"switch_raw"`
	Ambient           uint16  `yaml:"ambient"`
	Reflection        uint16  `yaml:"reflection"`
}

// Host configures the companion tools.
type Host struct {
	Device       string        `yaml:"device"`
	Baud         int           `yaml:"baud"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	MQTTBroker   string        `yaml:"mqtt_broker"`
	MQTTClientID string        `yaml:"mqtt_client_id"`
	TopicPrefix  string        `yaml:"topic_prefix"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// File is the on-disk robot description.
type File struct {
	Name           string      `yaml:"name"`
	LoopFrequency  uint32      `yaml:"loop_frequency"`
	Geometry       Geometry    `yaml:"geometry"`
	Polarity       Polarity    `yaml:"polarity"`
	Motors         Motors      `yaml:"motors"`
	Forward        *Gains      `yaml:"forward"`
	Rotation       *Gains      `yaml:"rotation"`
	Feedforward    Feedforward `yaml:"feedforward"`
	Battery        Battery     `yaml:"battery"`
	EmitterEnabled *bool       `yaml:"emitter_enabled"`
	Sim            Sim         `yaml:"sim"`
	Host           Host        `yaml:"host"`
}

// Parse decodes a YAML robot description and fills in defaults.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	applyDefaults(&f)
	if _, err := f.Core(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses the robot description at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Default returns the stock robot description.
func Default() *File {
	var f File
	applyDefaults(&f)
	return &f
}

// Marshal encodes f back to YAML, defaults included.
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// applyDefaults fills in missing configuration values from the stock robot
func applyDefaults(f *File) {
	d := core.DefaultConfig()
	if f.Name == "" {
		f.Name = "mousebot"
	}
	if f.LoopFrequency == 0 {
		f.LoopFrequency = d.LoopFrequency
	}

	g := &f.Geometry
	if g.CountsPerRev == 0 {
		g.CountsPerRev = d.EncoderCountsPerRev
	}
	if g.GearRatio == 0 {
		g.GearRatio = d.GearRatio
	}
	if g.WheelDiameter == 0 {
		g.WheelDiameter = d.WheelDiameter
	}
	if g.WheelSeparation == 0 {
		g.WheelSeparation = d.WheelSeparation
	}

	p := &f.Polarity
	if p.EncoderLeft == 0 {
		p.EncoderLeft = d.EncoderLeftPolarity
	}
	if p.EncoderRight == 0 {
		p.EncoderRight = d.EncoderRightPolarity
	}
	if p.MotorLeft == 0 {
		p.MotorLeft = d.MotorLeftPolarity
	}
	if p.MotorRight == 0 {
		p.MotorRight = d.MotorRightPolarity
	}

	m := &f.Motors
	if m.MaxVolts == 0 {
		m.MaxVolts = d.MaxMotorVolts
	}
	if m.MinBatteryVolts == 0 {
		m.MinBatteryVolts = d.MinBatteryVolts
	}
	if m.PWMFrequency == 0 {
		m.PWMFrequency = d.PWMFrequency
	}

	if f.Forward == nil {
		f.Forward = &Gains{KP: d.Forward.KP, KI: d.Forward.KI, KD: d.Forward.KD}
	}
	if f.Rotation == nil {
		f.Rotation = &Gains{KP: d.Rotation.KP, KI: d.Rotation.KI, KD: d.Rotation.KD}
	}
	if f.Feedforward.Enabled == nil {
		on := d.FeedforwardEnabled
		f.Feedforward.Enabled = &on
	}
	if f.Feedforward.SpeedFF == 0 {
		f.Feedforward.SpeedFF = d.SpeedFF
	}

	b := &f.Battery
	if b.Divider == 0 {
		b.Divider = d.BatteryDivider
	}
	if b.ADCReference == 0 {
		b.ADCReference = d.ADCReference
	}
	if b.ADCFullScale == 0 {
		b.ADCFullScale = d.ADCFullScale
	}
	if f.EmitterEnabled == nil {
		on := d.EmitterEnabled
		f.EmitterEnabled = &on
	}

	sp := sim.DefaultParams()
	s := &f.Sim
	if s.BatteryVolts == 0 {
		s.BatteryVolts = sp.BatteryVolts
	}
	if s.MotorGain == 0 {
		s.MotorGain = sp.MotorGain
	}
	if s.MotorTimeConstant == 0 {
		s.MotorTimeConstant = sp.MotorTimeConstant
	}
	if s.SwitchRaw == 0 {
		s.SwitchRaw = uint16(sp.SwitchRaw)
	}
	if s.Ambient == 0 {
		s.Ambient = uint16(sp.Ambient[0])
	}
	if s.Reflection == 0 {
		s.Reflection = uint16(sp.Reflection[0])
	}

	h := &f.Host
	if h.Device == "" {
		h.Device = "/dev/ttyUSB0"
	}
	if h.Baud == 0 {
		h.Baud = 115200
	}
	if h.ReadTimeout == 0 {
		h.ReadTimeout = 500 * time.Millisecond
	}
	if h.MQTTClientID == "" {
		h.MQTTClientID = f.Name + "-host"
	}
	if h.TopicPrefix == "" {
		h.TopicPrefix = "mousebot/" + f.Name
	}
	if h.PollInterval == 0 {
		h.PollInterval = 200 * time.Millisecond
	}
}

// Core converts the description into the control core's configuration.
// Pin and channel assignments are fixed by the board and not configurable.
func (f *File) Core() (core.Config, error) {
	c := core.DefaultConfig()
	c.LoopFrequency = f.LoopFrequency
	c.EncoderCountsPerRev = f.Geometry.CountsPerRev
	c.GearRatio = f.Geometry.GearRatio
	c.WheelDiameter = f.Geometry.WheelDiameter
	c.WheelSeparation = f.Geometry.WheelSeparation
	c.RotationBias = f.Geometry.RotationBias
	c.EncoderLeftPolarity = f.Polarity.EncoderLeft
	c.EncoderRightPolarity = f.Polarity.EncoderRight
	c.MotorLeftPolarity = f.Polarity.MotorLeft
	c.MotorRightPolarity = f.Polarity.MotorRight
	c.MaxMotorVolts = f.Motors.MaxVolts
	c.MinBatteryVolts = f.Motors.MinBatteryVolts
	c.PWMFrequency = f.Motors.PWMFrequency
	if f.Forward != nil {
		c.Forward = core.Gains{KP: f.Forward.KP, KI: f.Forward.KI, KD: f.Forward.KD}
	}
	if f.Rotation != nil {
		c.Rotation = core.Gains{KP: f.Rotation.KP, KI: f.Rotation.KI, KD: f.Rotation.KD}
	}
	if f.Feedforward.Enabled != nil {
		c.FeedforwardEnabled = *f.Feedforward.Enabled
	}
	c.SpeedFF = f.Feedforward.SpeedFF
	c.BatteryDivider = f.Battery.Divider
	c.ADCReference = f.Battery.ADCReference
	c.ADCFullScale = f.Battery.ADCFullScale
	if f.EmitterEnabled != nil {
		c.EmitterEnabled = *f.EmitterEnabled
	}
	if err := c.Validate(); err != nil {
		return core.Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// SimParams converts the sim section into simulator parameters.
func (f *File) SimParams() sim.Params {
	p := sim.DefaultParams()
	p.BatteryVolts = f.Sim.BatteryVolts
	p.MotorGain = f.Sim.MotorGain
	p.MotorTimeConstant = f.Sim.MotorTimeConstant
	p.SwitchRaw = core.ADCValue(f.Sim.SwitchRaw)
	for i := range p.Ambient {
		p.Ambient[i] = core.ADCValue(f.Sim.Ambient) + core.ADCValue(i)
		p.Reflection[i] = core.ADCValue(f.Sim.Reflection)
	}
	return p
}
