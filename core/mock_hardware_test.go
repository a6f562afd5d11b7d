package core

import "testing"

// MockGPIODriver is a test implementation of GPIODriver
type MockGPIODriver struct {
	levels   map[GPIOPin]bool
	outputs  map[GPIOPin]bool
	handlers map[GPIOPin]EdgeHandler
	writes   map[GPIOPin]int
}

func NewMockGPIODriver() *MockGPIODriver {
	return &MockGPIODriver{
		levels:   make(map[GPIOPin]bool),
		outputs:  make(map[GPIOPin]bool),
		handlers: make(map[GPIOPin]EdgeHandler),
		writes:   make(map[GPIOPin]int),
	}
}

func (m *MockGPIODriver) ConfigureOutput(pin GPIOPin) error {
	m.outputs[pin] = true
	m.levels[pin] = false
	return nil
}

func (m *MockGPIODriver) ConfigureInput(pin GPIOPin) error {
	return nil
}

func (m *MockGPIODriver) OnChange(pin GPIOPin, handler EdgeHandler) error {
	m.handlers[pin] = handler
	return nil
}

func (m *MockGPIODriver) SetPin(pin GPIOPin, value bool) {
	m.levels[pin] = value
	m.writes[pin]++
}

func (m *MockGPIODriver) ReadPin(pin GPIOPin) bool {
	return m.levels[pin]
}

// drive sets input levels and fires the clock pin's handler, like a real edge.
func (m *MockGPIODriver) drive(clk, b GPIOPin, a, bv bool) {
	m.levels[b] = bv
	m.levels[clk] = a != bv
	if h := m.handlers[clk]; h != nil {
		h()
	}
}

// MockPWMDriver is a test implementation of PWMDriver
type MockPWMDriver struct {
	duty       map[PWMPin]PWMValue
	configured map[PWMPin]uint32
}

func NewMockPWMDriver() *MockPWMDriver {
	return &MockPWMDriver{
		duty:       make(map[PWMPin]PWMValue),
		configured: make(map[PWMPin]uint32),
	}
}

func (m *MockPWMDriver) ConfigureHardwarePWM(pin PWMPin, frequency uint32) error {
	m.configured[pin] = frequency
	m.duty[pin] = 0
	return nil
}

func (m *MockPWMDriver) SetDutyCycle(pin PWMPin, value PWMValue) {
	m.duty[pin] = value
}

// MockADCDriver completes conversions only when the test says so.
type MockADCDriver struct {
	values     map[ADCChannelID]ADCValue
	handler    func()
	enabled    bool
	pending    bool
	current    ADCChannelID
	result     ADCValue
	started    []ADCChannelID
	configured map[ADCChannelID]bool
}

func NewMockADCDriver() *MockADCDriver {
	return &MockADCDriver{
		values:     make(map[ADCChannelID]ADCValue),
		configured: make(map[ADCChannelID]bool),
	}
}

func (m *MockADCDriver) ConfigureChannel(ch ADCChannelID) error {
	m.configured[ch] = true
	return nil
}

func (m *MockADCDriver) OnComplete(handler func()) { m.handler = handler }

func (m *MockADCDriver) EnableCompletion(enabled bool) { m.enabled = enabled }

func (m *MockADCDriver) StartConversion(ch ADCChannelID) {
	m.current = ch
	m.pending = true
	m.started = append(m.started, ch)
}

func (m *MockADCDriver) Result() ADCValue { return m.result }

// finish completes the in-flight conversion. It returns false when nothing
// was delivered.
func (m *MockADCDriver) finish() bool {
	if !m.pending || !m.enabled || m.handler == nil {
		return false
	}
	m.pending = false
	m.result = m.values[m.current]
	m.handler()
	return true
}

// drain completes conversions until the sequencer stops asking for more.
func (m *MockADCDriver) drain() int {
	n := 0
	for m.finish() {
		n++
	}
	return n
}

// MockTicks records the periodic registration.
type MockTicks struct {
	hz      uint32
	handler func()
}

func (m *MockTicks) RegisterPeriodic(hz uint32, handler func()) error {
	m.hz = hz
	m.handler = handler
	return nil
}

type testRig struct {
	gpio  *MockGPIODriver
	pwm   *MockPWMDriver
	adc   *MockADCDriver
	ticks *MockTicks
	core  *ControlCore
}

func newTestRig(t *testing.T, cfg Config) *testRig {
	t.Helper()
	r := &testRig{
		gpio:  NewMockGPIODriver(),
		pwm:   NewMockPWMDriver(),
		adc:   NewMockADCDriver(),
		ticks: &MockTicks{},
	}
	c, err := NewControlCore(cfg, Hardware{GPIO: r.gpio, PWM: r.pwm, ADC: r.adc, Ticks: r.ticks})
	if err != nil {
		t.Fatalf("NewControlCore failed: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.core = c
	return r
}

// tick runs one control step and lets the sensor scan finish.
func (r *testRig) tick() {
	r.ticks.handler()
	r.adc.drain()
}

// powerUp makes the battery channel read volts and runs ticks until the core
// has seen it.
func (r *testRig) powerUp(volts float32) {
	cfg := r.core.Config()
	raw := volts * cfg.ADCFullScale / (cfg.BatteryDivider * cfg.ADCReference)
	r.adc.values[cfg.Channels.Battery] = ADCValue(raw + 0.5)
	r.tick()
	r.tick()
}
