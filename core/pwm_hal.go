package core

// PWMPin identifies a hardware pin capable of PWM output
type PWMPin uint32

// PWMValue is the duty cycle value (0 to PWMMax)
type PWMValue uint32

// PWMMax is the full-scale duty used by the motor code. Drivers rescale it to
// whatever their counter top is.
const PWMMax = 255

// PWMDriver is the abstract PWM interface that core code uses.
type PWMDriver interface {
	// ConfigureHardwarePWM configures a pin for PWM output at the given
	// frequency in Hz. The pin starts at zero duty.
	ConfigureHardwarePWM(pin PWMPin, frequency uint32) error

	// SetDutyCycle sets the PWM duty cycle for a pin
	// value: 0 (fully off) to PWMMax (fully on)
	SetDutyCycle(pin PWMPin, value PWMValue)
}
