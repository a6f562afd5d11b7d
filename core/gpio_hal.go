package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// EdgeHandler runs in interrupt context when a watched input changes level.
// It must not block or allocate.
type EdgeHandler func()

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output, driven low.
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInput configures a pin as a floating digital input.
	ConfigureInput(pin GPIOPin) error

	// OnChange registers a handler for both edges of an input pin.
	OnChange(pin GPIOPin, handler EdgeHandler) error

	// SetPin drives an output high (true) or low (false).
	// Called from interrupt context, so it cannot fail.
	SetPin(pin GPIOPin, value bool)

	// ReadPin reads the current pin level.
	ReadPin(pin GPIOPin) bool
}
