package core

// ADCChannelID identifies a logical ADC input channel.
type ADCChannelID uint8

// ADCValue is the raw conversion result as seen by the rest of the firmware.
type ADCValue uint16

// ADCDriver is the non-blocking ADC interface the scan sequencer drives.
//
// One conversion is in flight at a time. When it finishes the driver calls the
// registered completion handler, but only while completion events are enabled.
type ADCDriver interface {
	// ConfigureChannel prepares a channel for analog input.
	ConfigureChannel(ch ADCChannelID) error

	// OnComplete registers the conversion-complete handler.
	OnComplete(handler func())

	// EnableCompletion enables or disables conversion-complete events.
	EnableCompletion(enabled bool)

	// StartConversion begins a conversion on ch and returns immediately.
	StartConversion(ch ADCChannelID)

	// Result returns the most recently finished conversion.
	Result() ADCValue
}

// TickSource delivers the fixed-rate control interrupt.
type TickSource interface {
	// RegisterPeriodic arranges for handler to run hz times per second.
	RegisterPeriodic(hz uint32, handler func()) error
}

// Hardware bundles the capabilities the control core needs.
type Hardware struct {
	GPIO  GPIODriver
	PWM   PWMDriver
	ADC   ADCDriver
	Ticks TickSource
}
