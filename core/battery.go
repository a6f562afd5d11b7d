package core

// Battery converts the battery divider reading into volts.
type Battery struct {
	scale float32 // volts per ADC count
	raw   ADCValue
	volts float32
}

func newBattery(cfg *Config) Battery {
	return Battery{scale: cfg.BatteryDivider * cfg.ADCReference / cfg.ADCFullScale}
}

// update takes the latest raw sample. Tick context only.
func (b *Battery) update(raw ADCValue) {
	v := float32(raw) * b.scale
	state := lockInterrupts()
	b.raw = raw
	b.volts = v
	unlockInterrupts(state)
}

// Volts returns the last computed battery voltage.
func (b *Battery) Volts() float32 {
	state := lockInterrupts()
	v := b.volts
	unlockInterrupts(state)
	return v
}

// Raw returns the ADC value the voltage was computed from.
func (b *Battery) Raw() ADCValue {
	state := lockInterrupts()
	r := b.raw
	unlockInterrupts(state)
	return r
}
