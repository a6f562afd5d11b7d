package core

// ScanPhase is the position of the sequencer within one sensor scan.
type ScanPhase uint8

// Scan phases. Each completed conversion is stored into the slot of the phase
// it finishes, then the next conversion is started.
const (
	PhaseStart   ScanPhase = iota // discard the warm-up conversion, start battery
	PhaseBattery                  // store battery, start switch
	PhaseSwitch                   // store switch, start first sensor (dark)
	PhaseDark0                    // PhaseDark0+i stores dark sample i
)

// Remaining phase positions derived from the sensor count.
const (
	PhaseSettle ScanPhase = PhaseDark0 + SensorCount // emitter on, discard settle conversion
	PhaseLit0   ScanPhase = PhaseSettle + 1
	PhaseDone   ScanPhase = PhaseLit0 + SensorCount // scan complete, sequencer idle
	ScanPhases            = int(PhaseDone)          // conversions per scan
)

// SensorPair is one channel's dark and lit readings from the same scan.
type SensorPair struct {
	Dark ADCValue
	Lit  ADCValue
}

// ADCScan sequences the battery, switch and reflectance conversions around the
// emitter strobe. It advances once per conversion-complete event.
type ADCScan struct {
	adc      ADCDriver
	gpio     GPIODriver
	emitter  GPIOPin
	channels ADCChannels

	phase     ScanPhase
	emitterOn bool
	dark      [SensorCount]ADCValue
	lit       [SensorCount]ADCValue

	// published at scan completion
	pairs    [SensorCount]SensorPair
	battery  ADCValue
	switchIn ADCValue
	scans    uint32
	restarts uint32

	EmitterEnabled bool
}

func newADCScan(hw Hardware, cfg *Config) ADCScan {
	return ADCScan{
		adc:            hw.ADC,
		gpio:           hw.GPIO,
		emitter:        cfg.Pins.Emitter,
		channels:       cfg.Channels,
		phase:          PhaseDone,
		EmitterEnabled: cfg.EmitterEnabled,
	}
}

func (s *ADCScan) setEmitter(on bool) {
	s.emitterOn = on
	s.gpio.SetPin(s.emitter, on)
}

// Start begins a new scan. A scan still in progress is abandoned with the
// emitter switched off first.
func (s *ADCScan) Start() {
	if s.phase != PhaseDone {
		s.restarts++
		s.setEmitter(false)
	}
	s.phase = PhaseStart
	s.adc.EnableCompletion(true)
	s.adc.StartConversion(s.channels.Sensors[0])
}

// Abort stops the scan, leaving the emitter off and completions disabled.
func (s *ADCScan) Abort() {
	s.adc.EnableCompletion(false)
	s.setEmitter(false)
	s.phase = PhaseDone
}

// Busy reports whether a scan is in progress.
func (s *ADCScan) Busy() bool {
	return s.phase != PhaseDone
}

// Phase returns the current sequencer position.
func (s *ADCScan) Phase() ScanPhase {
	return s.phase
}

// EmitterOn reports the commanded emitter state.
func (s *ADCScan) EmitterOn() bool {
	return s.emitterOn
}

// Complete handles one conversion-complete event.
func (s *ADCScan) Complete() {
	p := s.phase
	if p == PhaseDone {
		return
	}
	v := s.adc.Result()
	switch {
	case p == PhaseStart:
		s.adc.StartConversion(s.channels.Battery)
	case p == PhaseBattery:
		s.battery = v
		s.adc.StartConversion(s.channels.Switch)
	case p == PhaseSwitch:
		s.switchIn = v
		s.adc.StartConversion(s.channels.Sensors[0])
	case p < PhaseSettle:
		i := int(p - PhaseDark0)
		s.dark[i] = v
		if i+1 < SensorCount {
			s.adc.StartConversion(s.channels.Sensors[i+1])
		} else {
			if s.EmitterEnabled {
				s.setEmitter(true)
			}
			// throwaway conversion gives the emitter time to light up
			s.adc.StartConversion(s.channels.Battery)
		}
	case p == PhaseSettle:
		s.adc.StartConversion(s.channels.Sensors[0])
	default:
		i := int(p - PhaseLit0)
		s.lit[i] = v
		if i+1 < SensorCount {
			s.adc.StartConversion(s.channels.Sensors[i+1])
		} else {
			s.setEmitter(false)
			s.adc.EnableCompletion(false)
			s.publish()
		}
	}
	s.phase = p + 1
}

func (s *ADCScan) publish() {
	state := lockInterrupts()
	for i := range s.pairs {
		s.pairs[i] = SensorPair{Dark: s.dark[i], Lit: s.lit[i]}
	}
	s.scans++
	unlockInterrupts(state)
}

// Pair returns the dark and lit readings of channel ch from the last
// completed scan.
func (s *ADCScan) Pair(ch int) (SensorPair, bool) {
	if ch < 0 || ch >= SensorCount {
		return SensorPair{}, false
	}
	state := lockInterrupts()
	p := s.pairs[ch]
	unlockInterrupts(state)
	return p, true
}

// Pairs returns all channels from the last completed scan.
func (s *ADCScan) Pairs() [SensorCount]SensorPair {
	state := lockInterrupts()
	p := s.pairs
	unlockInterrupts(state)
	return p
}

// Battery returns the latest raw battery conversion.
func (s *ADCScan) Battery() ADCValue {
	state := lockInterrupts()
	v := s.battery
	unlockInterrupts(state)
	return v
}

// Switch returns the latest raw function switch conversion.
func (s *ADCScan) Switch() ADCValue {
	state := lockInterrupts()
	v := s.switchIn
	unlockInterrupts(state)
	return v
}

// Scans returns the number of completed scans.
func (s *ADCScan) Scans() uint32 {
	state := lockInterrupts()
	n := s.scans
	unlockInterrupts(state)
	return n
}

// Restarts returns how many scans were abandoned by a new Start.
func (s *ADCScan) Restarts() uint32 {
	state := lockInterrupts()
	n := s.restarts
	unlockInterrupts(state)
	return n
}
