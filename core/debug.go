package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a control-loop event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Source    uint8  // Sub-system or channel the event refers to
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtTick        = 1 // tick finished; v1=duration us, v2=tick count
	EvtTickOverrun = 2 // tick took longer than its period; v1=duration us, v2=period us
	EvtScanRestart = 3 // sensor scan restarted before completing; v1=phase
	EvtControllers = 4 // controllers switched; v1=1 enabled, 0 disabled
	EvtLowBattery  = 5 // battery below the drive floor; v1=millivolts
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether DebugPrintln output is active
	debugEnabled bool

	// Timing capture ring buffer (non-blocking, for post-mortem)
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
	timingEnabled  = true
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetTimingEnabled turns capture into the timing ring on or off.
func SetTimingEnabled(enabled bool) {
	timingEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Never call it from interrupt context.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordTiming captures an event in the ring buffer. It never blocks and
// never allocates, so the tick can call it.
func RecordTiming(eventType, source uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	state := lockInterrupts()
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Source:    source,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
	unlockInterrupts(state)
}

// TimingEvents returns the ring contents oldest first, skipping empty slots.
func TimingEvents() []TimingEvent {
	state := lockInterrupts()
	ring := timingRing
	start := timingRingHead
	unlockInterrupts(state)

	events := make([]TimingEvent, 0, TimingRingSize)
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := ring[(start+i)%TimingRingSize]
		if evt.EventType != 0 {
			events = append(events, evt)
		}
	}
	return events
}

func timingEventName(t uint8) string {
	switch t {
	case EvtTick:
		return "TICK"
	case EvtTickOverrun:
		return "OVERRUN!"
	case EvtScanRestart:
		return "SCAN_RESTART"
	case EvtControllers:
		return "CONTROLLERS"
	case EvtLowBattery:
		return "LOW_BATTERY"
	}
	return "UNKNOWN"
}

// DumpTimingRing writes the timing ring through the debug writer, oldest
// first. Call it from the main loop, never from the tick.
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		debugPrintln("[TIMING] " + timingEventName(evt.EventType) +
			" src=" + itoa(int(evt.Source)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	state := lockInterrupts()
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
	unlockInterrupts(state)
}
