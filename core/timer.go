package core

import "sync/atomic"

// TimerFreq is the rate of the free-running clock used to time the control tick.
const TimerFreq = 1000000 // 1MHz, microseconds

var (
	systemTicks uint32
	timeSource  func() uint32
)

// SetTimeSource installs a hardware clock read. Targets with a free-running
// counter use this; the simulator advances time with SetTime instead.
func SetTimeSource(src func() uint32) {
	timeSource = src
}

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	if src := timeSource; src != nil {
		return src()
	}
	return atomic.LoadUint32(&systemTicks)
}

// SetTime sets the current system time (for testing/simulation)
func SetTime(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}
