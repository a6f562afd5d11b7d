//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"mousebot/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// InitClock points the core's clock at the 1 MHz hardware timer.
func InitClock() {
	core.SetTimeSource(GetHardwareTime)
}

// GetHardwareTime returns the low 32 bits of the microsecond counter
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// tickTimer runs the control tick from the main loop at a fixed rate. A tick
// that comes due late runs once and the schedule skips ahead rather than
// bunching up.
type tickTimer struct {
	period  uint32
	next    uint32
	handler func()
	late    uint32
}

// RegisterPeriodic implements core.TickSource.
func (t *tickTimer) RegisterPeriodic(hz uint32, handler func()) error {
	if hz == 0 || hz > core.TimerFreq {
		return core.ErrBadLoopFrequency
	}
	t.period = core.TimerFromUS(1000000 / hz)
	t.handler = handler
	t.next = GetHardwareTime() + t.period
	return nil
}

// poll runs the handler if its time has come.
func (t *tickTimer) poll(now uint32) {
	if t.handler == nil || int32(now-t.next) < 0 {
		return
	}
	t.handler()
	t.next += t.period
	if int32(now-t.next) >= 0 {
		t.late++
		t.next = now + t.period
	}
}
