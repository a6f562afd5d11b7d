//go:build !tinygo

package core

// irqState is a placeholder for saved interrupt state on regular Go.
//
// Host builds (tests, the simulator) run every "interrupt" context on a single
// goroutine, so there is nothing to mask.
type irqState uintptr

func lockInterrupts() irqState {
	return 0
}

func unlockInterrupts(state irqState) {
	_ = state
}
