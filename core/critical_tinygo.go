//go:build tinygo

package core

import "runtime/interrupt"

type irqState = interrupt.State

// lockInterrupts masks interrupts and returns the previous state. Keep the
// region it guards to a handful of loads and stores.
func lockInterrupts() irqState {
	return interrupt.Disable()
}

func unlockInterrupts(state irqState) {
	interrupt.Restore(state)
}
