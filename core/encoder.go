package core

// EncoderChannel decodes one wheel's quadrature signals.
//
// The board presents A xor B on the clock pin, so every transition of either
// phase raises exactly one edge interrupt. The handler recovers A from the clock
// and B levels and accumulates signed counts in rawDelta, which only the tick
// consumer clears.
type EncoderChannel struct {
	clkPin   GPIOPin
	bPin     GPIOPin
	polarity int32

	oldA, oldB bool
	lastDir    int32

	rawDelta int32  // edge handler writes, tick clears
	total    int64  // tick only
	invalid  uint32 // double-bit transitions seen
}

func newEncoderChannel(clk, b GPIOPin, polarity int8) EncoderChannel {
	return EncoderChannel{
		clkPin:   clk,
		bPin:     b,
		polarity: int32(polarity),
		lastDir:  1,
	}
}

func bit(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Edge folds one observed pin state into the channel. clk is the level of the
// A xor B input, b the level of the B phase.
//
// A repeat of the previous state counts zero. A change of both phases at once
// means at least one transition was missed; it is counted as invalid and
// resolved as one step in the direction of the last valid step.
func (e *EncoderChannel) Edge(clk, b bool) {
	newB := b
	newA := clk != newB
	var step int32
	if newA != e.oldA && newB != e.oldB {
		e.invalid++
		step = e.lastDir
	} else {
		step = bit(e.oldA != newB) - bit(newA != e.oldB)
		if step != 0 {
			e.lastDir = step
		}
	}
	e.rawDelta += e.polarity * step
	e.oldA = newA
	e.oldB = newB
}

// handler returns the edge interrupt body for this channel.
func (e *EncoderChannel) handler(gpio GPIODriver) EdgeHandler {
	return func() {
		e.Edge(gpio.ReadPin(e.clkPin), gpio.ReadPin(e.bPin))
	}
}

// takeDelta returns and clears the pending count. Callers hold the critical
// section.
func (e *EncoderChannel) takeDelta() int32 {
	d := e.rawDelta
	e.rawDelta = 0
	return d
}

// prime records the current pin levels without counting, so the first real
// edge after startup is decoded against the true state.
func (e *EncoderChannel) prime(gpio GPIODriver) {
	b := gpio.ReadPin(e.bPin)
	e.oldB = b
	e.oldA = gpio.ReadPin(e.clkPin) != b
}
