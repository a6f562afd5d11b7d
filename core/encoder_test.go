package core

import "testing"

// forwardGray is the phase sequence (A, B) that decodes as +1 per step.
var forwardGray = [4][2]bool{{false, false}, {false, true}, {true, true}, {true, false}}

// feed drives a channel through phase indexes into forwardGray.
func feed(e *EncoderChannel, states []int) {
	for _, s := range states {
		a, b := forwardGray[s&3][0], forwardGray[s&3][1]
		e.Edge(a != b, b)
	}
}

func walk(start, steps int) []int {
	out := make([]int, 0, abs(steps))
	pos := start
	for i := 0; i < abs(steps); i++ {
		if steps > 0 {
			pos++
		} else {
			pos--
		}
		out = append(out, (pos%4+4)%4)
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func TestEncoderNetIncrement(t *testing.T) {
	tests := []struct {
		name     string
		polarity int8
		moves    []int // signed step runs
		want     int32
	}{
		{"forward", 1, []int{8}, 8},
		{"backward", 1, []int{-8}, -8},
		{"forward inverted", -1, []int{8}, -8},
		{"mixed", 1, []int{5, -3}, 2},
		{"mixed inverted", -1, []int{5, -3, 10}, -12},
		{"there and back", 1, []int{37, -37}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEncoderChannel(0, 1, tt.polarity)
			pos := 0
			for _, m := range tt.moves {
				feed(&e, walk(pos, m))
				pos += m
			}
			if e.rawDelta != tt.want {
				t.Errorf("Expected delta %d, got %d", tt.want, e.rawDelta)
			}
			if e.invalid != 0 {
				t.Errorf("Expected no invalid transitions, got %d", e.invalid)
			}
		})
	}
}

func TestEncoderRepeatedStateCountsZero(t *testing.T) {
	e := newEncoderChannel(0, 1, 1)
	feed(&e, []int{1, 1, 1})
	if e.rawDelta != 1 {
		t.Errorf("Expected delta 1, got %d", e.rawDelta)
	}
}

func TestEncoderInvalidTransitionFollowsLastDirection(t *testing.T) {
	tests := []struct {
		name     string
		polarity int8
		states   []int
		want     int32
	}{
		// 00 -> 11 with no history resolves forward
		{"no history", 1, []int{2}, 1},
		// one step back then a skip
		{"after backward", 1, []int{3, 1}, -2},
		{"after forward", 1, []int{1, 3}, 2},
		{"inverted", -1, []int{1, 3}, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for run := 0; run < 3; run++ {
				e := newEncoderChannel(0, 1, tt.polarity)
				feed(&e, tt.states)
				if e.rawDelta != tt.want {
					t.Errorf("Run %d: expected delta %d, got %d", run, tt.want, e.rawDelta)
				}
				if e.invalid != 1 {
					t.Errorf("Run %d: expected 1 invalid transition, got %d", run, e.invalid)
				}
			}
		})
	}
}

func TestEncoderEdgesReachTotals(t *testing.T) {
	r := newTestRig(t, DefaultConfig())
	pins := r.core.Config().Pins

	for _, s := range walk(0, 10) {
		r.gpio.drive(pins.EncoderLeftClk, pins.EncoderLeftB, forwardGray[s][0], forwardGray[s][1])
		r.gpio.drive(pins.EncoderRightClk, pins.EncoderRightB, forwardGray[s][0], forwardGray[s][1])
	}
	r.tick()

	// left encoder is wired reversed
	if got := r.core.LeftTotal(); got != -10 {
		t.Errorf("Expected left total -10, got %d", got)
	}
	if got := r.core.RightTotal(); got != 10 {
		t.Errorf("Expected right total 10, got %d", got)
	}

	r.tick()
	if got := r.core.RightTotal(); got != 10 {
		t.Errorf("Expected totals unchanged by an idle tick, got %d", got)
	}
	if got := r.core.Odometry().RightDelta; got != 0 {
		t.Errorf("Expected pending delta cleared, got %d", got)
	}
}
