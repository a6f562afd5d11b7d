package core

// PID is one axis of the speed controller.
//
// The integral only accumulates while the controller is enabled and is kept,
// not cleared, across a disable. Output is always inside [Min, Max].
type PID struct {
	Gains
	Min, Max float32

	setpoint  float32
	feedback  float32
	output    float32
	integral  float32
	lastError float32
	primed    bool
	enabled   bool
}

func newPID(g Gains, limit float32) PID {
	return PID{Gains: g, Min: -limit, Max: limit}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Update runs one control step and returns the clamped output in volts.
func (p *PID) Update(setpoint, feedback, dt float32) float32 {
	p.setpoint = setpoint
	p.feedback = feedback
	if !p.enabled {
		p.output = 0
		return 0
	}
	err := setpoint - feedback
	var deriv float32
	if p.primed && dt > 0 {
		deriv = (err - p.lastError) / dt
	}
	p.lastError = err
	p.primed = true

	if p.KI != 0 {
		p.integral += err * dt
		// keep the integral term inside the output range
		iTerm := clamp(p.KI*p.integral, p.Min, p.Max)
		p.integral = iTerm / p.KI
	}
	p.output = clamp(p.KP*err+p.KI*p.integral+p.KD*deriv, p.Min, p.Max)
	return p.output
}

// Enable starts closed-loop control. The derivative restarts from the next
// error so a stale lastError cannot kick the output.
func (p *PID) Enable() {
	if !p.enabled {
		p.enabled = true
		p.primed = false
	}
}

// Disable zeroes the output and freezes the integral.
func (p *PID) Disable() {
	p.enabled = false
	p.output = 0
}

// Reset clears accumulated state.
func (p *PID) Reset() {
	p.integral = 0
	p.lastError = 0
	p.output = 0
	p.primed = false
}

func (p *PID) Enabled() bool     { return p.enabled }
func (p *PID) Output() float32   { return p.output }
func (p *PID) Integral() float32 { return p.integral }
func (p *PID) Setpoint() float32 { return p.setpoint }
func (p *PID) Feedback() float32 { return p.feedback }
