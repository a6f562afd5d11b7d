package core

// ProfileState is the phase of a trapezoidal move.
type ProfileState uint8

const (
	ProfileIdle ProfileState = iota
	ProfileAccelerating
	ProfileBraking
	ProfileFinished
)

func (s ProfileState) String() string {
	switch s {
	case ProfileIdle:
		return "idle"
	case ProfileAccelerating:
		return "accelerating"
	case ProfileBraking:
		return "braking"
	case ProfileFinished:
		return "finished"
	}
	return "unknown"
}

const (
	// minProfileDistance is the shortest move worth profiling.
	minProfileDistance = 1.0
	// creepSpeed is the speed held near the end of a move that stops, so the
	// robot actually arrives.
	creepSpeed = 5.0
	// arrivalWindow is how close to the end a move counts as finished.
	arrivalWindow = 0.125
)

// Profile generates a trapezoidal speed profile for one axis. Units are mm or
// degrees depending on the axis it drives.
type Profile struct {
	state        ProfileState
	speed        float32
	position     float32
	sign         float32
	acceleration float32
	oneOverAcc   float32
	targetSpeed  float32
	finalSpeed   float32
	finalPos     float32
	dt           float32
}

func newProfile(dt float32) Profile {
	return Profile{sign: 1, oneOverAcc: 1, dt: dt}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Reset returns the profile to idle at rest.
func (p *Profile) Reset() {
	p.position = 0
	p.speed = 0
	p.targetSpeed = 0
	p.state = ProfileIdle
}

// Start begins a move of distance, cruising at topSpeed and ending at
// finalSpeed. Negative distances move backwards.
func (p *Profile) Start(distance, topSpeed, finalSpeed, acceleration float32) {
	p.sign = 1
	if distance < 0 {
		p.sign = -1
		distance = -distance
	}
	if distance < minProfileDistance {
		p.state = ProfileFinished
		return
	}
	if finalSpeed > topSpeed {
		finalSpeed = topSpeed
	}
	p.position = 0
	p.finalPos = distance
	p.targetSpeed = p.sign * abs32(topSpeed)
	p.finalSpeed = p.sign * abs32(finalSpeed)
	p.acceleration = abs32(acceleration)
	p.oneOverAcc = 1
	if p.acceleration >= 1 {
		p.oneOverAcc = 1 / p.acceleration
	}
	p.state = ProfileAccelerating
}

// Stop ends the move immediately at zero speed.
func (p *Profile) Stop() {
	p.targetSpeed = 0
	p.Finish()
}

// Finish ends the move immediately at the current target speed.
func (p *Profile) Finish() {
	p.speed = p.targetSpeed
	p.state = ProfileFinished
}

func (p *Profile) brakingDistance() float32 {
	return abs32(p.speed*p.speed-p.finalSpeed*p.finalSpeed) * 0.5 * p.oneOverAcc
}

// Update advances the profile by one tick.
func (p *Profile) Update() {
	if p.state == ProfileIdle {
		return
	}
	dv := p.acceleration * p.dt
	remaining := abs32(p.finalPos) - abs32(p.position)
	if p.state == ProfileAccelerating && remaining < p.brakingDistance() {
		p.state = ProfileBraking
		if p.finalSpeed == 0 {
			p.targetSpeed = p.sign * creepSpeed
		} else {
			p.targetSpeed = p.finalSpeed
		}
	}
	if p.speed < p.targetSpeed {
		p.speed += dv
		if p.speed > p.targetSpeed {
			p.speed = p.targetSpeed
		}
	}
	if p.speed > p.targetSpeed {
		p.speed -= dv
		if p.speed < p.targetSpeed {
			p.speed = p.targetSpeed
		}
	}
	p.position += p.speed * p.dt
	if p.state != ProfileFinished && remaining < arrivalWindow {
		p.state = ProfileFinished
		p.targetSpeed = p.finalSpeed
	}
}

func (p *Profile) State() ProfileState { return p.state }
func (p *Profile) Speed() float32      { return p.speed }
func (p *Profile) Position() float32   { return p.position }
func (p *Profile) Running() bool {
	return p.state == ProfileAccelerating || p.state == ProfileBraking
}
