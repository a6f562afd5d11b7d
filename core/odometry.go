package core

// OdometryState is a snapshot of the dead-reckoning estimate.
type OdometryState struct {
	Position     float32 // mm
	Heading      float32 // degrees
	FwdIncrement float32 // mm in the last tick
	RotIncrement float32 // degrees in the last tick
	Velocity     float32 // mm/s, filtered
	Omega        float32 // deg/s, filtered
	LeftDelta    int32   // counts in the last tick
	RightDelta   int32
}

// velocitySmoothing is the weight of the newest sample in the velocity filter.
const velocitySmoothing = 0.5

// Odometry integrates wheel counts into position, heading and speed.
type Odometry struct {
	mmPerCountLeft  float32
	mmPerCountRight float32
	degPerMMDiff    float32
	tickRate        float32

	state OdometryState
}

func newOdometry(cfg *Config) Odometry {
	return Odometry{
		mmPerCountLeft:  cfg.MMPerCountLeft(),
		mmPerCountRight: cfg.MMPerCountRight(),
		degPerMMDiff:    cfg.DegPerMMDifference(),
		tickRate:        float32(cfg.LoopFrequency),
	}
}

// update advances the estimate by one tick's worth of counts. Tick context only.
func (o *Odometry) update(left, right int32) {
	s := o.state
	l := float32(left) * o.mmPerCountLeft
	r := float32(right) * o.mmPerCountRight
	s.LeftDelta = left
	s.RightDelta = right
	s.FwdIncrement = 0.5 * (r + l)
	s.RotIncrement = (r - l) * o.degPerMMDiff
	s.Position += s.FwdIncrement
	s.Heading += s.RotIncrement
	s.Velocity += velocitySmoothing * (s.FwdIncrement*o.tickRate - s.Velocity)
	s.Omega += velocitySmoothing * (s.RotIncrement*o.tickRate - s.Omega)

	state := lockInterrupts()
	o.state = s
	unlockInterrupts(state)
}

func (o *Odometry) reset() {
	o.state = OdometryState{}
}
