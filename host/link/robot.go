package link

import (
	"context"
	"strconv"
)

// Pose is the robot's odometry as reported by "ea".
type Pose struct {
	CountSum  int64   `json:"count_sum"`
	Position  float64 `json:"position"`
	CountDiff int64   `json:"count_diff"`
	Heading   float64 `json:"heading"`
}

// Pose reads encoder totals and the integrated position and heading.
func (c *Client) Pose(ctx context.Context) (Pose, error) {
	v, err := c.floats(ctx, "ea", 4)
	if err != nil {
		return Pose{}, err
	}
	return Pose{
		CountSum:  int64(v[0]),
		Position:  v[1],
		CountDiff: int64(v[2]),
		Heading:   v[3],
	}, nil
}

// Speeds reads the filtered forward (mm/s) and angular (deg/s) velocity.
func (c *Client) Speeds(ctx context.Context) (velocity, omega float64, err error) {
	v, err := c.floats(ctx, "ef", 2)
	if err != nil {
		return 0, 0, err
	}
	return v[0], v[1], nil
}

// Battery reads the battery voltage.
func (c *Client) Battery(ctx context.Context) (float64, error) {
	v, err := c.floats(ctx, "b", 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// Sensors reads the dark-subtracted sensor readings.
func (c *Client) Sensors(ctx context.Context) ([]int, error) {
	v, err := c.floats(ctx, "S", 6)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(v))
	for i := range v {
		out[i] = int(v[i])
	}
	return out, nil
}

// Switch reads the function switch, 16 when the button is pressed.
func (c *Client) Switch(ctx context.Context) (int, error) {
	v, err := c.floats(ctx, "s", 1)
	if err != nil {
		return 0, err
	}
	return int(v[0]), nil
}

// Diagnostics is the robot's tick accounting as reported by "I".
type Diagnostics struct {
	Ticks        uint64 `json:"ticks"`
	Overruns     uint64 `json:"overruns"`
	MaxTickUS    uint64 `json:"max_tick_us"`
	InvalidLeft  uint64 `json:"invalid_left"`
	InvalidRight uint64 `json:"invalid_right"`
	ScanRestarts uint64 `json:"scan_restarts"`
}

// Diagnostics reads tick, decoder and sensor scan counters.
func (c *Client) Diagnostics(ctx context.Context) (Diagnostics, error) {
	v, err := c.floats(ctx, "I", 6)
	if err != nil {
		return Diagnostics{}, err
	}
	return Diagnostics{
		Ticks:        uint64(v[0]),
		Overruns:     uint64(v[1]),
		MaxTickUS:    uint64(v[2]),
		InvalidLeft:  uint64(v[3]),
		InvalidRight: uint64(v[4]),
		ScanRestarts: uint64(v[5]),
	}, nil
}

func formatSpeed(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 32)
}

// SetSpeed enables the controllers with the given forward (mm/s) and
// rotation (deg/s) setpoints.
func (c *Client) SetSpeed(ctx context.Context, forward, rotation float64) error {
	cmd := "T" + formatSpeed(forward) + "," + formatSpeed(rotation)
	if len(cmd) <= maxLine {
		_, err := c.Command(ctx, cmd)
		return err
	}
	if _, err := c.Command(ctx, "T"+formatSpeed(forward)); err != nil {
		return err
	}
	_, err := c.Command(ctx, "T,"+formatSpeed(rotation))
	return err
}

// Stop disables the controllers and motors.
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.Command(ctx, "x")
	return err
}

// Version reads the firmware version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.Query(ctx, "v")
}
