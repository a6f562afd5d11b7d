package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mousebot/core"
)

func TestDefaultMatchesCore(t *testing.T) {
	c, err := Default().Core()
	require.NoError(t, err)
	require.Equal(t, core.DefaultConfig(), c)
}

func TestParseOverlaysDefaults(t *testing.T) {
	f, err := Parse([]byte(`
name: racer
geometry:
  wheel_diameter: 34
  rotation_bias: 0.01
rotation:
  kp: 0.5
feedforward:
  enabled: false
emitter_enabled: false
sim:
  battery_volts: 7.4
host:
  device: /dev/ttyACM0
  poll_interval: 1s
`))
	require.NoError(t, err)

	c, err := f.Core()
	require.NoError(t, err)
	require.Equal(t, float32(34), c.WheelDiameter)
	require.Equal(t, float32(0.01), c.RotationBias)
	require.Equal(t, float32(19.5), c.GearRatio)
	require.Equal(t, core.Gains{KP: 0.5}, c.Rotation)
	require.Equal(t, core.DefaultConfig().Forward, c.Forward)
	require.False(t, c.FeedforwardEnabled)
	require.False(t, c.EmitterEnabled)
	require.Equal(t, uint32(500), c.LoopFrequency)

	require.Equal(t, 7.4, f.SimParams().BatteryVolts)
	require.Equal(t, "/dev/ttyACM0", f.Host.Device)
	require.Equal(t, time.Second, f.Host.PollInterval)
	require.Equal(t, 115200, f.Host.Baud)
	require.Equal(t, "mousebot/racer", f.Host.TopicPrefix)
}

func TestParseRejectsBadRobot(t *testing.T) {
	_, err := Parse([]byte("polarity:\n  motor_left: 3\n"))
	require.Error(t, err)
	require.True(t, errors.Is(err, core.ErrBadPolarity))

	_, err = Parse([]byte("geometry:\n  gear_ratio: -2\n"))
	require.True(t, errors.Is(err, core.ErrBadGeometry))
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("wheel_diameter: 30\n"))
	require.Error(t, err)
}

func TestLoadAndMarshal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "robot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: test\nloop_frequency: 1000\n"), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint32(1000), f.LoopFrequency)

	out, err := Marshal(f)
	require.NoError(t, err)
	again, err := Parse(out)
	require.NoError(t, err)
	require.Equal(t, f, again)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}
