package core

import (
	"math"
	"testing"
)

func TestVoltsToPWM(t *testing.T) {
	tests := []struct {
		name    string
		volts   float32
		battery float32
		want    int32
	}{
		{"zero", 0, 8, 0},
		{"half", 4, 8, 127},
		{"negative", -4, 8, -127},
		{"clamped to max volts", 20, 6, 255},
		{"clamped negative", -20, 6, -255},
		{"duty limit", 6, 5, 255},
		{"flat battery", 3, 0, 0},
		{"below floor", 3, 0.5, 0},
		{"negative battery", 3, -8, 0},
		{"nan battery", 3, float32(math.NaN()), 0},
		{"nan volts", float32(math.NaN()), 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VoltsToPWM(tt.volts, tt.battery, 6, 1); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestMotorPolarityAndDirection(t *testing.T) {
	r := newTestRig(t, DefaultConfig())
	r.powerUp(8)
	pins := r.core.Config().Pins

	r.core.SetMotorVolts(4, 4)
	left, right := r.core.MotorOutputs()
	// right motor is wired reversed
	if left.Reverse || !right.Reverse {
		t.Errorf("Expected left forward and right reversed, got %+v %+v", left, right)
	}
	if r.pwm.duty[pins.MotorLeftPWM] != left.Duty || r.pwm.duty[pins.MotorRightPWM] != right.Duty {
		t.Errorf("Expected duties written to hardware")
	}
	if r.gpio.levels[pins.MotorRightDir] != true || r.gpio.levels[pins.MotorLeftDir] != false {
		t.Errorf("Expected direction pins L=low R=high")
	}
	if left.Duty < 125 || left.Duty > 128 {
		t.Errorf("Expected duty near 127, got %d", left.Duty)
	}
}

func TestMotorVoltsClampedToLimit(t *testing.T) {
	r := newTestRig(t, DefaultConfig())
	r.powerUp(8)
	r.core.SetMotorVolts(100, -100)
	l, rv := r.core.MotorVolts()
	if l != 6 || rv != -6 {
		t.Errorf("Expected volts clamped to ±6, got %v %v", l, rv)
	}
}

func TestOpenLoopDisablesControllers(t *testing.T) {
	r := newTestRig(t, DefaultConfig())
	r.powerUp(8)
	r.core.EnableControllers()
	r.core.SetMotorPWM(MotorLeft, -100)
	if r.core.ControllersEnabled() {
		t.Errorf("Expected open-loop command to disable the controllers")
	}
	left, _ := r.core.MotorOutputs()
	if left.Duty != 100 || !left.Reverse {
		t.Errorf("Expected left duty 100 reversed, got %+v", left)
	}
	r.tick()
	if left2, _ := r.core.MotorOutputs(); left2 != left {
		t.Errorf("Expected open-loop output to persist across ticks, got %+v", left2)
	}
}

func TestDisableWritesZero(t *testing.T) {
	r := newTestRig(t, DefaultConfig())
	r.powerUp(8)
	r.core.SetForwardSetpoint(500)
	r.core.EnableControllers()
	r.tick()
	r.tick()
	pins := r.core.Config().Pins
	if r.pwm.duty[pins.MotorLeftPWM] == 0 {
		t.Fatalf("Expected the controller to drive the motors")
	}
	r.core.DisableControllers()
	if r.pwm.duty[pins.MotorLeftPWM] != 0 || r.pwm.duty[pins.MotorRightPWM] != 0 {
		t.Errorf("Expected zero duty after disable")
	}
	fwd, rot := r.core.ControllerOutputs()
	if fwd != 0 || rot != 0 {
		t.Errorf("Expected zero controller outputs, got %v %v", fwd, rot)
	}
	integral := r.core.motor.Forward.Integral()
	r.core.DisableControllers()
	if r.core.motor.Forward.Integral() != integral {
		t.Errorf("Expected second disable to leave the integral alone")
	}
}

func TestFeedforwardMix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Forward = Gains{}
	cfg.Rotation = Gains{}
	cfg.SpeedFF = 0.01
	r := newTestRig(t, cfg)
	r.powerUp(8)
	r.core.SetForwardSetpoint(100)
	r.core.SetRotationSetpoint(90)
	r.core.EnableControllers()
	r.tick()

	rotFF := float32(90) * (cfg.WheelSeparation / 2) * math.Pi / 180 * 0.01
	l, rv := r.core.MotorVolts()
	if !near(l, 1-rotFF, 1e-4) || !near(rv, 1+rotFF, 1e-4) {
		t.Errorf("Expected %v/%v, got %v/%v", 1-rotFF, 1+rotFF, l, rv)
	}

	r.core.SetFeedforward(false, 0.01)
	r.tick()
	l, rv = r.core.MotorVolts()
	if l != 0 || rv != 0 {
		t.Errorf("Expected zero drive with feedforward off and zero gains, got %v %v", l, rv)
	}
}

func TestZeroBatteryGivesZeroDuty(t *testing.T) {
	r := newTestRig(t, DefaultConfig())
	r.core.SetForwardSetpoint(300)
	r.core.EnableControllers()
	r.tick()
	r.tick()
	left, right := r.core.MotorOutputs()
	if left.Duty != 0 || right.Duty != 0 {
		t.Errorf("Expected zero duty with no battery, got %+v %+v", left, right)
	}
	events := TimingEvents()
	found := false
	for _, e := range events {
		if e.EventType == EvtLowBattery {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a low battery event in the timing ring")
	}
}
