package core

import "testing"

func runProfile(p *Profile, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		if p.State() == ProfileFinished {
			return i
		}
		p.Update()
	}
	return maxTicks
}

func TestProfileReachesDistance(t *testing.T) {
	tests := []struct {
		name     string
		distance float32
	}{
		{"forward", 180},
		{"backward", -180},
		{"short", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProfile(0.002)
			p.Start(tt.distance, 500, 0, 2000)
			if p.State() != ProfileAccelerating {
				t.Fatalf("Expected accelerating, got %v", p.State())
			}
			ticks := runProfile(&p, 5000)
			if ticks == 5000 {
				t.Fatalf("Profile never finished, at %v", p.Position())
			}
			// the arrival window is reached while still slowing, so the
			// speed only settles on the ticks after the move finishes
			if abs32(p.Speed()) > 25 {
				t.Errorf("Expected to arrive slowly, got speed %v", p.Speed())
			}
			settle := 0
			for ; p.Speed() != 0 && settle < 100; settle++ {
				p.Update()
			}
			if p.Speed() != 0 || p.State() != ProfileFinished {
				t.Errorf("Expected to settle at rest, got speed %v in %v", p.Speed(), p.State())
			}
			if settle > 10 {
				t.Errorf("Expected to settle within 10 ticks, took %d", settle)
			}
			if !near(abs32(p.Position()), abs32(tt.distance), 1) {
				t.Errorf("Expected to stop near %v, got %v", tt.distance, p.Position())
			}
		})
	}
}

func TestProfileRespectsTopSpeed(t *testing.T) {
	p := newProfile(0.002)
	p.Start(1000, 300, 0, 1000)
	var peak float32
	for p.State() != ProfileFinished {
		p.Update()
		if p.Speed() > peak {
			peak = p.Speed()
		}
	}
	if peak != 300 {
		t.Errorf("Expected peak speed 300, got %v", peak)
	}
}

func TestProfileTinyMoveFinishesImmediately(t *testing.T) {
	p := newProfile(0.002)
	p.Start(0.5, 300, 0, 1000)
	if p.State() != ProfileFinished {
		t.Errorf("Expected finished, got %v", p.State())
	}
}

func TestProfileStopAndFinish(t *testing.T) {
	p := newProfile(0.002)
	p.Start(500, 300, 0, 1000)
	for i := 0; i < 50; i++ {
		p.Update()
	}
	p.Finish()
	if p.Speed() != 300 || p.State() != ProfileFinished {
		t.Errorf("Expected finish at target speed, got %v %v", p.Speed(), p.State())
	}
	p.Stop()
	if p.Speed() != 0 {
		t.Errorf("Expected stop to zero the speed, got %v", p.Speed())
	}
	p.Reset()
	if p.State() != ProfileIdle || p.Position() != 0 {
		t.Errorf("Expected idle after reset")
	}
}

func TestDecodeSwitch(t *testing.T) {
	tests := []struct {
		raw       ADCValue
		fullScale float32
		want      int
	}{
		{1000, 1024, SwitchPressed},
		{801, 1024, SwitchPressed},
		{660, 1024, 0},
		{647, 1024, 1},
		{400, 1024, 10},
		{44, 1024, 15},
		{0, 1024, 15},
		{4000, 4096, SwitchPressed},
		{2640, 4096, 0},
	}
	for _, tt := range tests {
		if got := DecodeSwitch(tt.raw, tt.fullScale); got != tt.want {
			t.Errorf("DecodeSwitch(%d, %v): expected %d, got %d", tt.raw, tt.fullScale, tt.want, got)
		}
	}
}
