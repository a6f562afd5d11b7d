package core

import (
	"strings"
	"testing"
)

func TestTimingRingWraps(t *testing.T) {
	ClearTimingRing()
	for i := 0; i < TimingRingSize+5; i++ {
		RecordTiming(EvtTick, 0, uint32(i), 0, 0)
	}
	events := TimingEvents()
	if len(events) != TimingRingSize {
		t.Fatalf("Expected %d events, got %d", TimingRingSize, len(events))
	}
	if events[0].Clock != 5 {
		t.Errorf("Expected oldest clock 5, got %d", events[0].Clock)
	}
	if events[len(events)-1].Clock != TimingRingSize+4 {
		t.Errorf("Expected newest clock %d, got %d", TimingRingSize+4, events[len(events)-1].Clock)
	}
	ClearTimingRing()
	if len(TimingEvents()) != 0 {
		t.Errorf("Expected empty ring after clear")
	}
}

func TestDumpTimingRing(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})

	ClearTimingRing()
	RecordTiming(EvtTickOverrun, 2, 1000, 2500, 2000)
	DumpTimingRing()
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %v", len(lines), lines)
	}
	want := "[TIMING] OVERRUN! src=2 clock=1000 v1=2500 v2=2000"
	if lines[1] != want {
		t.Errorf("Expected %q, got %q", want, lines[1])
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	var out strings.Builder
	SetDebugWriter(func(s string) { out.WriteString(s) })
	defer SetDebugWriter(func(string) {})

	SetDebugEnabled(false)
	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")
	SetDebugEnabled(false)
	if out.String() != "shown" {
		t.Errorf("Expected only enabled output, got %q", out.String())
	}
}

func TestItoa(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"}, {7, "7"}, {-7, "-7"}, {1234567890, "1234567890"}, {-2147483647, "-2147483647"},
	}
	for _, tt := range tests {
		if got := itoa(tt.n); got != tt.want {
			t.Errorf("itoa(%d): expected %q, got %q", tt.n, tt.want, got)
		}
	}
	if got := utoa(4294967295); got != "4294967295" {
		t.Errorf("Expected 4294967295, got %q", got)
	}
}
