// Command mousesim runs the robot firmware core and command interpreter
// against a simulated robot, with the serial console on stdin and stdout.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/golang/glog"

	"mousebot/config"
	"mousebot/core"
)

var (
	configPath = flag.String("config", "", "Robot description (YAML)")
	realtime   = flag.Bool("realtime", true, "Pace simulated time to the wall clock")
	duration   = flag.Duration("duration", 0, "Stop after this much simulated time (0 = until input ends)")
	dumpConfig = flag.Bool("dump-config", false, "Print the effective robot description and exit")
	debug      = flag.Bool("debug", false, "Print core debug output and the timing ring on exit")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	f := config.Default()
	if *configPath != "" {
		var err error
		if f, err = config.Load(*configPath); err != nil {
			glog.Exitf("%v", err)
		}
	}
	if *dumpConfig {
		out, err := config.Marshal(f)
		if err != nil {
			glog.Exitf("%v", err)
		}
		os.Stdout.Write(out)
		return
	}

	if *debug {
		core.SetDebugWriter(func(s string) { os.Stderr.WriteString(s + "\n") })
		core.SetDebugEnabled(true)
		defer core.DumpTimingRing()
	}

	s, err := newSession(f, os.Stdout)
	if err != nil {
		glog.Exitf("%v", err)
	}
	glog.Infof("simulating %s at %d Hz", f.Name, f.LoopFrequency)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	err = s.run(ctx, os.Stdin, runOptions{Realtime: *realtime, Duration: *duration})
	st := s.core.Stats()
	glog.Infof("ran %v simulated in %v: %d ticks, %d overruns, max tick %d us",
		s.robot.Now(), time.Since(start).Round(time.Millisecond), st.Ticks, st.Overruns, st.MaxUS)
	if err != nil && err != context.Canceled {
		glog.Errorf("%v", err)
	}
}
