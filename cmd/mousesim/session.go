package main

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"mousebot/config"
	"mousebot/core"
	"mousebot/interp"
	"mousebot/protocol"
	"mousebot/sim"
)

// rxBufferSize matches the firmware's USB receive buffer.
const rxBufferSize = 256

// session runs the control core and interpreter against the simulator on a
// single goroutine. Input arrives through a FIFO filled by a reader
// goroutine, the same way the firmware receives USB bytes.
type session struct {
	robot *sim.Robot
	core  *core.ControlCore
	in    *interp.Interpreter
	rx    *protocol.FifoBuffer
}

type runOptions struct {
	// Realtime paces simulated time to the wall clock.
	Realtime bool
	// Duration stops the run after this much simulated time; zero runs
	// until input ends.
	Duration time.Duration
}

func newSession(f *config.File, out io.Writer) (*session, error) {
	cfg, err := f.Core()
	if err != nil {
		return nil, err
	}
	robot := sim.New(cfg, f.SimParams())
	c, err := core.NewControlCore(cfg, robot.Hardware())
	if err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		return nil, err
	}
	return &session{
		robot: robot,
		core:  c,
		in:    interp.New(c, out),
		rx:    protocol.NewFifoBuffer(rxBufferSize),
	}, nil
}

// pump copies r into the receive FIFO, waiting for room when it is full.
func (s *session) pump(r io.Reader, done chan<- error) {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for data := buf[:n]; len(data) > 0; {
			w := s.rx.Write(data)
			data = data[w:]
			if len(data) > 0 {
				time.Sleep(time.Millisecond)
			}
		}
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			done <- err
			return
		}
	}
}

func (s *session) feed(c byte) { s.in.Feed(c) }

func (s *session) run(ctx context.Context, r io.Reader, opts runOptions) error {
	done := make(chan error, 1)
	go s.pump(r, done)

	eof := false
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			if err != nil {
				return err
			}
			eof = true
		default:
		}

		s.robot.Step()
		s.rx.Drain(s.feed)

		now := s.robot.Now()
		if opts.Duration > 0 {
			if now >= opts.Duration {
				return nil
			}
		} else if eof && s.rx.IsEmpty() {
			glog.V(1).Infof("input ended at %v simulated", now)
			return nil
		}
		if opts.Realtime {
			if ahead := now - time.Since(start); ahead > 0 {
				time.Sleep(ahead)
			}
		}
	}
}
