// Package telemetry bridges the robot's line protocol to an MQTT broker:
// state is polled over the link and published as JSON, and command lines
// arriving on the command topic are forwarded to the robot.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"mousebot/host/link"
)

// Broker is the part of a message broker the bridge needs.
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(payload []byte)) error
}

// Robot is the part of link.Client the bridge needs.
type Robot interface {
	Pose(ctx context.Context) (link.Pose, error)
	Speeds(ctx context.Context) (velocity, omega float64, err error)
	Battery(ctx context.Context) (float64, error)
	Sensors(ctx context.Context) ([]int, error)
	Diagnostics(ctx context.Context) (link.Diagnostics, error)
	Command(ctx context.Context, cmd string) ([]string, error)
}

var _ Robot = (*link.Client)(nil)

// State is one published sample.
type State struct {
	Time        time.Time        `json:"time"`
	Pose        link.Pose        `json:"pose"`
	Velocity    float64          `json:"velocity"`
	Omega       float64          `json:"omega"`
	Battery     float64          `json:"battery"`
	Sensors     []int            `json:"sensors"`
	Diagnostics link.Diagnostics `json:"diagnostics"`
}

// Reply is published for every forwarded command.
type Reply struct {
	Command string   `json:"command"`
	Lines   []string `json:"lines,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Bridge polls a robot and publishes what it reads.
type Bridge struct {
	robot  Robot
	broker Broker
	prefix string

	// Interval between state samples.
	Interval time.Duration
	// Timeout bounds each exchange with the robot.
	Timeout time.Duration

	now      func() time.Time
	commands chan []byte
}

// commandQueue bounds command lines waiting for the robot; more are dropped.
const commandQueue = 16

// NewBridge creates a bridge publishing under prefix, e.g. "mousebot/m1".
func NewBridge(robot Robot, broker Broker, prefix string) *Bridge {
	return &Bridge{
		robot:    robot,
		broker:   broker,
		prefix:   strings.TrimSuffix(prefix, "/"),
		Interval: 200 * time.Millisecond,
		Timeout:  time.Second,
		now:      time.Now,
		commands: make(chan []byte, commandQueue),
	}
}

// StateTopic is where samples are published.
func (b *Bridge) StateTopic() string { return b.prefix + "/state" }

// CommandTopic is where command lines are accepted.
func (b *Bridge) CommandTopic() string { return b.prefix + "/cmd" }

// ReplyTopic is where command results are published.
func (b *Bridge) ReplyTopic() string { return b.prefix + "/reply" }

// Sample reads one State from the robot.
func (b *Bridge) Sample(ctx context.Context) (State, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	s := State{Time: b.now()}
	var err error
	if s.Pose, err = b.robot.Pose(ctx); err != nil {
		return s, fmt.Errorf("telemetry: pose: %w", err)
	}
	if s.Velocity, s.Omega, err = b.robot.Speeds(ctx); err != nil {
		return s, fmt.Errorf("telemetry: speeds: %w", err)
	}
	if s.Battery, err = b.robot.Battery(ctx); err != nil {
		return s, fmt.Errorf("telemetry: battery: %w", err)
	}
	if s.Sensors, err = b.robot.Sensors(ctx); err != nil {
		return s, fmt.Errorf("telemetry: sensors: %w", err)
	}
	if s.Diagnostics, err = b.robot.Diagnostics(ctx); err != nil {
		return s, fmt.Errorf("telemetry: diagnostics: %w", err)
	}
	return s, nil
}

// PublishOnce samples the robot and publishes the result.
func (b *Bridge) PublishOnce(ctx context.Context) error {
	s, err := b.Sample(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("telemetry: encode: %w", err)
	}
	if err := b.broker.Publish(b.StateTopic(), payload); err != nil {
		return fmt.Errorf("telemetry: publish: %w", err)
	}
	return nil
}

func (b *Bridge) handleCommand(ctx context.Context, payload []byte) {
	cmd := strings.TrimSpace(string(payload))
	if cmd == "" {
		return
	}
	glog.V(1).Infof("forwarding %q", cmd)
	cctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	r := Reply{Command: cmd}
	lines, err := b.robot.Command(cctx, cmd)
	r.Lines = lines
	if err != nil {
		r.Error = err.Error()
		glog.Warningf("command %q: %v", cmd, err)
	}
	out, err := json.Marshal(r)
	if err != nil {
		glog.Errorf("encode reply: %v", err)
		return
	}
	if err := b.broker.Publish(b.ReplyTopic(), out); err != nil {
		glog.Warningf("publish reply: %v", err)
	}
}

// enqueue hands a command line to the worker. It runs on the broker's
// delivery goroutine, so it never waits.
func (b *Bridge) enqueue(payload []byte) {
	select {
	case b.commands <- append([]byte(nil), payload...):
	default:
		glog.Warningf("command queue full, dropping %q", payload)
	}
}

// forward runs queued commands against the robot, in arrival order.
func (b *Bridge) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-b.commands:
			b.handleCommand(ctx, payload)
		}
	}
}

// Run subscribes to the command topic and publishes samples until ctx is
// done. Failed samples are logged and skipped. Commands are forwarded on
// their own goroutine so a slow sample never holds them up.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.broker.Subscribe(b.CommandTopic(), b.enqueue); err != nil {
		return fmt.Errorf("telemetry: subscribe %s: %w", b.CommandTopic(), err)
	}
	glog.Infof("publishing to %s every %v", b.StateTopic(), b.Interval)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.forward(ctx)
	}()
	defer wg.Wait()

	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.PublishOnce(ctx); err != nil {
				glog.Warningf("%v", err)
			}
		}
	}
}
