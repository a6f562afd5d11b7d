package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mousebot/host/link"
)

type message struct {
	topic   string
	payload []byte
}

type fakeBroker struct {
	mu       sync.Mutex
	sent     []message
	handlers map[string]func([]byte)
	fail     error
}

func (f *fakeBroker) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, message{topic, payload})
	return nil
}

func (f *fakeBroker) Subscribe(topic string, handler func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = map[string]func([]byte){}
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeBroker) deliver(topic string, payload string) {
	f.mu.Lock()
	h := f.handlers[topic]
	f.mu.Unlock()
	h([]byte(payload))
}

func (f *fakeBroker) messages() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message(nil), f.sent...)
}

type fakeRobot struct {
	mu       sync.Mutex
	commands []string
	battery  error

	// when set, Battery signals sampling and waits for gate to close
	sampling chan struct{}
	gate     chan struct{}
}

func (r *fakeRobot) Pose(context.Context) (link.Pose, error) {
	return link.Pose{CountSum: 40, Position: 17.45, CountDiff: -2, Heading: 1.5}, nil
}

func (r *fakeRobot) Speeds(context.Context) (float64, float64, error) { return 200, -3, nil }

func (r *fakeRobot) Battery(context.Context) (float64, error) {
	if r.gate != nil {
		select {
		case r.sampling <- struct{}{}:
		default:
		}
		<-r.gate
	}
	if r.battery != nil {
		return 0, r.battery
	}
	return 7.9, nil
}

func (r *fakeRobot) Sensors(context.Context) ([]int, error) { return []int{1, 2, 3, 4, 5, 6}, nil }

func (r *fakeRobot) Diagnostics(context.Context) (link.Diagnostics, error) {
	return link.Diagnostics{Ticks: 500, MaxTickUS: 120}, nil
}

func (r *fakeRobot) Command(_ context.Context, cmd string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	if cmd == "k" {
		return nil, &link.RemoteError{Command: cmd, Text: "Unknown k"}
	}
	return []string{"v1.4"}, nil
}

func newBridge(robot Robot, broker Broker) *Bridge {
	b := NewBridge(robot, broker, "mousebot/m1/")
	b.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return b
}

func TestTopics(t *testing.T) {
	b := newBridge(&fakeRobot{}, &fakeBroker{})
	require.Equal(t, "mousebot/m1/state", b.StateTopic())
	require.Equal(t, "mousebot/m1/cmd", b.CommandTopic())
	require.Equal(t, "mousebot/m1/reply", b.ReplyTopic())
}

func TestPublishOnce(t *testing.T) {
	broker := &fakeBroker{}
	b := newBridge(&fakeRobot{}, broker)
	require.NoError(t, b.PublishOnce(context.Background()))

	msgs := broker.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "mousebot/m1/state", msgs[0].topic)

	var s State
	require.NoError(t, json.Unmarshal(msgs[0].payload, &s))
	require.Equal(t, 17.45, s.Pose.Position)
	require.Equal(t, 200.0, s.Velocity)
	require.Equal(t, 7.9, s.Battery)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, s.Sensors)
	require.Equal(t, uint64(500), s.Diagnostics.Ticks)
	require.True(t, s.Time.Equal(time.Unix(1700000000, 0)))
}

func TestSampleErrorsAreWrapped(t *testing.T) {
	flat := errors.New("no reply")
	broker := &fakeBroker{}
	b := newBridge(&fakeRobot{battery: flat}, broker)
	err := b.PublishOnce(context.Background())
	require.ErrorIs(t, err, flat)
	require.Contains(t, err.Error(), "battery")
	require.Empty(t, broker.messages())
}

func TestPublishFailure(t *testing.T) {
	down := errors.New("broker down")
	b := newBridge(&fakeRobot{}, &fakeBroker{fail: down})
	require.ErrorIs(t, b.PublishOnce(context.Background()), down)
}

func TestCommandsAreForwarded(t *testing.T) {
	broker := &fakeBroker{}
	robot := &fakeRobot{}
	b := newBridge(robot, broker)
	b.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		broker.mu.Lock()
		defer broker.mu.Unlock()
		return broker.handlers["mousebot/m1/cmd"] != nil
	}, time.Second, time.Millisecond)

	broker.deliver("mousebot/m1/cmd", " v\n")
	broker.deliver("mousebot/m1/cmd", "k")
	broker.deliver("mousebot/m1/cmd", "  ")
	require.Eventually(t, func() bool { return len(broker.messages()) == 2 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	require.Equal(t, []string{"v", "k"}, robot.commands)
	require.Len(t, broker.messages(), 2)
	msgs := broker.messages()
	require.Len(t, msgs, 2)

	var ok, bad Reply
	require.NoError(t, json.Unmarshal(msgs[0].payload, &ok))
	require.Equal(t, Reply{Command: "v", Lines: []string{"v1.4"}}, ok)
	require.NoError(t, json.Unmarshal(msgs[1].payload, &bad))
	require.Equal(t, "k", bad.Command)
	require.Contains(t, bad.Error, "Unknown k")
}

func TestCommandsDoNotWaitForSamples(t *testing.T) {
	broker := &fakeBroker{}
	robot := &fakeRobot{sampling: make(chan struct{}, 1), gate: make(chan struct{})}
	b := newBridge(robot, broker)
	b.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case <-robot.sampling:
	case <-time.After(time.Second):
		t.Fatal("sample never started")
	}

	delivered := make(chan struct{})
	go func() {
		broker.deliver("mousebot/m1/cmd", "v")
		close(delivered)
	}()
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("delivery blocked behind the sample")
	}

	require.Eventually(t, func() bool {
		for _, m := range broker.messages() {
			if m.topic == "mousebot/m1/reply" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	close(robot.gate)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestCommandQueueOverflowDrops(t *testing.T) {
	b := newBridge(&fakeRobot{}, &fakeBroker{})
	for i := 0; i < commandQueue+5; i++ {
		b.enqueue([]byte("v"))
	}
	require.Len(t, b.commands, commandQueue)
}
