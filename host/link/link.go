// Package link talks to the robot's line protocol from the host side.
package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// lineQueue bounds reply lines waiting for a command to collect them.
const lineQueue = 32

// maxLine mirrors the robot's input buffer; longer lines are rejected there.
const maxLine = 13

var (
	// ErrClosed is returned once the underlying stream has ended.
	ErrClosed = errors.New("link: connection closed")

	// ErrLineTooLong is returned for commands the robot could not buffer.
	ErrLineTooLong = errors.New("link: command too long")
)

// RemoteError is an error reported by the robot.
type RemoteError struct {
	Command string
	Text    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("link: %s: robot error %s", e.Command, e.Text)
}

// Client issues commands and collects their replies. It is safe for
// concurrent use; commands are serialized.
type Client struct {
	w       io.Writer
	lines   chan string
	dropped atomic.Uint64

	mu sync.Mutex

	errMu sync.Mutex
	err   error
}

// NewClient starts reading replies from rw.
func NewClient(rw io.ReadWriter) *Client {
	c := &Client{
		w:     rw,
		lines: make(chan string, lineQueue),
	}
	go c.readLoop(rw)
	return c
}

func (c *Client) readLoop(r io.Reader) {
	br := bufio.NewReader(r)
	var partial string
	for {
		chunk, err := br.ReadString('\n')
		partial += chunk
		if err == io.ErrNoProgress {
			// a serial read timeout surfaces as empty reads; the rest of the
			// line is still to come
			continue
		}
		if line := strings.TrimRight(partial, "\r\n"); line != "" {
			c.push(line)
		}
		partial = ""
		if err != nil {
			c.errMu.Lock()
			if err == io.EOF {
				err = ErrClosed
			}
			c.err = err
			c.errMu.Unlock()
			close(c.lines)
			return
		}
	}
}

// push queues a line, dropping the oldest queued line when nobody is
// collecting them, so unsolicited output never stalls the reader.
func (c *Client) push(line string) {
	for {
		select {
		case c.lines <- line:
			return
		default:
		}
		select {
		case <-c.lines:
			c.dropped.Add(1)
		default:
		}
	}
}

// Dropped returns how many reply lines were discarded because the queue was
// full.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

func (c *Client) readErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		return ErrClosed
	}
	return c.err
}

// Init puts the robot in the mode the client expects: any partial line
// discarded, text errors with acknowledgements, and echo off.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write([]byte{0x03}); err != nil {
		return fmt.Errorf("link: write: %w", err)
	}
	for _, cmd := range []string{"V2", "E0"} {
		if _, err := c.command(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// Command sends one command line and returns the lines printed before the
// acknowledgement.
func (c *Client) Command(ctx context.Context, cmd string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.command(ctx, cmd)
}

func (c *Client) command(ctx context.Context, cmd string) ([]string, error) {
	if len(cmd) > maxLine {
		return nil, fmt.Errorf("%w: %q", ErrLineTooLong, cmd)
	}
	c.discard()
	if _, err := io.WriteString(c.w, cmd+"\n"); err != nil {
		return nil, fmt.Errorf("link: write %s: %w", cmd, err)
	}
	var out []string
	for {
		select {
		case <-ctx.Done():
			return out, fmt.Errorf("link: %s: %w", cmd, ctx.Err())
		case line, ok := <-c.lines:
			if !ok {
				return out, c.readErr()
			}
			switch {
			case line == "OK" || line == "@Error:0":
				return out, nil
			case strings.HasPrefix(line, "@Error:"):
				return out, &RemoteError{Command: cmd, Text: strings.TrimPrefix(line, "@Error:")}
			case line == cmd:
				// echo left on by an earlier session
			default:
				out = append(out, line)
			}
		}
	}
}

// discard drops unsolicited lines left over from earlier traffic.
func (c *Client) discard() {
	for {
		select {
		case _, ok := <-c.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Query sends a command that prints exactly one line.
func (c *Client) Query(ctx context.Context, cmd string) (string, error) {
	lines, err := c.Command(ctx, cmd)
	if err != nil {
		return "", err
	}
	if len(lines) != 1 {
		return "", fmt.Errorf("link: %s: expected one line, got %d", cmd, len(lines))
	}
	return lines[0], nil
}

func (c *Client) floats(ctx context.Context, cmd string, n int) ([]float64, error) {
	line, err := c.Query(ctx, cmd)
	if err != nil {
		return nil, err
	}
	fields := strings.Split(line, ",")
	if len(fields) != n {
		return nil, fmt.Errorf("link: %s: expected %d fields in %q", cmd, n, line)
	}
	vals := make([]float64, n)
	for i, f := range fields {
		if vals[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
			return nil, fmt.Errorf("link: %s: %w", cmd, err)
		}
	}
	return vals, nil
}
