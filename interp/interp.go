// Package interp implements the robot's single-character serial command
// language. One command per line; the first character selects the command and
// the rest of the line carries its arguments.
package interp

import (
	"io"
	"strconv"

	"mousebot/core"
)

// Version is reported by the 'v' command.
const Version = "v1.4"

// MaxInputSize bounds a command line, terminator included.
const MaxInputSize = 14

// Control characters with editing meaning.
const (
	ctrlC     = 0x03
	backspace = 0x08
	ctrlX     = 0x18
)

// Verbosity selects how results are reported.
type Verbosity uint8

const (
	// NumericErrors reports every error as "@Error:<code>" and success silently.
	NumericErrors Verbosity = iota
	// TextErrors reports errors as text and success silently.
	TextErrors
	// TextVerbose also acknowledges every successful command with "OK".
	TextVerbose
)

// Robot is the part of the control core the interpreter drives.
type Robot interface {
	Config() core.Config
	Stats() core.TickStats
	InvalidTransitions() (left, right uint32)
	ScanRestarts() uint32

	Odometry() core.OdometryState
	LeftTotal() int64
	RightTotal() int64
	SetTotals(left, right int64)
	ResetOdometry()

	SensorPairs() [core.SensorCount]core.SensorPair
	BatteryVolts() float32
	BatteryRaw() core.ADCValue
	SwitchRaw() core.ADCValue
	FunctionSwitch() int
	EmitterEnabled() bool
	SetEmitterEnabled(on bool)

	SetForwardSetpoint(v float32)
	SetRotationSetpoint(v float32)
	EnableControllers()
	StopAll()
	Gains(axis core.Axis) core.Gains
	SetGains(axis core.Axis, g core.Gains)
	Feedforward() (enabled bool, k float32)
	SetFeedforward(enabled bool, k float32)

	SetMotorVolts(left, right float32)
	SetMotorPWM(side core.MotorSide, pwm int32)

	StartMove(distance, topSpeed, finalSpeed, acceleration float32)
	StartTurn(angle, topSpeed, finalSpeed, acceleration float32)
	ProfileStates() (fwd, rot core.ProfileState)
}

var _ Robot = (*core.ControlCore)(nil)

// Interpreter assembles bytes into lines and executes them against a Robot.
// It runs in the main context and is not safe for concurrent use.
type Interpreter struct {
	robot     Robot
	out       io.Writer
	defaults  core.Config
	line      [MaxInputSize]byte
	n         int
	echo      bool
	verbosity Verbosity
	lastNL    byte
}

// New returns an interpreter writing its responses to out. Settings restored
// with "$#" come from the robot's configuration at this point.
func New(robot Robot, out io.Writer) *Interpreter {
	return &Interpreter{
		robot:     robot,
		out:       out,
		defaults:  robot.Config(),
		echo:      true,
		verbosity: TextVerbose,
	}
}

// Echo reports whether input characters are echoed.
func (in *Interpreter) Echo() bool { return in.echo }

// Verbosity returns the current reporting mode.
func (in *Interpreter) Verbosity() Verbosity { return in.verbosity }

func (in *Interpreter) print(s string) {
	io.WriteString(in.out, s)
}

func (in *Interpreter) println(s string) {
	io.WriteString(in.out, s+"\r\n")
}

func formatFloat(v float32, dp int) string {
	return strconv.FormatFloat(float64(v), 'f', dp, 32)
}

// Feed processes one input byte. It returns true when the byte completed a
// line that was executed.
func (in *Interpreter) Feed(c byte) bool {
	switch {
	case c > ' ':
		if in.echo {
			in.out.Write([]byte{c})
		}
		in.line[in.n] = c
		in.n++
		if in.n == MaxInputSize {
			in.report(ErrLineTooLong, nil)
			in.n = 0
		}
	case c == '\n' || c == '\r':
		executed := false
		if in.n > 0 {
			if in.echo {
				in.println("")
			}
			line := in.line[:in.n]
			in.n = 0
			in.Execute(line)
			executed = true
		} else if in.lastNL == 0 || c == in.lastNL {
			// a bare line ending acknowledges; the second half of CRLF or
			// LFCR does not
			if in.echo {
				in.println("")
			}
			in.ok()
		} else {
			c = 0
		}
		in.lastNL = c
		return executed
	case c == ctrlX || c == ctrlC:
		if c == ctrlX {
			in.robot.StopAll()
		}
		in.n = 0
		in.println("")
	case c == backspace && in.n > 0:
		in.n--
		in.print("\x08 \x08")
	}
	return false
}

// Write feeds every byte of p, so an Interpreter can sit behind an io.Writer.
func (in *Interpreter) Write(p []byte) (int, error) {
	for _, c := range p {
		in.Feed(c)
	}
	return len(p), nil
}

// Execute runs one complete command line and reports the result. The returned
// error is the one reported, or nil on success.
func (in *Interpreter) Execute(line []byte) error {
	err := in.dispatch(line)
	in.report(err, line)
	if err == errSilent {
		return nil
	}
	return err
}

// ok acknowledges in the current verbosity.
func (in *Interpreter) ok() error {
	if in.verbosity == NumericErrors {
		in.println("@Error:0")
	} else {
		in.println("OK")
	}
	return errSilent
}

func (in *Interpreter) report(err error, line []byte) {
	if err == errSilent || (err == nil && in.verbosity < TextVerbose) {
		return
	}
	if err == nil {
		in.ok()
		return
	}
	e, ok := err.(*Error)
	if !ok {
		e = &Error{Code: -2, Text: err.Error()}
	}
	if in.verbosity == NumericErrors {
		in.println("@Error:" + strconv.Itoa(int(e.Code)))
		return
	}
	text := e.Text
	if e == ErrUnknownCommand {
		text += " " + string(line)
	}
	in.println("@Error:" + text)
}
