package interp

import (
	"strconv"
	"strings"

	"mousebot/core"
)

// dispatch selects the command by its first character.
func (in *Interpreter) dispatch(line []byte) error {
	if len(line) == 0 {
		return nil
	}
	switch line[0] {
	case '?', 'h':
		return in.ok()
	case 'v':
		in.println(Version)
	case '^':
		in.reset()
	case 'x':
		in.robot.StopAll()
	case 'z':
		in.robot.ResetOdometry()
	case 'e':
		return in.printEncoders(at(line, 1))
	case 'C':
		return in.encoderTotals(line)
	case 'r':
		in.printEncoderSetup()
	case 'b':
		in.printBattery(at(line, 1))
	case 'S':
		return in.printSensors(at(line, 1))
	case 's':
		in.println(strconv.Itoa(in.robot.FunctionSwitch()))
	case 'A':
		return in.analogue(line)
	case 'I':
		in.printDiagnostics()
	case '*':
		return in.flag(line, in.robot.SetEmitterEnabled)
	case 'E':
		return in.flag(line, func(on bool) { in.echo = on })
	case 'V':
		v, _, ok := readUint(line, 1)
		if !ok || v > int32(TextVerbose) {
			return ErrOutOfRange
		}
		in.verbosity = Verbosity(v)
	case 'M':
		return in.motorPWM(line)
	case 'N':
		return in.motorVolts(line)
	case 'T':
		return in.targetSpeed(line)
	case 'G':
		return in.startProfile(line)
	case 'g':
		fwd, rot := in.robot.ProfileStates()
		in.println(fwd.String() + "," + rot.String())
	case '$':
		return in.settingsCommand(line)
	case '=':
		return in.echoNumber(line)
	default:
		return ErrUnknownCommand
	}
	return nil
}

func (in *Interpreter) reset() {
	in.robot.StopAll()
	in.println("RST")
	in.verbosity = TextVerbose
	in.echo = true
}

func (in *Interpreter) flag(line []byte, set func(bool)) error {
	v, _, ok := readUint(line, 1)
	if !ok || v > 1 {
		return ErrOutOfRange
	}
	set(v == 1)
	return nil
}

func itoa64(v int64) string {
	return strconv.FormatInt(v, 10)
}

// hex prints v as a 32-bit two's complement value, the way the serial
// monitor tools expect it.
func hex(v int64) string {
	return strings.ToUpper(strconv.FormatUint(uint64(uint32(v)), 16))
}

func (in *Interpreter) printEncoders(sel byte) error {
	l, r := in.robot.LeftTotal(), in.robot.RightTotal()
	o := in.robot.Odometry()
	rate := float32(in.robot.Config().LoopFrequency)
	switch sel {
	case 0, 'a':
		in.println(itoa64(r+l) + "," + formatFloat(o.Position, 2) + "," +
			itoa64(r-l) + "," + formatFloat(o.Heading, 2))
	case 'r':
		in.println(itoa64(r+l) + "," + itoa64(r-l))
	case 'u':
		in.println(formatFloat(o.Position, 2) + "," + formatFloat(o.Heading, 2))
	case 's':
		in.println(formatFloat(o.FwdIncrement*rate, 2) + "," + formatFloat(o.RotIncrement*rate, 2))
	case 'f':
		in.println(formatFloat(o.Velocity, 2) + "," + formatFloat(o.Omega, 2))
	default:
		return ErrUnexpectedToken
	}
	return nil
}

func (in *Interpreter) encoderTotals(line []byte) error {
	motor, next, ok := readUint(line, 1)
	if ok {
		if motor != 1 && motor != 2 {
			return ErrOutOfRange
		}
		l, r := in.robot.LeftTotal(), in.robot.RightTotal()
		if at(line, next) == '=' {
			v, _, ok := readInt(line, next+1)
			if !ok {
				return ErrOutOfRange
			}
			if motor == 1 {
				l = int64(v)
			} else {
				r = int64(v)
			}
			in.robot.SetTotals(l, r)
			return nil
		}
		if motor == 1 {
			in.println(itoa64(l))
		} else {
			in.println(itoa64(r))
		}
		return nil
	}

	format := itoa64
	zero := false
	switch sel := at(line, 1); {
	case sel == 'h':
		format = hex
		zero = at(line, 2) == 'z'
	case sel == 0:
	case sel == 'z':
		zero = true
	default:
		return ErrOutOfRange
	}
	l, r := in.robot.LeftTotal(), in.robot.RightTotal()
	if zero {
		in.robot.SetTotals(0, 0)
	}
	in.println(format(l) + "," + format(r))
	return nil
}

func (in *Interpreter) printEncoderSetup() {
	cfg := in.robot.Config()
	mm := cfg.MMPerCountLeft()
	in.println(formatFloat(mm, 5) + "," + formatFloat(mm*cfg.DegPerMMDifference(), 5))
}

func (in *Interpreter) printBattery(sel byte) {
	v := in.robot.BatteryVolts()
	mv := int64(v * 1000)
	switch sel {
	case 'i':
		in.println(itoa64(mv))
	case 'h':
		in.println(hex(mv))
	default:
		in.println(formatFloat(v, 3))
	}
}

func hex2(v int32) string {
	if v < 0 {
		v = 0
	} else if v > 0xFF {
		v = 0xFF
	}
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[v>>4], digits[v&0xF]})
}

func (in *Interpreter) printSensors(mode byte) error {
	pairs := in.robot.SensorPairs()
	var b strings.Builder
	switch mode {
	case 0:
		for i, p := range pairs {
			if i > 0 {
				b.WriteByte(',')
			}
			d := int32(p.Lit) - int32(p.Dark)
			if d < 0 {
				d = 0
			}
			b.WriteString(strconv.Itoa(int(d)))
		}
	case 'h':
		for _, p := range pairs {
			b.WriteString(hex2(int32(p.Lit) - int32(p.Dark)))
		}
	case 'r':
		for _, p := range pairs {
			b.WriteString(strconv.Itoa(int(p.Dark)))
			b.WriteByte(',')
		}
		b.WriteString("  ")
		for i, p := range pairs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(p.Lit)))
		}
	default:
		return ErrUnexpectedToken
	}
	in.println(b.String())
	return nil
}

// analogue prints a raw reading by slot: the sensors' dark samples, then the
// function switch, then the battery.
func (in *Interpreter) analogue(line []byte) error {
	slot, next, ok := readUint(line, 1)
	if !ok {
		return ErrOutOfRange
	}
	if at(line, next) == '=' {
		return ErrUnexpectedToken
	}
	var v core.ADCValue
	switch {
	case slot < core.SensorCount:
		v = in.robot.SensorPairs()[slot].Dark
	case slot == core.SensorCount:
		v = in.robot.SwitchRaw()
	case slot == core.SensorCount+1:
		v = in.robot.BatteryRaw()
	default:
		return ErrOutOfRange
	}
	in.println(strconv.Itoa(int(v)))
	return nil
}

func (in *Interpreter) printDiagnostics() {
	s := in.robot.Stats()
	l, r := in.robot.InvalidTransitions()
	in.println(strconv.FormatUint(uint64(s.Ticks), 10) + "," +
		strconv.FormatUint(uint64(s.Overruns), 10) + "," +
		strconv.FormatUint(uint64(s.MaxUS), 10) + "," +
		strconv.FormatUint(uint64(l), 10) + "," +
		strconv.FormatUint(uint64(r), 10) + "," +
		strconv.FormatUint(uint64(in.robot.ScanRestarts()), 10))
}

func (in *Interpreter) motorPWM(line []byte) error {
	motor, next, ok := readUint(line, 1)
	if !ok || (motor != 1 && motor != 2) {
		return ErrOutOfRange
	}
	if at(line, next) != '=' {
		return ErrReadNotSupported
	}
	pwm, _, ok := readInt(line, next+1)
	if !ok {
		return ErrOutOfRange
	}
	side := core.MotorLeft
	if motor == 2 {
		side = core.MotorRight
	}
	in.robot.SetMotorPWM(side, pwm)
	return nil
}

func (in *Interpreter) motorVolts(line []byte) error {
	left, next, ok := readFloat(line, 1)
	if !ok || at(line, next) != ',' {
		return ErrUnexpectedToken
	}
	right, _, ok := readFloat(line, next+1)
	if !ok {
		return ErrUnexpectedToken
	}
	in.robot.SetMotorVolts(left, right)
	return nil
}

// targetSpeed handles "Tf", "Tf,r" and "T,r". Speeds are mm/s and deg/s.
// Move profile limits used by G. The command returns at once; g reports
// progress.
const (
	moveSpeed = 300  // mm/s
	moveAccel = 1000 // mm/s/s
	turnSpeed = 180  // deg/s
	turnAccel = 720  // deg/s/s
)

// startProfile handles G<mm> (forward move) and G,<deg> (turn in place).
func (in *Interpreter) startProfile(line []byte) error {
	if at(line, 1) == ',' {
		angle, _, ok := readFloat(line, 2)
		if !ok {
			return ErrUnexpectedToken
		}
		in.robot.StartTurn(angle, turnSpeed, 0, turnAccel)
		return nil
	}
	distance, _, ok := readFloat(line, 1)
	if !ok {
		return ErrUnexpectedToken
	}
	in.robot.StartMove(distance, moveSpeed, 0, moveAccel)
	return nil
}

func (in *Interpreter) targetSpeed(line []byte) error {
	if at(line, 1) == ',' {
		rot, _, ok := readFloat(line, 2)
		if !ok {
			return ErrUnexpectedToken
		}
		in.robot.SetRotationSetpoint(rot)
	} else {
		fwd, next, ok := readFloat(line, 1)
		if !ok {
			return ErrUnexpectedToken
		}
		in.robot.SetForwardSetpoint(fwd)
		if at(line, next) == ',' {
			rot, _, ok := readFloat(line, next+1)
			if !ok {
				return ErrUnexpectedToken
			}
			in.robot.SetRotationSetpoint(rot)
		}
	}
	in.robot.EnableControllers()
	return nil
}

func (in *Interpreter) echoNumber(line []byte) error {
	switch at(line, 1) {
	case 'F':
		v, _, _ := readFloat(line, 2)
		in.println(formatFloat(v, 3))
	case 'U':
		v, _, ok := readUint(line, 2)
		if !ok {
			return ErrOutOfRange
		}
		in.println(strconv.Itoa(int(v)))
	case 'S':
		v, _, _ := readInt(line, 2)
		in.println(strconv.Itoa(int(v)))
	case '*':
		in.println(string(line))
	default:
		v, _, _ := readFloat(line, 1)
		in.println(formatFloat(v, 3))
	}
	return nil
}
