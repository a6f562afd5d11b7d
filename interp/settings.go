package interp

import (
	"strconv"

	"mousebot/core"
)

// Setting indexes the tunable parameters reachable with '$'. Values live in
// RAM only and are lost at reset.
type Setting uint8

const (
	SettingFwdKP Setting = iota
	SettingFwdKI
	SettingFwdKD
	SettingRotKP
	SettingRotKI
	SettingRotKD
	SettingSpeedFF
	SettingFeedforward
	SettingEmitter
	settingCount
)

var settingNames = [settingCount]string{
	"fwdKP", "fwdKI", "fwdKD",
	"rotKP", "rotKI", "rotKD",
	"speedFF", "ffEnabled", "emitter",
}

func (s Setting) String() string {
	if s < settingCount {
		return settingNames[s]
	}
	return "unknown"
}

func (s Setting) isBool() bool {
	return s == SettingFeedforward || s == SettingEmitter
}

func b2f(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func (in *Interpreter) settingValue(s Setting) float32 {
	fwd := in.robot.Gains(core.AxisForward)
	rot := in.robot.Gains(core.AxisRotation)
	ffOn, ff := in.robot.Feedforward()
	switch s {
	case SettingFwdKP:
		return fwd.KP
	case SettingFwdKI:
		return fwd.KI
	case SettingFwdKD:
		return fwd.KD
	case SettingRotKP:
		return rot.KP
	case SettingRotKI:
		return rot.KI
	case SettingRotKD:
		return rot.KD
	case SettingSpeedFF:
		return ff
	case SettingFeedforward:
		return b2f(ffOn)
	case SettingEmitter:
		return b2f(in.robot.EmitterEnabled())
	}
	return 0
}

func (in *Interpreter) writeSetting(s Setting, v float32) {
	switch s {
	case SettingFwdKP, SettingFwdKI, SettingFwdKD:
		g := in.robot.Gains(core.AxisForward)
		setGain(&g, s-SettingFwdKP, v)
		in.robot.SetGains(core.AxisForward, g)
	case SettingRotKP, SettingRotKI, SettingRotKD:
		g := in.robot.Gains(core.AxisRotation)
		setGain(&g, s-SettingRotKP, v)
		in.robot.SetGains(core.AxisRotation, g)
	case SettingSpeedFF:
		on, _ := in.robot.Feedforward()
		in.robot.SetFeedforward(on, v)
	case SettingFeedforward:
		_, k := in.robot.Feedforward()
		in.robot.SetFeedforward(v != 0, k)
	case SettingEmitter:
		in.robot.SetEmitterEnabled(v != 0)
	}
}

func setGain(g *core.Gains, term Setting, v float32) {
	switch term {
	case 0:
		g.KP = v
	case 1:
		g.KI = v
	case 2:
		g.KD = v
	}
}

// restoreDefaults puts every setting back to its configured value.
func (in *Interpreter) restoreDefaults() {
	d := in.defaults
	in.robot.SetGains(core.AxisForward, d.Forward)
	in.robot.SetGains(core.AxisRotation, d.Rotation)
	in.robot.SetFeedforward(d.FeedforwardEnabled, d.SpeedFF)
	in.robot.SetEmitterEnabled(d.EmitterEnabled)
}

func (in *Interpreter) formatSetting(s Setting) string {
	v := in.settingValue(s)
	if s.isBool() {
		return strconv.Itoa(int(v))
	}
	return formatFloat(v, 3)
}

func (in *Interpreter) printSetting(s Setting) {
	in.println("$" + strconv.Itoa(int(s)) + "=" + in.formatSetting(s))
}

// settingsCommand handles "$$" dump, "$?" detail, "$#" defaults, "$n" read
// and "$n=v" write.
func (in *Interpreter) settingsCommand(line []byte) error {
	if len(line) == 1 {
		return nil
	}
	if len(line) == 2 {
		switch line[1] {
		case '$':
			in.println("")
			for s := Setting(0); s < settingCount; s++ {
				in.printSetting(s)
			}
			return nil
		case '?':
			in.println("")
			for s := Setting(0); s < settingCount; s++ {
				kind := "float"
				if s.isBool() {
					kind = "bool"
				}
				in.println(kind + " " + s.String() + " = " + in.formatSetting(s) + ";")
			}
			return nil
		case '#':
			in.restoreDefaults()
			return nil
		}
	}
	idx, next, ok := readInt(line, 1)
	if !ok {
		return ErrUnexpectedToken
	}
	if idx < 0 || idx >= int32(settingCount) {
		return ErrOutOfRange
	}
	s := Setting(idx)
	if at(line, next) != '=' {
		in.printSetting(s)
		return nil
	}
	v, _, ok := readFloat(line, next+1)
	if !ok {
		return ErrOutOfRange
	}
	in.writeSetting(s, v)
	return nil
}
