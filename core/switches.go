package core

// SwitchPressed is the decoded value while the user button is held.
const SwitchPressed = 16

// switchLevels are the ladder readings for each DIP switch code, on a
// 1024-count scale.
var switchLevels = [...]int32{660, 647, 630, 614, 590, 570, 545, 522, 461, 429, 385, 343, 271, 212, 128, 44, 0}

// DecodeSwitch maps a raw function switch reading onto the switch code 0..15,
// or SwitchPressed when the button pulls the input high. fullScale is the ADC
// range the reading was taken with.
func DecodeSwitch(raw ADCValue, fullScale float32) int {
	v := int32(float32(raw) * 1024 / fullScale)
	if v > 800 {
		return SwitchPressed
	}
	for i := 0; i < len(switchLevels)-1; i++ {
		if v > (switchLevels[i]+switchLevels[i+1])/2 {
			return i
		}
	}
	return 15
}
