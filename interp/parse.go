package interp

// maxDigits limits how many digits contribute to a number; further digits
// are consumed but ignored.
const maxDigits = 8

func at(line []byte, i int) byte {
	if i < len(line) {
		return line[i]
	}
	return 0
}

// readUint scans decimal digits starting at line[i].
func readUint(line []byte, i int) (value int32, next int, ok bool) {
	digits := 0
	for ; i < len(line) && line[i] >= '0' && line[i] <= '9'; i++ {
		if digits < maxDigits {
			value = value*10 + int32(line[i]-'0')
		}
		digits++
	}
	return value, i, digits > 0
}

// readInt is readUint with an optional leading minus.
func readInt(line []byte, i int) (int32, int, bool) {
	neg := at(line, i) == '-'
	if neg {
		i++
	}
	v, next, ok := readUint(line, i)
	if neg {
		v = -v
	}
	return v, next, ok
}

// readFloat scans [-]digits[.digits]. Exponents are not supported.
func readFloat(line []byte, i int) (float32, int, bool) {
	neg := at(line, i) == '-'
	if neg {
		i++
	}
	whole, next, okWhole := readUint(line, i)
	v := float32(whole)
	okFrac := false
	if at(line, next) == '.' {
		next++
		scale := float32(0.1)
		for ; next < len(line) && line[next] >= '0' && line[next] <= '9'; next++ {
			v += float32(line[next]-'0') * scale
			scale *= 0.1
			okFrac = true
		}
	}
	if neg {
		v = -v
	}
	return v, next, okWhole || okFrac
}
