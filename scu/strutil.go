package scu

// utoa converts an unsigned integer to a string without the fmt package
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// hz formats a frequency as whole hertz
func hz(f float32) string {
	if f <= 0 {
		return "0 Hz"
	}
	return utoa(uint32(f)) + " Hz"
}
