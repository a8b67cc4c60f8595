package wire

// AppendInt appends v in Klipper VLQ encoding: 7 bits per byte, most
// significant group first, bit 7 set on every byte but the last. The first
// byte is sign-extended on decode, so small negative numbers stay short.
func AppendInt(dst []byte, v int32) []byte {
	if !(-(1<<26) <= v && v < (3<<26)) {
		dst = append(dst, byte((v>>28)&0x7F)|0x80)
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		dst = append(dst, byte((v>>21)&0x7F)|0x80)
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		dst = append(dst, byte((v>>14)&0x7F)|0x80)
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		dst = append(dst, byte((v>>7)&0x7F)|0x80)
	}
	return append(dst, byte(v&0x7F))
}

// AppendUint appends an unsigned value; it shares the signed encoding
func AppendUint(dst []byte, v uint32) []byte {
	return AppendInt(dst, int32(v))
}

// AppendString appends a length-prefixed string
func AppendString(dst []byte, s string) []byte {
	dst = AppendUint(dst, uint32(len(s)))
	return append(dst, s...)
}

// DecodeInt decodes one VLQ value and advances data past it
func DecodeInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrShortBuffer
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	for c&0x80 != 0 {
		if len(*data) == 0 {
			return 0, ErrShortBuffer
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = v<<7 | c&0x7F
	}
	return int32(v), nil
}

// DecodeUint decodes one VLQ value as unsigned
func DecodeUint(data *[]byte) (uint32, error) {
	v, err := DecodeInt(data)
	return uint32(v), err
}

// DecodeString decodes a length-prefixed string
func DecodeString(data *[]byte) (string, error) {
	n, err := DecodeUint(data)
	if err != nil {
		return "", err
	}
	if uint32(len(*data)) < n {
		return "", ErrShortBuffer
	}
	s := string((*data)[:n])
	*data = (*data)[n:]
	return s, nil
}
