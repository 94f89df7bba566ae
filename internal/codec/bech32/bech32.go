// Package bech32 implements the Bech32 checksummed encoding used for segwit addresses.
package bech32

import (
	"errors"
	"fmt"
	"strings"
)

const (
	charset     = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	separator   = '1'
	checksumLen = 6
	maxLength   = 90
)

var generator = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

var (
	// ErrInvalidFormat is returned for a missing separator, empty hrp or bad length.
	ErrInvalidFormat = errors.New("bech32: invalid format")
	// ErrInvalidCharacter is returned for symbols outside the charset.
	ErrInvalidCharacter = errors.New("bech32: invalid character")
	// ErrInvalidChecksum is returned when the polymod check fails.
	ErrInvalidChecksum = errors.New("bech32: invalid checksum")
	// ErrInvalidPadding is returned when bit regrouping leaves non-zero or excess bits.
	ErrInvalidPadding = errors.New("bech32: invalid padding")
	// ErrInvalidWitnessVersion is returned for witness versions above 16.
	ErrInvalidWitnessVersion = errors.New("bech32: invalid witness version")
)

var charsetRev = func() [128]int8 {
	var t [128]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(charset); i++ {
		t[charset[i]] = int8(i)
	}
	return t
}()

func polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>i)&1 == 1 {
				chk ^= generator[i]
			}
		}
	}
	return chk
}

// hrpExpand returns the high bits of each hrp character, a zero, then the low five bits.
func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func createChecksum(hrp string, data []byte) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, make([]byte, checksumLen)...)
	mod := polymod(values) ^ 1
	out := make([]byte, checksumLen)
	for i := range out {
		out[i] = byte(mod>>(5*(5-i))) & 31
	}
	return out
}

func verifyChecksum(hrp string, data []byte) bool {
	return polymod(append(hrpExpand(hrp), data...)) == 1
}

// Encode renders hrp and 5-bit data with a trailing six symbol checksum.
func Encode(hrp string, data []byte) (string, error) {
	if hrp == "" {
		return "", fmt.Errorf("%w: empty hrp", ErrInvalidFormat)
	}
	hrp = strings.ToLower(hrp)
	var sb strings.Builder
	sb.Grow(len(hrp) + 1 + len(data) + checksumLen)
	sb.WriteString(hrp)
	sb.WriteByte(separator)
	for _, d := range data {
		if d > 31 {
			return "", fmt.Errorf("%w: value %d is not 5-bit", ErrInvalidCharacter, d)
		}
		sb.WriteByte(charset[d])
	}
	for _, d := range createChecksum(hrp, data) {
		sb.WriteByte(charset[d])
	}
	return sb.String(), nil
}

// Decode parses a Bech32 string and returns its hrp and 5-bit data without the checksum.
func Decode(s string) (string, []byte, error) {
	if len(s) > maxLength {
		return "", nil, fmt.Errorf("%w: length %d exceeds %d", ErrInvalidFormat, len(s), maxLength)
	}
	s = strings.ToLower(s)

	sep := strings.LastIndexByte(s, separator)
	if sep < 1 {
		return "", nil, fmt.Errorf("%w: missing separator or empty hrp", ErrInvalidFormat)
	}
	if len(s)-sep-1 < checksumLen {
		return "", nil, fmt.Errorf("%w: data part shorter than checksum", ErrInvalidFormat)
	}

	hrp := s[:sep]
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return "", nil, fmt.Errorf("%w: hrp byte 0x%02x", ErrInvalidCharacter, hrp[i])
		}
	}

	data := make([]byte, 0, len(s)-sep-1)
	for i := sep + 1; i < len(s); i++ {
		c := s[i]
		if c >= 128 || charsetRev[c] < 0 {
			return "", nil, fmt.Errorf("%w %q at position %d", ErrInvalidCharacter, c, i)
		}
		data = append(data, byte(charsetRev[c]))
	}

	if !verifyChecksum(hrp, data) {
		return "", nil, ErrInvalidChecksum
	}
	return hrp, data[:len(data)-checksumLen], nil
}

// ConvertBits regroups data from fromBits-wide to toBits-wide values, most
// significant bit first. With pad set a trailing partial group is zero-filled;
// without it leftover bits must be fewer than fromBits and all zero.
func ConvertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var (
		acc  uint32
		bits uint
	)
	maxv := uint32(1)<<toBits - 1
	out := make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	for _, v := range data {
		if uint32(v)>>fromBits != 0 {
			return nil, fmt.Errorf("%w: value %d exceeds %d bits", ErrInvalidPadding, v, fromBits)
		}
		acc = acc<<fromBits | uint32(v)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits&maxv))
		}
	}

	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits)&maxv))
		}
	} else if bits >= fromBits || acc<<(toBits-bits)&maxv != 0 {
		return nil, ErrInvalidPadding
	}
	return out, nil
}

// EncodeSegWit encodes a witness version and program as a segwit address.
func EncodeSegWit(hrp string, version byte, program []byte) (string, error) {
	if version > 16 {
		return "", fmt.Errorf("%w: %d", ErrInvalidWitnessVersion, version)
	}
	conv, err := ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	return Encode(hrp, append([]byte{version}, conv...))
}

// DecodeSegWit decodes a segwit address into hrp, witness version and program.
func DecodeSegWit(s string) (hrp string, version byte, program []byte, err error) {
	hrp, data, err := Decode(s)
	if err != nil {
		return "", 0, nil, err
	}
	if len(data) == 0 {
		return "", 0, nil, fmt.Errorf("%w: missing witness version", ErrInvalidFormat)
	}
	version = data[0]
	if version > 16 {
		return "", 0, nil, fmt.Errorf("%w: %d", ErrInvalidWitnessVersion, version)
	}
	program, err = ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return "", 0, nil, err
	}
	return hrp, version, program, nil
}
