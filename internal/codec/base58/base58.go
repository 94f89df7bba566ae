// Package base58 implements the Base58 and Base58Check text encodings.
package base58

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/goodnatureofminers/axewallet/internal/hash"
)

const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const checksumLen = 4

var (
	// ErrInvalidCharacter is returned when input contains a symbol outside the alphabet.
	ErrInvalidCharacter = errors.New("base58: invalid character")
	// ErrInvalidChecksum is returned when the trailing checksum does not match.
	ErrInvalidChecksum = errors.New("base58: invalid checksum")
	// ErrInvalidFormat is returned when a Base58Check string is too short to hold a version and checksum.
	ErrInvalidFormat = errors.New("base58: invalid format")
)

var decodeTable = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = int8(i)
	}
	return t
}()

// Encode converts bytes into Base58 text. Every leading zero byte becomes a leading '1'.
func Encode(input []byte) string {
	zeros := 0
	for zeros < len(input) && input[zeros] == 0 {
		zeros++
	}

	// little-endian base-58 digits
	digits := make([]byte, 0, len(input)*138/100+1)
	for _, b := range input[zeros:] {
		carry := int(b)
		for j := range digits {
			carry += int(digits[j]) << 8
			digits[j] = byte(carry % 58)
			carry /= 58
		}
		for carry > 0 {
			digits = append(digits, byte(carry%58))
			carry /= 58
		}
	}

	out := make([]byte, zeros+len(digits))
	for i := 0; i < zeros; i++ {
		out[i] = alphabet[0]
	}
	for i, d := range digits {
		out[len(out)-1-i] = alphabet[d]
	}
	return string(out)
}

// Decode converts Base58 text into bytes.
func Decode(s string) ([]byte, error) {
	zeros := 0
	for zeros < len(s) && s[zeros] == alphabet[0] {
		zeros++
	}

	// little-endian base-256 digits
	bytesLE := make([]byte, 0, len(s)*733/1000+1)
	for i := zeros; i < len(s); i++ {
		v := decodeTable[s[i]]
		if v < 0 {
			return nil, fmt.Errorf("%w %q at position %d", ErrInvalidCharacter, s[i], i)
		}
		carry := int(v)
		for j := range bytesLE {
			carry += int(bytesLE[j]) * 58
			bytesLE[j] = byte(carry)
			carry >>= 8
		}
		for carry > 0 {
			bytesLE = append(bytesLE, byte(carry))
			carry >>= 8
		}
	}

	out := make([]byte, zeros+len(bytesLE))
	for i, b := range bytesLE {
		out[len(out)-1-i] = b
	}
	return out, nil
}

// CheckEncode prepends version and appends the first four bytes of hash256(version || payload).
func CheckEncode(version byte, payload []byte) string {
	data := make([]byte, 0, 1+len(payload)+checksumLen)
	data = append(data, version)
	data = append(data, payload...)
	sum := hash.Hash256(data)
	data = append(data, sum[:checksumLen]...)
	return Encode(data)
}

// CheckDecode reverses CheckEncode and verifies the checksum.
func CheckDecode(s string) (version byte, payload []byte, err error) {
	data, err := Decode(s)
	if err != nil {
		return 0, nil, err
	}
	if len(data) < 1+checksumLen {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrInvalidFormat, len(data))
	}

	body := data[:len(data)-checksumLen]
	sum := hash.Hash256(body)
	if subtle.ConstantTimeCompare(sum[:checksumLen], data[len(data)-checksumLen:]) != 1 {
		return 0, nil, ErrInvalidChecksum
	}
	return body[0], body[1:], nil
}
