// Package codec implements L85, a lexicographically-sortable base-85
// byte encoding: the ordering of encoded strings matches the ordering
// of the underlying bytes, which is what lets executor/keys.go build
// scannable key prefixes out of numeric ids.
package codec

import (
	"errors"
	"fmt"
)

// L85Alphabet lists the 85 encoding characters in ascending byte order,
// so that encoding preserves big-endian byte comparison.
const L85Alphabet = "!$%&()+,-./" +
	"0123456789:;<=>@" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ[]_`" +
	"abcdefghijklmnopqrstuvwxyz{}"

var (
	l85Decode [256]byte

	// ErrInvalidCharacter indicates an invalid character in input.
	ErrInvalidCharacter = errors.New("invalid L85 character")
)

func init() {
	for i, c := range L85Alphabet {
		l85Decode[byte(c)] = byte(i + 1)
	}
}

// EncodeL85 encodes bytes to L85 format.
func EncodeL85(src []byte) string {
	if len(src) == 0 {
		return ""
	}

	result := make([]byte, 0, len(src)*5/4+5)

	for i := 0; i+4 <= len(src); i += 4 {
		v := uint32(src[i])<<24 | uint32(src[i+1])<<16 |
			uint32(src[i+2])<<8 | uint32(src[i+3])

		chars := [5]byte{}
		for j := 4; j >= 0; j-- {
			chars[j] = L85Alphabet[v%85]
			v /= 85
		}
		result = append(result, chars[:]...)
	}

	remainder := len(src) % 4
	if remainder > 0 {
		padded := [4]byte{}
		copy(padded[:], src[len(src)-remainder:])

		v := uint32(padded[0])<<24 | uint32(padded[1])<<16 |
			uint32(padded[2])<<8 | uint32(padded[3])

		chars := [5]byte{}
		for j := 4; j >= 0; j-- {
			chars[j] = L85Alphabet[v%85]
			v /= 85
		}

		result = append(result, chars[:remainder+1]...)
	}

	return string(result)
}

// DecodeL85 decodes L85 format back to bytes.
func DecodeL85(src string) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}

	for i, c := range src {
		if c >= 256 || l85Decode[byte(c)] == 0 {
			return nil, fmt.Errorf("%w at position %d: %c", ErrInvalidCharacter, i, c)
		}
	}

	result := make([]byte, 0, len(src)*4/5+4)

	for i := 0; i+5 <= len(src); i += 5 {
		v := uint32(0)
		for j := 0; j < 5; j++ {
			v = v*85 + uint32(l85Decode[src[i+j]]-1)
		}
		result = append(result,
			byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}

	remainder := len(src) % 5
	if remainder > 0 {
		numBytes := remainder - 1
		if numBytes <= 0 {
			return nil, errors.New("invalid L85 encoding: incomplete group")
		}

		padded := src[len(src)-remainder:]
		for len(padded) < 5 {
			padded += string(L85Alphabet[0])
		}

		v := uint32(0)
		for j := 0; j < 5; j++ {
			v = v*85 + uint32(l85Decode[padded[j]]-1)
		}

		bytes := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		result = append(result, bytes[:numBytes]...)
	}

	return result, nil
}

// EncodeFixed4 encodes a 4-byte array to exactly 5 characters, the
// width this namespace's TypeID keys are built from.
func EncodeFixed4(src [4]byte) string {
	return EncodeL85(src[:])
}

// DecodeFixed4 decodes exactly 5 characters to a 4-byte array.
func DecodeFixed4(src string) ([4]byte, error) {
	var result [4]byte
	if len(src) != 5 {
		return result, fmt.Errorf("expected 5 characters, got %d", len(src))
	}
	decoded, err := DecodeL85(src)
	if err != nil {
		return result, err
	}
	if len(decoded) != 4 {
		return result, fmt.Errorf("decoded to %d bytes, expected 4", len(decoded))
	}
	copy(result[:], decoded)
	return result, nil
}

// EncodeFixed8 encodes an 8-byte array to exactly 10 characters, the
// width this namespace's ThingID keys are built from.
func EncodeFixed8(src [8]byte) string {
	return EncodeL85(src[:])
}

// DecodeFixed8 decodes exactly 10 characters to an 8-byte array.
func DecodeFixed8(src string) ([8]byte, error) {
	var result [8]byte
	if len(src) != 10 {
		return result, fmt.Errorf("expected 10 characters, got %d", len(src))
	}
	decoded, err := DecodeL85(src)
	if err != nil {
		return result, err
	}
	if len(decoded) != 8 {
		return result, fmt.Errorf("decoded to %d bytes, expected 8", len(decoded))
	}
	copy(result[:], decoded)
	return result, nil
}
