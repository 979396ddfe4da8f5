// Package bitfield reads and writes single bits inside a hex-encoded byte
// register.
//
// Some devices pack unrelated boolean features into one DP whose value is a
// hex string ("0020" = two bytes, bit 5 of byte 0 set). Every write here is a
// read-modify-write: bits other than the addressed one are preserved.
//
// Byte index 0 is the leftmost (most significant) byte of the normalized
// string. Only the low three bits of a bit index are used.
package bitfield

import (
	"encoding/hex"
	"strings"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
)

// minHexLen is the shortest normalized register: two bytes.
const minHexLen = 4

// Normalize returns v as an even-length uppercase hex string of at least two
// bytes, left-padded with zeros. Non-hex characters are dropped and nil reads
// as an empty register.
func Normalize(v dp.Value) string {
	raw := strings.ToUpper(strings.TrimSpace(dp.String(v)))

	var b strings.Builder
	b.Grow(len(raw) + minHexLen)
	for _, r := range raw {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') {
			b.WriteRune(r)
		}
	}
	s := b.String()

	if len(s)%2 == 1 {
		s = "0" + s
	}
	if len(s) < minHexLen {
		s = strings.Repeat("0", minHexLen-len(s)) + s
	}
	return s
}

// Decode normalizes v and returns its bytes.
func Decode(v dp.Value) []byte {
	// Normalize only emits hex digits in pairs, so decoding cannot fail.
	out, _ := hex.DecodeString(Normalize(v))
	return out
}

// Encode renders bytes as an uppercase hex string.
func Encode(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// ReadBit reports whether bit (bitIndex & 7) of byte byteIndex is set.
// A byte beyond the register reads as zero. A negative byteIndex addresses
// byte 0, as in WriteBit.
//
// Parameters:
//   - v: Register value (hex string, possibly unnormalized)
//   - bitIndex: Bit within the byte; only the low three bits are used
//   - byteIndex: 0 for the leftmost byte
func ReadBit(v dp.Value, bitIndex, byteIndex int) bool {
	bytes := Decode(v)
	byteIndex = clampByte(byteIndex)
	if byteIndex >= len(bytes) {
		return false
	}
	return bytes[byteIndex]&mask(bitIndex) != 0
}

// WriteBit sets or clears one bit and returns the new register string.
//
// If byteIndex is past the end of the register, zero bytes are prepended
// until the register has byteIndex+1 bytes, then the addressed byte is
// modified. A negative byteIndex addresses byte 0.
//
// Returns:
//   - string: Uppercase hex, same byte order, all other bits unchanged
func WriteBit(v dp.Value, bitIndex int, on bool, byteIndex int) string {
	bytes := Decode(v)
	byteIndex = clampByte(byteIndex)
	if missing := byteIndex + 1 - len(bytes); missing > 0 {
		bytes = append(make([]byte, missing), bytes...)
	}

	if on {
		bytes[byteIndex] |= mask(bitIndex)
	} else {
		bytes[byteIndex] &^= mask(bitIndex)
	}
	return Encode(bytes)
}

func clampByte(byteIndex int) int {
	return max(byteIndex, 0)
}

func mask(bitIndex int) byte {
	return 1 << (uint(bitIndex) & 7)
}
