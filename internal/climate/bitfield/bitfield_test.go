package bitfield

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, "0000"},
		{"empty", "", "0000"},
		{"single digit", "1", "0001"},
		{"one byte", "20", "0020"},
		{"odd length", "12345", "012345"},
		{"lowercase", "ab10", "AB10"},
		{"junk stripped", " 0x-2g0 ", "0020"},
		{"long", "0102030405", "0102030405"},
		{"number", 123, "0123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestReadBit(t *testing.T) {
	tests := []struct {
		name      string
		register  any
		bitIndex  int
		byteIndex int
		want      bool
	}{
		{"health bit set", "2000", 5, 0, true},
		{"health bit clear", "DF00", 5, 0, false},
		{"second byte", "0001", 0, 1, true},
		{"second byte clear", "0100", 0, 1, false},
		{"bit index masked", "0200", 9, 0, true}, // 9 & 7 == 1
		{"byte past end", "FFFF", 0, 4, false},
		{"nil register", nil, 5, 0, false},
		{"negative byte reads byte 0", "2000", 5, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReadBit(tt.register, tt.bitIndex, tt.byteIndex); got != tt.want {
				t.Errorf("ReadBit(%v, %d, %d) = %v, want %v", tt.register, tt.bitIndex, tt.byteIndex, got, tt.want)
			}
		})
	}
}

func TestWriteBit(t *testing.T) {
	tests := []struct {
		name      string
		register  any
		bitIndex  int
		on        bool
		byteIndex int
		want      string
	}{
		{"set health bit", "0000", 5, true, 0, "2000"},
		{"clear health bit keeps others", "FFAA", 5, false, 0, "DFAA"},
		{"set in second byte", "1000", 7, true, 1, "1080"},
		{"already set", "2000", 5, true, 0, "2000"},
		{"grows by prepending", "ABCD", 0, true, 3, "0000ABCD"},
		{"nil register", nil, 0, true, 0, "0100"},
		{"lowercase input", "ab", 0, false, 1, "00AA"},
		{"negative byte writes byte 0", "0000", 5, true, -2, "2000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WriteBit(tt.register, tt.bitIndex, tt.on, tt.byteIndex)
			if got != tt.want {
				t.Errorf("WriteBit(%v, %d, %v, %d) = %q, want %q", tt.register, tt.bitIndex, tt.on, tt.byteIndex, got, tt.want)
			}
		})
	}
}

func TestWriteBitRoundTripPreservesOtherBits(t *testing.T) {
	registers := []string{"0000", "FFFF", "A55A", "1", "DEADBEEF", "0020"}

	for _, reg := range registers {
		before := Decode(reg)
		for byteIndex := 0; byteIndex <= 1; byteIndex++ {
			for bitIndex := 0; bitIndex <= 7; bitIndex++ {
				for _, on := range []bool{true, false} {
					written := WriteBit(reg, bitIndex, on, byteIndex)

					if got := ReadBit(written, bitIndex, byteIndex); got != on {
						t.Fatalf("ReadBit(WriteBit(%q, %d, %v, %d)) = %v", reg, bitIndex, on, byteIndex, got)
					}

					after := Decode(written)
					if len(after) != len(before) {
						t.Fatalf("WriteBit(%q) changed length: %d -> %d", reg, len(before), len(after))
					}
					for i := range before {
						diff := before[i] ^ after[i]
						if i == byteIndex {
							diff &^= 1 << uint(bitIndex)
						}
						if diff != 0 {
							t.Fatalf("WriteBit(%q, %d, %v, %d) touched other bits in byte %d: %02X -> %02X",
								reg, bitIndex, on, byteIndex, i, before[i], after[i])
						}
					}
				}
			}
		}
	}
}

func TestNegativeByteIndexRoundTrip(t *testing.T) {
	for bitIndex := 0; bitIndex <= 7; bitIndex++ {
		written := WriteBit("0000", bitIndex, true, -1)
		if !ReadBit(written, bitIndex, -1) {
			t.Errorf("ReadBit(WriteBit(0000, %d, true, -1), %d, -1) = false", bitIndex, bitIndex)
		}
	}
}
