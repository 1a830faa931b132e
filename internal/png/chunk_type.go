package png

import "fmt"

// ChunkTypeLen is the size of a chunk type tag on the wire.
const ChunkTypeLen = 4

// ChunkType is the 4-byte tag naming a chunk. The case of each byte carries
// one property bit: ancillary, private, reserved, safe-to-copy.
type ChunkType [ChunkTypeLen]byte

// ChunkTypeFromBytes accepts b only if every byte is an ASCII letter.
func ChunkTypeFromBytes(b [ChunkTypeLen]byte) (ChunkType, error) {
	for i, c := range b {
		if !isASCIILetter(c) {
			return ChunkType{}, fmt.Errorf("%w: byte %d is %#02x", ErrInvalidChunkType, i, c)
		}
	}
	return ChunkType(b), nil
}

// ParseChunkType builds a ChunkType from a 4-character ASCII string.
func ParseChunkType(s string) (ChunkType, error) {
	if len(s) != ChunkTypeLen {
		return ChunkType{}, fmt.Errorf("%w: %q has length %d", ErrInvalidChunkType, s, len(s))
	}
	var b [ChunkTypeLen]byte
	copy(b[:], s)
	return ChunkTypeFromBytes(b)
}

// MustChunkType is ParseChunkType for literals known to be well formed.
func MustChunkType(s string) ChunkType {
	t, err := ParseChunkType(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t ChunkType) Bytes() [ChunkTypeLen]byte { return t }

func (t ChunkType) String() string { return string(t[:]) }

// IsValid reports whether every byte is a letter and the reserved bit is clear.
func (t ChunkType) IsValid() bool {
	for _, c := range t {
		if !isASCIILetter(c) {
			return false
		}
	}
	return t.IsReservedBitValid()
}

func (t ChunkType) IsCritical() bool { return isUpper(t[0]) }

func (t ChunkType) IsPublic() bool { return isUpper(t[1]) }

func (t ChunkType) IsReservedBitValid() bool { return isUpper(t[2]) }

func (t ChunkType) IsSafeToCopy() bool { return isLower(t[3]) }

func isASCIILetter(c byte) bool { return isUpper(c) || isLower(c) }

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
