package png

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"unicode/utf8"
)

const (
	lengthFieldLen = 4
	crcFieldLen    = 4

	// ChunkOverhead is the wire size of a chunk with empty data.
	ChunkOverhead = lengthFieldLen + ChunkTypeLen + crcFieldLen
)

// Chunk is one length-prefixed, checksummed record. It is immutable once built.
type Chunk struct {
	length    uint32
	chunkType ChunkType
	data      []byte
	crc       uint32
}

// NewChunk copies data and computes the record's length and CRC.
func NewChunk(t ChunkType, data []byte) *Chunk {
	d := bytes.Clone(data)
	if d == nil {
		d = []byte{}
	}
	return &Chunk{
		length:    uint32(len(d)),
		chunkType: t,
		data:      d,
		crc:       checksum(t, d),
	}
}

// ParseChunk decodes exactly one chunk record. The declared length must
// account for every byte of b.
func ParseChunk(b []byte) (*Chunk, error) {
	if len(b) < ChunkOverhead {
		return nil, newError("parse chunk", len(b), ErrTruncated)
	}
	cur := newCursor(b)
	c, err := readChunk(cur)
	if err != nil {
		return nil, err
	}
	if cur.remaining() != 0 {
		return nil, newError("parse chunk", cur.offset(), fmt.Errorf("%w: %d trailing bytes", ErrLengthMismatch, cur.remaining()))
	}
	return c, nil
}

func readChunk(cur *cursor) (*Chunk, error) {
	const op = "read chunk"
	start := cur.offset()

	length, err := cur.readU32(op)
	if err != nil {
		return nil, err
	}
	t, err := cur.readType(op)
	if err != nil {
		return nil, err
	}
	if uint64(cur.remaining()) < uint64(length)+crcFieldLen {
		return nil, newError(op, cur.offset(), fmt.Errorf("%w: %s declares %d data bytes, %d remain", ErrTruncated, t, length, cur.remaining()))
	}
	data, err := cur.readN(op, int(length))
	if err != nil {
		return nil, err
	}
	stored, err := cur.readU32(op)
	if err != nil {
		return nil, err
	}

	if computed := checksum(t, data); computed != stored {
		return nil, newError(op, start, &CRCError{Type: t, Stored: stored, Computed: computed})
	}

	return &Chunk{
		length:    length,
		chunkType: t,
		data:      bytes.Clone(data),
		crc:       stored,
	}, nil
}

func checksum(t ChunkType, data []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write(t[:])
	h.Write(data)
	return h.Sum32()
}

func (c *Chunk) Length() uint32 { return c.length }

func (c *Chunk) Type() ChunkType { return c.chunkType }

// Data returns a copy of the chunk payload.
func (c *Chunk) Data() []byte { return bytes.Clone(c.data) }

func (c *Chunk) CRC() uint32 { return c.crc }

// WireLen is the number of bytes Bytes returns.
func (c *Chunk) WireLen() int { return ChunkOverhead + len(c.data) }

// DataString interprets the payload as UTF-8 text.
func (c *Chunk) DataString() (string, error) {
	if !utf8.Valid(c.data) {
		return "", newError("decode chunk data", -1, fmt.Errorf("%w: chunk %s", ErrInvalidUTF8, c.chunkType))
	}
	return string(c.data), nil
}

// Bytes encodes the chunk in wire order: length, type, data, crc.
func (c *Chunk) Bytes() []byte {
	return c.appendTo(make([]byte, 0, c.WireLen()))
}

func (c *Chunk) appendTo(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, c.length)
	buf = append(buf, c.chunkType[:]...)
	buf = append(buf, c.data...)
	return binary.BigEndian.AppendUint32(buf, c.crc)
}

// Equal reports whether both chunks hold the same four fields.
func (c *Chunk) Equal(o *Chunk) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.length == o.length &&
		c.chunkType == o.chunkType &&
		c.crc == o.crc &&
		bytes.Equal(c.data, o.data)
}

// stringDataLimit caps how much data String renders.
const stringDataLimit = 32

func (c *Chunk) String() string {
	data, more := c.data, ""
	if len(data) > stringDataLimit {
		data, more = data[:stringDataLimit], "..."
	}
	return fmt.Sprintf("Chunk{length: %d, type: %s, data: %q%s, crc: %#08x}", c.length, c.chunkType, data, more, c.crc)
}
