package png

import "encoding/binary"

// cursor walks a byte slice with bounds-checked reads. Offsets in errors are
// relative to the start of buf.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) offset() int { return c.pos }

func (c *cursor) readN(op string, n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, newError(op, c.pos, ErrTruncated)
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *cursor) readU32(op string) (uint32, error) {
	b, err := c.readN(op, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) readType(op string) (ChunkType, error) {
	start := c.pos
	b, err := c.readN(op, ChunkTypeLen)
	if err != nil {
		return ChunkType{}, err
	}
	t, err := ChunkTypeFromBytes([ChunkTypeLen]byte(b))
	if err != nil {
		return ChunkType{}, newError(op, start, err)
	}
	return t, nil
}
