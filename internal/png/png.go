package png

import (
	"bytes"
	"fmt"
	"iter"
	"slices"
)

// Signature opens every PNG datastream.
var Signature = [8]byte{137, 80, 78, 71, 13, 10, 26, 10}

// Png is an ordered list of chunks behind the fixed signature. Order is
// preserved exactly as parsed or appended and duplicate types are allowed.
type Png struct {
	chunks []*Chunk
}

func New() *Png {
	return &Png{}
}

func FromChunks(chunks ...*Chunk) *Png {
	p := New()
	for _, c := range chunks {
		p.AppendChunk(c)
	}
	return p
}

// Parse decodes a full container. Any malformed chunk aborts the parse.
func Parse(b []byte) (*Png, error) {
	const op = "parse png"
	if len(b) < len(Signature) {
		return nil, newError(op, 0, fmt.Errorf("%w: %w", ErrBadSignature, ErrTruncated))
	}
	if !bytes.Equal(b[:len(Signature)], Signature[:]) {
		return nil, newError(op, 0, fmt.Errorf("%w: got % x", ErrBadSignature, b[:len(Signature)]))
	}

	cur := newCursor(b)
	cur.pos = len(Signature)
	p := New()
	for cur.remaining() > 0 {
		c, err := readChunk(cur)
		if err != nil {
			return nil, fmt.Errorf("%s: chunk %d: %w", op, len(p.chunks), err)
		}
		p.chunks = append(p.chunks, c)
	}
	return p, nil
}

func (p *Png) Header() [8]byte { return Signature }

func (p *Png) Len() int { return len(p.chunks) }

func (p *Png) AppendChunk(c *Chunk) {
	if c == nil {
		return
	}
	p.chunks = append(p.chunks, c)
}

// ChunkByType returns the first chunk whose type renders as chunkType.
func (p *Png) ChunkByType(chunkType string) (*Chunk, bool) {
	i := p.index(chunkType)
	if i < 0 {
		return nil, false
	}
	return p.chunks[i], true
}

// RemoveChunk removes and returns the first chunk whose type renders as
// chunkType. The container is unchanged when nothing matches.
func (p *Png) RemoveChunk(chunkType string) (*Chunk, error) {
	i := p.index(chunkType)
	if i < 0 {
		return nil, newError("remove chunk", -1, fmt.Errorf("%w: %q", ErrChunkNotFound, chunkType))
	}
	c := p.chunks[i]
	p.chunks = slices.Delete(p.chunks, i, i+1)
	return c, nil
}

func (p *Png) index(chunkType string) int {
	return slices.IndexFunc(p.chunks, func(c *Chunk) bool {
		return c.chunkType.String() == chunkType
	})
}

// Chunks yields the chunks present when iteration runs, in order.
func (p *Png) Chunks() iter.Seq[*Chunk] {
	return func(yield func(*Chunk) bool) {
		for i := 0; i < len(p.chunks); i++ {
			if !yield(p.chunks[i]) {
				return
			}
		}
	}
}

func (p *Png) wireLen() int {
	n := len(Signature)
	for _, c := range p.chunks {
		n += c.WireLen()
	}
	return n
}

// Bytes encodes the signature followed by every chunk in order.
func (p *Png) Bytes() []byte {
	buf := make([]byte, 0, p.wireLen())
	buf = append(buf, Signature[:]...)
	for _, c := range p.chunks {
		buf = c.appendTo(buf)
	}
	return buf
}

// Equal reports whether both containers hold equal chunks in the same order.
func (p *Png) Equal(o *Png) bool {
	return slices.EqualFunc(p.chunks, o.chunks, (*Chunk).Equal)
}

func (p *Png) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Png{chunks: %d}", len(p.chunks))
	for i, c := range p.chunks {
		fmt.Fprintf(&b, "\n  %d: %s", i, c)
	}
	return b.String()
}
