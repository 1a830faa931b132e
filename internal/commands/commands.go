// Package commands implements the encode, decode, remove and print
// operations on top of the png codec. Sources and sinks keep file or network
// I/O outside the codec.
package commands

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/danmuck/pngme/internal/fingerprint"
	"github.com/danmuck/pngme/internal/observability"
	"github.com/danmuck/pngme/internal/payload"
	"github.com/danmuck/pngme/internal/png"
	"github.com/rs/zerolog"
)

// Runner executes commands and reports each outcome to its logger and the
// chunk metrics.
type Runner struct {
	Logger zerolog.Logger
}

func NewRunner(logger zerolog.Logger) *Runner {
	return &Runner{Logger: logger}
}

type EncodeRequest struct {
	ChunkType string
	Message   string
	Options   payload.Options
}

// ChunkInfo is one row of a chunk listing.
type ChunkInfo struct {
	Index         int    `json:"index"`
	Type          string `json:"type"`
	Length        uint32 `json:"length"`
	CRC           uint32 `json:"crc"`
	Critical      bool   `json:"critical"`
	Public        bool   `json:"public"`
	ReservedValid bool   `json:"reserved_valid"`
	SafeToCopy    bool   `json:"safe_to_copy"`
	Envelope      bool   `json:"envelope"`
}

type Listing struct {
	Name      string      `json:"name"`
	Bytes     int         `json:"bytes"`
	Signature string      `json:"signature"`
	CID       string      `json:"cid"`
	Chunks    []ChunkInfo `json:"chunks"`
}

// Result labels an error for metrics and logs.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := png.KindOf(err); kind != png.KindUnknown {
		return kind.String()
	}
	switch {
	case errors.Is(err, payload.ErrPassphraseRequired), errors.Is(err, payload.ErrOpenFailed):
		return "sealed"
	case errors.Is(err, payload.ErrCorruptEnvelope):
		return "envelope"
	case errors.Is(err, ErrInputTooLarge):
		return "too_large"
	default:
		return "io"
	}
}

func (r *Runner) load(op string, src Source) (*png.Png, int, error) {
	b, err := src.ReadAll()
	if err != nil {
		return nil, 0, err
	}
	p, err := png.Parse(b)
	if err != nil {
		return nil, len(b), fmt.Errorf("%s: %w", src.Name(), err)
	}
	r.Logger.Debug().Str("op", op).Str("file", src.Name()).Int("bytes", len(b)).Int("chunks", p.Len()).Msg("container loaded")
	return p, len(b), nil
}

func (r *Runner) finish(op, name string, size int, err error) {
	result := Result(err)
	observability.RecordChunkOperation(op, result, size)
	if err != nil {
		r.Logger.Warn().Str("op", op).Str("file", name).Str("result", result).Err(err).Msg("command failed")
	}
}

// Encode hides req.Message in a new chunk appended to the container.
func (r *Runner) Encode(src Source, sink Sink, req EncodeRequest) (c *png.Chunk, err error) {
	const op = "encode"
	size := 0
	defer func() { r.finish(op, src.Name(), size, err) }()

	ct, err := png.ParseChunkType(req.ChunkType)
	if err != nil {
		return nil, err
	}
	if !ct.IsValid() {
		return nil, fmt.Errorf("%w: %s has the reserved bit set", png.ErrInvalidChunkType, ct)
	}

	p, size, err := r.load(op, src)
	if err != nil {
		return nil, err
	}
	data, err := payload.Encode([]byte(req.Message), req.Options)
	if err != nil {
		return nil, err
	}
	c = png.NewChunk(ct, data)
	p.AppendChunk(c)

	out := p.Bytes()
	if err := sink.WriteAll(out); err != nil {
		return nil, err
	}
	size = len(out)
	r.Logger.Info().
		Str("op", op).
		Str("file", sink.Name()).
		Str("chunk_type", ct.String()).
		Uint32("length", c.Length()).
		Bool("compressed", req.Options.Compress).
		Bool("sealed", req.Options.Passphrase != "").
		Msg("message encoded")
	return c, nil
}

// Decode returns the message stored in the first chunk of chunkType.
func (r *Runner) Decode(src Source, chunkType, passphrase string) (msg string, err error) {
	const op = "decode"
	size := 0
	defer func() { r.finish(op, src.Name(), size, err) }()

	p, size, err := r.load(op, src)
	if err != nil {
		return "", err
	}
	c, ok := p.ChunkByType(chunkType)
	if !ok {
		return "", fmt.Errorf("%w: %q in %s", png.ErrChunkNotFound, chunkType, src.Name())
	}
	data, err := payload.Decode(c.Data(), passphrase)
	if err != nil {
		return "", err
	}
	msg, err = png.NewChunk(c.Type(), data).DataString()
	if err != nil {
		return "", err
	}
	r.Logger.Info().Str("op", op).Str("file", src.Name()).Str("chunk_type", chunkType).Int("message_bytes", len(msg)).Msg("message decoded")
	return msg, nil
}

// Remove deletes the first chunk of chunkType and writes the result to sink.
// Nothing is written when no chunk matches.
func (r *Runner) Remove(src Source, sink Sink, chunkType string) (c *png.Chunk, err error) {
	const op = "remove"
	size := 0
	defer func() { r.finish(op, src.Name(), size, err) }()

	p, size, err := r.load(op, src)
	if err != nil {
		return nil, err
	}
	c, err = p.RemoveChunk(chunkType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name(), err)
	}
	out := p.Bytes()
	if err := sink.WriteAll(out); err != nil {
		return nil, err
	}
	size = len(out)
	r.Logger.Info().Str("op", op).Str("file", sink.Name()).Str("chunk_type", chunkType).Uint32("length", c.Length()).Msg("chunk removed")
	return c, nil
}

// List describes every chunk in order.
func (r *Runner) List(src Source) (l Listing, err error) {
	const op = "print"
	size := 0
	defer func() { r.finish(op, src.Name(), size, err) }()

	b, err := src.ReadAll()
	if err != nil {
		return Listing{}, err
	}
	size = len(b)
	p, err := png.Parse(b)
	if err != nil {
		return Listing{}, fmt.Errorf("%s: %w", src.Name(), err)
	}

	header := p.Header()
	l = Listing{
		Name:      src.Name(),
		Bytes:     len(b),
		Signature: fmt.Sprintf("% x", header[:]),
		CID:       fingerprint.CID(b),
		Chunks:    make([]ChunkInfo, 0, p.Len()),
	}
	i := 0
	for c := range p.Chunks() {
		t := c.Type()
		l.Chunks = append(l.Chunks, ChunkInfo{
			Index:         i,
			Type:          t.String(),
			Length:        c.Length(),
			CRC:           c.CRC(),
			Critical:      t.IsCritical(),
			Public:        t.IsPublic(),
			ReservedValid: t.IsReservedBitValid(),
			SafeToCopy:    t.IsSafeToCopy(),
			Envelope:      payload.IsEnvelope(c.Data()),
		})
		i++
	}
	return l, nil
}

// Print writes a human-readable listing to w.
func (r *Runner) Print(src Source, w io.Writer) error {
	l, err := r.List(src)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %d bytes, %d chunks\nsignature: %s\ncid: %s\n", l.Name, l.Bytes, len(l.Chunks), l.Signature, l.CID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTYPE\tLENGTH\tCRC\tFLAGS")
	for _, c := range l.Chunks {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%#08x\t%s\n", c.Index, c.Type, c.Length, c.CRC, flagString(c))
	}
	return tw.Flush()
}

func flagString(c ChunkInfo) string {
	out := "ancillary"
	if c.Critical {
		out = "critical"
	}
	if c.Public {
		out += ",public"
	} else {
		out += ",private"
	}
	if !c.ReservedValid {
		out += ",reserved"
	}
	if c.SafeToCopy {
		out += ",safe-to-copy"
	}
	if c.Envelope {
		out += ",envelope"
	}
	return out
}
