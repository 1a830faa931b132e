package png

import (
	"errors"
	"fmt"
)

// Kind classifies codec failures so callers can branch without matching text.
type Kind int

const (
	KindUnknown Kind = iota
	KindTag
	KindFormat
	KindIntegrity
	KindDecode
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindFormat:
		return "format"
	case KindIntegrity:
		return "integrity"
	case KindDecode:
		return "decode"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidChunkType = errors.New("png: invalid chunk type")
	ErrBadSignature     = errors.New("png: bad signature")
	ErrTruncated        = errors.New("png: truncated data")
	ErrLengthMismatch   = errors.New("png: chunk length does not match record size")
	ErrCRCMismatch      = errors.New("png: crc mismatch")
	ErrInvalidUTF8      = errors.New("png: chunk data is not valid utf-8")
	ErrChunkNotFound    = errors.New("png: chunk not found")
)

var sentinelKinds = map[error]Kind{
	ErrInvalidChunkType: KindTag,
	ErrBadSignature:     KindFormat,
	ErrTruncated:        KindFormat,
	ErrLengthMismatch:   KindFormat,
	ErrCRCMismatch:      KindIntegrity,
	ErrInvalidUTF8:      KindDecode,
	ErrChunkNotFound:    KindNotFound,
}

// Error carries the operation and byte offset of a failure.
type Error struct {
	Kind   Kind
	Op     string
	Offset int
	Err    error
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset %d: %v", e.Op, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, offset int, err error) *Error {
	return &Error{Kind: KindOf(err), Op: op, Offset: offset, Err: err}
}

// KindOf reports the Kind of err, or KindUnknown if err did not come from
// this package.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return e.Kind
	}
	for sentinel, kind := range sentinelKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

// CRCError reports the stored and recomputed checksums of a rejected chunk.
type CRCError struct {
	Type     ChunkType
	Stored   uint32
	Computed uint32
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("png: crc mismatch for %s: stored %#08x computed %#08x", e.Type, e.Stored, e.Computed)
}

func (e *CRCError) Unwrap() error { return ErrCRCMismatch }
