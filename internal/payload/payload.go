// Package payload wraps hidden messages before they are stored in a chunk.
//
// A message stored without options is kept verbatim so plain chunks stay
// readable by any tool, unless it already starts with the envelope magic; such
// a message is framed with an empty flags byte so Decode returns it intact.
// Compressed or sealed messages carry a small header:
//
//	magic "PGM\x01" | flags | [salt(16) nonce(24)] | body
//
// Compression runs before sealing. The header is bound to the ciphertext as
// additional data.
package payload

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	FlagCompressed byte = 0x01
	FlagSealed     byte = 0x02

	saltLen = 16

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	// MaxDecodedLen bounds decompression of untrusted chunks.
	MaxDecodedLen = 64 << 20
)

var magic = []byte{'P', 'G', 'M', 0x01}

var (
	ErrPassphraseRequired = errors.New("payload: passphrase required")
	ErrOpenFailed         = errors.New("payload: cannot open sealed message")
	ErrCorruptEnvelope    = errors.New("payload: corrupt envelope")
)

// Options select the transforms applied by Encode.
type Options struct {
	Compress   bool
	Passphrase string
}

func (o Options) flags() byte {
	var f byte
	if o.Compress {
		f |= FlagCompressed
	}
	if o.Passphrase != "" {
		f |= FlagSealed
	}
	return f
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecodedLen))
	})
	return encoder, decoder, codecErr
}

// IsEnvelope reports whether b starts with the envelope magic.
func IsEnvelope(b []byte) bool {
	return len(b) > len(magic) && bytes.Equal(b[:len(magic)], magic)
}

// Encode applies opts to msg. With zero Options the result equals msg unless
// msg itself looks like an envelope.
func Encode(msg []byte, opts Options) ([]byte, error) {
	flags := opts.flags()
	if flags == 0 {
		if IsEnvelope(msg) {
			return append(append(bytes.Clone(magic), 0), msg...), nil
		}
		return bytes.Clone(msg), nil
	}

	body := msg
	if flags&FlagCompressed != 0 {
		enc, _, err := codecs()
		if err != nil {
			return nil, fmt.Errorf("payload: zstd init: %w", err)
		}
		body = enc.EncodeAll(msg, nil)
	}

	header := append(bytes.Clone(magic), flags)
	if flags&FlagSealed == 0 {
		return append(header, body...), nil
	}

	salt := make([]byte, saltLen)
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("payload: salt: %w", err)
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("payload: nonce: %w", err)
	}
	header = append(header, salt...)
	header = append(header, nonce...)

	aead, err := newAEAD(opts.Passphrase, salt)
	if err != nil {
		return nil, err
	}
	return aead.Seal(header, nonce, body, bytes.Clone(header)), nil
}

// Decode reverses Encode. Bytes without the envelope magic are returned
// unchanged.
func Decode(b []byte, passphrase string) ([]byte, error) {
	if !IsEnvelope(b) {
		return bytes.Clone(b), nil
	}
	flags := b[len(magic)]
	if flags&^(FlagCompressed|FlagSealed) != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#02x", ErrCorruptEnvelope, flags)
	}
	rest := b[len(magic)+1:]

	body := rest
	if flags&FlagSealed != 0 {
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		hdrLen := len(magic) + 1 + saltLen + chacha20poly1305.NonceSizeX
		if len(b) < hdrLen+chacha20poly1305.Overhead {
			return nil, fmt.Errorf("%w: sealed message too short", ErrCorruptEnvelope)
		}
		salt := rest[:saltLen]
		nonce := rest[saltLen : saltLen+chacha20poly1305.NonceSizeX]
		aead, err := newAEAD(passphrase, salt)
		if err != nil {
			return nil, err
		}
		body, err = aead.Open(nil, nonce, b[hdrLen:], b[:hdrLen])
		if err != nil {
			return nil, ErrOpenFailed
		}
	}

	if flags&FlagCompressed != 0 {
		_, dec, err := codecs()
		if err != nil {
			return nil, fmt.Errorf("payload: zstd init: %w", err)
		}
		out, err := dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptEnvelope, err)
		}
		return out, nil
	}
	return bytes.Clone(body), nil
}

func newAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("payload: derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("payload: cipher: %w", err)
	}
	return aead, nil
}
