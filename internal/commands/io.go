package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var ErrInputTooLarge = errors.New("commands: input too large")

// Source yields a complete serialized container.
type Source interface {
	Name() string
	ReadAll() ([]byte, error)
}

// Sink persists a complete serialized container.
type Sink interface {
	Name() string
	WriteAll(b []byte) error
}

// FileSource reads a file, refusing anything over MaxBytes when MaxBytes > 0.
type FileSource struct {
	Path     string
	MaxBytes int64
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) ReadAll() ([]byte, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if s.MaxBytes > 0 {
		r = io.LimitReader(f, s.MaxBytes+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	if s.MaxBytes > 0 && int64(len(b)) > s.MaxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInputTooLarge, s.Path, s.MaxBytes)
	}
	return b, nil
}

// FileSink replaces Path atomically, keeping the mode of an existing file.
type FileSink struct {
	Path string
}

func (s FileSink) Name() string { return s.Path }

func (s FileSink) WriteAll(b []byte) error {
	mode := os.FileMode(0o644)
	if st, err := os.Stat(s.Path); err == nil {
		mode = st.Mode().Perm()
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	return nil
}

// BytesSource serves an in-memory container, e.g. an HTTP request body.
type BytesSource struct {
	Label string
	Data  []byte
}

func (s BytesSource) Name() string { return s.Label }

func (s BytesSource) ReadAll() ([]byte, error) { return s.Data, nil }

// BufferSink collects the written container in memory.
type BufferSink struct {
	Label string
	Buf   bytes.Buffer
}

func (s *BufferSink) Name() string { return s.Label }

func (s *BufferSink) WriteAll(b []byte) error {
	s.Buf.Reset()
	_, err := s.Buf.Write(b)
	return err
}
