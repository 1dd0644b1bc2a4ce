package checksum

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
)

// Algorithm names a hash function
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA256 Algorithm = "sha256"
)

// ErrTooLarge is returned for content beyond Options.MaxSize
var ErrTooLarge = errors.New("content exceeds checksum size limit")

// Options configures a Calculator
type Options struct {
	// MaxSize skips content larger than this many bytes (0 = unlimited)
	MaxSize int64

	// BufferSize is the streaming read size
	BufferSize int
}

// DefaultOptions returns 100MB max size and a 32KB buffer
func DefaultOptions() Options {
	return Options{
		MaxSize:    100 * 1024 * 1024,
		BufferSize: 32 * 1024,
	}
}

// Calculator hashes content in a streaming fashion
type Calculator struct {
	opts Options
}

// NewCalculator creates a calculator with opts
func NewCalculator(opts Options) *Calculator {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	return &Calculator{opts: opts}
}

// NewDefaultCalculator creates a calculator with DefaultOptions
func NewDefaultCalculator() *Calculator {
	return NewCalculator(DefaultOptions())
}

// Calculate returns the hex digest of everything read from reader.
// ctx is checked between chunks.
func (c *Calculator) Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	if c.opts.MaxSize > 0 {
		reader = io.LimitReader(reader, c.opts.MaxSize+1)
	}

	buffer := make([]byte, c.opts.BufferSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, readErr := reader.Read(buffer)
		if n > 0 {
			total += int64(n)
			if c.opts.MaxSize > 0 && total > c.opts.MaxSize {
				return "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, c.opts.MaxSize)
			}
			h.Write(buffer[:n])
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("read error: %w", readErr)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes returns the digest of data
func (c *Calculator) Bytes(ctx context.Context, data []byte, algo Algorithm) (string, error) {
	return c.Calculate(ctx, bytes.NewReader(data), algo)
}

func newHash(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	}
	return nil, fmt.Errorf("unsupported algorithm: %s", algo)
}

// IsSupported checks if algo is supported
func IsSupported(algo Algorithm) bool {
	_, err := newHash(algo)
	return err == nil
}
