package checksum

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCalculate_KnownVectors(t *testing.T) {
	calc := NewDefaultCalculator()
	ctx := context.Background()

	tests := []struct {
		algo  Algorithm
		input string
		want  string
	}{
		{MD5, "hello world", "5eb63bbbe01eeed093cb22bb8f5acdc3"},
		{SHA256, "hello world", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
		{SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algo)+"/"+tt.input, func(t *testing.T) {
			got, err := calc.Calculate(ctx, strings.NewReader(tt.input), tt.algo)
			if err != nil {
				t.Fatalf("Calculate failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCalculate_MaxSize(t *testing.T) {
	calc := NewCalculator(Options{MaxSize: 10, BufferSize: 4})
	ctx := context.Background()

	if _, err := calc.Calculate(ctx, strings.NewReader("0123456789"), SHA256); err != nil {
		t.Errorf("content at the limit should hash: %v", err)
	}
	_, err := calc.Calculate(ctx, strings.NewReader("0123456789a"), SHA256)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestCalculate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDefaultCalculator().Calculate(ctx, strings.NewReader("data"), SHA256)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCalculate_Streaming(t *testing.T) {
	calc := NewCalculator(Options{BufferSize: 7})
	data := bytes.Repeat([]byte("typnote "), 10000)

	small, err := calc.Calculate(context.Background(), bytes.NewReader(data), SHA256)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	big, err := NewDefaultCalculator().Calculate(context.Background(), bytes.NewReader(data), SHA256)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if small != big {
		t.Error("digest depends on buffer size")
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewDefaultCalculator().Calculate(context.Background(), strings.NewReader("x"), "crc32")
	if err == nil {
		t.Error("expected error for unsupported algorithm")
	}
	if IsSupported("crc32") || !IsSupported(SHA256) || !IsSupported(MD5) {
		t.Error("IsSupported mismatch")
	}
}

func TestBytes(t *testing.T) {
	calc := NewDefaultCalculator()
	ctx := context.Background()

	a, err := calc.Bytes(ctx, []byte("= A"), SHA256)
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	b, _ := calc.Bytes(ctx, []byte("= A"), SHA256)
	c, _ := calc.Bytes(ctx, []byte("= B"), SHA256)
	if a != b || a == c {
		t.Errorf("digest mismatch: %s %s %s", a, b, c)
	}
}
