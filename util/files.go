// util/files.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// zstdReadCloser adapts the zstd Decoder, whose Close() method doesn't
// return an error, to io.ReadCloser and also closes the underlying file.
type zstdReadCloser struct {
	*zstd.Decoder
	f *os.File
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

// OpenFile opens the specified file for reading; if its name ends in
// ".zst", the returned reader handles decompression transparently.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if IsCompressed(path) {
		zr, err := zstd.NewReader(bufio.NewReader(f), zstd.WithDecoderConcurrency(0))
		if err != nil {
			f.Close()
			return nil, err
		}
		return zstdReadCloser{Decoder: zr, f: f}, nil
	}

	return f, nil
}

// IsCompressed reports whether the path names a zstd-compressed file.
func IsCompressed(path string) bool {
	return filepath.Ext(path) == ".zst"
}

// NewCompressingWriter returns a zstd encoder writing to w; the caller
// must Close it to flush the final frame.
func NewCompressingWriter(w io.Writer) (*zstd.Encoder, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
}

// Hash returns the SHA-256 of everything that can be read from r.
func Hash(r io.Reader) ([]byte, error) {
	hash := sha256.New()
	_, err := io.Copy(hash, r)
	if err != nil {
		return nil, err
	}
	return hash.Sum(nil), nil
}

// HashFile returns the hex-encoded SHA-256 of the raw (possibly
// compressed) bytes of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := Hash(bufio.NewReader(f))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h), nil
}
