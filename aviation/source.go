// aviation/source.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"bufio"
	"io"
	"os"

	"github.com/airportinfo/aptdb/util"
)

// The AIXM distribution files are sometimes padded with NUL bytes after
// the closing tag, which the XML decoder rejects. Only the final chunk of
// the file is inspected for them.
const nulScanLength = 100

// TrimmedLength returns the length of the stream once a run of trailing
// NUL bytes within its final nulScanLength bytes is dropped.
func TrimmedLength(r io.ReaderAt, size int64) (int64, error) {
	start := max(0, size-nulScanLength)
	buf := make([]byte, size-start)
	if _, err := r.ReadAt(buf, start); err != nil && err != io.EOF {
		return 0, err
	}

	n := len(buf)
	for n > 0 && buf[n-1] == 0 {
		n--
	}
	return start + int64(n), nil
}

// nulTrimReader passes its input through, except that a run of NUL bytes
// at the very end of the stream is dropped. It is used for compressed
// sources, whose decompressed length isn't known up front.
type nulTrimReader struct {
	r     *bufio.Reader
	held  int // NULs read but not yet known to be followed by data
	carry int // byte read after held NULs, or -1
}

func newNULTrimReader(r io.Reader) *nulTrimReader {
	return &nulTrimReader{r: bufio.NewReader(r), carry: -1}
}

func (t *nulTrimReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if t.carry >= 0 {
			if t.held > 0 {
				p[n] = 0
				t.held--
			} else {
				p[n] = byte(t.carry)
				t.carry = -1
			}
			n++
			continue
		}

		c, err := t.r.ReadByte()
		if err != nil {
			if err == io.EOF && n > 0 {
				return n, nil
			}
			return n, err
		}
		if c == 0 {
			t.held++
		} else {
			t.carry = int(c)
		}
	}
	return n, nil
}

type sourceReadCloser struct {
	io.Reader
	io.Closer
}

// OpenSource opens an AIXM source file for streaming, with any trailing
// NUL padding removed. Files ending in .zst are decompressed.
func OpenSource(path string) (io.ReadCloser, error) {
	if util.IsCompressed(path) {
		rc, err := util.OpenFile(path)
		if err != nil {
			return nil, err
		}
		return sourceReadCloser{Reader: newNULTrimReader(rc), Closer: rc}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	n, err := TrimmedLength(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	return sourceReadCloser{Reader: bufio.NewReaderSize(io.NewSectionReader(f, 0, n), 1<<20), Closer: f}, nil
}
