// aviation/codec.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// The persisted store is a flat ASCII stream: every scalar field is
// followed by a '|', booleans are 0/1, collections are a count followed
// by their elements, and optional sub-records are preceded by a one
// character presence tag (NUL when absent). There is no escaping.
const FieldDelimiter = '|'

// DefaultMaxFieldLength is the size of the decoder's scratch buffer,
// which holds a field and its delimiter.
const DefaultMaxFieldLength = 2048

// Number of leading characters of an offending field included in error
// messages.
const excerptLength = 100

type CodecOptions struct {
	// MaxFieldLength bounds the decoder's scratch buffer; zero selects
	// DefaultMaxFieldLength.
	MaxFieldLength int
}

func (o CodecOptions) maxFieldLength() int {
	if o.MaxFieldLength <= 1 {
		return DefaultMaxFieldLength
	}
	return o.MaxFieldLength
}

func excerpt(b []byte) string {
	if len(b) > excerptLength {
		b = b[:excerptLength]
	}
	return string(b)
}

///////////////////////////////////////////////////////////////////////////
// FieldEncoder

// FieldEncoder writes '|'-terminated fields. Errors are sticky: after
// the first failure subsequent writes are ignored and Err/Flush report
// it.
type FieldEncoder struct {
	w   *bufio.Writer
	err error
}

func NewFieldEncoder(w io.Writer) *FieldEncoder {
	return &FieldEncoder{w: bufio.NewWriterSize(w, 64*1024)}
}

func (e *FieldEncoder) raw(b []byte) {
	if e.err != nil {
		return
	}
	if _, err := e.w.Write(b); err != nil {
		e.err = err
		return
	}
	e.err = e.w.WriteByte(FieldDelimiter)
}

func (e *FieldEncoder) String(s string) {
	if e.err == nil && strings.IndexByte(s, FieldDelimiter) != -1 {
		e.err = fmt.Errorf("%q: %w", excerpt([]byte(s)), ErrDelimiterInField)
		return
	}
	e.raw([]byte(s))
}

func (e *FieldEncoder) Int(v int) {
	e.raw(strconv.AppendInt(nil, int64(v), 10))
}

// Float writes the shortest representation that reads back as the same
// float32.
func (e *FieldEncoder) Float(v float32) {
	e.raw(strconv.AppendFloat(nil, float64(v), 'f', -1, 32))
}

func (e *FieldEncoder) Bool(b bool) {
	if b {
		e.raw([]byte{'1'})
	} else {
		e.raw([]byte{'0'})
	}
}

func (e *FieldEncoder) Char(c byte) {
	if c == FieldDelimiter {
		if e.err == nil {
			e.err = fmt.Errorf("character field: %w", ErrDelimiterInField)
		}
		return
	}
	e.raw([]byte{c})
}

// kind writes a top-level record's type tag, which is not delimited.
func (e *FieldEncoder) kind(k RecordKind) {
	if e.err == nil {
		e.err = e.w.WriteByte(byte(k))
	}
}

func (e *FieldEncoder) Err() error {
	return e.err
}

func (e *FieldEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	e.err = e.w.Flush()
	return e.err
}

///////////////////////////////////////////////////////////////////////////
// FieldDecoder

// FieldDecoder reads fields one byte at a time into a bounded scratch
// buffer that is reused across fields. As with FieldEncoder, errors are
// sticky; decoding methods return zero values once an error has occurred.
type FieldDecoder struct {
	r       *bufio.Reader
	scratch []byte
	offset  int64
	err     error
}

func NewFieldDecoder(r io.Reader, opts CodecOptions) *FieldDecoder {
	return &FieldDecoder{
		r:       bufio.NewReaderSize(r, 64*1024),
		scratch: make([]byte, 0, opts.maxFieldLength()),
	}
}

// next returns the bytes of the next field, without its delimiter. The
// returned slice is only valid until the following call.
func (d *FieldDecoder) next() []byte {
	if d.err != nil {
		return nil
	}

	d.scratch = d.scratch[:0]
	start := d.offset
	for {
		c, err := d.r.ReadByte()
		if err == io.EOF {
			d.err = fmt.Errorf("offset %d: %q: %w", start, excerpt(d.scratch), ErrTruncatedRecord)
			return nil
		} else if err != nil {
			d.err = err
			return nil
		}
		d.offset++

		if c == FieldDelimiter {
			return d.scratch
		}
		// Leave room for the delimiter.
		if len(d.scratch)+1 == cap(d.scratch) {
			d.err = fmt.Errorf("offset %d: buffer too small. First %d characters: %q: %w", start,
				excerptLength, excerpt(d.scratch), ErrFieldTooLong)
			return nil
		}
		d.scratch = append(d.scratch, c)
	}
}

func (d *FieldDecoder) badField(what string, b []byte, err error) {
	if err != nil {
		d.err = fmt.Errorf("offset %d: %s %q: %v: %w", d.offset, what, excerpt(b), err, ErrBadField)
	} else {
		d.err = fmt.Errorf("offset %d: %s %q: %w", d.offset, what, excerpt(b), ErrBadField)
	}
}

func (d *FieldDecoder) String() string {
	return string(d.next())
}

func (d *FieldDecoder) Int() int {
	b := d.next()
	if d.err != nil {
		return 0
	}
	v, err := strconv.Atoi(string(b))
	if err != nil {
		d.badField("integer", b, err)
	}
	return v
}

func (d *FieldDecoder) Float() float32 {
	b := d.next()
	if d.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(string(b), 32)
	if err != nil {
		d.badField("float", b, err)
	}
	return float32(v)
}

func (d *FieldDecoder) Bool() bool {
	b := d.next()
	if d.err != nil {
		return false
	}
	if len(b) != 1 || (b[0] != '0' && b[0] != '1') {
		d.badField("boolean", b, nil)
		return false
	}
	return b[0] == '1'
}

// Char reads a field that must be exactly one character long.
func (d *FieldDecoder) Char() byte {
	b := d.next()
	if d.err != nil {
		return 0
	}
	if len(b) != 1 {
		d.badField("character", b, nil)
		return 0
	}
	return b[0]
}

// kind reads the type tag of the next top-level record. It returns
// io.EOF when the stream ends cleanly at a record boundary.
func (d *FieldDecoder) kind() (RecordKind, error) {
	if d.err != nil {
		return 0, d.err
	}
	c, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}
	d.offset++
	return RecordKind(c), nil
}

func (d *FieldDecoder) Err() error {
	return d.err
}

// Offset returns the number of bytes consumed so far.
func (d *FieldDecoder) Offset() int64 {
	return d.offset
}
