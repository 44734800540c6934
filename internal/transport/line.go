package transport

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	Delimiter = '\n'

	// DefaultMaxLine bounds the bytes held while waiting for a delimiter.
	DefaultMaxLine = 256
)

var (
	ErrEmptyValue  = errors.New("transport: empty value")
	ErrLineTooLong = errors.New("transport: line too long")
)

// FormatValue renders v with exactly two fraction digits.
func FormatValue(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// AppendValue appends the datagram encoding of v: the bare decimal.
func AppendValue(dst []byte, v float64) []byte {
	return strconv.AppendFloat(dst, v, 'f', 2, 64)
}

// AppendLine appends the stream encoding of v:
//
//	<decimal with 2 fraction digits>\n
func AppendLine(dst []byte, v float64) []byte {
	return append(AppendValue(dst, v), Delimiter)
}

// ParseValue parses one value, ignoring surrounding whitespace. Non-finite
// numbers are malformed.
func ParseValue(b []byte) (float64, error) {
	s := bytes.TrimSpace(b)
	if len(s) == 0 {
		return 0, ErrEmptyValue
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0, fmt.Errorf("transport: parse %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("transport: parse %q: not a finite value", s)
	}
	return v, nil
}

// LineDecoder reassembles newline-terminated values from arbitrary chunks.
// Malformed lines are dropped and reported to OnDiscard; the decoder keeps
// going.
type LineDecoder struct {
	OnDiscard func(line []byte, err error)
	MaxLine   int

	buf []byte
}

// Feed consumes chunk and returns every complete value in arrival order.
func (d *LineDecoder) Feed(chunk []byte) []float64 {
	d.buf = append(d.buf, chunk...)

	var out []float64
	rest := d.buf
	for {
		i := bytes.IndexByte(rest, Delimiter)
		if i < 0 {
			break
		}
		line := rest[:i]
		rest = rest[i+1:]
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		v, err := ParseValue(line)
		if err != nil {
			d.discard(line, err)
			continue
		}
		out = append(out, v)
	}

	limit := d.MaxLine
	if limit <= 0 {
		limit = DefaultMaxLine
	}
	if len(rest) > limit {
		d.discard(rest, ErrLineTooLong)
		rest = nil
	}
	d.buf = append(d.buf[:0], rest...)
	return out
}

// Pending is the number of buffered bytes without a delimiter yet.
func (d *LineDecoder) Pending() int { return len(d.buf) }

func (d *LineDecoder) discard(line []byte, err error) {
	if d.OnDiscard != nil {
		d.OnDiscard(bytes.Clone(line), err)
	}
}
