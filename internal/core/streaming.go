package core

// streaming.go provides memory-efficient reader wrappers for import
// processing:
//
//   - bomSkippingReader: removes a UTF-8 BOM (0xEF 0xBB 0xBF) from files
//     exported by Windows tools
//   - utf8CheckingReader: rejects invalid UTF-8 instead of repairing it,
//     since an undecodable stream is a whole-file format failure
//   - limitedCountingReader: tracks bytes read and enforces the size cap
//
// wrapForImport applies all three in the required order.

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when the input stream contains a byte
// sequence that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("input is not valid UTF-8")

// ErrFileTooLarge is returned when the input exceeds the configured
// maximum import size.
var ErrFileTooLarge = errors.New("file exceeds maximum import size")

var utf8BOM = [3]byte{0xEF, 0xBB, 0xBF}

// bomSkippingReader strips a leading UTF-8 BOM on the first read.
type bomSkippingReader struct {
	r       io.Reader
	checked bool
	buf     []byte // bytes read during BOM detection, replayed if no BOM
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{r: r}
}

func (b *bomSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true

		head := make([]byte, 3)
		n, err := io.ReadFull(b.r, head)
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		if n == 3 && head[0] == utf8BOM[0] && head[1] == utf8BOM[1] && head[2] == utf8BOM[2] {
			// BOM found, drop it
		} else {
			b.buf = head[:n]
		}
	}

	if len(b.buf) > 0 {
		n := copy(p, b.buf)
		b.buf = b.buf[n:]
		return n, nil
	}

	return b.r.Read(p)
}

// utf8CheckingReader validates the stream as UTF-8 on the fly. Multi-byte
// sequences split across reads are held back until the next read
// completes them; a genuinely invalid sequence yields ErrInvalidUTF8.
type utf8CheckingReader struct {
	r       io.Reader
	pending []byte
}

func newUTF8CheckingReader(r io.Reader) *utf8CheckingReader {
	return &utf8CheckingReader{
		r:       r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

func (u *utf8CheckingReader) Read(p []byte) (int, error) {
	if len(p) < utf8.UTFMax {
		return 0, io.ErrShortBuffer
	}

	off := copy(p, u.pending)
	u.pending = u.pending[:0]

	n, err := u.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	atEOF := err == io.EOF
	data := p[:n]

	for i := 0; i < len(data); {
		if data[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && expectedRuneLen(data[i]) > len(data)-i {
				// Possibly a sequence split across reads; hold it back.
				u.pending = append(u.pending, data[i:]...)
				return i, err
			}
			return i, ErrInvalidUTF8
		}
		i += size
	}

	return n, err
}

// expectedRuneLen returns the sequence length implied by a UTF-8 leading
// byte, or 0 for a byte that cannot start a sequence.
func expectedRuneLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// limitedCountingReader counts bytes read and fails once the limit is
// crossed. A limit of 0 means unlimited.
type limitedCountingReader struct {
	r         io.Reader
	limit     int64
	BytesRead int64
}

func newLimitedCountingReader(r io.Reader, limit int64) *limitedCountingReader {
	return &limitedCountingReader{r: r, limit: limit}
}

func (l *limitedCountingReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.BytesRead += int64(n)
	if l.limit > 0 && l.BytesRead > l.limit {
		return n, fmt.Errorf("%w (%d bytes)", ErrFileTooLarge, l.limit)
	}
	return n, err
}

// wrapForImport wraps a reader for import processing. Order matters: the
// BOM must go before UTF-8 checking, and counting wraps the raw stream so
// the size cap applies to actual input bytes.
func wrapForImport(r io.Reader, maxBytes int64) io.Reader {
	counted := newLimitedCountingReader(r, maxBytes)
	return newUTF8CheckingReader(newBOMSkippingReader(counted))
}
