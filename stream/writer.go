package stream

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"strconv"
	"strings"
)

// Writer writes GEDCOM lines to an io.Writer.
type Writer struct {
	w      *bufio.Writer
	escape EscapeMode
	sum    hash.Hash
	crc    hash.Hash32
	lines  int
	bytes  int64
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriteEscape sets the '@' escaping convention of the output.
func WithWriteEscape(mode EscapeMode) WriterOption {
	return func(w *Writer) {
		w.escape = mode
	}
}

// WithDigest makes the writer hash every byte it emits. See Digest.
func WithDigest() WriterOption {
	return func(w *Writer) {
		w.sum = sha256.New()
		w.crc = crc32.NewIEEE()
	}
}

// NewWriter creates a new line writer. Call Flush when done.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	writer := &Writer{w: bufio.NewWriter(w)}
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}

// WriteLine writes a single line.
//
// Format:
//
//	LEVEL [XREF] TAG [PAYLOAD]\n
//
// Payload text must not contain line breaks; split it into CONT lines
// first.
func (w *Writer) WriteLine(l *Line) error {
	if l.Level < 0 {
		return fmt.Errorf("negative level %d", l.Level)
	}
	if !IsTag(l.Tag) {
		return fmt.Errorf("malformed tag %q", l.Tag)
	}
	if l.Xref != "" && !IsXref(l.Xref) {
		return fmt.Errorf("malformed xref %q", l.Xref)
	}
	if strings.ContainsAny(l.Payload, "\r\n") {
		return fmt.Errorf("%s payload contains a line break", l.Tag)
	}
	if l.Pointer && !IsXref(l.Payload) {
		return fmt.Errorf("malformed pointer %q", l.Payload)
	}

	var sb strings.Builder
	sb.WriteString(strconv.Itoa(l.Level))
	if l.Xref != "" {
		sb.WriteByte(' ')
		sb.WriteString(l.Xref)
	}
	sb.WriteByte(' ')
	sb.WriteString(l.Tag)
	if l.Payload != "" {
		sb.WriteByte(' ')
		if l.Pointer {
			sb.WriteString(l.Payload)
		} else {
			sb.WriteString(Escape(l.Payload, w.escape))
		}
	}
	sb.WriteByte('\n')

	out := sb.String()
	if _, err := w.w.WriteString(out); err != nil {
		return fmt.Errorf("write line %d: %w", w.lines+1, err)
	}
	if w.sum != nil {
		w.sum.Write([]byte(out))
		w.crc.Write([]byte(out))
	}
	w.lines++
	w.bytes += int64(len(out))
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Lines returns the number of lines written.
func (w *Writer) Lines() int { return w.lines }

// BytesWritten returns the number of bytes written.
func (w *Writer) BytesWritten() int64 { return w.bytes }

// Digest returns the checksums of everything written so far. It is the
// zero Digest unless the writer was created WithDigest.
func (w *Writer) Digest() Digest {
	if w.sum == nil {
		return Digest{}
	}
	var d Digest
	copy(d.SHA256[:], w.sum.Sum(nil))
	d.CRC32 = w.crc.Sum32()
	return d
}
