package stream

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Reader reads GEDCOM lines from an io.Reader.
type Reader struct {
	r       *bufio.Reader
	maxLine int
	escape  EscapeMode
	lineNo  int
	bytes   int64
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxLineSize sets the maximum physical line length (default: 1 MiB).
func WithMaxLineSize(max int) ReaderOption {
	return func(r *Reader) {
		r.maxLine = max
	}
}

// WithReadEscape sets the '@' escaping convention of the input.
func WithReadEscape(mode EscapeMode) ReaderOption {
	return func(r *Reader) {
		r.escape = mode
	}
}

// NewReader creates a new line reader.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:       bufio.NewReader(r),
		maxLine: MaxLineSize,
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Next reads and returns the next line. A trailing CR is dropped.
// Returns io.EOF when no more lines are available.
func (r *Reader) Next() (*Line, error) {
	text, err := r.r.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return nil, fmt.Errorf("read line %d: %w", r.lineNo+1, err)
		}
		if text == "" {
			return nil, io.EOF
		}
	}
	r.lineNo++
	r.bytes += int64(len(text))

	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")
	if r.lineNo == 1 {
		text = strings.TrimPrefix(text, "\uFEFF")
	}
	if len(text) > r.maxLine {
		return nil, &ParseError{Reason: fmt.Sprintf("line too long: %d > %d", len(text), r.maxLine), Line: r.lineNo, Offset: -1}
	}
	return r.parse(text)
}

// parse splits LEVEL [XREF] TAG [PAYLOAD].
func (r *Reader) parse(text string) (*Line, error) {
	line := &Line{LineNo: r.lineNo}
	if text == "" {
		return nil, r.errorf(0, "blank line")
	}

	// Level
	i := 0
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i == 0 {
		return nil, r.errorf(0, "expected level")
	}
	if i > 1 && text[0] == '0' {
		return nil, r.errorf(0, "level has leading zero")
	}
	level, err := strconv.Atoi(text[:i])
	if err != nil {
		return nil, r.errorf(0, "level out of range")
	}
	line.Level = level
	if i >= len(text) || text[i] != ' ' {
		return nil, r.errorf(i, "expected space after level")
	}
	i++

	// Optional xref
	if i < len(text) && text[i] == '@' {
		end := strings.IndexByte(text[i+1:], '@')
		if end < 0 {
			return nil, r.errorf(i, "unterminated xref")
		}
		xref := text[i : i+end+2]
		if !IsXref(xref) {
			return nil, r.errorf(i, "malformed xref %q", xref)
		}
		line.Xref = xref
		i += end + 2
		if i >= len(text) || text[i] != ' ' {
			return nil, r.errorf(i, "expected space after xref")
		}
		i++
	}

	// Tag
	start := i
	for i < len(text) && text[i] != ' ' {
		i++
	}
	line.Tag = text[start:i]
	if !IsTag(line.Tag) {
		return nil, r.errorf(start, "malformed tag %q", line.Tag)
	}

	// Payload
	if i < len(text) {
		payload := text[i+1:]
		if IsXref(payload) {
			line.Payload = payload
			line.Pointer = true
		} else {
			line.Payload = Unescape(payload, r.escape)
		}
	}
	return line, nil
}

func (r *Reader) errorf(offset int, format string, args ...any) error {
	return &ParseError{Reason: fmt.Sprintf(format, args...), Line: r.lineNo, Offset: offset}
}

// LineNo returns the number of lines read so far.
func (r *Reader) LineNo() int { return r.lineNo }

// BytesRead returns the number of bytes consumed so far.
func (r *Reader) BytesRead() int64 { return r.bytes }

// ReadAll reads all lines until EOF.
func (r *Reader) ReadAll() ([]*Line, error) {
	var lines []*Line
	for {
		line, err := r.Next()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}
