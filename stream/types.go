// Package stream reads and writes GEDCOM lines.
//
// A GEDCOM document is a sequence of LF-terminated lines of the form
//
//	LEVEL [XREF] TAG [PAYLOAD]
//
// Reader yields one Line per physical line and Writer emits them. Neither
// knows about the structure tree: continuation lines (CONT, CONC) are
// passed through as ordinary lines, and level nesting is checked by the
// caller. Both sides apply '@' escaping so a Line always holds the
// decoded payload text.
package stream

import (
	"fmt"
	"strconv"
	"strings"
)

// EscapeMode selects how '@' is escaped in payload text.
type EscapeMode uint8

const (
	// EscapeLeading doubles only a leading '@' (GEDCOM 7).
	EscapeLeading EscapeMode = iota
	// EscapeAll doubles every '@'.
	EscapeAll
)

// String returns the mode name.
func (m EscapeMode) String() string {
	switch m {
	case EscapeLeading:
		return "leading"
	case EscapeAll:
		return "all"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// ParseEscapeMode parses "leading" or "all".
func ParseEscapeMode(s string) (EscapeMode, bool) {
	switch strings.ToLower(s) {
	case "leading", "":
		return EscapeLeading, true
	case "all":
		return EscapeAll, true
	}
	return 0, false
}

// Line is one GEDCOM line.
type Line struct {
	Level   int
	Xref    string // "@I1@" or empty
	Tag     string
	Payload string // decoded text, or the pointer for pointer payloads
	Pointer bool   // Payload is a cross-reference such as "@I1@"
	LineNo  int    // 1-based, set by Reader
}

// HasPayload reports whether the line carries a payload.
func (l *Line) HasPayload() bool { return l.Payload != "" }

// String renders the line without escaping, for diagnostics.
func (l *Line) String() string {
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
		sb.WriteString(l.Payload)
	}
	return sb.String()
}

// MaxLineSize is the default maximum physical line length (1 MiB).
const MaxLineSize = 1 << 20

// ParseError reports a line that does not have the LEVEL [XREF] TAG
// [PAYLOAD] shape.
type ParseError struct {
	Reason string
	Line   int // 1-based line number
	Offset int // byte offset within the line, -1 if unknown
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("line %d: %s at offset %d", e.Line, e.Reason, e.Offset)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// IsXref reports whether s is a well-formed cross-reference identifier
// such as "@I1@" or "@VOID@".
func IsXref(s string) bool {
	if len(s) < 3 || s[0] != '@' || s[len(s)-1] != '@' {
		return false
	}
	for i := 1; i < len(s)-1; i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

// IsTag reports whether s is a well-formed standard or extension tag.
func IsTag(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '_' {
		if len(s) == 1 {
			return false
		}
		i = 1
	} else if s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

// Escape applies '@' escaping to payload text.
func Escape(text string, mode EscapeMode) string {
	if mode == EscapeAll {
		return strings.ReplaceAll(text, "@", "@@")
	}
	if strings.HasPrefix(text, "@") {
		return "@" + text
	}
	return text
}

// Unescape reverses Escape.
func Unescape(text string, mode EscapeMode) string {
	if mode == EscapeAll {
		return strings.ReplaceAll(text, "@@", "@")
	}
	if strings.HasPrefix(text, "@@") {
		return text[1:]
	}
	return text
}
