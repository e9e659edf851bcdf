package gedcom

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Neumenon/gedcom7/stream"
)

// EncodeOptions configures an Encoder.
type EncodeOptions struct {
	// MaxLineLength splits payload text into CONC lines of at most this
	// many bytes. Zero disables splitting.
	MaxLineLength int
	Escape        stream.EscapeMode
	Digest        bool
}

// Encoder writes record trees as GEDCOM lines.
type Encoder struct {
	w    *stream.Writer
	opts EncodeOptions
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer, opts EncodeOptions) *Encoder {
	wopts := []stream.WriterOption{stream.WithWriteEscape(opts.Escape)}
	if opts.Digest {
		wopts = append(wopts, stream.WithDigest())
	}
	return &Encoder{w: stream.NewWriter(w, wopts...), opts: opts}
}

// Encode writes records in order, each followed by its subtree, and
// flushes.
func (e *Encoder) Encode(records []*Node) error {
	for _, r := range records {
		if err := e.node(r, 0); err != nil {
			return err
		}
	}
	return e.w.Flush()
}

// Lines returns the number of lines written.
func (e *Encoder) Lines() int { return e.w.Lines() }

// BytesWritten returns the number of bytes written.
func (e *Encoder) BytesWritten() int64 { return e.w.BytesWritten() }

// Digest returns the checksums of the output when enabled.
func (e *Encoder) Digest() stream.Digest { return e.w.Digest() }

// Encode writes records to w.
func Encode(w io.Writer, records []*Node, opts EncodeOptions) error {
	return NewEncoder(w, opts).Encode(records)
}

// Encode writes the document to w.
func (g *Genealogy) Encode(w io.Writer, opts EncodeOptions) error {
	return Encode(w, g.Records, opts)
}

func (e *Encoder) node(n *Node, level int) error {
	if !stream.IsTag(n.Tag) {
		return &EncodingError{Path: n.Path(), Reason: fmt.Sprintf("malformed tag %q", n.Tag)}
	}
	if n.Xref != "" && !n.Xref.IsValid() {
		return &EncodingError{Path: n.Path(), Reason: fmt.Sprintf("malformed xref %q", n.Xref)}
	}

	if n.Payload.Kind == PayloadPointer {
		if !n.Payload.Pointer.IsValid() {
			return &EncodingError{Path: n.Path(), Reason: fmt.Sprintf("malformed pointer %q", n.Payload.Pointer)}
		}
		line := &stream.Line{Level: level, Xref: string(n.Xref), Tag: n.Tag, Payload: string(n.Payload.Pointer), Pointer: true}
		if err := e.write(n, line); err != nil {
			return err
		}
	} else if err := e.text(n, level); err != nil {
		return err
	}

	for _, ch := range n.Children {
		if err := e.node(ch, level+1); err != nil {
			return err
		}
	}
	return nil
}

// text writes the node line and any CONT and CONC continuations.
func (e *Encoder) text(n *Node, level int) error {
	text := n.Payload.Text
	if err := checkText(text); err != nil {
		return &EncodingError{Path: n.Path(), Reason: err.Error()}
	}

	for i, segment := range strings.Split(text, "\n") {
		tag, lvl, xref := "CONT", level+1, ""
		if i == 0 {
			tag, lvl, xref = n.Tag, level, string(n.Xref)
		}
		chunks := e.split(segment)
		if err := e.write(n, &stream.Line{Level: lvl, Xref: xref, Tag: tag, Payload: chunks[0]}); err != nil {
			return err
		}
		for _, c := range chunks[1:] {
			if err := e.write(n, &stream.Line{Level: level + 1, Tag: "CONC", Payload: c}); err != nil {
				return err
			}
		}
	}
	return nil
}

// split cuts s into chunks of at most MaxLineLength bytes without
// breaking a UTF-8 sequence.
func (e *Encoder) split(s string) []string {
	max := e.opts.MaxLineLength
	if max <= 0 || len(s) <= max {
		return []string{s}
	}
	var out []string
	for len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(s)
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return append(out, s)
}

func (e *Encoder) write(n *Node, l *stream.Line) error {
	if err := e.w.WriteLine(l); err != nil {
		return &EncodingError{Path: n.Path(), Reason: err.Error()}
	}
	return nil
}

// checkText rejects characters a GEDCOM file may not contain. Line feeds
// are allowed and become CONT lines.
func checkText(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("payload is not valid UTF-8")
	}
	for i, r := range s {
		switch {
		case r == '\t' || r == '\n':
		case r < 0x20 || r == 0x7F:
			return fmt.Errorf("banned character U+%04X at offset %d", r, i)
		case r == 0xFFFE || r == 0xFFFF:
			return fmt.Errorf("banned character U+%04X at offset %d", r, i)
		}
	}
	return nil
}
