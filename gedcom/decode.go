package gedcom

import (
	"errors"
	"io"
	"log/slog"

	"github.com/Neumenon/gedcom7/registry"
	"github.com/Neumenon/gedcom7/stream"
)

// DecodeOptions configures Decode.
type DecodeOptions struct {
	Name        string // document name, for logs and reports
	FailFast    bool
	Escape      stream.EscapeMode
	MaxLineSize int
	Logger      *slog.Logger
}

// Decode reads a GEDCOM document. Each line is attached to the nearest
// open ancestor one level up; CONT and CONC lines are folded into their
// predecessor's payload.
//
// Decode checks line syntax and nesting only. Run Validate on the result
// for the structural rules. The returned document is usable even when
// the error is non-nil: in collect-all mode offending lines are skipped
// and the error joins every MalformedLineError; with FailFast the first
// one is returned.
func Decode(r io.Reader, reg *registry.Registry, opts DecodeOptions) (*Genealogy, *Report, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ropts := []stream.ReaderOption{stream.WithReadEscape(opts.Escape)}
	if opts.MaxLineSize > 0 {
		ropts = append(ropts, stream.WithMaxLineSize(opts.MaxLineSize))
	}
	d := &decoder{
		g:    New(opts.Name, reg),
		rd:   stream.NewReader(r, ropts...),
		opts: opts,
		skip: -1,
	}
	d.b = d.g.Builder()
	report := &Report{}
	var errs []error

	for {
		line, err := d.rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *stream.ParseError
			if !errors.As(err, &pe) {
				return d.g, report, err
			}
			err = &MalformedLineError{Line: pe.Line, Reason: pe.Reason, Err: pe}
		} else {
			err = d.line(line)
		}
		if err == nil {
			continue
		}

		var mle *MalformedLineError
		var dup *DuplicateXrefError
		code := CodeMalformedLine
		if errors.As(err, &dup) {
			code = CodeDuplicateXref
		}
		viol := Violation{Code: code, Line: d.rd.LineNo(), Message: err.Error(), Err: err}
		if errors.As(err, &mle) {
			viol.Message = mle.Reason
		}
		report.Violations = append(report.Violations, viol)
		errs = append(errs, err)
		log.Debug("malformed line", "document", opts.Name, "line", viol.Line, "error", err)
		if opts.FailFast {
			return d.g, report, err
		}
	}

	d.typePayloads()
	log.Debug("decoded",
		"document", opts.Name,
		"lines", d.rd.LineNo(),
		"bytes", d.rd.BytesRead(),
		"records", len(d.g.Records),
		"violations", len(report.Violations))
	return d.g, report, errors.Join(errs...)
}

type decoder struct {
	g     *Genealogy
	b     *Builder
	rd    *stream.Reader
	opts  DecodeOptions
	stack []*Node // open nodes, indexed by level
	skip  int     // level of a skipped line whose subtree is dropped, or -1
}

func (d *decoder) line(l *stream.Line) error {
	if d.skip >= 0 {
		if l.Level > d.skip {
			return nil
		}
		d.skip = -1
	}

	if l.Tag == "CONT" || l.Tag == "CONC" {
		return d.continuation(l)
	}
	if l.Level > len(d.stack) {
		d.skip = l.Level
		return &MalformedLineError{Line: l.LineNo, Text: l.String(), Reason: "level jumps by more than one"}
	}

	var parent *Node
	if l.Level > 0 {
		parent = d.stack[l.Level-1]
	}
	n := &Node{Tag: l.Tag, Line: l.LineNo}
	if l.Pointer {
		n.Payload = Pointer(Xref(l.Payload))
	} else {
		n.Payload = Text(l.Payload)
	}

	var err error
	n.Key, err = d.key(parent, l)
	if l.Xref != "" {
		if l.Level > 0 {
			err = errors.Join(err, &MalformedLineError{Line: l.LineNo, Text: l.String(), Reason: "xref below level 0"})
		} else {
			n.Xref = Xref(l.Xref)
			if berr := d.g.Xrefs.bind(n.Xref, n); berr != nil {
				err = errors.Join(err, berr)
			}
		}
	}

	d.b.link(parent, n)
	d.stack = append(d.stack[:l.Level], n)
	return err
}

// key resolves the registry key of a decoded line. Lines the registry
// permits elsewhere keep that key so Validate can report the misplacement.
func (d *decoder) key(parent *Node, l *stream.Line) (string, error) {
	reg := d.g.Registry
	parentKey := ""
	if parent != nil {
		if parent.IsUndocumented() {
			if !registry.IsExtensionTag(l.Tag) && !reg.KnownTag(l.Tag) {
				return "", d.unknownTag(l)
			}
			return d.b.extensionKey(l.Tag), nil
		}
		parentKey = parent.Key
	}
	if rule, ok := reg.Child(parentKey, l.Tag); ok {
		return rule.Key, nil
	}
	if registry.IsExtensionTag(l.Tag) {
		return d.b.extensionKey(l.Tag), nil
	}
	if e, err := reg.Lookup(l.Tag); err == nil {
		return e.Key, nil
	}
	return "", d.unknownTag(l)
}

func (d *decoder) unknownTag(l *stream.Line) error {
	reason := "unknown tag " + l.Tag
	if s := d.g.Registry.Suggest(l.Tag); s != "" {
		reason += " (did you mean " + s + "?)"
	}
	return &MalformedLineError{Line: l.LineNo, Text: l.String(), Reason: reason}
}

// continuation folds a CONT or CONC line into the node one level up,
// which must be the most recently opened node.
func (d *decoder) continuation(l *stream.Line) error {
	if l.Level == 0 || l.Level != len(d.stack) {
		return &MalformedLineError{Line: l.LineNo, Text: l.String(), Reason: "orphan " + l.Tag}
	}
	if l.Xref != "" {
		return &MalformedLineError{Line: l.LineNo, Text: l.String(), Reason: l.Tag + " cannot carry an xref"}
	}
	pred := d.stack[l.Level-1]
	if pred.Payload.Kind == PayloadPointer {
		return &MalformedLineError{Line: l.LineNo, Text: l.String(), Reason: l.Tag + " after a pointer"}
	}
	sep := ""
	if l.Tag == "CONT" {
		sep = "\n"
	}
	pred.Payload.Kind = PayloadText
	pred.Payload.Text += sep + l.Payload
	return nil
}

// typePayloads converts wire text to typed payloads. Failures leave the
// text in place for Validate to report.
func (d *decoder) typePayloads() {
	d.g.Walk(func(n *Node) bool {
		saved := n.Payload
		if err := d.b.typePayload(n); err != nil {
			n.Payload = saved
			return true
		}
		// Validate reports a time that does not fit its date.
		_ = d.b.linkTime(n)
		return true
	})
}
