package gedcom

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Neumenon/gedcom7/chrono"
	"github.com/Neumenon/gedcom7/registry"
)

// Violation codes.
const (
	CodeNotPermitted  = "not_permitted"
	CodeUnknownTag    = "unknown_tag"
	CodeCardinality   = "cardinality"
	CodeRequired      = "required"
	CodeEnum          = "enum"
	CodeUnresolved    = "unresolved_xref"
	CodePointerKind   = "pointer_kind"
	CodeDate          = "date"
	CodePayload       = "payload"
	CodeEnvelope      = "envelope"
	CodeMalformedLine = "malformed_line"
	CodeDuplicateXref = "duplicate_xref"
)

// Violation is one problem found in a document.
type Violation struct {
	Code    string
	Path    string // tag path, e.g. "FAM.MARR.DATE"
	Line    int    // source line, 0 when built in memory
	Message string
	Err     error
}

func (v Violation) Error() string {
	var sb strings.Builder
	if v.Line > 0 {
		fmt.Fprintf(&sb, "line %d: ", v.Line)
	}
	if v.Path != "" {
		sb.WriteString(v.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(v.Message)
	return sb.String()
}

func (v Violation) Unwrap() error { return v.Err }

// Report is the ordered list of violations found by a pass.
type Report struct {
	Violations []Violation
	Warnings   []Violation
}

// Valid reports whether no violations were found.
func (r *Report) Valid() bool { return len(r.Violations) == 0 }

// Err joins every violation into one error, nil when valid.
func (r *Report) Err() error {
	if r.Valid() {
		return nil
	}
	errs := make([]error, len(r.Violations))
	for i, v := range r.Violations {
		errs[i] = v
	}
	return errors.Join(errs...)
}

// Codes returns the violation codes in order.
func (r *Report) Codes() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Code
	}
	return out
}

// Mode selects how many violations a pass collects.
type Mode uint8

const (
	ModeCollectAll Mode = iota
	ModeFailFast
)

// ValidateOptions configures a Validator.
type ValidateOptions struct {
	Mode            Mode
	RequireEnvelope bool // HEAD first and TRLR last
	Logger          *slog.Logger
}

// Validator checks a document against its registry.
//
// Per node the checks run in a fixed order: children permitted,
// cardinalities, required children, enumeration membership, pointer
// resolution. Payload shape and dates follow.
type Validator struct {
	opts   ValidateOptions
	g      *Genealogy
	reg    *registry.Registry
	b      *Builder
	schema map[string]string
	log    *slog.Logger
	report *Report
	stop   bool
}

// NewValidator creates a validator.
func NewValidator(opts ValidateOptions) *Validator {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Validator{opts: opts, log: log}
}

// Validate checks g and returns its report.
func Validate(g *Genealogy, opts ValidateOptions) *Report {
	return NewValidator(opts).Validate(g)
}

// Validate checks g and returns its report.
func (v *Validator) Validate(g *Genealogy) *Report {
	v.g, v.reg, v.b = g, g.Registry, g.Builder()
	v.schema = g.Schema()
	v.report = &Report{}
	v.stop = false

	v.checkChildren(nil, g.Records)
	if v.opts.RequireEnvelope {
		v.checkEnvelope()
	}
	for _, r := range g.Records {
		if v.stop {
			break
		}
		v.checkNode(r)
	}

	v.log.Debug("validated",
		"document", g.Name,
		"records", len(g.Records),
		"violations", len(v.report.Violations),
		"warnings", len(v.report.Warnings))
	return v.report
}

func (v *Validator) addError(n *Node, code string, err error, format string, args ...any) {
	if v.stop {
		return
	}
	viol := Violation{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
	if n != nil {
		viol.Path, viol.Line = n.Path(), n.Line
	}
	v.report.Violations = append(v.report.Violations, viol)
	if v.opts.Mode == ModeFailFast {
		v.stop = true
	}
}

func (v *Validator) addWarning(n *Node, code, format string, args ...any) {
	v.report.Warnings = append(v.report.Warnings, Violation{
		Code:    code,
		Path:    n.Path(),
		Line:    n.Line,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *Validator) checkNode(n *Node) {
	if v.stop {
		return
	}
	entry, ok := v.reg.Entry(n.Key)
	if !ok {
		// Undocumented extensions are opaque apart from their tags.
		if registry.IsExtensionTag(n.Tag) {
			if _, declared := v.schema[n.Tag]; !declared {
				v.addWarning(n, CodeUnknownTag, "extension %s is not documented in HEAD.SCHMA", n.Tag)
			}
			v.checkOpaque(n)
			return
		}
		v.addError(n, CodeUnknownTag, &InvalidChildError{Parent: parentPath(n), Tag: n.Tag, Reason: "unknown tag", Suggestion: v.reg.Suggest(n.Tag)},
			"unknown tag %s", n.Tag)
		return
	}

	v.checkChildren(n, n.Children)
	v.checkEnum(n, entry)
	v.checkPointer(n, entry)
	v.checkPayload(n, entry)

	for _, ch := range n.Children {
		v.checkNode(ch)
	}
}

// checkOpaque reports tags beneath an undocumented extension that are
// neither extension tags nor known anywhere in the registry.
func (v *Validator) checkOpaque(n *Node) {
	for _, ch := range n.Children {
		if v.stop {
			return
		}
		if !registry.IsExtensionTag(ch.Tag) && !v.reg.KnownTag(ch.Tag) {
			v.addError(ch, CodeUnknownTag, &InvalidChildError{Parent: n.Path(), Tag: ch.Tag, Reason: "unknown tag", Suggestion: v.reg.Suggest(ch.Tag)},
				"unknown tag %s", ch.Tag)
		}
		v.checkOpaque(ch)
	}
}

// checkChildren applies the permitted, cardinality and required checks
// for one parent. A nil parent checks level-0 records.
func (v *Validator) checkChildren(parent *Node, children []*Node) {
	key, path := "", ""
	if parent != nil {
		key, path = parent.Key, parent.Path()
	}
	for _, ch := range children {
		if registry.IsExtensionTag(ch.Tag) {
			continue
		}
		rule, ok := v.reg.Child(key, ch.Tag)
		if !ok {
			if !v.reg.KnownTag(ch.Tag) {
				continue // reported as unknown_tag by checkNode
			}
			rules := v.reg.PermittedChildren(key)
			v.addError(ch, CodeNotPermitted, &InvalidChildError{Parent: path, Tag: ch.Tag, Reason: "not permitted", Suggestion: suggest(ch.Tag, rules)},
				"%s is not permitted here", ch.Tag)
			continue
		}
		if ch.Key != "" && ch.Key != rule.Key {
			v.addError(ch, CodeNotPermitted, &InvalidChildError{Parent: path, Tag: ch.Tag, Reason: "wrong structure " + ch.Key},
				"%s is %s here, not %s", ch.Tag, rule.Key, ch.Key)
		}
	}

	counts := make(map[string]int)
	firstOver := make(map[string]*Node)
	for _, ch := range children {
		counts[ch.Tag]++
		if _, ok := firstOver[ch.Tag]; !ok {
			if rule, ok := v.reg.Child(key, ch.Tag); ok && !rule.Cardinality.Allows(counts[ch.Tag]) {
				firstOver[ch.Tag] = ch
			}
		}
	}
	for _, rule := range v.reg.PermittedChildren(key) {
		if ch, ok := firstOver[rule.Tag]; ok {
			v.addError(ch, CodeCardinality, &CardinalityExceededError{Parent: path, Tag: rule.Tag, Max: rule.Cardinality.Max},
				"%d %s found, %s allowed", counts[rule.Tag], rule.Tag, rule.Cardinality)
		}
	}
	for _, rule := range v.reg.PermittedChildren(key) {
		if rule.Cardinality.IsRequired() && counts[rule.Tag] == 0 {
			v.addViolation(parent, Violation{Code: CodeRequired, Path: path, Message: "missing required " + rule.Tag,
				Err: fmt.Errorf("%w: %s", ErrRequired, rule.Tag)})
		}
	}
}

// addViolation records a violation located at parent rather than at a
// node of its own.
func (v *Validator) addViolation(parent *Node, viol Violation) {
	if v.stop {
		return
	}
	if parent != nil {
		viol.Line = parent.Line
	}
	v.report.Violations = append(v.report.Violations, viol)
	if v.opts.Mode == ModeFailFast {
		v.stop = true
	}
}

func (v *Validator) checkEnum(n *Node, entry *registry.Entry) {
	kind := entry.Payload.Kind
	if kind != registry.PayloadEnum && kind != registry.PayloadEnumList {
		return
	}
	if n.Payload.Text == "" {
		return
	}
	set, ok := v.reg.EnumSet(entry.EnumSet)
	if !ok {
		return
	}
	values := []string{n.Payload.Text}
	if kind == registry.PayloadEnumList {
		values = strings.Split(n.Payload.Text, ",")
	}
	for _, val := range values {
		val = strings.TrimSpace(val)
		if set.Contains(val) || registry.IsExtensionTag(val) {
			continue
		}
		v.addError(n, CodeEnum, fmt.Errorf("%w: %q not in %s", ErrPayload, val, set.Key),
			"%q is not a value of %s", val, set.Key)
	}
}

func (v *Validator) checkPointer(n *Node, entry *registry.Entry) {
	if entry.Payload.Kind != registry.PayloadPointer {
		if n.Payload.Kind == PayloadPointer {
			v.addError(n, CodePayload, fmt.Errorf("%w: unexpected pointer", ErrPayload),
				"%s does not take a pointer", n.Tag)
		}
		return
	}
	if n.Payload.Kind != PayloadPointer {
		v.addError(n, CodePayload, fmt.Errorf("%w: %q is not a pointer", ErrPayload, n.Payload.Text),
			"%s requires a pointer", n.Tag)
		return
	}
	target, err := v.g.Xrefs.Resolve(n.Payload.Pointer)
	if err != nil {
		v.addError(n, CodeUnresolved, err, "%s does not resolve", n.Payload.Pointer)
		return
	}
	if target == nil || entry.Payload.Target == "" {
		return
	}
	if target.Key != entry.Payload.Target {
		v.addError(n, CodePointerKind, fmt.Errorf("%w: %s points to %s", ErrPayload, n.Payload.Pointer, target.Tag),
			"%s points to a %s record, want %s", n.Payload.Pointer, target.Tag, entry.Payload.Target)
	}
}

func (v *Validator) checkPayload(n *Node, entry *registry.Entry) {
	text := n.Payload.Text
	switch entry.Payload.Kind {
	case registry.PayloadNone:
		if !n.Payload.IsZero() {
			v.addError(n, CodePayload, fmt.Errorf("%w: %q", ErrPayload, text), "%s takes no payload", n.Tag)
		}
	case registry.PayloadOptionalY:
		if text != "" && text != "Y" {
			v.addError(n, CodePayload, fmt.Errorf("%w: %q", ErrPayload, text), "%s payload must be Y or empty", n.Tag)
		}
	case registry.PayloadInteger:
		if text != "" && strings.Trim(text, "0123456789") != "" {
			v.addError(n, CodePayload, fmt.Errorf("%w: %q", ErrPayload, text), "%s payload must be a non-negative integer", n.Tag)
		}
	case registry.PayloadDate, registry.PayloadDatePeriod, registry.PayloadDateExact:
		if err := v.dateError(n); err != nil {
			v.addError(n, CodeDate, err, "%v", err)
		}
	case registry.PayloadTime:
		if err := v.timeError(n); err != nil {
			v.addError(n, CodeDate, err, "%v", err)
		}
	}
}

// dateError types a copy of n's payload, leaving the tree untouched.
func (v *Validator) dateError(n *Node) error {
	if n.Payload.IsZero() {
		return nil
	}
	if n.Payload.Date != nil {
		if err := n.Payload.Date.Validate(); err != nil {
			return err
		}
		return chrono.Check(v.reg, *n.Payload.Date)
	}
	tmp := &Node{Tag: n.Tag, Key: n.Key, Payload: n.Payload, parent: n.parent}
	return v.b.typePayload(tmp)
}

func (v *Validator) timeError(n *Node) error {
	t, err := chrono.ParseTime(n.Payload.Text)
	if err != nil {
		return err
	}
	p := n.parent
	if p == nil || p.Payload.IsZero() {
		return nil
	}
	date := p.Payload.Date
	if date == nil {
		tmp := &Node{Tag: p.Tag, Key: p.Key, Payload: p.Payload, parent: p.parent}
		if v.b.typePayload(tmp) != nil || tmp.Payload.Date == nil {
			return nil // reported on the date itself
		}
		date = tmp.Payload.Date
	}
	return date.WithTime(t).Validate()
}

func (v *Validator) checkEnvelope() {
	recs := v.g.Records
	if len(recs) == 0 || recs[0].Tag != "HEAD" {
		v.addViolation(nil, Violation{Code: CodeEnvelope, Message: "document must start with HEAD",
			Err: fmt.Errorf("%w: missing HEAD", ErrRequired)})
	}
	if len(recs) == 0 || recs[len(recs)-1].Tag != "TRLR" {
		v.addViolation(nil, Violation{Code: CodeEnvelope, Message: "document must end with TRLR",
			Err: fmt.Errorf("%w: missing TRLR", ErrRequired)})
	}
}

func parentPath(n *Node) string {
	if n.parent == nil {
		return ""
	}
	return n.parent.Path()
}
