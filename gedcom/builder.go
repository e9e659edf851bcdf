package gedcom

import (
	"fmt"

	"github.com/agnivade/levenshtein"

	"github.com/Neumenon/gedcom7/chrono"
	"github.com/Neumenon/gedcom7/registry"
	"github.com/Neumenon/gedcom7/stream"
)

// Builder attaches nodes to a document, enforcing the registry's child
// rules and maximum cardinalities as it goes. Minimum cardinalities and
// pointer resolution are left to the Validator since a tree under
// construction is legitimately incomplete.
type Builder struct {
	g   *Genealogy
	reg *registry.Registry
}

// AttachChild appends a child with tag under parent, or a level-0 record
// when parent is nil. The payload is typed from the registry: pointer
// text becomes a pointer, date text is parsed. Only records may carry an
// xref.
func (b *Builder) AttachChild(parent *Node, tag string, payload Payload, xref Xref) (*Node, error) {
	parentPath := ""
	if parent != nil {
		parentPath = parent.Path()
	}
	if !stream.IsTag(tag) {
		return nil, &InvalidChildError{Parent: parentPath, Tag: tag, Reason: "malformed tag"}
	}
	if xref != "" && parent != nil {
		return nil, &InvalidChildError{Parent: parentPath, Tag: tag, Reason: "only records carry an xref"}
	}

	key, rule, ruled, err := b.resolve(parent, tag)
	if err != nil {
		return nil, err
	}
	if ruled {
		count := b.g.Count(tag)
		if parent != nil {
			count = parent.Count(tag)
		}
		if !rule.Cardinality.Allows(count + 1) {
			return nil, &CardinalityExceededError{Parent: parentPath, Tag: tag, Max: rule.Cardinality.Max}
		}
	}
	if xref != "" {
		if err := b.g.Xrefs.available(tag, xref); err != nil {
			return nil, err
		}
	}

	n := &Node{Tag: tag, Key: key, Payload: payload, Xref: xref, parent: parent}
	if err := b.typePayload(n); err != nil {
		return nil, fmt.Errorf("%s: %w", n.Path(), err)
	}
	if err := b.linkTime(n); err != nil {
		return nil, fmt.Errorf("%s: %w", n.Path(), err)
	}
	if xref != "" {
		if err := b.g.Xrefs.bind(xref, n); err != nil {
			return nil, err
		}
	}
	b.link(parent, n)
	return n, nil
}

// Add attaches a child whose payload is guessed from wire text.
func (b *Builder) Add(parent *Node, tag, text string) (*Node, error) {
	return b.AttachChild(parent, tag, ParsePayload(text), "")
}

// Record appends a level-0 record with an allocated identifier.
func (b *Builder) Record(tag string) (*Node, error) {
	x, err := b.g.Xrefs.Allocate(tag, "")
	if err != nil {
		return nil, err
	}
	n, err := b.AttachChild(nil, tag, NoPayload, x)
	if err != nil {
		b.g.Xrefs.release(tag, x)
		return nil, err
	}
	return n, nil
}

// Header appends a HEAD record declaring the given GEDCOM version.
func (b *Builder) Header(version string) (*Node, error) {
	head, err := b.AttachChild(nil, "HEAD", NoPayload, "")
	if err != nil {
		return nil, err
	}
	gedc, err := b.AttachChild(head, "GEDC", NoPayload, "")
	if err != nil {
		return nil, err
	}
	if _, err := b.AttachChild(gedc, "VERS", Text(version), ""); err != nil {
		return nil, err
	}
	return head, nil
}

// Trailer appends the TRLR record.
func (b *Builder) Trailer() (*Node, error) {
	return b.AttachChild(nil, "TRLR", NoPayload, "")
}

// AssignUIDs gives every record that permits a UID and has none a fresh
// one. It returns the number assigned.
func (b *Builder) AssignUIDs() (int, error) {
	assigned := 0
	for _, r := range b.g.Records {
		if r.Key == "" || r.First("UID") != nil {
			continue
		}
		if _, ok := b.reg.Child(r.Key, "UID"); !ok {
			continue
		}
		if _, err := b.AttachChild(r, "UID", Text(NewUID()), ""); err != nil {
			return assigned, err
		}
		assigned++
	}
	return assigned, nil
}

// resolve finds the registry key for tag under parent. ruled reports
// whether a child rule applies.
func (b *Builder) resolve(parent *Node, tag string) (key string, rule registry.ChildRule, ruled bool, err error) {
	parentKey := ""
	parentPath := ""
	if parent != nil {
		if parent.IsUndocumented() {
			if !registry.IsExtensionTag(tag) && !b.reg.KnownTag(tag) {
				return "", rule, false, &InvalidChildError{
					Parent:     parent.Path(),
					Tag:        tag,
					Reason:     "unknown tag",
					Suggestion: b.reg.Suggest(tag),
				}
			}
			return b.extensionKey(tag), rule, false, nil
		}
		parentKey = parent.Key
		parentPath = parent.Path()
	}
	if rule, ok := b.reg.Child(parentKey, tag); ok {
		return rule.Key, rule, true, nil
	}
	if registry.IsExtensionTag(tag) {
		return b.extensionKey(tag), rule, false, nil
	}
	return "", rule, false, &InvalidChildError{
		Parent:     parentPath,
		Tag:        tag,
		Reason:     "not permitted",
		Suggestion: suggest(tag, b.reg.PermittedChildren(parentKey)),
	}
}

// extensionKey returns the key of a documented extension using tag, or
// the empty key.
func (b *Builder) extensionKey(tag string) string {
	for _, e := range b.reg.ByTag(tag) {
		if e.Extension {
			return e.Key
		}
	}
	return ""
}

func (b *Builder) link(parent, n *Node) {
	n.parent = parent
	if parent == nil {
		b.g.Records = append(b.g.Records, n)
		return
	}
	parent.Children = append(parent.Children, n)
}

// typePayload converts wire text to the variant the registry declares.
func (b *Builder) typePayload(n *Node) error {
	entry, ok := b.reg.Entry(n.Key)
	if !ok || n.Payload.IsZero() {
		return nil
	}
	p := &n.Payload
	switch entry.Payload.Kind {
	case registry.PayloadPointer:
		if p.Kind == PayloadText && stream.IsXref(p.Text) {
			*p = Pointer(Xref(p.Text))
		}
	case registry.PayloadEnum, registry.PayloadEnumList:
		if p.Kind == PayloadText {
			p.Kind = PayloadEnum
		}
	case registry.PayloadDate, registry.PayloadDatePeriod:
		if p.Kind == PayloadPointer {
			return nil
		}
		if p.Text == "" && p.Date != nil {
			p.Text = p.Date.String()
		}
		v, err := chrono.Parse(b.reg, p.Text)
		if err != nil {
			return err
		}
		if entry.Payload.Kind == registry.PayloadDatePeriod && !v.IsEmpty() && !v.Qualifier.IsPeriod() {
			return &chrono.InvalidDateError{Text: p.Text, Pos: -1, Msg: "not a date period"}
		}
		if p.Date != nil && p.Date.Time != nil {
			v.Time = p.Date.Time
			if err := v.Validate(); err != nil {
				return err
			}
		}
		p.Kind, p.Date = PayloadDate, &v
	case registry.PayloadDateExact:
		if p.Kind == PayloadPointer {
			return nil
		}
		if p.Text == "" && p.Date != nil {
			p.Text = p.Date.String()
		}
		d, err := chrono.ParseExact(b.reg, p.Text)
		if err != nil {
			return err
		}
		p.Kind, p.Date = PayloadDate, &chrono.DateValue{Start: &d}
	}
	return nil
}

// linkTime copies a TIME payload onto its parent date, rejecting a time
// on a range or period.
func (b *Builder) linkTime(n *Node) error {
	entry, ok := b.reg.Entry(n.Key)
	if !ok || entry.Payload.Kind != registry.PayloadTime || n.parent == nil {
		return nil
	}
	date := n.parent.Payload.Date
	if date == nil {
		return nil
	}
	t, err := chrono.ParseTime(n.Payload.Text)
	if err != nil {
		return err
	}
	v := date.WithTime(t)
	if err := v.Validate(); err != nil {
		return err
	}
	n.parent.Payload.Date = &v
	return nil
}

// suggest returns the permitted tag closest to tag, or "".
func suggest(tag string, rules []registry.ChildRule) string {
	best, bestDist := "", 3
	for _, r := range rules {
		if d := levenshtein.ComputeDistance(tag, r.Tag); d < bestDist {
			best, bestDist = r.Tag, d
		}
	}
	return best
}
