package gedcom

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Neumenon/gedcom7/stream"
)

// Xref is a cross-reference identifier in wire form, e.g. "@I1@".
type Xref string

// Void is the null pointer. It is never allocated.
const Void Xref = "@VOID@"

// IsValid reports whether x has the @ID@ shape.
func (x Xref) IsValid() bool { return stream.IsXref(string(x)) }

// ID returns the identifier without its delimiters.
func (x Xref) ID() string { return strings.Trim(string(x), "@") }

// Prefixes used when allocating identifiers for record kinds.
var kindPrefixes = map[string]string{
	"FAM":   "F",
	"INDI":  "I",
	"OBJE":  "O",
	"REPO":  "R",
	"SNOTE": "N",
	"SOUR":  "S",
	"SUBM":  "U",
}

func kindPrefix(kind string) string {
	if p, ok := kindPrefixes[kind]; ok {
		return p
	}
	return "X"
}

type xrefEntry struct {
	kind string
	node *Node
}

// XrefTable allocates identifiers and binds them to records. Identifiers
// are unique across the whole document regardless of kind.
type XrefTable struct {
	entries  map[Xref]*xrefEntry
	order    []Xref
	counters map[string]int
}

// NewXrefTable returns an empty table.
func NewXrefTable() *XrefTable {
	return &XrefTable{
		entries:  make(map[Xref]*xrefEntry),
		counters: make(map[string]int),
	}
}

// Allocate reserves an identifier for a record of kind. With an empty
// request the next free "@<prefix><n>@" is returned; otherwise requested
// is reserved as given.
func (t *XrefTable) Allocate(kind string, requested Xref) (Xref, error) {
	if requested != "" {
		if err := t.reserve(kind, requested); err != nil {
			return "", err
		}
		return requested, nil
	}
	prefix := kindPrefix(kind)
	for {
		t.counters[prefix]++
		x := Xref("@" + prefix + strconv.Itoa(t.counters[prefix]) + "@")
		if _, taken := t.entries[x]; !taken {
			if err := t.reserve(kind, x); err != nil {
				return "", err
			}
			return x, nil
		}
	}
}

// AllocateNamed derives an identifier from a human name: "joe smith"
// becomes "@JOE_SMITH@". With initial set a per-name counter is appended,
// so "n" yields "@N1@", "@N2@" and so on.
func (t *XrefTable) AllocateNamed(kind, name string, initial bool) (Xref, error) {
	base := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	if base == "" {
		return t.Allocate(kind, "")
	}
	if !initial {
		x := Xref("@" + base + "@")
		if _, taken := t.entries[x]; taken {
			return "", &DuplicateXrefError{Xref: x, Reason: fmt.Sprintf("built from %q already exists", name)}
		}
		if err := t.reserve(kind, x); err != nil {
			return "", err
		}
		return x, nil
	}
	for {
		t.counters["name:"+base]++
		x := Xref("@" + base + strconv.Itoa(t.counters["name:"+base]) + "@")
		if _, taken := t.entries[x]; !taken {
			if err := t.reserve(kind, x); err != nil {
				return "", err
			}
			return x, nil
		}
	}
}

func (t *XrefTable) reserve(kind string, x Xref) error {
	if !x.IsValid() {
		return &DuplicateXrefError{Xref: x, Reason: "not a valid identifier"}
	}
	if x == Void {
		return &DuplicateXrefError{Xref: x, Reason: "reserved for the null pointer"}
	}
	if _, taken := t.entries[x]; taken {
		return &DuplicateXrefError{Xref: x}
	}
	t.entries[x] = &xrefEntry{kind: kind}
	t.order = append(t.order, x)
	return nil
}

// release forgets an identifier that was reserved but never bound. The
// allocation counter is rewound when x was the last one it produced.
func (t *XrefTable) release(kind string, x Xref) {
	e, ok := t.entries[x]
	if !ok || e.node != nil {
		return
	}
	delete(t.entries, x)
	if i := slices.Index(t.order, x); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
	prefix := kindPrefix(kind)
	if n := t.counters[prefix]; n > 0 && x == Xref("@"+prefix+strconv.Itoa(n)+"@") {
		t.counters[prefix]--
	}
}

// available reports whether x can be bound to a new record of kind.
func (t *XrefTable) available(kind string, x Xref) error {
	if !x.IsValid() {
		return &DuplicateXrefError{Xref: x, Reason: "not a valid identifier"}
	}
	if x == Void {
		return &DuplicateXrefError{Xref: x, Reason: "reserved for the null pointer"}
	}
	e, ok := t.entries[x]
	if !ok {
		return nil
	}
	if e.node != nil {
		return &DuplicateXrefError{Xref: x, Reason: "already bound to a " + e.kind + " record"}
	}
	if e.kind != kind {
		return &DuplicateXrefError{Xref: x, Reason: "allocated for a " + e.kind + " record"}
	}
	return nil
}

// bind attaches n to x, reserving x first when it was never allocated.
func (t *XrefTable) bind(x Xref, n *Node) error {
	if err := t.available(n.Tag, x); err != nil {
		return err
	}
	if _, ok := t.entries[x]; !ok {
		if err := t.reserve(n.Tag, x); err != nil {
			return err
		}
	}
	t.entries[x].node = n
	return nil
}

// Resolve returns the record bound to x. The null pointer resolves to
// nil without error.
func (t *XrefTable) Resolve(x Xref) (*Node, error) {
	if x == Void {
		return nil, nil
	}
	e, ok := t.entries[x]
	if !ok {
		return nil, &UnresolvedXrefError{Xref: x, Reason: "no such record"}
	}
	if e.node == nil {
		return nil, &UnresolvedXrefError{Xref: x, Reason: "allocated but never bound"}
	}
	return e.node, nil
}

// Kind returns the record kind x was allocated for.
func (t *XrefTable) Kind(x Xref) (string, bool) {
	e, ok := t.entries[x]
	if !ok {
		return "", false
	}
	return e.kind, true
}

// IDs returns every allocated identifier in allocation order.
func (t *XrefTable) IDs() []Xref {
	out := make([]Xref, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of allocated identifiers.
func (t *XrefTable) Len() int { return len(t.order) }
