package gedcom

import (
	"strings"

	"github.com/Neumenon/gedcom7/chrono"
	"github.com/Neumenon/gedcom7/stream"
)

// PayloadKind identifies the variant held by a Payload.
type PayloadKind uint8

const (
	PayloadNone PayloadKind = iota
	PayloadText
	PayloadEnum
	PayloadDate
	PayloadPointer
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadNone:
		return "none"
	case PayloadText:
		return "text"
	case PayloadEnum:
		return "enum"
	case PayloadDate:
		return "date"
	case PayloadPointer:
		return "pointer"
	}
	return "unknown"
}

// Payload is the value carried by a node. Text always holds the wire
// text so a decoded node re-encodes byte for byte.
type Payload struct {
	Kind    PayloadKind
	Text    string
	Date    *chrono.DateValue
	Pointer Xref
}

// NoPayload is the empty payload.
var NoPayload = Payload{}

// Text returns a text payload. The empty string yields NoPayload.
func Text(s string) Payload {
	if s == "" {
		return NoPayload
	}
	return Payload{Kind: PayloadText, Text: s}
}

// Enum returns an enumeration payload such as "M" or "BIRTH".
func Enum(tag string) Payload {
	return Payload{Kind: PayloadEnum, Text: tag}
}

// Pointer returns a cross-reference payload.
func Pointer(x Xref) Payload {
	return Payload{Kind: PayloadPointer, Text: string(x), Pointer: x}
}

// DatePayload returns a payload for a constructed date value.
func DatePayload(v chrono.DateValue) Payload {
	return Payload{Kind: PayloadDate, Text: v.String(), Date: &v}
}

// ParsePayload guesses a payload from wire text: a cross-reference becomes a
// pointer and anything else text.
func ParsePayload(s string) Payload {
	if stream.IsXref(s) {
		return Pointer(Xref(s))
	}
	return Text(s)
}

// IsZero reports an empty payload.
func (p Payload) IsZero() bool { return p.Kind == PayloadNone && p.Text == "" }

func (p Payload) String() string { return p.Text }

// Node is one structure of a record tree.
type Node struct {
	Tag      string
	Key      string // registry key; empty for undocumented extensions
	Payload  Payload
	Xref     Xref // records only
	Children []*Node
	Line     int // source line when decoded

	parent *Node
}

// Parent returns the enclosing node, nil for records.
func (n *Node) Parent() *Node { return n.parent }

// Level returns the depth below the record, which is level 0.
func (n *Node) Level() int {
	level := 0
	for p := n.parent; p != nil; p = p.parent {
		level++
	}
	return level
}

// Path returns the tag path from the record, e.g. "FAM.MARR.DATE".
func (n *Node) Path() string {
	var tags []string
	for p := n; p != nil; p = p.parent {
		tags = append(tags, p.Tag)
	}
	for i, j := 0, len(tags)-1; i < j; i, j = i+1, j-1 {
		tags[i], tags[j] = tags[j], tags[i]
	}
	return strings.Join(tags, ".")
}

// Count returns the number of children with tag.
func (n *Node) Count(tag string) int {
	c := 0
	for _, ch := range n.Children {
		if ch.Tag == tag {
			c++
		}
	}
	return c
}

// First returns the first child with tag, or nil.
func (n *Node) First(tag string) *Node {
	for _, ch := range n.Children {
		if ch.Tag == tag {
			return ch
		}
	}
	return nil
}

// All returns every child with tag.
func (n *Node) All(tag string) []*Node {
	var out []*Node
	for _, ch := range n.Children {
		if ch.Tag == tag {
			out = append(out, ch)
		}
	}
	return out
}

// Walk visits n and its descendants in pre-order. Returning false from
// fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, ch := range n.Children {
		ch.Walk(fn)
	}
}

// IsUndocumented reports an extension node with no registry entry.
func (n *Node) IsUndocumented() bool { return n.Key == "" }
