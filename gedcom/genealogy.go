package gedcom

import (
	"strings"

	"github.com/Neumenon/gedcom7/registry"
)

// Genealogy is a document: an ordered list of level-0 records sharing a
// cross-reference table and a registry.
type Genealogy struct {
	Name     string
	Registry *registry.Registry
	Xrefs    *XrefTable
	Records  []*Node
}

// New returns an empty document. A nil registry selects the bundled
// GEDCOM 7.0 definitions.
func New(name string, reg *registry.Registry) *Genealogy {
	if reg == nil {
		reg = registry.Default()
	}
	return &Genealogy{
		Name:     name,
		Registry: reg,
		Xrefs:    NewXrefTable(),
	}
}

// Builder returns a builder that appends to g.
func (g *Genealogy) Builder() *Builder {
	return &Builder{g: g, reg: g.Registry}
}

// Record returns the record bound to x.
func (g *Genealogy) Record(x Xref) (*Node, bool) {
	n, err := g.Xrefs.Resolve(x)
	if err != nil || n == nil {
		return nil, false
	}
	return n, true
}

// Header returns the HEAD record, or nil.
func (g *Genealogy) Header() *Node {
	for _, r := range g.Records {
		if r.Tag == "HEAD" {
			return r
		}
	}
	return nil
}

// Count returns the number of level-0 records with tag.
func (g *Genealogy) Count(tag string) int {
	c := 0
	for _, r := range g.Records {
		if r.Tag == tag {
			c++
		}
	}
	return c
}

// Counts returns the number of records per level-0 tag.
func (g *Genealogy) Counts() map[string]int {
	out := make(map[string]int)
	for _, r := range g.Records {
		out[r.Tag]++
	}
	return out
}

// Schema returns the extension tags documented in HEAD.SCHMA, mapped to
// their URIs.
func (g *Genealogy) Schema() map[string]string {
	out := make(map[string]string)
	head := g.Header()
	if head == nil {
		return out
	}
	schma := head.First("SCHMA")
	if schma == nil {
		return out
	}
	for _, t := range schma.All("TAG") {
		tag, uri, ok := strings.Cut(t.Payload.Text, " ")
		if !ok {
			continue
		}
		out[tag] = strings.TrimSpace(uri)
	}
	return out
}

// Walk visits every node of every record in document order.
func (g *Genealogy) Walk(fn func(*Node) bool) {
	for _, r := range g.Records {
		r.Walk(fn)
	}
}

// Nodes returns the total number of nodes.
func (g *Genealogy) Nodes() int {
	n := 0
	g.Walk(func(*Node) bool {
		n++
		return true
	})
	return n
}
