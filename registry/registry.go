package registry

import (
	_ "embed"
	"sync"

	"github.com/agnivade/levenshtein"
)

// Registry is an immutable table of structure, enumeration and calendar
// definitions. It is safe for concurrent use once built.
type Registry struct {
	entries map[string]*Entry
	byURI   map[string]*Entry
	byTag   map[string][]*Entry
	order   []*Entry
	roots   []ChildRule
	tags    []string

	enumSets   map[string]*EnumSet
	enumValues map[string]EnumValue
	dataTypes  map[string]string

	calendars  map[string]*Calendar
	calByTag   map[string]*Calendar
	calOrder   []*Calendar
	defaultCal *Calendar
	months     map[string]Month

	// build bookkeeping
	keySource map[string]int
	uriKey    map[string]string
	tagSource map[string]int
}

func newRegistry() *Registry {
	return &Registry{
		entries:    make(map[string]*Entry),
		byURI:      make(map[string]*Entry),
		byTag:      make(map[string][]*Entry),
		enumSets:   make(map[string]*EnumSet),
		enumValues: make(map[string]EnumValue),
		dataTypes:  make(map[string]string),
		calendars:  make(map[string]*Calendar),
		calByTag:   make(map[string]*Calendar),
		months:     make(map[string]Month),
		keySource:  make(map[string]int),
		uriKey:     make(map[string]string),
		tagSource:  make(map[string]int),
	}
}

//go:embed data/gedcom70.yaml
var gedcom70 []byte

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the bundled GEDCOM 7.0 registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = MustBuild(gedcom70)
	})
	return defaultReg
}

// DefaultSource returns a copy of the bundled specification source, for
// callers that merge it with extension sources.
func DefaultSource() []byte {
	out := make([]byte, len(gedcom70))
	copy(out, gedcom70)
	return out
}

// Lookup finds an entry by key, URI or tag. A tag shared by several
// structures resolves to the one whose key equals the tag, else to the
// first declared.
func (r *Registry) Lookup(name string) (*Entry, error) {
	if e, ok := r.entries[name]; ok {
		return e, nil
	}
	if e, ok := r.byURI[ExpandURI(name)]; ok {
		return e, nil
	}
	if list := r.byTag[name]; len(list) > 0 {
		for _, e := range list {
			if e.Key == name {
				return e, nil
			}
		}
		return list[0], nil
	}
	return nil, &NotFoundError{Name: name, Suggestion: r.Suggest(name)}
}

// Entry returns the entry with the given key.
func (r *Registry) Entry(key string) (*Entry, bool) {
	e, ok := r.entries[key]
	return e, ok
}

// ByTag returns every structure using tag, in declaration order.
func (r *Registry) ByTag(tag string) []*Entry {
	return r.byTag[tag]
}

// KnownTag reports whether any structure uses tag.
func (r *Registry) KnownTag(tag string) bool {
	return len(r.byTag[tag]) > 0
}

// PermittedChildren returns the ordered substructure rules of key. The
// empty key yields the level-0 rules.
func (r *Registry) PermittedChildren(key string) []ChildRule {
	if key == "" {
		return r.roots
	}
	if e, ok := r.entries[key]; ok {
		return e.Substructures
	}
	return nil
}

// Child resolves tag in the context of a parent structure. The empty
// parent key resolves level-0 records.
func (r *Registry) Child(parentKey, tag string) (ChildRule, bool) {
	for _, rule := range r.PermittedChildren(parentKey) {
		if rule.Tag == tag {
			return rule, true
		}
	}
	return ChildRule{}, false
}

// Roots returns the structures permitted at level 0.
func (r *Registry) Roots() []ChildRule { return r.roots }

// Tags returns every structure tag, sorted.
func (r *Registry) Tags() []string { return r.tags }

// Entries returns every structure in declaration order.
func (r *Registry) Entries() []*Entry { return r.order }

// EnumSet returns an enumeration set by key or URI.
func (r *Registry) EnumSet(name string) (*EnumSet, bool) {
	if s, ok := r.enumSets[name]; ok {
		return s, true
	}
	if k, ok := r.uriKey[ExpandURI(name)]; ok {
		s, ok := r.enumSets[k]
		return s, ok
	}
	return nil, false
}

// EnumValues returns the tags of an enumeration set.
func (r *Registry) EnumValues(setKey string) []string {
	s, ok := r.EnumSet(setKey)
	if !ok {
		return nil
	}
	out := make([]string, len(s.Values))
	for i, v := range s.Values {
		out[i] = v.Tag
	}
	return out
}

// Calendar finds a calendar by key, tag or URI.
func (r *Registry) Calendar(name string) (*Calendar, bool) {
	if c, ok := r.calByTag[name]; ok {
		return c, true
	}
	if c, ok := r.calendars[name]; ok {
		return c, true
	}
	if k, ok := r.uriKey[ExpandURI(name)]; ok {
		c, ok := r.calendars[k]
		return c, ok
	}
	return nil, false
}

// DefaultCalendar returns the Gregorian calendar if present, else the
// first declared calendar, else nil.
func (r *Registry) DefaultCalendar() *Calendar { return r.defaultCal }

// Calendars returns every calendar in declaration order.
func (r *Registry) Calendars() []*Calendar { return r.calOrder }

// DataType returns the URI of a declared data type.
func (r *Registry) DataType(key string) (string, bool) {
	u, ok := r.dataTypes[key]
	return u, ok
}

// Suggest returns the known tag closest to tag within an edit distance of
// two, or "" when nothing is close.
func (r *Registry) Suggest(tag string) string {
	best, bestDist := "", 3
	for _, t := range r.tags {
		d := levenshtein.ComputeDistance(tag, t)
		if d < bestDist {
			best, bestDist = t, d
		}
	}
	if best == tag {
		return ""
	}
	return best
}

// Stats summarizes the registry contents.
type Stats struct {
	Structures int
	Extensions int
	EnumSets   int
	Calendars  int
	Months     int
}

// Stats counts the registry contents.
func (r *Registry) Stats() Stats {
	s := Stats{
		Structures: len(r.order),
		EnumSets:   len(r.enumSets),
		Calendars:  len(r.calOrder),
		Months:     len(r.months),
	}
	for _, e := range r.order {
		if e.Extension {
			s.Extensions++
		}
	}
	return s
}
