package registry

import "strings"

// ChildRule is one permitted substructure (or superstructure) of an entry.
type ChildRule struct {
	Tag         string
	Key         string
	URI         string
	Cardinality Cardinality
}

// Entry describes one structure type.
type Entry struct {
	Key   string // structure key, e.g. "record-FAM", "HEAD-DATE"
	Tag   string // wire tag, e.g. "FAM", "DATE"
	URI   string
	Label string

	Payload PayloadType

	// Substructures is ordered as declared in the source.
	Substructures   []ChildRule
	Superstructures []ChildRule

	EnumSet string // key of the enumeration set for enum payloads

	Extension     bool
	ExtensionTags []string

	source int
}

// IsRecord reports whether the entry is a level-0 record that may carry an xref.
func (e *Entry) IsRecord() bool {
	return strings.HasPrefix(e.Key, "record-")
}

// Child returns the substructure rule for tag.
func (e *Entry) Child(tag string) (ChildRule, bool) {
	for _, r := range e.Substructures {
		if r.Tag == tag {
			return r, true
		}
	}
	return ChildRule{}, false
}

// Required returns the substructures with a minimum of one.
func (e *Entry) Required() []ChildRule {
	var out []ChildRule
	for _, r := range e.Substructures {
		if r.Cardinality.IsRequired() {
			out = append(out, r)
		}
	}
	return out
}

// EnumValue is one member of an enumeration set.
type EnumValue struct {
	Key string
	Tag string
	URI string
}

// EnumSet is a named enumeration.
type EnumSet struct {
	Key    string
	URI    string
	Values []EnumValue
}

// Contains reports whether tag is a member of the set.
func (s *EnumSet) Contains(tag string) bool {
	for _, v := range s.Values {
		if v.Tag == tag {
			return true
		}
	}
	return false
}

// IsExtensionTag reports whether tag follows the extension naming convention.
func IsExtensionTag(tag string) bool {
	return len(tag) > 1 && tag[0] == '_'
}
