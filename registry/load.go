package registry

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/Neumenon/gedcom7/stream"
)

// Entry types accepted in a source document.
const (
	typeStructure = "structure"
	typeEnumSet   = "enumeration set"
	typeEnum      = "enumeration"
	typeCalendar  = "calendar"
	typeMonth     = "month"
	typeDataType  = "data type"
)

// rawEntry is one entry of a specification source as written.
type rawEntry struct {
	Type            string   `yaml:"type"`
	URI             string   `yaml:"uri"`
	Tag             string   `yaml:"standard tag"`
	ExtensionTags   []string `yaml:"extension tags"`
	Label           string   `yaml:"label"`
	Payload         *string  `yaml:"payload"`
	Substructures   cardList `yaml:"substructures"`
	Superstructures cardList `yaml:"superstructures"`
	EnumSet         string   `yaml:"enumeration set"`
	Values          []string `yaml:"enumeration values"`
	Months          []string `yaml:"months"`
	Epochs          []string `yaml:"epochs"`
	Days            int      `yaml:"days"`
}

type cardRef struct {
	Ref  string
	Card string
}

// cardList keeps the source order of a substructure mapping.
type cardList []cardRef

func (l *cardList) UnmarshalYAML(n *yaml.Node) error {
	return l.collect(n)
}

func (l *cardList) collect(n *yaml.Node) error {
	n = deref(n)
	switch n.Kind {
	case yaml.MappingNode:
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return nil
		}
		return fmt.Errorf("line %d: expected mapping of cardinalities, got %q", n.Line, n.Value)
	default:
		return fmt.Errorf("line %d: expected mapping of cardinalities", n.Line)
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], deref(n.Content[i+1])
		if k.Value == "<<" {
			if v.Kind == yaml.SequenceNode {
				for _, item := range v.Content {
					if err := l.collect(item); err != nil {
						return err
					}
				}
				continue
			}
			if err := l.collect(v); err != nil {
				return err
			}
			continue
		}
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: cardinality for %q must be a string", v.Line, k.Value)
		}
		*l = append(*l, cardRef{Ref: k.Value, Card: v.Value})
	}
	return nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// pending holds parsed entries awaiting reference resolution.
type pending struct {
	key    string
	source int
	raw    rawEntry
}

// parseSource decodes one source document into entries in source order.
func parseSource(idx int, src []byte) ([]pending, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, &SpecLoadError{Source: idx, Msg: "parse", Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, loadErrorf(idx, "", "empty source")
	}
	root := deref(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, loadErrorf(idx, "", "top level must be a mapping")
	}

	out := make([]pending, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		body := deref(root.Content[i+1])
		if body.Kind != yaml.MappingNode {
			return nil, loadErrorf(idx, name, "entry must be a mapping (line %d)", body.Line)
		}

		var raw rawEntry
		if err := body.Decode(&raw); err != nil {
			return nil, &SpecLoadError{Source: idx, Key: name, Msg: "malformed entry", Err: err}
		}

		key := name
		if isURI(name) {
			if raw.URI == "" {
				raw.URI = name
			}
			key = lastSegment(ExpandURI(name))
		}
		raw.URI = ExpandURI(raw.URI)
		if raw.Type == "" {
			raw.Type = typeStructure
		}
		out = append(out, pending{key: key, source: idx, raw: raw})
	}
	return out, nil
}

// Build parses and merges specification sources into a Registry. Each
// source is a YAML (or JSON) mapping from key or URI to entry. A key,
// URI or tag defined by more than one source is a load error.
func Build(sources ...[]byte) (*Registry, error) {
	if len(sources) == 0 {
		return nil, loadErrorf(0, "", "no sources")
	}

	r := newRegistry()
	var all []pending
	for i, src := range sources {
		entries, err := parseSource(i, src)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}

	// Pass 1: declare every entry so references may point forward.
	for _, p := range all {
		if err := r.declare(p); err != nil {
			return nil, err
		}
	}

	// Pass 2: resolve references.
	for _, p := range all {
		if err := r.resolve(p); err != nil {
			return nil, err
		}
	}

	r.finish()
	return r, nil
}

// MustBuild is like Build but panics on error.
func MustBuild(sources ...[]byte) *Registry {
	r, err := Build(sources...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) claimKey(p pending) error {
	if prev, ok := r.keySource[p.key]; ok {
		if prev == p.source {
			return loadErrorf(p.source, p.key, "duplicate key")
		}
		return loadErrorf(p.source, p.key, "key already defined by source %d", prev)
	}
	r.keySource[p.key] = p.source
	if p.raw.URI != "" {
		if prev, ok := r.uriKey[p.raw.URI]; ok {
			return loadErrorf(p.source, p.key, "URI %s already defined by %s", p.raw.URI, prev)
		}
		r.uriKey[p.raw.URI] = p.key
	}
	return nil
}

func (r *Registry) declare(p pending) error {
	if err := r.claimKey(p); err != nil {
		return err
	}
	raw := p.raw

	switch raw.Type {
	case typeStructure:
		return r.declareStructure(p)

	case typeEnum:
		if raw.Tag == "" && len(raw.ExtensionTags) == 0 {
			return loadErrorf(p.source, p.key, "enumeration has no tag")
		}
		tag := raw.Tag
		if tag == "" {
			tag = raw.ExtensionTags[0]
		}
		r.enumValues[p.key] = EnumValue{Key: p.key, Tag: tag, URI: raw.URI}

	case typeEnumSet:
		r.enumSets[p.key] = &EnumSet{Key: p.key, URI: raw.URI}

	case typeMonth:
		if raw.Tag == "" && len(raw.ExtensionTags) == 0 {
			return loadErrorf(p.source, p.key, "month has no tag")
		}
		if raw.Days < 0 {
			return loadErrorf(p.source, p.key, "negative days")
		}
		tag := raw.Tag
		if tag == "" {
			tag = raw.ExtensionTags[0]
		}
		r.months[p.key] = Month{Key: p.key, Tag: tag, Name: raw.Label, Days: raw.Days}

	case typeCalendar:
		tag := raw.Tag
		if tag == "" && len(raw.ExtensionTags) > 0 {
			tag = raw.ExtensionTags[0]
		}
		if tag == "" {
			return loadErrorf(p.source, p.key, "calendar has no tag")
		}
		if _, ok := r.calByTag[tag]; ok {
			return loadErrorf(p.source, p.key, "calendar tag %s already defined", tag)
		}
		c := &Calendar{Key: p.key, Tag: tag, URI: raw.URI, Label: raw.Label, Epochs: raw.Epochs}
		r.calendars[p.key] = c
		r.calByTag[tag] = c
		r.calOrder = append(r.calOrder, c)

	case typeDataType:
		r.dataTypes[p.key] = raw.URI

	default:
		return loadErrorf(p.source, p.key, "unknown entry type %q", raw.Type)
	}
	return nil
}

func (r *Registry) declareStructure(p pending) error {
	raw := p.raw
	e := &Entry{
		Key:           p.key,
		Tag:           raw.Tag,
		URI:           raw.URI,
		Label:         raw.Label,
		ExtensionTags: raw.ExtensionTags,
		source:        p.source,
	}
	if raw.Payload != nil {
		e.Payload = ParsePayloadType(*raw.Payload)
	}

	for _, t := range raw.ExtensionTags {
		if !IsExtensionTag(t) || !stream.IsTag(t) {
			return loadErrorf(p.source, p.key, "invalid extension tag %q", t)
		}
	}
	if e.Tag == "" {
		if len(raw.ExtensionTags) == 0 {
			return loadErrorf(p.source, p.key, "structure has neither standard nor extension tag")
		}
		e.Tag = raw.ExtensionTags[0]
		e.Extension = true
	} else if !stream.IsTag(e.Tag) {
		return loadErrorf(p.source, p.key, "invalid tag %q", e.Tag)
	}

	tags := append([]string{raw.Tag}, raw.ExtensionTags...)
	for _, t := range tags {
		if t == "" {
			continue
		}
		if prev, ok := r.tagSource[t]; ok && prev != p.source {
			return loadErrorf(p.source, p.key, "tag %s already defined by source %d", t, prev)
		}
		r.tagSource[t] = p.source
		r.byTag[t] = append(r.byTag[t], e)
	}

	r.entries[e.Key] = e
	if e.URI != "" {
		r.byURI[e.URI] = e
	}
	r.order = append(r.order, e)
	return nil
}

// refKey maps a reference (key, URI or CURIE) to a declared key.
func (r *Registry) refKey(ref string) (string, bool) {
	if _, ok := r.keySource[ref]; ok && !isURI(ref) {
		return ref, true
	}
	if k, ok := r.uriKey[ExpandURI(ref)]; ok {
		return k, true
	}
	return "", false
}

func (r *Registry) resolve(p pending) error {
	raw := p.raw
	switch raw.Type {
	case typeStructure:
		return r.resolveStructure(p)

	case typeEnumSet:
		set := r.enumSets[p.key]
		for _, ref := range raw.Values {
			k, ok := r.refKey(ref)
			if !ok {
				return loadErrorf(p.source, p.key, "unknown enumeration value %s", ref)
			}
			if v, ok := r.enumValues[k]; ok {
				set.Values = append(set.Values, v)
				continue
			}
			if e, ok := r.entries[k]; ok {
				set.Values = append(set.Values, EnumValue{Key: e.Key, Tag: e.Tag, URI: e.URI})
				continue
			}
			return loadErrorf(p.source, p.key, "%s is not an enumeration value", ref)
		}

	case typeCalendar:
		c := r.calendars[p.key]
		for _, ref := range raw.Months {
			k, ok := r.refKey(ref)
			if !ok {
				return loadErrorf(p.source, p.key, "unknown month %s", ref)
			}
			m, ok := r.months[k]
			if !ok {
				return loadErrorf(p.source, p.key, "%s is not a month", ref)
			}
			c.Months = append(c.Months, m)
		}
	}
	return nil
}

func (r *Registry) resolveStructure(p pending) error {
	e := r.entries[p.key]

	if e.Payload.Kind == PayloadPointer {
		k, ok := r.refKey(e.Payload.targetURI)
		if !ok {
			return loadErrorf(p.source, p.key, "unknown pointer target %s", e.Payload.targetURI)
		}
		e.Payload.Target = k
	}
	if p.raw.EnumSet != "" {
		k, ok := r.refKey(p.raw.EnumSet)
		if !ok {
			return loadErrorf(p.source, p.key, "unknown enumeration set %s", p.raw.EnumSet)
		}
		if _, ok := r.enumSets[k]; !ok {
			return loadErrorf(p.source, p.key, "%s is not an enumeration set", p.raw.EnumSet)
		}
		e.EnumSet = k
	} else if e.Payload.Kind == PayloadEnum || e.Payload.Kind == PayloadEnumList {
		return loadErrorf(p.source, p.key, "enumerated payload without enumeration set")
	}

	for _, c := range p.raw.Substructures {
		rule, err := r.rule(p, c)
		if err != nil {
			return err
		}
		if err := addRule(e, rule); err != nil {
			return loadErrorf(p.source, p.key, "%v", err)
		}
	}

	// Declared superstructures add this entry to the parent's rules.
	for _, c := range p.raw.Superstructures {
		k, ok := r.refKey(c.Ref)
		if !ok {
			return loadErrorf(p.source, p.key, "unknown superstructure %s", c.Ref)
		}
		parent, ok := r.entries[k]
		if !ok {
			return loadErrorf(p.source, p.key, "superstructure %s is not a structure", c.Ref)
		}
		card, err := ParseCardinality(c.Card)
		if err != nil {
			return &SpecLoadError{Source: p.source, Key: p.key, Msg: "superstructure " + c.Ref, Err: err}
		}
		if existing, ok := parent.Child(e.Tag); ok && existing.Key == e.Key {
			continue
		}
		rule := ChildRule{Tag: e.Tag, Key: e.Key, URI: e.URI, Cardinality: card}
		if err := addRule(parent, rule); err != nil {
			return loadErrorf(p.source, p.key, "%v", err)
		}
	}
	return nil
}

func (r *Registry) rule(p pending, c cardRef) (ChildRule, error) {
	k, ok := r.refKey(c.Ref)
	if !ok {
		return ChildRule{}, loadErrorf(p.source, p.key, "unknown substructure %s", c.Ref)
	}
	child, ok := r.entries[k]
	if !ok {
		return ChildRule{}, loadErrorf(p.source, p.key, "substructure %s is not a structure", c.Ref)
	}
	card, err := ParseCardinality(c.Card)
	if err != nil {
		return ChildRule{}, &SpecLoadError{Source: p.source, Key: p.key, Msg: "substructure " + c.Ref, Err: err}
	}
	return ChildRule{Tag: child.Tag, Key: child.Key, URI: child.URI, Cardinality: card}, nil
}

func addRule(parent *Entry, rule ChildRule) error {
	for _, existing := range parent.Substructures {
		if existing.Tag == rule.Tag {
			if existing.Key == rule.Key {
				return fmt.Errorf("substructure %s listed twice", rule.Key)
			}
			return fmt.Errorf("substructures %s and %s share tag %s", existing.Key, rule.Key, rule.Tag)
		}
	}
	parent.Substructures = append(parent.Substructures, rule)
	return nil
}

// finish derives superstructures, roots and the sorted tag list.
func (r *Registry) finish() {
	for _, parent := range r.order {
		for _, rule := range parent.Substructures {
			child := r.entries[rule.Key]
			child.Superstructures = append(child.Superstructures, ChildRule{
				Tag:         parent.Tag,
				Key:         parent.Key,
				URI:         parent.URI,
				Cardinality: rule.Cardinality,
			})
		}
	}

	for _, e := range r.order {
		if len(e.Superstructures) > 0 {
			continue
		}
		card := OptionalMultiple
		if e.Tag == "HEAD" || e.Tag == "TRLR" {
			card = Optional
		}
		r.roots = append(r.roots, ChildRule{Tag: e.Tag, Key: e.Key, URI: e.URI, Cardinality: card})
	}

	r.tags = r.tags[:0]
	for t := range r.byTag {
		r.tags = append(r.tags, t)
	}
	slices.Sort(r.tags)

	if c, ok := r.calByTag["GREGORIAN"]; ok {
		r.defaultCal = c
	} else if len(r.calOrder) > 0 {
		r.defaultCal = r.calOrder[0]
	}
}
