package registry

import (
	"fmt"
	"strings"
)

// Unbounded is the Max of a cardinality written with "M".
const Unbounded = -1

// Cardinality is a {min:max} occurrence range of a substructure.
type Cardinality struct {
	Min int // 0 or 1
	Max int // 1 or Unbounded
}

// Common cardinalities.
var (
	Optional         = Cardinality{Min: 0, Max: 1}
	Required         = Cardinality{Min: 1, Max: 1}
	OptionalMultiple = Cardinality{Min: 0, Max: Unbounded}
	RequiredMultiple = Cardinality{Min: 1, Max: Unbounded}
)

// ParseCardinality parses "{0:1}", "{0:M}", "{1:1}" or "{1:M}".
func ParseCardinality(s string) (Cardinality, error) {
	body := strings.TrimSpace(s)
	if !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") {
		return Cardinality{}, fmt.Errorf("cardinality %q: expected {min:max}", s)
	}
	min, max, ok := strings.Cut(body[1:len(body)-1], ":")
	if !ok {
		return Cardinality{}, fmt.Errorf("cardinality %q: missing ':'", s)
	}

	var c Cardinality
	switch strings.TrimSpace(min) {
	case "0":
		c.Min = 0
	case "1":
		c.Min = 1
	default:
		return Cardinality{}, fmt.Errorf("cardinality %q: min must be 0 or 1", s)
	}
	switch strings.TrimSpace(max) {
	case "1":
		c.Max = 1
	case "M", "m":
		c.Max = Unbounded
	default:
		return Cardinality{}, fmt.Errorf("cardinality %q: max must be 1 or M", s)
	}
	return c, nil
}

// String returns the cardinality in "{min:max}" form.
func (c Cardinality) String() string {
	if c.Max == Unbounded {
		return fmt.Sprintf("{%d:M}", c.Min)
	}
	return fmt.Sprintf("{%d:%d}", c.Min, c.Max)
}

// IsRequired reports whether at least one occurrence is needed.
func (c Cardinality) IsRequired() bool { return c.Min > 0 }

// IsSingular reports whether at most one occurrence is allowed.
func (c Cardinality) IsSingular() bool { return c.Max == 1 }

// Allows reports whether n occurrences fit within the upper bound.
func (c Cardinality) Allows(n int) bool {
	return c.Max == Unbounded || n <= c.Max
}

// Satisfied reports whether n occurrences fit within [Min, Max].
func (c Cardinality) Satisfied(n int) bool {
	return n >= c.Min && c.Allows(n)
}
