package registry

import "strings"

// Month is one month of a calendar.
type Month struct {
	Key  string
	Tag  string
	Name string
	Days int // longest possible length; 0 when unknown
}

// Calendar is a dating system with an ordered month table.
type Calendar struct {
	Key    string
	Tag    string
	URI    string
	Label  string
	Months []Month
	Epochs []string
}

// Month finds a month by tag, case-insensitively. The returned index is
// 1-based in calendar order.
func (c *Calendar) Month(tag string) (Month, int, bool) {
	for i, m := range c.Months {
		if strings.EqualFold(m.Tag, tag) {
			return m, i + 1, true
		}
	}
	return Month{}, 0, false
}

// HasEpoch reports whether epoch is a permitted marker for this calendar.
func (c *Calendar) HasEpoch(epoch string) bool {
	for _, e := range c.Epochs {
		if strings.EqualFold(e, epoch) {
			return true
		}
	}
	return false
}

// UsesEpochs reports whether the calendar has any epoch markers. Such
// calendars have no year 0.
func (c *Calendar) UsesEpochs() bool { return len(c.Epochs) > 0 }
