package chrono

import (
	"strconv"
	"strings"
)

// Qualifier distinguishes the forms of a date value.
type Qualifier uint8

const (
	QualifierNone Qualifier = iota
	QualifierAbout
	QualifierCalculated
	QualifierEstimated
	QualifierBefore
	QualifierAfter
	QualifierBetween // BET start AND end
	QualifierFrom    // FROM start [TO end]
	QualifierTo      // TO end
)

var qualifierWords = map[Qualifier]string{
	QualifierAbout:      "ABT",
	QualifierCalculated: "CAL",
	QualifierEstimated:  "EST",
	QualifierBefore:     "BEF",
	QualifierAfter:      "AFT",
	QualifierBetween:    "BET",
	QualifierFrom:       "FROM",
	QualifierTo:         "TO",
}

// String returns the payload keyword, or "" for QualifierNone.
func (q Qualifier) String() string { return qualifierWords[q] }

// IsApproximate reports ABT, CAL and EST.
func (q Qualifier) IsApproximate() bool {
	return q == QualifierAbout || q == QualifierCalculated || q == QualifierEstimated
}

// IsRange reports BEF, AFT and BET.
func (q Qualifier) IsRange() bool {
	return q == QualifierBefore || q == QualifierAfter || q == QualifierBetween
}

// IsPeriod reports FROM and TO.
func (q Qualifier) IsPeriod() bool {
	return q == QualifierFrom || q == QualifierTo
}

// Date is a single calendar date. Day and Month are optional (zero and
// empty); Year is always present.
type Date struct {
	Calendar string // calendar tag, e.g. GREGORIAN
	Day      int
	Month    string // month tag as defined by the calendar, e.g. JAN
	Year     int
	Epoch    string // e.g. BCE
}

// SignedYear returns the year as a signed number in which years of a
// before-common-era epoch are negative: 1 BCE is -1, never 0.
func (d Date) SignedYear() int {
	switch d.Epoch {
	case "BCE", "BC":
		return -d.Year
	}
	return d.Year
}

// IsZero reports whether d carries no year.
func (d Date) IsZero() bool { return d.Year == 0 && d.Month == "" && d.Day == 0 }

// String renders d without its calendar.
func (d Date) String() string {
	var sb strings.Builder
	if d.Day > 0 {
		sb.WriteString(strconv.Itoa(d.Day))
		sb.WriteByte(' ')
	}
	if d.Month != "" {
		sb.WriteString(d.Month)
		sb.WriteByte(' ')
	}
	sb.WriteString(strconv.Itoa(d.Year))
	if d.Epoch != "" {
		sb.WriteByte(' ')
		sb.WriteString(d.Epoch)
	}
	return sb.String()
}

// DateValue is a parsed date payload.
type DateValue struct {
	Qualifier Qualifier
	Start     *Date // nil for TO-only periods and empty values
	End       *Date // BET...AND, FROM...TO and TO
	Time      *Time // from a TIME substructure
	Phrase    string
}

// IsEmpty reports an empty payload.
func (v DateValue) IsEmpty() bool {
	return v.Start == nil && v.End == nil && v.Phrase == ""
}

// Validate checks constraints that span the value and its substructures.
func (v DateValue) Validate() error {
	if v.Time != nil && (v.Qualifier.IsRange() || v.Qualifier.IsPeriod()) {
		return invalid(v.String(), -1, "%s date cannot carry a time", v.Qualifier)
	}
	if v.Start == nil && v.End == nil && v.Phrase != "" {
		return invalid(v.String(), -1, "phrase without date")
	}
	return nil
}

// WithTime returns a copy of v carrying t.
func (v DateValue) WithTime(t Time) DateValue {
	v.Time = &t
	return v
}

// String renders v in payload form. Calendars other than GREGORIAN are
// written as a leading calendar tag.
func (v DateValue) String() string {
	var parts []string
	if v.Qualifier != QualifierNone {
		parts = append(parts, v.Qualifier.String())
	}
	if v.Start != nil {
		parts = append(parts, renderDate(*v.Start))
	}
	if v.End != nil {
		switch v.Qualifier {
		case QualifierBetween:
			parts = append(parts, "AND")
		case QualifierFrom:
			parts = append(parts, "TO")
		}
		parts = append(parts, renderDate(*v.End))
	}
	if v.Phrase != "" {
		parts = append(parts, "("+v.Phrase+")")
	}
	return strings.Join(parts, " ")
}

func renderDate(d Date) string {
	if d.Calendar != "" && d.Calendar != "GREGORIAN" {
		return d.Calendar + " " + d.String()
	}
	return d.String()
}

// Time is a time of day.
type Time struct {
	Hour     int
	Minute   int
	Second   int    // -1 when omitted
	Fraction string // digits after the decimal point
	UTC      bool
}

// String renders t in payload form.
func (t Time) String() string {
	var sb strings.Builder
	sb.WriteString(pad2(t.Hour))
	sb.WriteByte(':')
	sb.WriteString(pad2(t.Minute))
	if t.Second >= 0 {
		sb.WriteByte(':')
		sb.WriteString(pad2(t.Second))
		if t.Fraction != "" {
			sb.WriteByte('.')
			sb.WriteString(t.Fraction)
		}
	}
	if t.UTC {
		sb.WriteByte('Z')
	}
	return sb.String()
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
