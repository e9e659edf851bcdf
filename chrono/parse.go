package chrono

import (
	"strconv"
	"strings"

	"github.com/Neumenon/gedcom7/registry"
)

// CalendarSource supplies calendar definitions. *registry.Registry
// implements it.
type CalendarSource interface {
	Calendar(name string) (*registry.Calendar, bool)
	DefaultCalendar() *registry.Calendar
}

// state is the position of a payload in the parse pipeline.
type state uint8

const (
	stateRawText state = iota
	stateTokenized
	stateCalendarResolved
	stateValidated
)

func (s state) String() string {
	switch s {
	case stateRawText:
		return "RAW_TEXT"
	case stateTokenized:
		return "TOKENIZED"
	case stateCalendarResolved:
		return "CALENDAR_RESOLVED"
	case stateValidated:
		return "VALIDATED"
	}
	return "UNKNOWN"
}

// rawDate is one date of a payload before calendar resolution.
type rawDate struct {
	calendar Token
	day      Token
	month    Token
	year     Token
	epoch    Token
	pos      int

	cal       *registry.Calendar // nil for unregistered extension calendars
	calTag    string
	monthTag  string
	monthDays int
}

type parser struct {
	src   CalendarSource
	text  string
	state state

	tokens []Token
	pos    int

	qual   Qualifier
	start  *rawDate
	end    *rawDate
	phrase string

	value DateValue
}

// Parse parses a date payload against the calendars of src. A nil src
// uses the bundled registry.
func Parse(src CalendarSource, text string) (DateValue, error) {
	if src == nil {
		src = registry.Default()
	}
	p := &parser{src: src, text: text}
	for p.state != stateValidated {
		var err error
		switch p.state {
		case stateRawText:
			err = p.tokenize()
		case stateTokenized:
			err = p.resolveCalendars()
		case stateCalendarResolved:
			err = p.validate()
		}
		if err != nil {
			return DateValue{}, err
		}
	}
	return p.value, nil
}

// MustParse is like Parse but panics on error. It is intended for tests
// and literals.
func MustParse(src CalendarSource, text string) DateValue {
	v, err := Parse(src, text)
	if err != nil {
		panic(err)
	}
	return v
}

// ============================================================
// RAW_TEXT -> TOKENIZED
// ============================================================

func (p *parser) tokenize() error {
	toks, err := NewLexer(p.text).Tokenize()
	if err != nil {
		return err
	}
	toks = toks[:len(toks)-1]
	if n := len(toks); n > 0 && toks[n-1].Type == TokenPhrase {
		p.phrase = toks[n-1].Value
		toks = toks[:n-1]
	}
	p.tokens = toks

	if len(toks) == 0 {
		if p.phrase != "" {
			return invalid(p.text, 0, "phrase without date")
		}
		p.state = stateTokenized
		return nil
	}

	if first := toks[0]; first.Type == TokenWord {
		switch strings.ToUpper(first.Value) {
		case "ABT":
			p.qual = QualifierAbout
		case "CAL":
			p.qual = QualifierCalculated
		case "EST":
			p.qual = QualifierEstimated
		case "BEF":
			p.qual = QualifierBefore
		case "AFT":
			p.qual = QualifierAfter
		case "BET":
			p.qual = QualifierBetween
		case "FROM":
			p.qual = QualifierFrom
		case "TO":
			p.qual = QualifierTo
		case "AND":
			return invalid(p.text, first.Pos, "AND without BET")
		}
		if p.qual != QualifierNone {
			p.pos = 1
		}
	}

	switch p.qual {
	case QualifierBetween:
		if p.start, err = p.date(); err != nil {
			return err
		}
		if !p.keyword("AND") {
			return invalid(p.text, p.offset(), "BET without AND")
		}
		if p.end, err = p.date(); err != nil {
			return err
		}
	case QualifierFrom:
		if p.start, err = p.date(); err != nil {
			return err
		}
		if p.keyword("TO") {
			if p.end, err = p.date(); err != nil {
				return err
			}
		}
	case QualifierTo:
		if p.end, err = p.date(); err != nil {
			return err
		}
	default:
		if p.start, err = p.date(); err != nil {
			return err
		}
	}

	if p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		return invalid(p.text, t.Pos, "unexpected %q", t.Value)
	}
	p.state = stateTokenized
	return nil
}

// offset returns the byte offset of the current token.
func (p *parser) offset() int {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos].Pos
	}
	return len(p.text)
}

// keyword consumes word if it is the current token.
func (p *parser) keyword(word string) bool {
	if p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		if t.Type == TokenWord && strings.EqualFold(t.Value, word) {
			p.pos++
			return true
		}
	}
	return false
}

func isKeyword(word string) bool {
	switch strings.ToUpper(word) {
	case "AND", "TO", "ABT", "CAL", "EST", "BEF", "AFT", "BET", "FROM":
		return true
	}
	return false
}

// date parses [calendar] [[day] month] year [epoch].
func (p *parser) date() (*rawDate, error) {
	d := &rawDate{pos: p.offset()}

	var parts []Token
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		if t.Type == TokenWord && isKeyword(t.Value) {
			break
		}
		if t.Type == TokenEscape && len(parts) > 0 {
			return nil, invalid(p.text, t.Pos, "calendar escape inside date")
		}
		parts = append(parts, t)
		p.pos++
	}
	if len(parts) == 0 {
		return nil, invalid(p.text, d.pos, "missing date")
	}

	if p.isCalendar(parts) {
		d.calendar = parts[0]
		parts = parts[1:]
	}

	switch shape(parts) {
	case "I":
		d.year = parts[0]
	case "IW":
		d.year, d.epoch = parts[0], parts[1]
	case "WI":
		d.month, d.year = parts[0], parts[1]
	case "WIW":
		d.month, d.year, d.epoch = parts[0], parts[1], parts[2]
	case "IWI":
		d.day, d.month, d.year = parts[0], parts[1], parts[2]
	case "IWIW":
		d.day, d.month, d.year, d.epoch = parts[0], parts[1], parts[2], parts[3]
	case "":
		return nil, invalid(p.text, d.pos, "calendar without date")
	default:
		return nil, invalid(p.text, d.pos, "malformed date")
	}
	return d, nil
}

// isCalendar decides whether the first token selects a calendar. An
// unregistered extension word is a calendar only when reading it as a
// month would not form a date.
func (p *parser) isCalendar(parts []Token) bool {
	first := parts[0]
	switch first.Type {
	case TokenEscape:
		return true
	case TokenWord:
		if _, ok := p.src.Calendar(first.Value); ok {
			return true
		}
		if registry.IsExtensionTag(first.Value) {
			return !validShape(shape(parts)) && validShape(shape(parts[1:]))
		}
	}
	return false
}

func shape(parts []Token) string {
	var sb strings.Builder
	for _, t := range parts {
		switch t.Type {
		case TokenInt:
			sb.WriteByte('I')
		case TokenWord:
			sb.WriteByte('W')
		default:
			sb.WriteByte('?')
		}
	}
	return sb.String()
}

func validShape(s string) bool {
	switch s {
	case "I", "IW", "WI", "WIW", "IWI", "IWIW":
		return true
	}
	return false
}

// ============================================================
// TOKENIZED -> CALENDAR_RESOLVED
// ============================================================

func (p *parser) resolveCalendars() error {
	for _, d := range []*rawDate{p.start, p.end} {
		if d == nil {
			continue
		}
		if err := p.resolveDate(d); err != nil {
			return err
		}
	}
	p.state = stateCalendarResolved
	return nil
}

func (p *parser) resolveDate(d *rawDate) error {
	if d.calendar.Type == TokenEOF {
		d.cal = p.src.DefaultCalendar()
		if d.cal == nil {
			return invalid(p.text, d.pos, "no default calendar")
		}
		d.calTag = d.cal.Tag
	} else {
		name := d.calendar.Value
		if c, ok := p.src.Calendar(name); ok {
			d.cal = c
			d.calTag = c.Tag
		} else if registry.IsExtensionTag(name) {
			d.calTag = name
		} else {
			return invalid(p.text, d.calendar.Pos, "unknown calendar %q", name)
		}
	}

	if d.month.Type == TokenEOF {
		return nil
	}
	name := d.month.Value
	if d.cal != nil {
		if m, _, ok := d.cal.Month(name); ok {
			d.monthTag = m.Tag
			d.monthDays = m.Days
			return nil
		}
	}
	if registry.IsExtensionTag(name) || d.cal == nil {
		d.monthTag = name
		return nil
	}
	return invalid(p.text, d.month.Pos, "unknown month %q in calendar %s", name, d.calTag)
}

// ============================================================
// CALENDAR_RESOLVED -> VALIDATED
// ============================================================

func (p *parser) validate() error {
	v := DateValue{Qualifier: p.qual, Phrase: p.phrase}
	var err error
	if p.start != nil {
		if v.Start, err = p.finish(p.start); err != nil {
			return err
		}
	}
	if p.end != nil {
		if v.End, err = p.finish(p.end); err != nil {
			return err
		}
	}
	if err := v.Validate(); err != nil {
		return err
	}
	p.value = v
	p.state = stateValidated
	return nil
}

func (p *parser) finish(d *rawDate) (*Date, error) {
	out := &Date{Calendar: d.calTag, Month: d.monthTag}

	year, err := strconv.Atoi(d.year.Value)
	if err != nil {
		return nil, invalid(p.text, d.year.Pos, "year out of range")
	}
	if year == 0 && d.cal != nil && d.cal.UsesEpochs() {
		return nil, invalid(p.text, d.year.Pos, "year 0 does not exist in calendar %s", d.calTag)
	}
	out.Year = year

	if d.epoch.Type != TokenEOF {
		epoch := d.epoch.Value
		switch {
		case d.cal != nil && d.cal.HasEpoch(epoch):
			out.Epoch = canonicalEpoch(d.cal, epoch)
		case d.cal == nil && registry.IsExtensionTag(d.calTag):
			out.Epoch = epoch
		default:
			return nil, invalid(p.text, d.epoch.Pos, "epoch %q not permitted in calendar %s", epoch, d.calTag)
		}
	}

	if d.day.Type != TokenEOF {
		day, err := strconv.Atoi(d.day.Value)
		if err != nil || day == 0 {
			return nil, invalid(p.text, d.day.Pos, "invalid day %q", d.day.Value)
		}
		if d.monthDays > 0 && day > d.monthDays {
			return nil, invalid(p.text, d.day.Pos, "day %d exceeds the %d days of %s", day, d.monthDays, d.monthTag)
		}
		out.Day = day
	}
	return out, nil
}

func canonicalEpoch(c *registry.Calendar, epoch string) string {
	for _, e := range c.Epochs {
		if strings.EqualFold(e, epoch) {
			return e
		}
	}
	return epoch
}

// ============================================================
// Exact dates and times
// ============================================================

// ParseExact parses a DATE-exact payload: day, month and year in the
// default calendar, with no qualifier, epoch or phrase.
func ParseExact(src CalendarSource, text string) (Date, error) {
	v, err := Parse(src, text)
	if err != nil {
		return Date{}, err
	}
	if v.Qualifier != QualifierNone || v.Start == nil || v.Phrase != "" {
		return Date{}, invalid(text, -1, "exact date must be a single date")
	}
	d := *v.Start
	if d.Day == 0 || d.Month == "" {
		return Date{}, invalid(text, -1, "exact date needs day, month and year")
	}
	if d.Epoch != "" {
		return Date{}, invalid(text, -1, "exact date cannot carry an epoch")
	}
	if trimmed := strings.TrimSpace(text); !isDigit(trimmed[0]) {
		return Date{}, invalid(text, 0, "exact date cannot select a calendar")
	}
	return d, nil
}

// ParseTime parses hh:mm[:ss[.fraction]][Z].
func ParseTime(text string) (Time, error) {
	t := Time{Second: -1}
	s := text
	if strings.HasSuffix(s, "Z") {
		t.UTC = true
		s = s[:len(s)-1]
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Time{}, invalid(text, -1, "time must be hh:mm[:ss]")
	}

	var ok bool
	if t.Hour, ok = timeField(parts[0], 1, 23); !ok {
		return Time{}, invalid(text, -1, "hour %q out of range", parts[0])
	}
	if t.Minute, ok = timeField(parts[1], 2, 59); !ok {
		return Time{}, invalid(text, -1, "minute %q out of range", parts[1])
	}
	if len(parts) == 3 {
		sec, frac, hasFrac := strings.Cut(parts[2], ".")
		if t.Second, ok = timeField(sec, 2, 59); !ok {
			return Time{}, invalid(text, -1, "second %q out of range", sec)
		}
		if hasFrac {
			if frac == "" || strings.Trim(frac, "0123456789") != "" {
				return Time{}, invalid(text, -1, "fraction must be digits")
			}
			t.Fraction = frac
		}
	}
	return t, nil
}

// timeField parses a field of minLen to two digits no greater than max.
func timeField(s string, minLen, max int) (int, bool) {
	if len(s) < minLen || len(s) > 2 || strings.Trim(s, "0123456789") != "" {
		return 0, false
	}
	n, _ := strconv.Atoi(s)
	return n, n <= max
}
