package chrono

// NewDate returns a Gregorian date. A negative year is written as the
// corresponding BCE year; month may be empty and day zero.
func NewDate(year int, month string, day int) Date {
	d := Date{Calendar: "GREGORIAN", Day: day, Month: month, Year: year}
	if year < 0 {
		d.Year = -year
		d.Epoch = "BCE"
	}
	return d
}

// In returns d in another calendar.
func (d Date) In(calendar string) Date {
	d.Calendar = calendar
	return d
}

// Exact returns a plain date value.
func Exact(d Date) DateValue { return DateValue{Start: &d} }

// About returns "ABT d".
func About(d Date) DateValue { return DateValue{Qualifier: QualifierAbout, Start: &d} }

// Calculated returns "CAL d".
func Calculated(d Date) DateValue { return DateValue{Qualifier: QualifierCalculated, Start: &d} }

// Estimated returns "EST d".
func Estimated(d Date) DateValue { return DateValue{Qualifier: QualifierEstimated, Start: &d} }

// Before returns "BEF d".
func Before(d Date) DateValue { return DateValue{Qualifier: QualifierBefore, Start: &d} }

// After returns "AFT d".
func After(d Date) DateValue { return DateValue{Qualifier: QualifierAfter, Start: &d} }

// Between returns "BET start AND end".
func Between(start, end Date) DateValue {
	return DateValue{Qualifier: QualifierBetween, Start: &start, End: &end}
}

// Period returns "FROM from TO to", "FROM from" or "TO to" depending on
// which bounds are given.
func Period(from, to *Date) DateValue {
	if from == nil {
		return DateValue{Qualifier: QualifierTo, End: to}
	}
	return DateValue{Qualifier: QualifierFrom, Start: from, End: to}
}

// WithPhrase returns a copy of v carrying a phrase.
func (v DateValue) WithPhrase(phrase string) DateValue {
	v.Phrase = phrase
	return v
}

// Check validates a constructed value against the calendars of src by
// parsing its payload form.
func Check(src CalendarSource, v DateValue) error {
	parsed, err := Parse(src, v.String())
	if err != nil {
		return err
	}
	parsed.Time = v.Time
	return parsed.Validate()
}
