package chrono

import (
	"errors"
	"fmt"
)

// ErrInvalidDate is matched by every InvalidDateError.
var ErrInvalidDate = errors.New("invalid date")

// InvalidDateError reports a date payload that violates the date grammar
// or its calendar's rules.
type InvalidDateError struct {
	Text string // payload being parsed
	Pos  int    // byte offset of the offending token, -1 if not positional
	Msg  string
}

func (e *InvalidDateError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s %q at offset %d: %s", ErrInvalidDate, e.Text, e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidDate, e.Text, e.Msg)
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

func invalid(text string, pos int, format string, args ...any) *InvalidDateError {
	return &InvalidDateError{Text: text, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
