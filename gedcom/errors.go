package gedcom

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidChild        = errors.New("invalid child")
	ErrCardinalityExceeded = errors.New("cardinality exceeded")
	ErrDuplicateXref       = errors.New("duplicate xref")
	ErrUnresolvedXref      = errors.New("unresolved xref")
	ErrMalformedLine       = errors.New("malformed line")
	ErrEncoding            = errors.New("cannot encode")
	ErrRequired            = errors.New("required substructure missing")
	ErrPayload             = errors.New("invalid payload")
)

// InvalidChildError reports a tag that may not appear under its parent.
type InvalidChildError struct {
	Parent     string // tag path of the parent, empty for level 0
	Tag        string
	Reason     string
	Suggestion string
}

func (e *InvalidChildError) Error() string {
	where := e.Parent
	if where == "" {
		where = "level 0"
	}
	msg := fmt.Sprintf("%s: %s under %s", ErrInvalidChild, e.Tag, where)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", e.Suggestion)
	}
	return msg
}

func (e *InvalidChildError) Unwrap() error { return ErrInvalidChild }

// CardinalityExceededError reports a child that would exceed its maximum.
type CardinalityExceededError struct {
	Parent string
	Tag    string
	Max    int
}

func (e *CardinalityExceededError) Error() string {
	where := e.Parent
	if where == "" {
		where = "level 0"
	}
	return fmt.Sprintf("%s: %s allows at most %d %s", ErrCardinalityExceeded, where, e.Max, e.Tag)
}

func (e *CardinalityExceededError) Unwrap() error { return ErrCardinalityExceeded }

// DuplicateXrefError reports an identifier already used in the document.
type DuplicateXrefError struct {
	Xref   Xref
	Reason string
}

func (e *DuplicateXrefError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %s", ErrDuplicateXref, e.Xref, e.Reason)
	}
	return fmt.Sprintf("%s: %s already exists", ErrDuplicateXref, e.Xref)
}

func (e *DuplicateXrefError) Unwrap() error { return ErrDuplicateXref }

// UnresolvedXrefError reports a pointer with no bound record.
type UnresolvedXrefError struct {
	Xref   Xref
	Reason string
}

func (e *UnresolvedXrefError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrUnresolvedXref, e.Xref, e.Reason)
}

func (e *UnresolvedXrefError) Unwrap() error { return ErrUnresolvedXref }

// MalformedLineError reports a line that cannot be decoded.
type MalformedLineError struct {
	Line   int
	Text   string
	Reason string
	Err    error // underlying stream.ParseError, if any
}

func (e *MalformedLineError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("%s %d: %s: %q", ErrMalformedLine, e.Line, e.Reason, e.Text)
	}
	return fmt.Sprintf("%s %d: %s", ErrMalformedLine, e.Line, e.Reason)
}

func (e *MalformedLineError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedLine, e.Err}
	}
	return []error{ErrMalformedLine}
}

// EncodingError reports a node that cannot be written as a line.
type EncodingError struct {
	Path   string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s %s: %s", ErrEncoding, e.Path, e.Reason)
}

func (e *EncodingError) Unwrap() error { return ErrEncoding }
