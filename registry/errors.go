package registry

import (
	"errors"
	"fmt"
)

var (
	ErrSpecLoad = errors.New("specification load error")
	ErrNotFound = errors.New("not found in registry")
)

// SpecLoadError reports a source entry that could not be loaded.
type SpecLoadError struct {
	Source int    // index of the source passed to Build
	Key    string // entry key, empty for document-level failures
	Msg    string
	Err    error // underlying parse error, if any
}

func (e *SpecLoadError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Key == "" {
		return fmt.Sprintf("%s: source %d: %s", ErrSpecLoad, e.Source, msg)
	}
	return fmt.Sprintf("%s: source %d: %s: %s", ErrSpecLoad, e.Source, e.Key, msg)
}

func (e *SpecLoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSpecLoad, e.Err}
	}
	return []error{ErrSpecLoad}
}

func loadErrorf(source int, key, format string, args ...any) error {
	return &SpecLoadError{Source: source, Key: key, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned by Lookup for an unknown key, URI or tag.
type NotFoundError struct {
	Name       string
	Suggestion string
}

func (e *NotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s: %q (did you mean %s?)", ErrNotFound, e.Name, e.Suggestion)
	}
	return fmt.Sprintf("%s: %q", ErrNotFound, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
