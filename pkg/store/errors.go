package store

import (
	"errors"
	"fmt"
)

// Kind classifies store failures. The numbering matches the blink codes of the
// logger: the LED blinks Kind+1 times.
type Kind uint8

const (
	KindNone   Kind = 0
	KindFull   Kind = 1
	KindMount  Kind = 2
	KindFile   Kind = 3
	KindFormat Kind = 4
)

var (
	ErrFull   = errors.New("flash full")
	ErrMount  = errors.New("mount failed")
	ErrFile   = errors.New("file error")
	ErrFormat = errors.New("format failed")
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindFull:
		return "full"
	case KindMount:
		return "mount"
	case KindFile:
		return "file"
	case KindFormat:
		return "format"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindFull:
		return ErrFull
	case KindMount:
		return ErrMount
	case KindFile:
		return ErrFile
	case KindFormat:
		return ErrFormat
	default:
		return nil
	}
}

// Error is returned by every Store operation that fails.
type Error struct {
	Op   string
	Kind Kind
	Err  error // underlying volume error, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind.sentinel(), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind.sentinel())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error kind, so errors.Is(err, ErrFull) works.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the kind of a store error, KindNone for nil and KindFile for
// errors that did not originate in the store.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindFile
}

func fail(op string, kind Kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}
