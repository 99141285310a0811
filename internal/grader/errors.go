package grader

import (
	"errors"
	"fmt"
)

// Kind classifies grading failures.
type Kind int

const (
	// KindUnreadableImage means the input could not be decoded or was empty.
	KindUnreadableImage Kind = iota + 1
	// KindProcessing covers runtime, argument and internal failures.
	KindProcessing
)

func (k Kind) String() string {
	switch k {
	case KindUnreadableImage:
		return "unreadable image"
	case KindProcessing:
		return "processing"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is.
var (
	ErrUnreadableImage = errors.New("unreadable image")
	ErrProcessing      = errors.New("processing failed")
)

// Error is returned by Engine operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnreadableImage:
		return e.Kind == KindUnreadableImage
	case ErrProcessing:
		return e.Kind == KindProcessing
	}
	return false
}

func unreadable(op string, err error) error {
	return &Error{Kind: KindUnreadableImage, Op: op, Err: err}
}

func processing(op string, err error) error {
	return &Error{Kind: KindProcessing, Op: op, Err: err}
}
