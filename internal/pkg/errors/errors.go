package errors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrVersionNotFound    = errors.New("version not found")
	ErrInvalid            = errors.New("invalid")
	ErrConflict           = errors.New("conflict")
	ErrContextOverflow    = errors.New("context overflow")
	ErrUnresolvedCitation = errors.New("unresolved citation")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrVersionNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsContextOverflow(err error) bool {
	return errors.Is(err, ErrContextOverflow)
}
