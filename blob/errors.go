package blob

import "errors"

var (
	ErrNotFound   = errors.New("blob: not found")
	ErrInvalidID  = errors.New("blob: invalid id")
	ErrIDMismatch = errors.New("blob: id mismatch")
	ErrImmutable  = errors.New("blob: immutable blob mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
