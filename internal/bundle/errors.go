package bundle

import "errors"

var (
	ErrMissingBinary = errors.New("binary does not exist")
	ErrIOFailure     = errors.New("bundle write failed")
	ErrBadLayout     = errors.New("bundle layout invalid")
)
