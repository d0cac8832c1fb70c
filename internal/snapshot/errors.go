package snapshot

import "errors"

var (
	ErrNotFound        = errors.New("snapshot: not found")
	ErrInvalidDocument = errors.New("snapshot: invalid document")
)
