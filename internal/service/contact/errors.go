package contact

import "errors"

// ErrInvalidPair is returned when sender or recipient id is empty.
var ErrInvalidPair = errors.New("sender and recipient are required")
