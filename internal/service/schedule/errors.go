package schedule

import "errors"

// ErrInvalidConfig is returned for a window or location that cannot be used.
var ErrInvalidConfig = errors.New("invalid schedule config")
