package allocation

import "errors"

// ErrInvalidConfig is returned when a Config names an unknown strategy or
// carries negative limits.
var ErrInvalidConfig = errors.New("invalid allocation config")
