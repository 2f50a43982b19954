package suppression

import "errors"

// Sentinel errors for the suppression service layer.
var (
	ErrInvalidToken = errors.New("invalid unsubscribe token")
	ErrInvalidPair  = errors.New("sender and recipient are required")
)
