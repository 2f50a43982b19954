package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound         = errors.New("campaign not found")
	ErrNoSender         = errors.New("campaign has no sender identity")
	ErrForeignSender    = errors.New("sender identity belongs to another account")
	ErrUnknownVariables = errors.New("template uses unknown variables")
)
