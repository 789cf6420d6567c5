package session

import "errors"

// Validation errors are reported to the offending connection as an "error"
// event and leave the connection active. Store failures are logged and
// reported with a generic message only.
var (
	ErrNameRequired      = errors.New("channel name is required")
	ErrChannelIDRequired = errors.New("channel ID is required")
	ErrMessageFields     = errors.New("channel ID and content are required")
	ErrReactionFields    = errors.New("message ID and emoji are required")
)
