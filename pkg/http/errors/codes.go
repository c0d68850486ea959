package errors

// Error codes for standardized error responses
const (
	ErrCodeInternalError  = "internal_error"
	ErrCodeInvalidPayload = "invalid_payload"
	ErrCodeRegionNotFound = "region_not_found"
	ErrCodeInvalidPlayers = "invalid_player_count"
	ErrCodeInvalidName    = "invalid_name"
	ErrCodeNotStarted     = "session_not_started"
	ErrCodeUnknownMessage = "unknown_message_type"
)
