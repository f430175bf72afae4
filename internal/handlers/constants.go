package handlers

const (
	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrNotFound            = "Not found"
	ErrReviewConflict      = "Card was reviewed concurrently, retry with its current state"
	ErrTooManyRequests     = "Too many requests"
	ErrGenerationFailed    = "Content generation failed"
	ErrInternalServerError = "Internal server error"
)
