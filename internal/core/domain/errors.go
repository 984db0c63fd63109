package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates the operation conflicts with the current state
	ErrConflict = errors.New("conflict")

	// ErrProcessingInProgress indicates a processing run is already active
	// for the document
	ErrProcessingInProgress = errors.New("processing already in progress")

	// ErrCooldownActive indicates the regeneration cooldown has not elapsed
	ErrCooldownActive = errors.New("regeneration cooldown active")

	// ErrNoChunks indicates the document has no chunks to work with
	ErrNoChunks = errors.New("no chunks available")

	// ErrChunkResidue indicates stale chunks survived the retrain delete.
	// Retrain aborts before writing any new chunk.
	ErrChunkResidue = errors.New("stale chunks remain after delete")

	// ErrProviderUnavailable indicates the embedding/LLM provider or the
	// remote execution venue could not be reached
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)
