package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running for the project.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrConfiguration indicates required configuration is missing or malformed.
	ErrConfiguration = errors.New("configuration error")

	// Authorization Errors.

	// ErrAccessDenied indicates the caller may not administer the project.
	ErrAccessDenied = errors.New("access denied")

	// ErrNoTempToken indicates no pending temporary token exists for the caller.
	ErrNoTempToken = errors.New("no pending authorization")

	// ErrIntegrationNotFound indicates the project has no Drive integration.
	ErrIntegrationNotFound = errors.New("integration not found")

	// ErrTokenExchangeRejected indicates the provider answered a token
	// request with a non-success status.
	ErrTokenExchangeRejected = errors.New("token exchange rejected")

	// ErrDecryption indicates a sealed value could not be opened.
	// Covers wrong keys, tampering and malformed input alike.
	ErrDecryption = errors.New("decryption failed")

	// ErrInvalidState indicates an OAuth state that was not issued by this
	// service or has expired.
	ErrInvalidState = errors.New("invalid authorization state")

	// Provider Errors.

	// ErrUnauthorized indicates the provider rejected the access token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the provider denied access to the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates a transient provider-side failure.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrTransport indicates the provider could not be reached or
	// answered with an unexpected failure.
	ErrTransport = errors.New("provider request failed")

	// ErrExhaustedRetries indicates every attempt of a bounded retry failed.
	ErrExhaustedRetries = errors.New("exhausted retries")

	// Ingestion Errors.

	// ErrSubmissionRejected indicates the ingestion pipeline refused a job.
	ErrSubmissionRejected = errors.New("ingestion submission rejected")

	// ErrAlreadyCompleted indicates an ingestion record already reached a
	// terminal status.
	ErrAlreadyCompleted = errors.New("ingestion record already completed")

	// ErrFileTooLarge indicates a file exceeds the configured size ceiling.
	ErrFileTooLarge = errors.New("file too large")
)
