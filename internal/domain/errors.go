package domain

import "errors"

var (
	// ErrEmptyResponse marks a collaborator reply with no content.
	ErrEmptyResponse = errors.New("empty response")
	// ErrMalformedResponse marks a collaborator reply that is not usable JSON.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrMisconfigured marks a missing credential or endpoint.
	ErrMisconfigured = errors.New("client misconfigured")
	// ErrNotFound marks a missing row.
	ErrNotFound = errors.New("not found")
)
