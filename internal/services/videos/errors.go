package videos

import "errors"

// Errors surfaced across the pipeline boundary. Collaborator and transport errors are wrapped into one of these.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrBadRequest          = errors.New("bad request")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrNotFound            = errors.New("video not found")
	ErrForbidden           = errors.New("video belongs to another user")
)
