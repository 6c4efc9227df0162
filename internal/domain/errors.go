package domain

import "errors"

var (
	// ErrInvalidLocation signals a request whose origin could not be resolved.
	ErrInvalidLocation = errors.New("missing or invalid location")
	// ErrInvalidRequest signals a malformed match request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized signals a missing or mismatched admin token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrResourceNotFound signals a missing availability entry.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrGeocodeFailed signals that a postal code could not be resolved.
	ErrGeocodeFailed = errors.New("postal code lookup failed")
	// ErrClassifierUnavailable signals a classification collaborator failure.
	// Callers recover via fallback rules; it never reaches the transport layer.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrCatalogUnavailable signals that the resource catalog could not be loaded.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)
