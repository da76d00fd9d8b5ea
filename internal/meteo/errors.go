package meteo

import "errors"

// NotFoundError means the geocoder had no match for the requested city.
// The message is user-facing and shown verbatim.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ProviderError means the forecast provider (or the transport to it)
// failed. Reason is user-facing; Err carries the underlying cause, if any.
type ProviderError struct {
	Reason string
	Err    error
}

func (e *ProviderError) Error() string { return e.Reason }

func (e *ProviderError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
