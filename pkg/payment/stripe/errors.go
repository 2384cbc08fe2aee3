package stripe

import "errors"

var (
	// ErrInvalidRequest is returned when the request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnauthorized is returned when the secret key is rejected
	ErrUnauthorized = errors.New("unauthorized: invalid API key")

	// ErrNotFound is returned for an unknown payment intent
	ErrNotFound = errors.New("payment intent not found")

	// ErrCardDeclined is returned when the provider declines the payment
	ErrCardDeclined = errors.New("payment declined")

	// ErrRateLimited is returned on HTTP 429
	ErrRateLimited = errors.New("rate limited by payment provider")

	// ErrNetworkError is returned when the provider cannot be reached or fails with 5xx
	ErrNetworkError = errors.New("network error")
)

// IsUnavailable reports whether err means the provider could not serve the
// call, as opposed to rejecting it.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNetworkError) || errors.Is(err, ErrRateLimited)
}
