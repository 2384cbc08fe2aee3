package stripe

import "time"

// Config represents the configuration for the payment intent client
type Config struct {
	// SecretKey authenticates every request (Bearer)
	SecretKey string

	// BaseURL is the API root, e.g. https://api.stripe.com/v1
	BaseURL string

	// Timeout bounds a single API call; zero means 30s
	Timeout time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrInvalidRequest
	}
	if c.BaseURL == "" {
		return ErrInvalidRequest
	}
	return nil
}
