package provider

import (
	"errors"
	"fmt"
)

// Common provider errors
var (
	ErrProviderNotFound   = errors.New("provider not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("product not found")
	ErrTransient          = errors.New("transient provider failure")
	ErrInvalidResponse    = errors.New("invalid provider response")
)

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
	Status   int    `json:"status,omitempty"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Provider, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, status int, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Code:     code,
		Status:   status,
		Message:  message,
		Err:      err,
	}
}

// IsAuthError reports whether the provider rejected the session token or the
// credentials used to obtain one.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidCredentials)
}

// IsNotFound reports whether the provider does not know the requested SKU.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTemporaryError checks if an error is temporary (network, rate limit, 5xx)
func IsTemporaryError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		switch providerErr.Code {
		case CodeRateLimit, CodeNetwork, CodeServer:
			return true
		}
	}
	return false
}

// Error codes attached to ProviderError
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeBadLogin     = "BAD_LOGIN"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimit    = "RATE_LIMIT"
	CodeNetwork      = "NETWORK_ERROR"
	CodeServer       = "SERVER_ERROR"
	CodeBadResponse  = "BAD_RESPONSE"
)
