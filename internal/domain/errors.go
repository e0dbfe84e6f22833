package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidRequirement is returned when a requirement field fails validation
	ErrInvalidRequirement = errors.New("invalid procurement requirement")

	// ErrMissingCredential is returned when the gateway credential is not configured
	ErrMissingCredential = errors.New("gateway credential is not configured")

	// ErrGatewayFailure is returned when the LLM gateway answers with a non-success status
	ErrGatewayFailure = errors.New("LLM gateway request failed")

	// ErrGatewayMalformedResponse is returned when a 2xx gateway reply has no usable message
	ErrGatewayMalformedResponse = errors.New("LLM gateway returned a malformed response")

	// ErrExtractionFailed is returned when the model reply cannot be decoded into a requirement
	ErrExtractionFailed = errors.New("requirement extraction failed")

	// ErrMatchingFailed is returned when internal supplier scoring fails
	ErrMatchingFailed = errors.New("supplier matching failed")

	// ErrFlowNameMissing is returned when the flow header is absent
	ErrFlowNameMissing = errors.New("Flow name is missing")

	// ErrUnknownFlow is returned when the flow header names no known flow
	ErrUnknownFlow = errors.New("flow not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)

// ConfigurationError reports a missing or invalid setting. It is fatal and never retried.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// GatewayError carries a non-success response from the LLM gateway
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("LLM gateway returned status %d: %s", e.StatusCode, e.Body)
}

func (e *GatewayError) Unwrap() error { return ErrGatewayFailure }

// Retryable reports whether a caller-side retry could succeed: 429 and 5xx are
// transient, every other status is treated as fatal.
func (e *GatewayError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ExtractionError is returned when the model reply does not decode into a requirement.
// Raw holds the assistant content verbatim for diagnostics.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%v: %v", ErrExtractionFailed, e.Err)
}

func (e *ExtractionError) Unwrap() []error { return []error{ErrExtractionFailed, e.Err} }

// MatchingError is returned when internal scoring fails. External discovery
// failures never produce one.
type MatchingError struct {
	Err error
}

func (e *MatchingError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMatchingFailed, e.Err)
}

func (e *MatchingError) Unwrap() []error { return []error{ErrMatchingFailed, e.Err} }

// DispatchError is a client-input failure detected before any flow runs
type DispatchError struct {
	Flow string
	Err  error
}

func (e *DispatchError) Error() string {
	if errors.Is(e.Err, ErrFlowNameMissing) {
		return ErrFlowNameMissing.Error()
	}
	return fmt.Sprintf("Flow %s not found", e.Flow)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// StatusCode maps the dispatch failure to its HTTP status
func (e *DispatchError) StatusCode() int {
	if errors.Is(e.Err, ErrUnknownFlow) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}
