package rag

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery        = errors.New("query is empty")
	ErrMissingCredential = errors.New("missing credential")
	ErrUnknownProvider   = errors.New("unknown provider")
)

// ConfigurationError is fatal: the process reports it and exits before any
// retrieval happens.
type ConfigurationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Key != "" {
		msg += ": " + e.Key
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// MissingCredential builds the ConfigurationError for an absent key.
func MissingCredential(key, usedBy string) *ConfigurationError {
	return &ConfigurationError{
		Key:    key,
		Reason: fmt.Sprintf("required by %s", usedBy),
		Err:    ErrMissingCredential,
	}
}

// RetrievalError wraps any failure to reach or read the vector store.
type RetrievalError struct {
	Backend string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("Error: %s retrieval failed: %v", e.Backend, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

type GenerationErrorKind string

const (
	GenerationStatus    GenerationErrorKind = "status"
	GenerationTimeout   GenerationErrorKind = "timeout"
	GenerationMalformed GenerationErrorKind = "malformed"
	GenerationTransport GenerationErrorKind = "transport"
)

// GenerationError is a provider failure. Its message is shown to the user in
// place of an answer, so every kind starts with "Error".
type GenerationError struct {
	Provider   string
	Kind       GenerationErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *GenerationError) Error() string {
	switch e.Kind {
	case GenerationStatus:
		if e.Body != "" {
			return fmt.Sprintf("Error: %s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("Error: %s API returned status %d", e.Provider, e.StatusCode)
	case GenerationTimeout:
		return "Error: Request timed out. The model might be taking too long to respond."
	case GenerationMalformed:
		return fmt.Sprintf("Error: malformed response from %s: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("Error generating response: %v", e.Err)
	}
}

func (e *GenerationError) Unwrap() error { return e.Err }

// InputError marks a request that cannot be served as given.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *InputError) Unwrap() error { return e.Err }
