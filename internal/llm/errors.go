package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
)

// transportError classifies a failed round trip as a timeout or a plain
// transport failure.
func transportError(provider string, err error) *rag.GenerationError {
	kind := rag.GenerationTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = rag.GenerationTimeout
	}
	return &rag.GenerationError{Provider: provider, Kind: kind, Err: err}
}

func statusError(provider string, code int, body string) *rag.GenerationError {
	return &rag.GenerationError{
		Provider:   provider,
		Kind:       rag.GenerationStatus,
		StatusCode: code,
		Body:       oneLine(body, 300),
	}
}

func malformedError(provider string, err error) *rag.GenerationError {
	return &rag.GenerationError{Provider: provider, Kind: rag.GenerationMalformed, Err: err}
}

// isDecodeError reports whether a 2xx body could not be decoded. The openai-go
// SDK prefixes its decode failures with "error parsing response json".
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return true
	}
	return strings.Contains(err.Error(), "error parsing response json")
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) > max {
		return string([]rune(s)[:max]) + "..."
	}
	return s
}

// normalizeWhitespace collapses runs of whitespace to single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
