package rag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerationError_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  *GenerationError
		want string
	}{
		{
			name: "status",
			err:  &GenerationError{Provider: "Ollama", Kind: GenerationStatus, StatusCode: 500},
			want: "Error: Ollama API returned status 500",
		},
		{
			name: "status with body",
			err:  &GenerationError{Provider: "Groq", Kind: GenerationStatus, StatusCode: 401, Body: "invalid key"},
			want: "Error: Groq API returned status 401: invalid key",
		},
		{
			name: "timeout",
			err:  &GenerationError{Provider: "Groq", Kind: GenerationTimeout},
			want: "Error: Request timed out. The model might be taking too long to respond.",
		},
		{
			name: "malformed",
			err:  &GenerationError{Provider: "Ollama", Kind: GenerationMalformed, Err: errors.New("unexpected EOF")},
			want: "Error: malformed response from Ollama: unexpected EOF",
		},
		{
			name: "transport",
			err:  &GenerationError{Kind: GenerationTransport, Err: errors.New("connection refused")},
			want: "Error generating response: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestConfigurationError(t *testing.T) {
	err := MissingCredential("GROQ_API_KEY", "llm provider groq")

	assert.Equal(t, "configuration error: GROQ_API_KEY: required by llm provider groq: missing credential", err.Error())
	assert.True(t, errors.Is(err, ErrMissingCredential))
}

func TestRetrievalError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &RetrievalError{Backend: "chroma", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Error: chroma retrieval failed: dial tcp: connection refused", err.Error())
}

func TestResolveLanguage(t *testing.T) {
	assert.Equal(t, "English", ResolveLanguage("", "anything", ""))
	assert.Equal(t, "Spanish", ResolveLanguage("es", "anything", ""))
	assert.Equal(t, "Portuguese", ResolveLanguage("", "anything", "pt"))
	assert.Equal(t, "Klingon", ResolveLanguage("Klingon", "anything", "es"))
	assert.Equal(t, "English", ResolveLanguage("auto",
		"Photosynthesis is the process by which green plants use sunlight to synthesize food from carbon dioxide and water.", ""))
}
