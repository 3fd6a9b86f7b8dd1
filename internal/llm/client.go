package llm

import (
	"context"
	"errors"

	"github.com/flightchat/backend/internal/models"
)

// ChatRequest carries one reasoning invocation: assembled context text, the
// full conversation history, and the new user question.
type ChatRequest struct {
	System   string
	History  []models.Turn
	Question string
}

// ChatResponse is the provider-independent result. NeedsClarification is a
// structural signal from the reply envelope, not a phrase match against the
// answer text.
type ChatResponse struct {
	Answer                string
	Confidence            *float64
	NeedsClarification    bool
	ClarificationQuestion string
}

// Client is the reasoning capability boundary. Any implementation satisfying
// this shape is interchangeable; selection happens once at startup.
type Client interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// TransientError marks provider failures worth retrying (network faults,
// rate limits, upstream 5xx). Everything else is treated as permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func transient(err error) error {
	return &TransientError{Err: err}
}
