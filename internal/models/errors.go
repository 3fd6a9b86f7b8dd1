package models

import (
	"errors"
	"fmt"
)

// Stable error kinds so the transport layer can map failures to responses
// without inspecting message text.
var (
	// ErrNotFound reports an unknown flight log or conversation identity.
	ErrNotFound = errors.New("not found")

	// ErrMissingContext reports a question with no bound flight log.
	ErrMissingContext = errors.New("no flight log bound to conversation")

	// ErrReasoningUnavailable reports that the reasoning capability failed
	// after exhausting retries.
	ErrReasoningUnavailable = errors.New("reasoning capability unavailable")
)

// ParseError reports a stream that is not a decodable flight log. It is
// fatal to the ingest call only.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse error: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
