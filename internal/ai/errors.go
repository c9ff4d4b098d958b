package ai

import "fmt"

// ValidationError reports bad input caught before any model call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError reports a failed model call or an empty completion.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return "model returned no text"
	}
	return fmt.Sprintf("model call failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// FormatError reports a completion that could not be parsed into the
// expected structure. Raw carries the unmodified model output so the
// caller can surface it for diagnosis.
type FormatError struct {
	Raw string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("model response was not in the expected format: %v", e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
