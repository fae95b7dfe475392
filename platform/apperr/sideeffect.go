package apperr

import "fmt"

// SideEffectError records a best-effort step that failed after the core
// transition committed. It is reported alongside the result, never returned
// as the operation error.
type SideEffectError struct {
	Step  string
	Err   error
	Attrs []any
}

// SideEffect builds a SideEffectError. Attrs are slog key/value pairs.
func SideEffect(step string, err error, attrs ...any) SideEffectError {
	return SideEffectError{Step: step, Err: err, Attrs: attrs}
}

// Error implements the error interface.
func (e SideEffectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e SideEffectError) Unwrap() error {
	return e.Err
}

// MarshalText exposes the message in JSON responses.
func (e SideEffectError) MarshalText() ([]byte, error) {
	return []byte(e.Error()), nil
}
