package apperror

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// AppError carries a stable code alongside the human message so callers
// can branch on what failed without string matching.
type AppError struct {
	Code    Code
	Message string
	Context string
	cause   error
	stack   []uintptr
}

func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" (" + e.Context + ")")
	}
	if e.cause != nil {
		sb.WriteString(": " + e.cause.Error())
	}
	return sb.String()
}

func (e *AppError) Unwrap() error { return e.cause }

// Is matches any *AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// Stack renders the call site captured by New, skipping runtime frames.
func (e *AppError) Stack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, "runtime.") {
			fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		}
		if !more {
			return sb.String()
		}
	}
}

// Option customises an AppError at construction.
type Option func(*AppError)

func WithMessage(message string) Option { return func(e *AppError) { e.Message = message } }
func WithContext(context string) Option { return func(e *AppError) { e.Context = context } }
func WithCause(cause error) Option      { return func(e *AppError) { e.cause = cause } }

// New builds an error for code, defaulting the message from the catalog.
func New(code Code, opts ...Option) *AppError {
	var pcs [24]uintptr
	n := runtime.Callers(2, pcs[:])

	e := &AppError{Code: code, Message: messages[code], stack: pcs[:n]}
	for _, opt := range opts {
		opt(e)
	}
	if e.Message == "" {
		e.Message = string(code)
	}
	return e
}

// External reports a failed call to a node, relay or other upstream.
func External(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause))
}

// Wrap converts err to an AppError. An AppError already in the chain is
// returned as is, with context filled in only when it had none.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}
	return New(code, WithContext(context), WithCause(err))
}

// IsAppError reports whether err has an AppError in its chain.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode returns the outermost code in err's chain, or CodeUnknownError.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// Transient reports whether err is worth retrying on the next block:
// connectivity, timeouts, open breakers and rate limits.
func Transient(err error) bool {
	code := GetCode(err)
	switch code {
	case CodeCircuitOpen, CodeRateLimitExceeded, CodeServiceTimeout:
		return true
	}
	s := string(code)
	return strings.Contains(s, "CONNECTION") || strings.Contains(s, "RPC")
}

// LogArgs expands err into structured log key/value pairs.
func LogArgs(err error) []any {
	return []any{"error", err, "code", string(GetCode(err)), "transient", Transient(err)}
}
