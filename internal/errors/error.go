package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryCache    Category = "cache"
	CategoryCodec    Category = "codec"
	CategoryPipeline Category = "pipeline"
	CategoryCLI      Category = "cli"
)

// Location represents a position in a source or configuration file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// BundleError is a structured error with location, suggestion and documentation.
type BundleError struct {
	// Code is a unique error identifier (e.g., "B101").
	Code string

	// Category is the error type (config, cache, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Fatal reports whether the error aborts the run.
	Fatal bool

	// Location is the file position the error refers to, if any.
	Location *Location

	// Context contains surrounding source lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Path is the logical path of the file being processed, if any.
	Path string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *BundleError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *BundleError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file location to the error.
func (e *BundleError) WithLocation(file string, line, column int) *BundleError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithOffset locates the error from a byte offset into data, as reported by
// encoding/json syntax errors.
func (e *BundleError) WithOffset(file string, data []byte, offset int64) *BundleError {
	if offset < 0 || offset > int64(len(data)) {
		return e
	}
	line, col := 1, 1
	for _, c := range data[:offset] {
		if c == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return e.WithLocation(file, line, col)
}

// WithSuggestion adds a fix suggestion to the error.
func (e *BundleError) WithSuggestion(s string) *BundleError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *BundleError) WithDetail(d string) *BundleError {
	e.Detail = d
	return e
}

// WithPath records the logical path of the file the error concerns.
func (e *BundleError) WithPath(p string) *BundleError {
	e.Path = p
	return e
}

// Wrap wraps another error.
func (e *BundleError) Wrap(err error) *BundleError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a BundleError from a registered error code.
func New(code string) *BundleError {
	template, ok := registry[code]
	if !ok {
		return &BundleError{
			Code:    code,
			Message: "Unknown error",
			Fatal:   true,
		}
	}
	return &BundleError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		Fatal:    template.Fatal,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new BundleError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *BundleError {
	return &BundleError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a BundleError.
func FromError(err error, code string) *BundleError {
	if err == nil {
		return nil
	}
	var be *BundleError
	if stderrors.As(err, &be) {
		return be
	}
	return New(code).Wrap(err)
}

// IsFatal reports whether err aborts the run. Errors that are not
// BundleErrors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BundleError
	if stderrors.As(err, &be) {
		return be.Fatal
	}
	return true
}

// HasCode reports whether err is, or wraps, a BundleError with the given code.
func HasCode(err error, code string) bool {
	var be *BundleError
	for err != nil {
		if !stderrors.As(err, &be) {
			return false
		}
		if be.Code == code {
			return true
		}
		err = be.Wrapped
	}
	return false
}
