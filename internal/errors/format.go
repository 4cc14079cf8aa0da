package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI styles for terminal output.
const (
	styleReset = "\033[0m"
	styleError = "\033[1;31m"
	styleTitle = "\033[1m"
	styleDim   = "\033[90m"
	styleHint  = "\033[36m"
	styleCause = "\033[33m"
)

var colorEnabled = true

// DisableColors disables ANSI styles in formatted output.
func DisableColors() { colorEnabled = false }

// EnableColors enables ANSI styles in formatted output.
func EnableColors() { colorEnabled = true }

func paint(style, text string) string {
	if !colorEnabled {
		return text
	}
	return style + text + styleReset
}

// Format renders the error for a terminal: a header, the file and source
// excerpt it points at, then detail, cause, hint and documentation link.
func (e *BundleError) Format() string {
	var b strings.Builder

	title := e.Message
	if e.Code != "" {
		title = e.Code + ": " + e.Message
	}
	fmt.Fprintf(&b, "\n%s %s\n\n", paint(styleError, "ERROR"), paint(styleTitle, title))

	if e.Path != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", paint(styleDim, "file: "), e.Path)
	}
	if e.Location != nil {
		fmt.Fprintf(&b, "  %s\n\n", paint(styleHint, e.Location.String()))
		if len(e.Context) > 0 {
			e.writeExcerpt(&b)
			b.WriteString("\n")
		}
	}

	if e.Detail != "" {
		fmt.Fprintf(&b, "  %s\n\n", e.Detail)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s%s\n\n", paint(styleCause, "Cause: "), e.Wrapped)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", paint(styleHint, "Hint: "), e.Suggestion)
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s%s\n", paint(styleDim, "Learn more: "), e.DocURL)
	}
	return b.String()
}

// writeExcerpt prints the context lines with the error line marked and a
// caret under the column.
func (e *BundleError) writeExcerpt(w io.Writer) {
	first := e.Location.Line - len(e.Context)/2
	bar := paint(styleDim, " │ ")
	for i, line := range e.Context {
		n := first + i
		if n != e.Location.Line {
			fmt.Fprintf(w, "    %4d%s%s\n", n, bar, line)
			continue
		}
		fmt.Fprintf(w, "  %s%4d%s%s\n", paint(styleError, "→ "), n, bar, line)
		if e.Location.Column > 0 {
			fmt.Fprintf(w, "        %s%s%s\n", paint(styleDim, "│ "),
				strings.Repeat(" ", e.Location.Column-1), paint(styleError, "^"))
		}
	}
}

// FormatCompact returns the error on one line:
// "[location: ]code: message[ (path)]".
func (e *BundleError) FormatCompact() string {
	var b strings.Builder
	if e.Location != nil {
		b.WriteString(e.Location.String() + ": ")
	}
	if e.Code != "" {
		b.WriteString(e.Code + ": ")
	}
	b.WriteString(e.Message)
	if e.Path != "" {
		b.WriteString(" (" + e.Path + ")")
	}
	return b.String()
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Fatal      bool          `json:"fatal"`
	Detail     string        `json:"detail,omitempty"`
	Path       string        `json:"path,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	Cause      string        `json:"cause,omitempty"`
	DocURL     string        `json:"docUrl,omitempty"`
}

// FormatJSON returns the error as a single-line JSON object.
func (e *BundleError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Fatal:      e.Fatal,
		Detail:     e.Detail,
		Path:       e.Path,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	var be *BundleError
	if stderrors.As(err, &be) {
		fmt.Fprint(os.Stderr, be.Format())
		return
	}
	fmt.Fprintf(os.Stderr, "\n%s %s\n\n", paint(styleError, "ERROR"), err)
}

// PrintJSON prints err to stderr as one JSON line. Errors that are not
// BundleErrors are reported under code.
func PrintJSON(err error, code string) {
	fmt.Fprintln(os.Stderr, FromError(err, code).FormatJSON())
}
