// Package errors defines the failures reported while turning a disassembly
// dump into a control-flow graph.
//
// There are two kinds of failure. A FormatError means the input departs
// from the dump grammar or from the layout the builder relies on. A
// LookupError means a decoded reference points at an address (or method)
// that does not exist. Both are fatal to the build that produced them.
// Use errors.Is with ErrFormat or ErrLookup to test the kind.
package errors

import (
	"fmt"
	"strings"
)

// Kind is the category of a build failure.
type Kind int

const (
	// KindFormat marks malformed or unexpected input.
	KindFormat Kind = iota + 1
	// KindLookup marks a reference to something that does not exist.
	KindLookup
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format error"
	case KindLookup:
		return "lookup error"
	default:
		return "error"
	}
}

type kindError struct {
	kind Kind
}

func (e *kindError) Error() string {
	return e.kind.String()
}

// Sentinels for errors.Is.
var (
	ErrFormat error = &kindError{kind: KindFormat}
	ErrLookup error = &kindError{kind: KindLookup}
)

// NoAddress is used when an error is not tied to an instruction address.
const NoAddress = -1

// Location identifies where in the input a failure was detected.
type Location struct {
	Function string // method signature or name, if known
	Address  int    // instruction address, or NoAddress
	Line     int    // 1-based input line number, or 0
	Text     string // the offending input line
}

// IsZero returns true if the location has not been set.
func (l Location) IsZero() bool {
	return l.Function == "" && l.Address < 0 && l.Line == 0
}

// String returns a formatted string representation of the location.
func (l Location) String() string {
	var parts []string
	if l.Function != "" {
		parts = append(parts, l.Function)
	}
	if l.Address >= 0 {
		parts = append(parts, fmt.Sprintf("@%04x", l.Address))
	}
	if l.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", l.Line))
	}
	return strings.Join(parts, " ")
}

// FriendlyError is an interface for errors that have a human friendly message
// in addition to the lower level default error message.
type FriendlyError interface {
	Error() string
	FriendlyErrorMessage() string
}

// FormattableError is an interface for errors that can be rendered by the
// Formatter.
type FormattableError interface {
	Error() string
	ToFormatted() *FormattedError
}

// FormatError reports input that does not match what the builder expects.
type FormatError struct {
	Code     ErrorCode
	Message  string
	Location Location
	Note     string
	Cause    error
}

// Formatf creates a FormatError with a formatted message.
func Formatf(code ErrorCode, format string, args ...any) *FormatError {
	return &FormatError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Location: Location{Address: NoAddress},
	}
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return describe(KindFormat, e.Message, e.Location, e.Cause)
}

// Unwrap returns the underlying cause of the error.
func (e *FormatError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// At records the instruction address the error refers to.
func (e *FormatError) At(addr int) *FormatError {
	e.Location.Address = addr
	return e
}

// OnLine records the input line the error was found on.
func (e *FormatError) OnLine(line int, text string) *FormatError {
	e.Location.Line = line
	e.Location.Text = text
	return e
}

// In records the function being built. An existing name is kept.
func (e *FormatError) In(function string) *FormatError {
	if e.Location.Function == "" {
		e.Location.Function = function
	}
	return e
}

// WithCause wraps the error with a cause.
func (e *FormatError) WithCause(cause error) *FormatError {
	e.Cause = cause
	return e
}

// WithNote attaches extra context shown by the Formatter.
func (e *FormatError) WithNote(note string) *FormatError {
	e.Note = note
	return e
}

// FriendlyErrorMessage returns a human-friendly error message.
func (e *FormatError) FriendlyErrorMessage() string {
	return NewFormatter(false).Format(e.ToFormatted())
}

// ToFormatted converts to the FormattedError type for display.
func (e *FormatError) ToFormatted() *FormattedError {
	return toFormatted(KindFormat, e.Code, e.Message, e.Location, e.Note)
}

// LookupError reports a reference that could not be resolved.
type LookupError struct {
	Code        ErrorCode
	Message     string
	Location    Location
	Target      int
	Suggestions []Suggestion
}

// Lookupf creates a LookupError with a formatted message.
func Lookupf(code ErrorCode, target int, format string, args ...any) *LookupError {
	return &LookupError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Location: Location{Address: NoAddress},
		Target:   target,
	}
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return describe(KindLookup, e.Message, e.Location, nil)
}

// Is reports whether target is ErrLookup.
func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}

// At records the address of the instruction holding the reference.
func (e *LookupError) At(addr int) *LookupError {
	e.Location.Address = addr
	return e
}

// In records the function being built. An existing name is kept.
func (e *LookupError) In(function string) *LookupError {
	if e.Location.Function == "" {
		e.Location.Function = function
	}
	return e
}

// FriendlyErrorMessage returns a human-friendly error message.
func (e *LookupError) FriendlyErrorMessage() string {
	return NewFormatter(false).Format(e.ToFormatted())
}

// ToFormatted converts to the FormattedError type for display.
func (e *LookupError) ToFormatted() *FormattedError {
	fe := toFormatted(KindLookup, e.Code, e.Message, e.Location, "")
	if len(e.Suggestions) > 0 {
		fe.Hint = FormatSuggestions(e.Suggestions)
	}
	return fe
}

func describe(kind Kind, msg string, loc Location, cause error) string {
	var b strings.Builder
	b.WriteString(kind.String())
	b.WriteString(": ")
	b.WriteString(msg)
	if !loc.IsZero() {
		b.WriteString(" (")
		b.WriteString(loc.String())
		b.WriteString(")")
	}
	if cause != nil {
		b.WriteString(": ")
		b.WriteString(cause.Error())
	}
	return b.String()
}

func toFormatted(kind Kind, code ErrorCode, msg string, loc Location, note string) *FormattedError {
	fe := &FormattedError{
		Code:     code,
		Kind:     kind.String(),
		Message:  msg,
		Location: loc,
		Note:     note,
	}
	if loc.Text != "" {
		fe.SourceLines = []SourceLineEntry{
			{Number: loc.Line, Text: loc.Text, IsMain: true},
		}
	}
	return fe
}
