package m3u8

import (
	"errors"
	"fmt"
	"strings"
)

var ErrParse = errors.New("syntax error in manifest")
var ErrVersionMismatch = errors.New("playlist version mismatch")

// ParseError reports a line that strict parsing rejected.
type ParseError struct {
	LineNumber int    // 1-based, counted after trimming the input
	Line       string // trimmed line text
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s on line %d: %s", ErrParse, e.LineNumber, e.Line)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// ValidationError carries every violation found by the strict-mode validator.
type ValidationError struct {
	Violations []VersionViolation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d violation(s)", ErrVersionMismatch, len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  ")
		b.WriteString(v.String())
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return ErrVersionMismatch
}
