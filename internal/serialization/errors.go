package serialization

import (
	"errors"
	"fmt"
	"strings"
)

// Container errors. Callers that need the checkpoint taxonomy wrap these
// with fault.ErrCheckpointFormat.
var (
	ErrChecksumMismatch   = errors.New("data section does not match its SHA-256")
	ErrHeaderTooLarge     = errors.New("JSON header too large")
	ErrInvalidMagic       = errors.New("not an SRCK container")
	ErrUnsupportedVersion = errors.New("unsupported container version")
	ErrTensorNotFound     = errors.New("no such tensor")
	ErrClosed             = errors.New("container already closed")
)

// HeaderError reports a tensor table or header field that failed a check.
type HeaderError struct {
	Check   string   // Failed check, e.g. "offset_overlap"
	Tensors []string // Tensors involved, if any
	Details string
}

// Error implements the error interface.
func (e *HeaderError) Error() string {
	var b strings.Builder
	b.WriteString("header: ")
	b.WriteString(e.Check)
	if len(e.Tensors) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Tensors, ", "))
	}
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	return b.String()
}
