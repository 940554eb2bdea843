package decode

import (
	"errors"
	"fmt"

	"github.com/ardexa/solarlog/pkg/types"
)

var (
	// ErrFieldCount means a single-inverter line had the wrong number of
	// fields for its vendor.
	ErrFieldCount = errors.New("unexpected field count")
	// ErrMisaligned means a gateway line's payload could not be split evenly
	// into inverter records.
	ErrMisaligned = errors.New("payload not divisible by inverter width")
	// ErrTimestamp means the date and time fields could not be parsed.
	ErrTimestamp = errors.New("invalid timestamp")
)

// FormatError is returned when a gateway clock string is malformed.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed time %q: %s", e.Input, e.Reason)
}

// ParseError is returned when a gateway line cannot be decoded. The whole
// line is rejected.
type ParseError struct {
	Vendor types.Vendor
	Line   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s line %q: %v", e.Vendor, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
