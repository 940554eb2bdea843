// Package decode turns the semicolon-delimited rows of a solar-log CSV export
// into normalized inverter records.
//
// A gateway line carries a shared date and time followed by the readings of
// every inverter on the bus, back to back:
//
//	date;time;inv1 fields...;inv2 fields...
//
// Demux splits such a line into one single-inverter line per unit and Decode
// converts each of those into a types.Record using the vendor's Schema.
package decode

import (
	"fmt"
	"strings"
	"time"

	"github.com/ardexa/solarlog/pkg/types"
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithLocation sets the zone used for vendors whose timestamps carry a UTC
// offset. Without it those timestamps are written without an offset.
func WithLocation(loc *time.Location) Option {
	return func(d *Decoder) {
		d.loc = loc
	}
}

// Decoder decodes gateway lines for a single vendor.
type Decoder struct {
	schema Schema
	loc    *time.Location
}

// New returns a Decoder for vendor v.
func New(v types.Vendor, opts ...Option) (*Decoder, error) {
	s, err := Lookup(v)
	if err != nil {
		return nil, err
	}
	d := &Decoder{schema: s}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Schema returns the vendor schema the decoder uses.
func (d *Decoder) Schema() Schema {
	return d.schema
}

// Decode converts one single-inverter line (date;time;inverter;fields...)
// into a Record.
func (d *Decoder) Decode(line string) (types.Record, error) {
	items := strings.Split(line, ";")
	if len(items) != d.schema.FieldsPerInverter {
		return types.Record{}, &ParseError{
			Vendor: d.schema.Vendor,
			Line:   line,
			Err:    fmt.Errorf("%w: want %d, got %d", ErrFieldCount, d.schema.FieldsPerInverter, len(items)),
		}
	}

	ts, err := d.schema.timestamp(items[0], items[1], d.loc)
	if err != nil {
		return types.Record{}, &ParseError{Vendor: d.schema.Vendor, Line: line, Err: err}
	}

	return types.Record{
		Vendor:    d.schema.Vendor,
		Timestamp: ts,
		Inverter:  items[2],
		Fields:    items[3:],
	}, nil
}

// Demux splits a gateway line holding any number of inverters into one
// Record per inverter, all sharing the line's date and time. A line whose
// payload does not divide evenly, or any inverter of which fails to decode,
// is rejected as a whole.
func (d *Decoder) Demux(line string) ([]types.Record, error) {
	items := strings.Split(line, ";")
	if len(items) < 2 {
		return nil, &ParseError{
			Vendor: d.schema.Vendor,
			Line:   line,
			Err:    fmt.Errorf("%w: missing date and time", ErrFieldCount),
		}
	}
	date, clock := items[0], items[1]
	payload := items[2:]

	width := d.schema.Width()
	if len(payload)%width != 0 {
		return nil, &ParseError{
			Vendor: d.schema.Vendor,
			Line:   line,
			Err:    fmt.Errorf("%w: %d fields, width %d", ErrMisaligned, len(payload), width),
		}
	}

	records := make([]types.Record, 0, len(payload)/width)
	unit := make([]string, 0, d.schema.FieldsPerInverter)
	for len(payload) > 0 {
		unit = append(unit[:0], date, clock)
		unit = append(unit, payload[:width]...)
		payload = payload[width:]

		r, err := d.Decode(strings.Join(unit, ";"))
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}
