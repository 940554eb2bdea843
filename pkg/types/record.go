package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayFileLayout is the layout of the per-day log file names, e.g.
// 27-Jan-2017.csv.
const DayFileLayout = "02-Jan-2006"

// Record is one decoded inverter reading.
type Record struct {
	Vendor Vendor
	// Timestamp is already rendered in the output format.
	Timestamp string
	Inverter  string
	// Fields are the telemetry values in the vendor's column order, verbatim
	// from the gateway.
	Fields []string
}

// Line renders the record as a comma-delimited, newline-terminated log line.
func (r Record) Line() string {
	var b strings.Builder
	b.WriteString(r.Timestamp)
	b.WriteByte(',')
	b.WriteString(r.Inverter)
	for _, f := range r.Fields {
		b.WriteByte(',')
		b.WriteString(f)
	}
	b.WriteByte('\n')
	return b.String()
}

// Destination selects the log files a record is appended to.
type Destination struct {
	Vendor   Vendor
	Inverter string
	// Day is the local calendar day of the poll, not of the reading.
	Day time.Time
}

// FileName returns the dated log file name for the destination.
func (d Destination) FileName() string {
	return d.Day.Format(DayFileLayout) + ".csv"
}

// Validate ensures the inverter id can be used as a single directory name.
func (d Destination) Validate() error {
	if d.Vendor == "" {
		return errors.New("missing vendor")
	}
	switch d.Inverter {
	case "", ".", "..":
		return fmt.Errorf("invalid inverter id: %q", d.Inverter)
	}
	if strings.ContainsAny(d.Inverter, `/\`) || strings.ContainsRune(d.Inverter, 0) {
		return fmt.Errorf("invalid inverter id: %q", d.Inverter)
	}
	return nil
}
