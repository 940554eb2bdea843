package decode

import (
	"fmt"
	"strings"
	"time"

	"github.com/ardexa/solarlog/pkg/types"
)

// TimestampLayout is the layout of the normalized Datetime column.
const TimestampLayout = "2006-01-02T15:04:05"

// Schema is the fixed layout of one vendor's rows in a gateway export.
type Schema struct {
	Vendor types.Vendor
	// FieldsPerInverter counts every field of a single-inverter line,
	// including the shared date and time.
	FieldsPerInverter int
	// Columns names the output columns, starting with Datetime and Inverter.
	Columns []string

	timestamp func(date, clock string, loc *time.Location) (string, error)
}

// Width is the number of fields one inverter contributes to a gateway line
// once the shared date and time are removed.
func (s Schema) Width() int {
	return s.FieldsPerInverter - 2
}

// Header returns the comment line written at the top of each log file.
func (s Schema) Header() string {
	return "# " + strings.Join(s.Columns, ",") + "\n"
}

var schemas = map[types.Vendor]Schema{
	types.VendorSMA: {
		Vendor:            types.VendorSMA,
		FieldsPerInverter: 12,
		Columns: []string{"Datetime", "Inverter", "AC power (W)", "Daily Energy (Wh)", "Status", "Error",
			"DC Power 1 (W)", "DC Voltage 1 (V)", "AC Voltage (V)", "DC Current 1 (A)", "AC Current (A)"},
		timestamp: smaTimestamp,
	},
	types.VendorREFUSOL: {
		Vendor:            types.VendorREFUSOL,
		FieldsPerInverter: 11,
		Columns: []string{"Datetime", "Inverter", "AC power (W)", "Daily Energy (Wh)", "Status", "Error",
			"DC Power 1 (W)", "DC Voltage 1 (V)", "Temperature (C)", "AC Voltage (V)"},
		timestamp: dottedTimestamp,
	},
	types.VendorABB: {
		Vendor:            types.VendorABB,
		FieldsPerInverter: 13,
		Columns: []string{"Datetime", "Inverter", "AC power (W)", "Daily Energy (Wh)", "Status", "Error",
			"DC Power 1 (W)", "DC Power 2 (W)", "DC Voltage 1 (V)", "DC Voltage 2 (V)", "Temperature (C)",
			"AC Voltage (V)"},
		timestamp: dottedTimestamp,
	},
	types.VendorSolarmax: {
		Vendor:            types.VendorSolarmax,
		FieldsPerInverter: 14,
		Columns: []string{"Datetime", "Inverter", "AC power (W)", "Daily Energy (Wh)", "Status",
			"DC Power 1 (W)", "DC Power 2 (W)", "DC Power 3 (W)", "DC Voltage 1 (V)", "DC Voltage 2 (V)",
			"DC Voltage 3 (V)", "Temperature (C)", "AC Voltage (V)"},
		timestamp: zonedTimestamp,
	},
}

// Lookup returns the schema registered for v.
func Lookup(v types.Vendor) (Schema, error) {
	s, ok := schemas[v]
	if !ok {
		return Schema{}, fmt.Errorf("no schema for inverter type: %q", v)
	}
	// hand out a copy so callers can't edit the registry's columns
	s.Columns = append([]string(nil), s.Columns...)
	return s, nil
}

// gateway dates never zero-pad consistently so accept one or two digit days
// and months
var (
	slashLayout  = "2/1/06 15:04:05"
	dottedLayout = "2.1.06 15:04:05"
)

// SMA clocks are 12-hour and the date may use either separator.
func smaTimestamp(date, clock string, _ *time.Location) (string, error) {
	clock, err := NormalizeTime(clock)
	if err != nil {
		return "", err
	}
	value := date + " " + clock
	t, err := time.Parse(slashLayout, value)
	if err != nil {
		var dotErr error
		t, dotErr = time.Parse(dottedLayout, value)
		if dotErr != nil {
			return "", fmt.Errorf("%w: %v", ErrTimestamp, err)
		}
	}
	return t.Format(TimestampLayout), nil
}

func dottedTimestamp(date, clock string, _ *time.Location) (string, error) {
	t, err := time.Parse(dottedLayout, date+" "+clock)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTimestamp, err)
	}
	return t.Format(TimestampLayout), nil
}

// zonedTimestamp appends the UTC offset of loc. The gateway does not report a
// zone so without an explicitly configured location the suffix is empty.
func zonedTimestamp(date, clock string, loc *time.Location) (string, error) {
	if loc == nil {
		return dottedTimestamp(date, clock, nil)
	}
	t, err := time.ParseInLocation(dottedLayout, date+" "+clock, loc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTimestamp, err)
	}
	return t.Format(TimestampLayout + "-0700"), nil
}
