package types

import (
	"fmt"
	"strings"
)

// Vendor identifies the inverter manufacturer whose rows a solar-log gateway
// is exporting. The set is closed; every vendor has a schema registered in
// the decode package.
type Vendor string

const (
	VendorSMA      Vendor = "sma"
	VendorREFUSOL  Vendor = "refusol"
	VendorABB      Vendor = "abb"
	VendorSolarmax Vendor = "solarmax"
)

// Vendors lists every supported vendor in a stable order.
var Vendors = []Vendor{VendorSMA, VendorREFUSOL, VendorABB, VendorSolarmax}

// ParseVendor returns the Vendor for s, ignoring case.
func ParseVendor(s string) (Vendor, error) {
	v := Vendor(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Vendors {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown inverter type: %q", s)
}

func (v Vendor) String() string {
	return string(v)
}
