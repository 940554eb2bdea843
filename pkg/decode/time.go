package decode

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeTime converts the 12-hour clock some gateways report for SMA
// inverters ("2:30:00 PM") into a zero-padded 24-hour clock ("14:30:00").
//
// Minutes and seconds may be one or two digits and are zero-padded in the
// result. Hours that would pass 23 after adding 12 are left alone, so 12 PM stays 12
// and 12 AM also stays 12 rather than becoming 00.
func NormalizeTime(s string) (string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return "", &FormatError{Input: s, Reason: fmt.Sprintf("expected 3 ':' separated parts, got %d", len(parts))}
	}
	rest := strings.Fields(parts[2])
	if len(rest) != 2 {
		return "", &FormatError{Input: s, Reason: "expected seconds followed by AM or PM"}
	}
	seconds, meridiem := rest[0], rest[1]

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 {
		return "", &FormatError{Input: s, Reason: "hour is not a number"}
	}

	minute, ok := clockPart(parts[1])
	if !ok {
		return "", &FormatError{Input: s, Reason: "minute is not a number between 0 and 59"}
	}
	second, ok := clockPart(seconds)
	if !ok {
		return "", &FormatError{Input: s, Reason: "second is not a number between 0 and 59"}
	}

	switch strings.ToLower(meridiem) {
	case "am":
	case "pm":
		if hour+12 <= 23 {
			hour += 12
		}
	default:
		return "", &FormatError{Input: s, Reason: fmt.Sprintf("unknown meridiem %q", meridiem)}
	}

	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second), nil
}

func clockPart(s string) (int, bool) {
	if len(s) < 1 || len(s) > 2 {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, n <= 59
}
