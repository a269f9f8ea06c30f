package network

import (
	"fmt"
	"strconv"
	"strings"
)

// MilesToKm converts mph to km/h
const MilesToKm = 1.609

// ParseMaxSpeed converts a maxspeed tag value to km/h. Plain numbers are km/h;
// "kph", "km/h" and "mph" units are understood, and a "CC:" zone prefix such
// as "RU:60" is stripped when the value does not start with a number.
func ParseMaxSpeed(v string) (float64, error) {
	s := strings.TrimSpace(v)
	num, rest, ok := leadingNumber(s)
	if !ok {
		if i := strings.IndexByte(s, ':'); i >= 0 {
			num, rest, ok = leadingNumber(strings.TrimSpace(s[i+1:]))
		}
	}
	if !ok {
		return 0, fmt.Errorf("maxspeed %q: no number", v)
	}
	switch strings.TrimSpace(rest) {
	case "", "kph", "km/h", "kmh":
		return num, nil
	case "mph":
		return num * MilesToKm, nil
	default:
		return 0, fmt.Errorf("maxspeed %q: unknown unit %q", v, strings.TrimSpace(rest))
	}
}

func leadingNumber(s string) (float64, string, bool) {
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, s, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, s, false
	}
	return f, s[end:], true
}
