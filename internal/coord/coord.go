// Package coord parses and formats the sexagesimal angle strings reported by
// the mount controller.
package coord

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxSegments bounds the sexagesimal reduction to whole, minutes and seconds.
const maxSegments = 3

// Parse converts an angle string into a signed decimal value. It accepts
// degrees ("219d54m07.5s", "-60°50'02\""), hours ("12h30m00s"), colon
// separated triples ("58:13:59.15") and plain decimals ("-12.5").
//
// Parse never fails: empty input yields 0 and unparseable segments
// contribute nothing. A leading sign is stripped once and applied once to
// the final value in every format; a second leading sign is malformed.
func Parse(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}
	s = strings.TrimSpace(s)
	if s != "" && (s[0] == '-' || s[0] == '+') {
		return 0
	}

	var segments []string
	switch {
	case strings.ContainsAny(s, "d°"):
		segments = splitOn(s, "d°'\"ms")
	case strings.Contains(s, "h"):
		segments = splitOn(s, "hms")
	case strings.Contains(s, ":"):
		segments = splitOn(s, ":")
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return sign * v
	}

	return sign * reduce(segments)
}

// ParseSexagesimalTime parses a strict "HH:MM:SS" string into decimal hours.
// Anything other than exactly three numeric colon-separated segments is
// rejected.
func ParseSexagesimalTime(s string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != maxSegments {
		return 0, false
	}

	var hours float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		hours += v / math.Pow(60, float64(i))
	}

	return hours, true
}

func splitOn(s, separators string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(separators, r) || r == ' '
	})
}

// reduce computes Σ segment[i] / 60^i over at most three segments.
func reduce(segments []string) float64 {
	if len(segments) > maxSegments {
		segments = segments[:maxSegments]
	}

	var total float64
	for i, seg := range segments {
		v, err := strconv.ParseFloat(strings.TrimSpace(seg), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		total += v / math.Pow(60, float64(i))
	}

	return total
}

// FormatHMS renders decimal hours as "HHhMMmSS.Ss".
func FormatHMS(hours float64) string {
	sign, h, m, s := split(hours)
	return fmt.Sprintf("%s%02dh%02dm%04.1fs", sign, h, m, s)
}

// FormatDMS renders decimal degrees as "±DD°MM'SS.S\"".
func FormatDMS(degrees float64) string {
	sign, d, m, s := split(degrees)
	if sign == "" {
		sign = "+"
	}
	return fmt.Sprintf("%s%02d°%02d'%04.1f\"", sign, d, m, s)
}

// FormatClock renders decimal hours as "HH:MM:SS", wrapping into [0, 24).
func FormatClock(hours float64) string {
	hours = math.Mod(hours, 24)
	if hours < 0 {
		hours += 24
	}
	total := int(math.Round(hours * 3600))
	total %= 24 * 3600
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}

func split(v float64) (sign string, whole, minutes int, seconds float64) {
	if v < 0 {
		sign = "-"
		v = -v
	}
	// Round at the display precision first so 59.96s never prints as 60.0s.
	tenths := math.Round(v * 36000)
	whole = int(tenths / 36000)
	rem := tenths - float64(whole)*36000
	minutes = int(rem / 600)
	seconds = (rem - float64(minutes)*600) / 10
	return sign, whole, minutes, seconds
}
