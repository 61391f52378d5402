package core

// timeparse.go converts race-timing strings into seconds.
//
// Supported forms, tried in order:
//
//	1:30:45.123   hours, minutes, seconds
//	1:35.678      minutes, seconds
//	+5.234        gap to leader, any of the forms above after the sign
//	95.678        bare seconds
//
// Anything else is the missing sentinel, never an error.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

var (
	hmsPattern     = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2}(?:\.\d*)?)$`)
	msPattern      = regexp.MustCompile(`^(\d+):(\d{2}(?:\.\d*)?)$`)
	secondsPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

// ParseTime converts a time or gap string to seconds.
// Returns an invalid pgtype.Float8 for empty or unparseable input.
func ParseTime(s string) pgtype.Float8 {
	v, ok := ParseTimeValue(s)
	if !ok {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: v, Valid: true}
}

// ParseTimeValue is ParseTime returning a plain float and an ok flag.
func ParseTimeValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if v, ok := parseClock(s); ok {
		return v, true
	}

	if rest, ok := strings.CutPrefix(s, "+"); ok {
		if v, ok := parseClock(rest); ok {
			return v, true
		}
		if strings.HasPrefix(rest, "+") || strings.HasPrefix(rest, "-") {
			return 0, false
		}
		v, ok := parseSeconds(rest)
		if !ok || v < 0 {
			return 0, false
		}
		return v, true
	}

	return parseSeconds(s)
}

// parseClock handles the colon-separated forms. Minutes of an H:MM:SS value
// and seconds of either form must be below 60.
func parseClock(s string) (float64, bool) {
	if m := hmsPattern.FindStringSubmatch(s); m != nil {
		h, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		mins, err := strconv.ParseFloat(m[2], 64)
		if err != nil || mins >= 60 {
			return 0, false
		}
		sec, err := strconv.ParseFloat(m[3], 64)
		if err != nil || sec >= 60 {
			return 0, false
		}
		return h*3600 + mins*60 + sec, true
	}

	if m := msPattern.FindStringSubmatch(s); m != nil {
		mins, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		sec, err := strconv.ParseFloat(m[2], 64)
		if err != nil || sec >= 60 {
			return 0, false
		}
		return mins*60 + sec, true
	}

	return 0, false
}

func parseSeconds(s string) (float64, bool) {
	if !secondsPattern.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatTime renders seconds as H:MM:SS.sss with millisecond precision.
// Returns "" for NaN or infinite input.
func FormatTime(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return ""
	}
	sign := ""
	if sec < 0 {
		sign = "-"
		sec = -sec
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%s%d:%02d:%02d.%03d", sign, h, m, s, ms%1000)
}
