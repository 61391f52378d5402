package core

// convert.go provides cell cleanup and numeric coercion for timing exports.
//
// These functions handle the messy reality of exported timing files:
//   - Thousands separators in speeds and distances
//   - Excel formula prefixes (="14")
//   - Stray quotes and surrounding whitespace
//
// ToFloat8 returns a pgtype.Float8 with Valid=false for empty or invalid
// input, which is the missing sentinel throughout the package.

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// thousandsRegex matches digit groups of three joined by one separator:
// comma, space, no-break space or narrow no-break space.
var thousandsRegex = regexp.MustCompile(`^[+-]?\d{1,3}(?:,\d{3}(?:,\d{3})*|[ \x{00a0}\x{202f}]\d{3}(?:[ \x{00a0}\x{202f}]\d{3})*)(\.\d+)?$`)

// ToFloat8 converts a string to pgtype.Float8.
// Separators are removed only when they form real thousands groups, so a
// decimal comma such as "152,3" is missing rather than 1523.
func ToFloat8(s string) pgtype.Float8 {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Float8{Valid: false}
	}

	if strings.ContainsAny(s, ", \u00a0\u202f") {
		if !thousandsRegex.MatchString(s) {
			return pgtype.Float8{Valid: false}
		}
		s = stripSeparators.Replace(s)
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Float8{Valid: false}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

var stripSeparators = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "")

// toLapIndex parses a lap number. Laps are non-negative integers; "3.0" is
// accepted as lap 3.
func toLapIndex(s string) (int, bool) {
	f := ToFloat8(s)
	if !f.Valid || f.Float64 < 0 || f.Float64 != math.Trunc(f.Float64) || f.Float64 > math.MaxInt32 {
		return 0, false
	}
	return int(f.Float64), true
}

// FormatNumber renders a coerced value for CSV output; missing is "".
func FormatNumber(f pgtype.Float8) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}

// CleanCell removes common CSV artifacts from a cell value.
// Handles Excel formula prefixes (="value") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	// Excel formula prefix ="value"
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	// Quotes left behind by lazy quoting
	if len(s) >= 2 && strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"") {
		s = s[1 : len(s)-1]
	}

	return strings.TrimSpace(s)
}
