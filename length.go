package stylecheck

import (
	"math"
	"strconv"
	"strings"
)

const (
	// initialFontSize is the px value of the "medium" keyword.
	initialFontSize = 16.0
	viewportWidth   = 1024.0
	viewportHeight  = 768.0
)

var absoluteSizes = map[string]float64{
	"xx-small":  9,
	"x-small":   10,
	"small":     13,
	"medium":    16,
	"large":     18,
	"x-large":   24,
	"xx-large":  32,
	"xxx-large": 48,
}

// pixels per unit for the absolute units
var absoluteUnits = map[string]float64{
	"px": 1,
	"pt": 96.0 / 72,
	"pc": 16,
	"in": 96,
	"cm": 96 / 2.54,
	"mm": 96 / 25.4,
	"q":  96 / 101.6,
}

// splitDimension splits "12.5px" into 12.5 and "px".
func splitDimension(s string) (float64, string, bool) {
	i := 0
	for i < len(s) && strings.IndexByte("+-.0123456789eE", s[i]) >= 0 {
		// an "e" that is not followed by a digit starts the unit (em, ex)
		if (s[i] == 'e' || s[i] == 'E') && (i+1 >= len(s) || strings.IndexByte("+-0123456789", s[i+1]) < 0) {
			break
		}
		i++
	}
	n, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, "", false
	}
	return n, strings.ToLower(s[i:]), true
}

// resolveFontSize returns the font size in px for the declared value. parent
// is the parent's computed font size and root the root element's.
func resolveFontSize(value string, parent, root float64) (float64, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if px, ok := absoluteSizes[v]; ok {
		return px, true
	}
	switch v {
	case "smaller":
		return parent / 1.2, true
	case "larger":
		return parent * 1.2, true
	case "":
		return 0, false
	}
	n, unit, ok := splitDimension(v)
	if !ok || n < 0 {
		return 0, false
	}
	if f, ok := absoluteUnits[unit]; ok {
		return n * f, true
	}
	switch unit {
	case "":
		// only a bare zero is a valid length
		return 0, n == 0
	case "em":
		return n * parent, true
	case "rem":
		return n * root, true
	case "ex", "ch":
		return n * parent / 2, true
	case "%":
		return n * parent / 100, true
	case "vw":
		return n * viewportWidth / 100, true
	case "vh":
		return n * viewportHeight / 100, true
	case "vmin":
		return n * math.Min(viewportWidth, viewportHeight) / 100, true
	case "vmax":
		return n * math.Max(viewportWidth, viewportHeight) / 100, true
	}
	return 0, false
}

// formatNumber prints f with at most decimals fractional digits and no
// trailing zeros.
func formatNumber(f float64, decimals int) string {
	p := math.Pow(10, float64(decimals))
	f = math.Round(f*p) / p
	if f == 0 {
		f = 0 // no "-0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatPx(f float64) string {
	return formatNumber(f, 4) + "px"
}
