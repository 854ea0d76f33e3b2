package stylecheck

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// RGBA is a resolved color. R, G and B are in 0..255, A in 0..1.
type RGBA struct {
	R, G, B uint8
	A       float64
}

// String serializes the color the way getComputedStyle does.
func (c RGBA) String() string {
	if c.A >= 1 {
		return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, formatNumber(c.A, 3))
}

// Hex returns the color as lowercase #rrggbb, ignoring alpha.
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var black = RGBA{A: 1}

var rgbPrefix = regexp.MustCompile(`(?i)rgba?\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)`)

// HexColor converts a serialized rgb() or rgba() value to lowercase #rrggbb.
// It returns the empty string if s is not in that form.
func HexColor(s string) string {
	m := rgbPrefix.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	var c [3]uint8
	for i := range c {
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n > 255 {
			return ""
		}
		c[i] = uint8(n)
	}
	return RGBA{R: c[0], G: c[1], B: c[2], A: 1}.Hex()
}

// ParseColor parses a CSS color value. currentColor resolves to current.
func ParseColor(value string, current RGBA) (RGBA, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "":
		return RGBA{}, false
	case "currentcolor":
		return current, true
	case "transparent":
		return RGBA{}, true
	}
	if strings.HasPrefix(v, "#") {
		return parseHexColor(v[1:])
	}
	if open := strings.IndexByte(v, '('); open > 0 && strings.HasSuffix(v, ")") {
		fn := strings.TrimSpace(v[:open])
		args := splitColorArgs(v[open+1 : len(v)-1])
		switch fn {
		case "rgb", "rgba":
			return parseRGBFunc(args)
		case "hsl", "hsla":
			return parseHSLFunc(args)
		}
		return RGBA{}, false
	}
	return namedColor(v)
}

func parseHexColor(h string) (RGBA, bool) {
	for _, r := range h {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return RGBA{}, false
		}
	}
	digit := func(s string) uint8 {
		n, _ := strconv.ParseUint(s, 16, 8)
		return uint8(n)
	}
	switch len(h) {
	case 3, 4:
		c := RGBA{R: digit(h[0:1]) * 17, G: digit(h[1:2]) * 17, B: digit(h[2:3]) * 17, A: 1}
		if len(h) == 4 {
			c.A = float64(digit(h[3:4])*17) / 255
		}
		return c, true
	case 6, 8:
		c := RGBA{R: digit(h[0:2]), G: digit(h[2:4]), B: digit(h[4:6]), A: 1}
		if len(h) == 8 {
			c.A = float64(digit(h[6:8])) / 255
		}
		return c, true
	}
	return RGBA{}, false
}

// splitColorArgs accepts both the legacy comma syntax and the space syntax
// with an optional "/ alpha".
func splitColorArgs(s string) []string {
	s = strings.ReplaceAll(s, "/", " / ")
	var args []string
	if strings.Contains(s, ",") {
		for _, a := range strings.Split(s, ",") {
			args = append(args, strings.TrimSpace(a))
		}
		return args
	}
	for _, f := range strings.Fields(s) {
		if f != "/" {
			args = append(args, f)
		}
	}
	return args
}

func parseChannel(s string) (uint8, bool) {
	var f float64
	if strings.HasSuffix(s, "%") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, false
		}
		f = n * 255 / 100
	} else {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	}
	return uint8(math.Round(clamp(f, 0, 255))), true
}

func parseAlpha(s string) (float64, bool) {
	if strings.HasSuffix(s, "%") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, false
		}
		return clamp(n/100, 0, 1), true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return clamp(n, 0, 1), true
}

func parseRGBFunc(args []string) (RGBA, bool) {
	if len(args) != 3 && len(args) != 4 {
		return RGBA{}, false
	}
	var c RGBA
	var ok bool
	if c.R, ok = parseChannel(args[0]); !ok {
		return RGBA{}, false
	}
	if c.G, ok = parseChannel(args[1]); !ok {
		return RGBA{}, false
	}
	if c.B, ok = parseChannel(args[2]); !ok {
		return RGBA{}, false
	}
	c.A = 1
	if len(args) == 4 {
		if c.A, ok = parseAlpha(args[3]); !ok {
			return RGBA{}, false
		}
	}
	return c, true
}

func parseHSLFunc(args []string) (RGBA, bool) {
	if len(args) != 3 && len(args) != 4 {
		return RGBA{}, false
	}
	h, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "deg"), 64)
	if err != nil {
		return RGBA{}, false
	}
	pct := func(s string) (float64, bool) {
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		return clamp(n/100, 0, 1), err == nil
	}
	s, ok1 := pct(args[1])
	l, ok2 := pct(args[2])
	if !ok1 || !ok2 {
		return RGBA{}, false
	}
	a := 1.0
	if len(args) == 4 {
		var ok bool
		if a, ok = parseAlpha(args[3]); !ok {
			return RGBA{}, false
		}
	}
	h = math.Mod(math.Mod(h, 360)+360, 360) / 360
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	hue := func(t float64) uint8 {
		switch {
		case t < 0:
			t++
		case t > 1:
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return RGBA{R: hue(h + 1.0/3), G: hue(h), B: hue(h - 1.0/3), A: a}, true
}

func clamp(f, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, f))
}

// namedColor looks up a CSS color keyword. colornames covers the SVG 1.1 set;
// rebeccapurple was added in CSS Color 4.
func namedColor(name string) (RGBA, bool) {
	if name == "rebeccapurple" {
		return RGBA{R: 102, G: 51, B: 153, A: 1}, true
	}
	c, ok := colornames.Map[name]
	if !ok {
		return RGBA{}, false
	}
	return RGBA{R: c.R, G: c.G, B: c.B, A: 1}, true
}
