package stylecheck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ReportHeader is printed before the result lines.
const ReportHeader = "Autograder results:"

func serializeActual(r Result) string {
	if !r.Multi {
		return strings.Join(r.Actual, ", ")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Actual); err != nil {
		return fmt.Sprint(r.Actual)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// WriteReport prints a blank line, the header and one line per result. It
// returns whether all results passed.
func WriteReport(w io.Writer, results []Result, colorize bool) (bool, error) {
	pass := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	if colorize {
		pass.EnableColor()
		fail.EnableColor()
	} else {
		pass.DisableColor()
		fail.DisableColor()
	}

	var b strings.Builder
	b.WriteString("\n" + ReportHeader + "\n")
	ok := true
	for _, r := range results {
		if r.Pass {
			fmt.Fprintf(&b, "%s %s\n", pass.Sprint("✓"), r.Name)
			continue
		}
		ok = false
		fmt.Fprintf(&b, "%s %s — actual: %s\n", fail.Sprint("✗"), r.Name, serializeActual(r))
	}
	_, err := io.WriteString(w, b.String())
	return ok, err
}
