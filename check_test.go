package stylecheck

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exerciseHTML = `<!DOCTYPE html>
<html>
<head>
  <link rel="stylesheet" href="setting.css">
  <link rel="stylesheet" href="style.css">
</head>
<body>
  <p>First paragraph <span>plain</span></p>
  <p data-pick>Second paragraph <span>picked</span> and <span>more</span></p>
  <script>
    document.querySelectorAll('p[data-pick]').forEach(function (p) {
      p.classList.add('selected');
    });
  </script>
</body>
</html>`

const settingCSS = `body { color: rgb(127, 140, 141); font-size: 12px; }`

const styleCSS = `
.selected { color: #E74C3C; }
p.selected span { color: #3498db; }
`

func writeExercise(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func runExercise(t *testing.T, dir string) []Result {
	t.Helper()
	results, err := NewRunner(dir).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)
	return results
}

func TestRunAllPass(t *testing.T) {
	dir := writeExercise(t, map[string]string{
		"index.html":  exerciseHTML,
		"setting.css": settingCSS,
		"style.css":   styleCSS,
	})
	results := runExercise(t, dir)
	for _, r := range results {
		assert.True(t, r.Pass, "%s: %v", r.Name, r.Actual)
	}
	assert.True(t, Passed(results))
	assert.Equal(t, []string{"rgb(231, 76, 60)"}, results[2].Actual)
	assert.Equal(t, []string{"rgb(52, 152, 219)", "rgb(52, 152, 219)"}, results[3].Actual)
}

func TestRunWithoutBodyRules(t *testing.T) {
	dir := writeExercise(t, map[string]string{
		"index.html": exerciseHTML,
		"style.css":  styleCSS,
	})
	results := runExercise(t, dir)
	assert.Equal(t, Result{Name: "body color", Actual: []string{"rgb(0, 0, 0)"}}, results[0])
	assert.Equal(t, Result{Name: "body font-size", Actual: []string{"16px"}}, results[1])
	assert.True(t, results[2].Pass)
	assert.True(t, results[3].Pass)
}

func TestRunMissingStylesheets(t *testing.T) {
	dir := writeExercise(t, map[string]string{
		"index.html": exerciseHTML,
	})
	results := runExercise(t, dir)
	assert.False(t, Passed(results))
	for _, r := range results {
		assert.False(t, r.Pass, r.Name)
	}
}

func TestRunNoSelectedElements(t *testing.T) {
	dir := writeExercise(t, map[string]string{
		"index.html":  `<html><body><p>nothing <span>here</span></p></body></html>`,
		"setting.css": settingCSS,
		"style.css":   styleCSS,
	})
	results := runExercise(t, dir)
	assert.True(t, results[0].Pass)
	assert.True(t, results[1].Pass)
	assert.Equal(t, Result{Name: ".selected color", Multi: true, Actual: []string{}}, results[2])
	assert.Equal(t, Result{Name: "p.selected > span color", Multi: true, Actual: []string{}}, results[3])
}

func TestRunSpanColorMismatch(t *testing.T) {
	dir := writeExercise(t, map[string]string{
		"index.html":  exerciseHTML,
		"setting.css": settingCSS,
		"style.css":   `.selected { color: #e74c3c } p.selected span:first-child { color: #3498db }`,
	})
	results := runExercise(t, dir)
	assert.True(t, results[2].Pass)
	assert.False(t, results[3].Pass)
	assert.Equal(t, []string{"rgb(52, 152, 219)", "rgb(231, 76, 60)"}, results[3].Actual)
}

func TestRunMissingDocument(t *testing.T) {
	dir := writeExercise(t, map[string]string{"style.css": styleCSS})
	results, err := NewRunner(dir).Run(context.Background())
	assert.ErrorIs(t, err, ErrDocumentUnreadable)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, results)
}

func TestReportIsDeterministic(t *testing.T) {
	dir := writeExercise(t, map[string]string{
		"index.html": exerciseHTML,
		"style.css":  `.selected { color: red }`,
	})
	var outputs []string
	for i := 0; i < 2; i++ {
		var buf bytes.Buffer
		ok, err := WriteReport(&buf, runExercise(t, dir), false)
		require.NoError(t, err)
		assert.False(t, ok)
		outputs = append(outputs, buf.String())
	}
	assert.Equal(t, outputs[0], outputs[1])
}

func TestWriteReport(t *testing.T) {
	results := []Result{
		{Name: "body color", Pass: true, Actual: []string{"rgb(127, 140, 141)"}},
		{Name: "body font-size", Actual: []string{"16px"}},
		{Name: ".selected color", Multi: true, Actual: []string{}},
		{Name: "p.selected > span color", Multi: true, Actual: []string{"rgb(0, 0, 0)", "rgb(52, 152, 219)"}},
	}
	var buf bytes.Buffer
	ok, err := WriteReport(&buf, results, false)
	require.NoError(t, err)
	assert.False(t, ok)
	want := "\nAutograder results:\n" +
		"✓ body color\n" +
		"✗ body font-size — actual: 16px\n" +
		"✗ .selected color — actual: []\n" +
		`✗ p.selected > span color — actual: ["rgb(0, 0, 0)","rgb(52, 152, 219)"]` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteReportAllPass(t *testing.T) {
	var buf bytes.Buffer
	ok, err := WriteReport(&buf, []Result{{Name: "body color", Pass: true}}, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "\nAutograder results:\n✓ body color\n", buf.String())
}

func TestHexColor(t *testing.T) {
	for in, want := range map[string]string{
		"rgb(127, 140, 141)":      "#7f8c8d",
		"rgba(231, 76, 60, 0.5)":  "#e74c3c",
		"RGB(52,152,219)":         "#3498db",
		"#7f8c8d":                 "",
		"":                        "",
		"rgb(300, 0, 0)":          "",
		"hsl(120, 100%, 50%)":     "",
		"rgb(0, 0, 0) !important": "#000000",
	} {
		assert.Equal(t, want, HexColor(in), in)
	}
}

func TestParseColor(t *testing.T) {
	for in, want := range map[string]string{
		"#7F8C8D":                 "rgb(127, 140, 141)",
		"#abc":                    "rgb(170, 187, 204)",
		"#e74c3c80":               "rgba(231, 76, 60, 0.502)",
		"rebeccapurple":           "rgb(102, 51, 153)",
		"transparent":             "rgba(0, 0, 0, 0)",
		"rgb(100%, 0%, 50%)":      "rgb(255, 0, 128)",
		"rgba(52, 152, 219, .25)": "rgba(52, 152, 219, 0.25)",
		"rgb(52 152 219 / 50%)":   "rgba(52, 152, 219, 0.5)",
		"hsl(0, 100%, 50%)":       "rgb(255, 0, 0)",
		"hsl(120deg 100% 25%)":    "rgb(0, 128, 0)",
		"hsla(240, 100%, 50%, 1)": "rgb(0, 0, 255)",
	} {
		c, ok := ParseColor(in, black)
		if assert.True(t, ok, in) {
			assert.Equal(t, want, c.String(), in)
		}
	}
	for _, in := range []string{"", "#12", "#ggg", "rgb(1, 2)", "notacolor", "calc(1px)"} {
		_, ok := ParseColor(in, black)
		assert.False(t, ok, in)
	}
}

func TestResolveFontSize(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"12px", "12px"},
		{"9pt", "12px"},
		{"0.75em", "12px"},
		{"75%", "12px"},
		{"2rem", "20px"},
		{"small", "13px"},
		{"smaller", "13.3333px"},
		{"larger", "19.2px"},
		{"0", "0px"},
		{"1in", "96px"},
	} {
		px, ok := resolveFontSize(tc.in, 16, 10)
		if assert.True(t, ok, tc.in) {
			assert.Equal(t, tc.want, formatPx(px), tc.in)
		}
	}
	for _, in := range []string{"", "12", "-1px", "12furlongs", "bold"} {
		_, ok := resolveFontSize(in, 16, 10)
		assert.False(t, ok, in)
	}
}
