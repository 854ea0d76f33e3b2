package stylecheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnvironment(t *testing.T, markup, css string) *Environment {
	t.Helper()
	env, err := NewEnvironment(context.Background(), markup, "", ScriptOptions{})
	require.NoError(t, err)
	require.NoError(t, env.InjectCSS(css))
	return env
}

func styleOf(t *testing.T, env *Environment, selector string) *ComputedStyle {
	t.Helper()
	nodes := env.Find(selector)
	require.NotEmpty(t, nodes, "no element matches %s", selector)
	return env.ComputedStyle(nodes[0])
}

const page = `<!DOCTYPE html>
<html><head><title>t</title></head>
<body>
  <h1>Title</h1>
  <p class="selected" id="first">Hello <span>world</span></p>
  <p>Other <span>text</span> <small>fine print</small></p>
</body></html>`

func TestDefaultStyle(t *testing.T) {
	env := newTestEnvironment(t, page, "")
	body := styleOf(t, env, "body")
	assert.Equal(t, "rgb(0, 0, 0)", body.Color())
	assert.Equal(t, "16px", body.FontSize())
	assert.Equal(t, "32px", styleOf(t, env, "h1").FontSize())
}

func TestColorNotations(t *testing.T) {
	for _, c := range []string{"rgb(127,140,141)", "#7F8C8D", "#7f8c8d", "rgb(127 140 141)", "rgba(127, 140, 141, 1)"} {
		env := newTestEnvironment(t, page, "body { color: "+c+"; font-size: 12px; }")
		body := styleOf(t, env, "body")
		assert.Equal(t, "rgb(127, 140, 141)", body.Color(), c)
		assert.Equal(t, "#7f8c8d", HexColor(body.Color()), c)
		assert.Equal(t, "12px", body.FontSize(), c)
	}
}

func TestPercentageValues(t *testing.T) {
	for _, tc := range []struct {
		css      string
		color    string
		fontSize string
	}{
		{"body { font-size: 75% }", "rgb(0, 0, 0)", "12px"},
		{"html { font-size: 62.5% } body { font-size: 1.2rem }", "rgb(0, 0, 0)", "12px"},
		{"body { color: rgb(100%, 0%, 0%) }", "rgb(255, 0, 0)", "16px"},
		{"body { color: rgb(49.8%, 54.9%, 55.3%); font-size: 150% }", "rgb(127, 140, 141)", "24px"},
		{"body { color: hsl(0, 100%, 25%) }", "rgb(128, 0, 0)", "16px"},
	} {
		body := styleOf(t, newTestEnvironment(t, page, tc.css), "body")
		assert.Equal(t, tc.color, body.Color(), tc.css)
		assert.Equal(t, tc.fontSize, body.FontSize(), tc.css)
	}
}

func TestNamedColors(t *testing.T) {
	for name, want := range map[string]string{
		"teal":          "rgb(0, 128, 128)",
		"Tomato":        "rgb(255, 99, 71)",
		"rebeccapurple": "rgb(102, 51, 153)",
		"transparent":   "rgba(0, 0, 0, 0)",
	} {
		body := styleOf(t, newTestEnvironment(t, page, "body { color: "+name+" }"), "body")
		assert.Equal(t, want, body.Color(), name)
	}
	body := styleOf(t, newTestEnvironment(t, page, "body { color: navy; color: notacolor }"), "body")
	assert.Equal(t, "rgb(0, 0, 128)", body.Color())
}

func TestSpecificityAndOrder(t *testing.T) {
	css := `
	p.selected { color: blue }
	.selected { color: red }
	p { color: green }
	p { color: olive }
	`
	env := newTestEnvironment(t, page, css)
	assert.Equal(t, "rgb(0, 0, 255)", styleOf(t, env, "#first").Color())
	assert.Equal(t, "rgb(128, 128, 0)", styleOf(t, env, "p:not(.selected)").Color())
}

func TestImportantAndInline(t *testing.T) {
	markup := `<html><body><p id="a" style="color: #e74c3c">x</p><p id="b" style="color: red">y</p></body></html>`
	env := newTestEnvironment(t, markup, `#a { color: blue } p { color: green !important } #b { color: blue !important }`)
	assert.Equal(t, "rgb(0, 128, 0)", styleOf(t, env, "#a").Color())
	assert.Equal(t, "rgb(0, 0, 255)", styleOf(t, env, "#b").Color())

	env = newTestEnvironment(t, markup, `#a { color: blue }`)
	assert.Equal(t, "#e74c3c", HexColor(styleOf(t, env, "#a").Color()))
}

func TestInheritance(t *testing.T) {
	env := newTestEnvironment(t, page, `body { color: #7f8c8d; font-size: 12px } .selected { color: #e74c3c; font-size: 1.5em }`)
	assert.Equal(t, "#e74c3c", HexColor(styleOf(t, env, "p.selected span").Color()))
	assert.Equal(t, "18px", styleOf(t, env, "p.selected span").FontSize())
	assert.Equal(t, "#7f8c8d", HexColor(styleOf(t, env, "p:not(.selected) span").Color()))
	assert.Equal(t, "10px", styleOf(t, env, "small").FontSize())
	assert.Equal(t, "24px", styleOf(t, env, "h1").FontSize())
}

func TestKeywords(t *testing.T) {
	css := `
	body { color: red; font-size: 20px }
	p { color: blue; font-size: 10px }
	p span { color: inherit; font-size: initial }
	small { color: currentColor; font-size: 2rem }
	`
	env := newTestEnvironment(t, page, css)
	span := styleOf(t, env, "p span")
	assert.Equal(t, "rgb(0, 0, 255)", span.Color())
	assert.Equal(t, "16px", span.FontSize())
	small := styleOf(t, env, "small")
	assert.Equal(t, "rgb(0, 0, 255)", small.Color())
	assert.Equal(t, "32px", small.FontSize())
}

func TestInvalidDeclarationFallsBack(t *testing.T) {
	env := newTestEnvironment(t, page, `body { color: #7f8c8d; color: notacolor; font-size: 12px; font-size: -3px }`)
	body := styleOf(t, env, "body")
	assert.Equal(t, "rgb(127, 140, 141)", body.Color())
	assert.Equal(t, "12px", body.FontSize())
}

func TestMediaRules(t *testing.T) {
	css := `
	@media print { body { color: red } }
	@media screen { body { font-size: 12px } }
	@media (min-width: 100px) { body { color: blue } }
	`
	env := newTestEnvironment(t, page, css)
	body := styleOf(t, env, "body")
	assert.Equal(t, "rgb(0, 0, 255)", body.Color())
	assert.Equal(t, "12px", body.FontSize())
}

func TestDocumentStyleElements(t *testing.T) {
	markup := `<html><head><style>body { color: red; font-size: 14px }</style></head><body></body></html>`
	env := newTestEnvironment(t, markup, `body { color: #7f8c8d }`)
	body := styleOf(t, env, "body")
	assert.Equal(t, "#7f8c8d", HexColor(body.Color()))
	assert.Equal(t, "14px", body.FontSize())
}

func TestFontShorthand(t *testing.T) {
	env := newTestEnvironment(t, page, `body { font: bold 12pt/1.4 Georgia, serif }`)
	assert.Equal(t, "16px", styleOf(t, env, "body").FontSize())
	assert.Equal(t, "1.4", styleOf(t, env, "body").Get("line-height"))
}
