package stylecheck

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/speedata/css/scanner"
	"go.uber.org/zap"
)

// tokenstream is a list of CSS tokens
type tokenstream []*scanner.Token

type qrule struct {
	key   tokenstream
	value tokenstream
}

// sBlock is a block with a selector
type sBlock struct {
	name            string      // only set if this is an at-rule
	componentValues tokenstream // the "selector" or the at-rule prelude
	childAtRules    []*sBlock   // the block's at-rules, if any
	blocks          []*sBlock   // the at-rule's blocks, if any
	rules           []qrule     // the key-value pairs
	statement       bool        // at-rule terminated by ";" instead of a block
}

type origin int

const (
	originUserAgent origin = iota
	originAuthor
)

type stylesheet struct {
	block  sBlock
	origin origin
}

// CSS is the main structure that contains cascading style sheet information.
// Multiple stylesheets can be added to the CSS structure and are applied in
// the order they were added.
type CSS struct {
	Logger      *zap.Logger
	dirstack    []string
	stylesheets []stylesheet
}

// PushDir adds a directory to the dir stack. When a file is opened, all new
// Open calls are relative to this directory. @import uses the dir stack
// internally when it reads a cascade of CSS files.
func (c *CSS) PushDir(dir string) {
	if filepath.IsAbs(dir) {
		c.dirstack = append(c.dirstack, dir)
		return
	}
	var newEntry string
	if len(c.dirstack) > 0 {
		lastEntry := c.dirstack[len(c.dirstack)-1]
		newEntry = filepath.Join(lastEntry, dir)
	} else {
		newEntry = dir
	}
	c.dirstack = append(c.dirstack, newEntry)
}

// PopDir removes the last entry from the dir stack.
func (c *CSS) PopDir() {
	c.dirstack = c.dirstack[:len(c.dirstack)-1]
}

// findFile returns the filename if is an absolute path or it prefixes the
// filename with the top entry of the dirstack.
func (c *CSS) findFile(filename string) string {
	if len(c.dirstack) == 0 || filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(c.dirstack[len(c.dirstack)-1], filename)
}

func (c *CSS) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// UserAgentCSS gives elements the font sizes a browser would give them
// before any author stylesheet is applied.
var UserAgentCSS = `
html            { font-size: medium; }
head, script,
style, title    { display: none }
h1              { font-size: 2em; margin: .67em 0 }
h2              { font-size: 1.5em; margin: .83em 0 }
h3              { font-size: 1.17em; margin: 1em 0 }
h4              { font-size: 1em; margin: 1.33em 0 }
h5              { font-size: .83em; margin: 1.67em 0 }
h6              { font-size: .67em; margin: 2.33em 0 }
h1, h2, h3, h4,
h5, h6, b,
strong, th      { font-weight: bold }
i, cite, em,
var, address    { font-style: italic }
pre, tt, code,
kbd, samp       { font-family: monospace; }
big             { font-size: larger }
small, sub, sup { font-size: smaller }
a[href]         { color: #0000ee }
mark            { background-color: yellow; color: black }
`

// Return the position of the matching closing brace "}"
func findClosingBrace(toks tokenstream) int {
	level := 1
	for i, t := range toks {
		if t.Type == scanner.Delim {
			switch t.Value {
			case "{":
				level++
			case "}":
				level--
				if level == 0 {
					return i + 1
				}
			}
		}
	}
	return len(toks)
}

func trimSpace(toks tokenstream) tokenstream {
	i := 0
	for i < len(toks) && toks[i].Type == scanner.S {
		i++
	}
	j := len(toks)
	for j > i && toks[j-1].Type == scanner.S {
		j--
	}
	return toks[i:j]
}

// blockHoldsRules reports whether the body of the at-rule contains qualified
// rules rather than declarations.
func blockHoldsRules(name string) bool {
	switch name {
	case "media", "supports", "keyframes", "document", "layer", "container":
		return true
	}
	return false
}

// consumeBlock get the contents of a block. The name (in case of an at-rule)
// and the selector will be added later on
func consumeBlock(toks tokenstream, inblock bool) sBlock {
	// This is the whole block between the opening { and closing }
	b := sBlock{}
	i, start := 0, 0
	colon := -1

	for i < len(toks) {
		t := toks[i]
		if t.Type != scanner.Delim {
			i++
			continue
		}
		switch t.Value {
		case ":":
			if inblock && colon < 0 {
				colon = i
			}
		case ";":
			switch {
			case colon > start:
				b.rules = append(b.rules, qrule{
					key:   trimSpace(toks[start:colon]),
					value: trimSpace(toks[colon+1 : i]),
				})
			default:
				if head := trimSpace(toks[start:i]); len(head) > 0 && head[0].Type == scanner.AtKeyword {
					b.childAtRules = append(b.childAtRules, &sBlock{
						name:            head[0].Value,
						componentValues: trimSpace(head[1:]),
						statement:       true,
					})
				}
			}
			colon = -1
			start = i + 1
		case "{":
			rest := toks[i+1:]
			// l is the length of the sub block including the closing brace
			l := findClosingBrace(rest)
			subblock := rest[:l]
			if l > 0 && rest[l-1].Type == scanner.Delim && rest[l-1].Value == "}" {
				subblock = rest[:l-1]
			}
			if head := trimSpace(toks[start:i]); len(head) > 0 {
				if head[0].Type == scanner.AtKeyword {
					nb := consumeBlock(subblock, !blockHoldsRules(head[0].Value))
					nb.name = head[0].Value
					nb.componentValues = trimSpace(head[1:])
					b.childAtRules = append(b.childAtRules, &nb)
				} else {
					nb := consumeBlock(subblock, true)
					nb.componentValues = head
					b.blocks = append(b.blocks, &nb)
				}
			}
			i = i + l
			colon = -1
			start = i + 1
		}
		i++
	}
	if inblock && colon > start {
		b.rules = append(b.rules, qrule{
			key:   trimSpace(toks[start:colon]),
			value: trimSpace(toks[colon+1:]),
		})
	}
	return b
}

func tokenizeCSSString(str string) tokenstream {
	var toks tokenstream
	s := scanner.New(str)
	for {
		tok := s.Next()
		if tok.Type == scanner.EOF || tok.Type == scanner.Error {
			break
		}
		if tok.Type == scanner.Comment {
			continue
		}
		toks = append(toks, tok)
	}
	return toks
}

// importTarget extracts the file name from the prelude of an @import rule.
func importTarget(prelude tokenstream) string {
	for _, t := range prelude {
		switch t.Type {
		case scanner.String, scanner.URI:
			return unquote(strings.TrimSuffix(strings.TrimPrefix(t.Value, "url("), ")"))
		}
	}
	return ""
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// processImports reads the stylesheets named by the @import statements of
// block and adds them before block itself. A file that cannot be read is
// skipped.
func (c *CSS) processImports(block sBlock, o origin, depth int) {
	for _, atrule := range block.childAtRules {
		if atrule.name != "import" || !atrule.statement {
			continue
		}
		target := importTarget(atrule.componentValues)
		if target == "" {
			continue
		}
		if depth > 8 {
			c.logger().Warn("@import nested too deeply", zap.String("file", target))
			continue
		}
		fn := c.findFile(target)
		data, err := os.ReadFile(fn)
		if err != nil {
			c.logger().Warn("cannot read imported stylesheet", zap.String("file", fn), zap.Error(err))
			continue
		}
		c.PushDir(filepath.Dir(target))
		imported := consumeBlock(tokenizeCSSString(string(data)), false)
		c.processImports(imported, o, depth+1)
		c.PopDir()
		c.stylesheets = append(c.stylesheets, stylesheet{block: imported, origin: o})
	}
}

func (c *CSS) add(fragment string, o origin) {
	block := consumeBlock(tokenizeCSSString(fragment), false)
	c.processImports(block, o, 0)
	for _, atrule := range block.childAtRules {
		switch atrule.name {
		case "import", "media", "supports":
		default:
			c.logger().Debug("at-rule ignored", zap.String("name", atrule.name), zap.Stringer("rule", atrule))
		}
	}
	c.stylesheets = append(c.stylesheets, stylesheet{block: block, origin: o})
}

// AddCSSText parses CSS text and appends the rules to the previously read
// rules. If the fragment contains relative links to other stylesheets, the
// dir stack must be set in advance.
func (c *CSS) AddCSSText(fragment string) error {
	c.add(fragment, originAuthor)
	return nil
}

// NewCSSParser returns a new CSS object
func NewCSSParser() *CSS {
	return &CSS{}
}

// NewCSSParserWithDefaults returns a new CSS object with the user agent
// stylesheet included.
func NewCSSParserWithDefaults() *CSS {
	c := &CSS{}
	c.add(UserAgentCSS, originUserAgent)
	return c
}
