package stylecheck

import (
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/speedata/css/scanner"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// inherited lists the properties that take the parent's computed value when
// no declaration applies.
var inherited = map[string]bool{
	"color":           true,
	"cursor":          true,
	"direction":       true,
	"font":            true,
	"font-family":     true,
	"font-size":       true,
	"font-style":      true,
	"font-variant":    true,
	"font-weight":     true,
	"letter-spacing":  true,
	"line-height":     true,
	"list-style":      true,
	"list-style-type": true,
	"text-align":      true,
	"text-indent":     true,
	"text-transform":  true,
	"visibility":      true,
	"white-space":     true,
	"word-spacing":    true,
}

type declaration struct {
	property  string
	value     string
	important bool
}

// level orders declarations by origin and importance.
type level int

const (
	levelUserAgent level = iota
	levelAuthor
	levelInline
	levelAuthorImportant
	levelInlineImportant
	levelUserAgentImportant
)

type styleRule struct {
	selector     cascadia.Sel
	declarations []declaration
	origin       origin
	order        int
}

type matched struct {
	declaration
	level       level
	specificity cascadia.Specificity
	order       int
}

// parseDeclarations turns the key-value pairs of a block into declarations.
// Shorthands that set a font size are expanded.
func parseDeclarations(rules []qrule) []declaration {
	var decls []declaration
	for _, r := range rules {
		prop := strings.ToLower(strings.TrimSpace(r.key.String()))
		if prop == "" {
			continue
		}
		value := r.value
		important := false
		if n := len(value); n >= 2 {
			last := trimSpace(value)
			if k := len(last); k >= 2 && last[k-1].Type == scanner.Ident && strings.EqualFold(last[k-1].Value, "important") {
				bang := trimSpace(last[:k-1])
				if b := len(bang); b > 0 && bang[b-1].Type == scanner.Delim && bang[b-1].Value == "!" {
					important = true
					value = trimSpace(bang[:b-1])
				}
			}
		}
		v := strings.TrimSpace(value.String())
		decls = append(decls, declaration{property: prop, value: v, important: important})
		if prop == "font" {
			decls = append(decls, expandFont(v, important)...)
		}
	}
	return decls
}

// expandFont extracts font-size, line-height and font-family from the font
// shorthand.
func expandFont(v string, important bool) []declaration {
	fields := strings.Fields(v)
	for i, f := range fields {
		size, lh, _ := strings.Cut(f, "/")
		if _, ok := resolveFontSize(size, initialFontSize, initialFontSize); !ok || size == "0" {
			continue
		}
		ret := []declaration{{property: "font-size", value: size, important: important}}
		if lh != "" {
			ret = append(ret, declaration{property: "line-height", value: lh, important: important})
		}
		if family := strings.Join(fields[i+1:], " "); family != "" {
			ret = append(ret, declaration{property: "font-family", value: family, important: important})
		}
		return ret
	}
	return nil
}

// screenMedia reports whether a @media prelude applies to a screen.
func screenMedia(prelude string) bool {
	q := strings.ToLower(strings.TrimSpace(prelude))
	if q == "" {
		return true
	}
	for _, part := range strings.Split(q, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "not ") {
			continue
		}
		part = strings.TrimPrefix(part, "only ")
		if part == "" || strings.HasPrefix(part, "(") || strings.HasPrefix(part, "all") || strings.HasPrefix(part, "screen") {
			return true
		}
	}
	return false
}

// compile returns the style rules of all stylesheets in cascade order.
func (c *CSS) compile() []styleRule {
	var rules []styleRule
	var walk func(blocks []*sBlock, atrules []*sBlock, o origin)
	walk = func(blocks []*sBlock, atrules []*sBlock, o origin) {
		for _, blk := range blocks {
			sel := blk.componentValues.String()
			group, err := cascadia.ParseGroup(sel)
			if err != nil {
				c.logger().Debug("selector skipped", zap.String("selector", sel), zap.Error(err))
				continue
			}
			decls := parseDeclarations(blk.rules)
			for _, s := range group {
				if s.PseudoElement() != "" {
					continue
				}
				rules = append(rules, styleRule{selector: s, declarations: decls, origin: o, order: len(rules)})
			}
		}
		for _, at := range atrules {
			switch at.name {
			case "media":
				if screenMedia(at.componentValues.String()) {
					walk(at.blocks, at.childAtRules, o)
				}
			case "supports":
				walk(at.blocks, at.childAtRules, o)
			}
		}
	}
	for _, ss := range c.stylesheets {
		walk(ss.block.blocks, ss.block.childAtRules, ss.origin)
	}
	return rules
}

// ComputedStyle is the resolved style of one element.
type ComputedStyle struct {
	props    map[string]string
	color    RGBA
	fontSize float64
}

// Color returns the computed color serialized as rgb() or rgba().
func (cs *ComputedStyle) Color() string { return cs.color.String() }

// FontSize returns the computed font size in px, for example "12px".
func (cs *ComputedStyle) FontSize() string { return formatPx(cs.fontSize) }

// Get returns the computed value of a property. Color and font-size are
// always set, other properties only when declared or inherited.
func (cs *ComputedStyle) Get(property string) string {
	switch property {
	case "color":
		return cs.Color()
	case "font-size":
		return cs.FontSize()
	}
	return cs.props[property]
}

func initialStyle() *ComputedStyle {
	return &ComputedStyle{props: map[string]string{}, color: black, fontSize: initialFontSize}
}

// resolver computes styles for the nodes of one tree and caches them.
type resolver struct {
	rules []styleRule
	cache map[*html.Node]*ComputedStyle
	root  *html.Node
}

func newResolver(rules []styleRule, root *html.Node) *resolver {
	return &resolver{rules: rules, cache: make(map[*html.Node]*ComputedStyle), root: documentElement(root)}
}

func documentElement(n *html.Node) *html.Node {
	if n == nil || n.Type == html.ElementNode {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// matchedDeclarations returns the declarations that apply to n in ascending
// precedence.
func (r *resolver) matchedDeclarations(n *html.Node) []matched {
	var ms []matched
	for _, rule := range r.rules {
		if !rule.selector.Match(n) {
			continue
		}
		for _, d := range rule.declarations {
			lvl := levelAuthor
			switch {
			case rule.origin == originUserAgent && d.important:
				lvl = levelUserAgentImportant
			case rule.origin == originUserAgent:
				lvl = levelUserAgent
			case d.important:
				lvl = levelAuthorImportant
			}
			ms = append(ms, matched{declaration: d, level: lvl, specificity: rule.selector.Specificity(), order: rule.order})
		}
	}
	if style, ok := attr(n, "style"); ok {
		blk := consumeBlock(tokenizeCSSString(style), true)
		for _, d := range parseDeclarations(blk.rules) {
			lvl := levelInline
			if d.important {
				lvl = levelInlineImportant
			}
			ms = append(ms, matched{declaration: d, level: lvl, order: len(r.rules)})
		}
	}
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.level != b.level {
			return a.level < b.level
		}
		if a.specificity != b.specificity {
			return a.specificity.Less(b.specificity)
		}
		return a.order < b.order
	})
	return ms
}

// style returns the computed style of the element n.
func (r *resolver) style(n *html.Node) *ComputedStyle {
	if cs, ok := r.cache[n]; ok {
		return cs
	}
	parent := initialStyle()
	if p := n.Parent; p != nil && p.Type == html.ElementNode {
		parent = r.style(p)
	}
	rootSize := initialFontSize
	if r.root != nil && r.root != n {
		rootSize = r.style(r.root).fontSize
	}

	ms := r.matchedDeclarations(n)
	cs := &ComputedStyle{props: make(map[string]string), color: parent.color, fontSize: parent.fontSize}
	for p, v := range parent.props {
		if inherited[p] {
			cs.props[p] = v
		}
	}

	// The highest ranked valid declaration of each property wins.
	seen := make(map[string]bool)
	for i := len(ms) - 1; i >= 0; i-- {
		d := ms[i]
		if seen[d.property] {
			continue
		}
		switch strings.ToLower(d.value) {
		case "inherit":
			seen[d.property] = true
			r.inherit(cs, parent, d.property)
			continue
		case "initial":
			seen[d.property] = true
			r.initial(cs, d.property)
			continue
		case "unset", "revert":
			seen[d.property] = true
			if inherited[d.property] {
				r.inherit(cs, parent, d.property)
			} else {
				r.initial(cs, d.property)
			}
			continue
		}
		switch d.property {
		case "font-size":
			px, ok := resolveFontSize(d.value, parent.fontSize, rootSize)
			if !ok {
				continue
			}
			cs.fontSize = px
		case "color":
			// currentcolor on color itself means the inherited value
			c, ok := ParseColor(d.value, parent.color)
			if !ok {
				continue
			}
			cs.color = c
		default:
			cs.props[d.property] = d.value
		}
		seen[d.property] = true
	}
	r.cache[n] = cs
	return cs
}

func (r *resolver) inherit(cs, parent *ComputedStyle, property string) {
	switch property {
	case "color":
		cs.color = parent.color
	case "font-size":
		cs.fontSize = parent.fontSize
	default:
		if v, ok := parent.props[property]; ok {
			cs.props[property] = v
		} else {
			delete(cs.props, property)
		}
	}
}

func (r *resolver) initial(cs *ComputedStyle, property string) {
	switch property {
	case "color":
		cs.color = black
	case "font-size":
		cs.fontSize = initialFontSize
	default:
		delete(cs.props, property)
	}
}
