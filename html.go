package stylecheck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrDocumentUnreadable is returned when the primary markup file cannot be
// read. No check runs in that case.
var ErrDocumentUnreadable = errors.New("document unreadable")

// LoadDocument reads the markup file name relative to root.
func LoadDocument(root, name string) (string, error) {
	fn := filepath.Join(root, name)
	data, err := os.ReadFile(fn)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDocumentUnreadable, err)
	}
	return string(data), nil
}

// LoadStylesheets reads the stylesheets relative to root and joins them with
// newlines. A file that cannot be read contributes an empty string.
func LoadStylesheets(root string, names []string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	texts := make([]string, 0, len(names))
	for _, name := range names {
		fn := filepath.Join(root, name)
		data, err := os.ReadFile(fn)
		if err != nil {
			logger.Warn("stylesheet missing, using empty rules", zap.String("file", fn), zap.Error(err))
			texts = append(texts, "")
			continue
		}
		texts = append(texts, string(data))
	}
	return strings.Join(texts, "\n")
}

// Environment is a parsed document whose scripts have run. Computed styles
// reflect the user agent stylesheet, the document's own <style> elements and
// every stylesheet injected afterwards.
type Environment struct {
	Document *goquery.Document
	css      *CSS
	resolver *resolver
}

// NewEnvironment parses markup and runs its inline scripts until the
// document settles. Relative @import rules in injected stylesheets resolve
// against dir.
func NewEnvironment(ctx context.Context, markup, dir string, opts ScriptOptions) (*Environment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	if !opts.Disabled {
		if err = runScripts(ctx, doc, opts); err != nil {
			return nil, err
		}
	}
	c := NewCSSParserWithDefaults()
	c.Logger = opts.Logger
	if dir != "" {
		c.PushDir(dir)
	}
	env := &Environment{Document: doc, css: c}
	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		if typ, ok := sel.Attr("type"); ok && typ != "" && !strings.EqualFold(typ, "text/css") {
			return
		}
		if media, ok := sel.Attr("media"); ok && !screenMedia(media) {
			return
		}
		env.css.add(sel.Text(), originAuthor)
	})
	return env, nil
}

// InjectCSS appends an author stylesheet, like adding a <style> element at
// the end of <head>.
func (e *Environment) InjectCSS(text string) error {
	if head := e.Document.Find("head").First(); head.Length() > 0 {
		style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
		style.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		head.Get(0).AppendChild(style)
	}
	e.resolver = nil
	return e.css.AddCSSText(text)
}

// Find returns the elements that match the selector in document order.
func (e *Environment) Find(selector string) []*html.Node {
	return e.Document.Find(selector).Nodes
}

// ComputedStyle returns the resolved style of the element n.
func (e *Environment) ComputedStyle(n *html.Node) *ComputedStyle {
	if e.resolver == nil {
		e.resolver = newResolver(e.css.compile(), e.Document.Get(0))
	}
	return e.resolver.style(n)
}
