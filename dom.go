package stylecheck

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// The DOM binding covers what exercise pages do to their markup: query
// elements, flip classes and attributes, add and remove nodes.

func (h *scriptHost) root() *html.Node {
	return h.doc.Selection.Get(0)
}

func (h *scriptHost) throw(format string, msg string) {
	panic(h.vm.NewTypeError(format, msg))
}

type matchFunc func(*html.Node) bool

func (f matchFunc) Match(n *html.Node) bool { return f(n) }

func (h *scriptHost) compileSelector(sel string) cascadia.Matcher {
	group, err := cascadia.ParseGroup(sel)
	if err != nil {
		h.throw("'%s' is not a valid selector", sel)
	}
	return group
}

func (h *scriptHost) nodeList(nodes []*html.Node) goja.Value {
	items := make([]any, len(nodes))
	for i, n := range nodes {
		items[i] = h.wrap(n)
	}
	return h.vm.NewArray(items...)
}

func (h *scriptHost) querySelector(n *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if found := cascadia.Query(n, h.compileSelector(call.Argument(0).String())); found != nil {
			return h.wrap(found)
		}
		return goja.Null()
	}
}

func (h *scriptHost) querySelectorAll(n *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		return h.nodeList(cascadia.QueryAll(n, h.compileSelector(call.Argument(0).String())))
	}
}

func (h *scriptHost) byTagName(n *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		return h.nodeList(cascadia.QueryAll(n, matchFunc(func(c *html.Node) bool {
			return c.Type == html.ElementNode && (tag == "*" || c.Data == tag)
		})))
	}
}

func (h *scriptHost) byClassName(n *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		want := strings.Fields(call.Argument(0).String())
		return h.nodeList(cascadia.QueryAll(n, matchFunc(func(c *html.Node) bool {
			if c.Type != html.ElementNode || len(want) == 0 {
				return false
			}
			have := classes(c)
			for _, w := range want {
				if !contains(have, w) {
					return false
				}
			}
			return true
		})))
	}
}

func (h *scriptHost) documentObject() *goja.Object {
	vm := h.vm
	doc := vm.NewObject()
	root := h.root()
	getter := func(fn func() goja.Value) goja.Value {
		return vm.ToValue(func(goja.FunctionCall) goja.Value { return fn() })
	}
	element := func(tag string) func() goja.Value {
		return func() goja.Value {
			if n := cascadia.Query(root, matchFunc(func(c *html.Node) bool {
				return c.Type == html.ElementNode && c.Data == tag
			})); n != nil {
				return h.wrap(n)
			}
			return goja.Null()
		}
	}
	_ = doc.DefineAccessorProperty("documentElement", getter(func() goja.Value {
		if n := documentElement(root); n != nil {
			return h.wrap(n)
		}
		return goja.Null()
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = doc.DefineAccessorProperty("head", getter(element("head")), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = doc.DefineAccessorProperty("body", getter(element("body")), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = doc.Set("readyState", "loading")
	_ = doc.Set("nodeType", 9)
	_ = doc.Set("querySelector", h.querySelector(root))
	_ = doc.Set("querySelectorAll", h.querySelectorAll(root))
	_ = doc.Set("getElementsByTagName", h.byTagName(root))
	_ = doc.Set("getElementsByClassName", h.byClassName(root))
	_ = doc.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		if n := cascadia.Query(root, matchFunc(func(c *html.Node) bool {
			v, ok := attr(c, "id")
			return c.Type == html.ElementNode && ok && v == id
		})); n != nil {
			return h.wrap(n)
		}
		return goja.Null()
	})
	_ = doc.Set("createElement", func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		return h.wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
	})
	_ = doc.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		return h.wrap(&html.Node{Type: html.TextNode, Data: call.Argument(0).String()})
	})
	_ = doc.Set("addEventListener", h.addListener)
	_ = doc.Set("removeEventListener", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	return doc
}

// unwrap returns the node behind a wrapper object.
func (h *scriptHost) unwrap(v goja.Value) *html.Node {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	if p := obj.Get("__node"); p != nil {
		if n, ok := p.Export().(*html.Node); ok {
			return n
		}
	}
	return nil
}

func (h *scriptHost) node(v goja.Value) *html.Node {
	n := h.unwrap(v)
	if n == nil {
		h.throw("%s is not a Node", v.String())
	}
	return n
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func classes(n *html.Node) []string {
	v, _ := attr(n, "class")
	return strings.Fields(v)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func elementChildren(n *html.Node) []*html.Node {
	var ret []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			ret = append(ret, c)
		}
	}
	return ret
}

func renderChildren(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&sb, c)
	}
	return sb.String()
}

// wrap returns the script object for n. The same node always yields the same
// object.
func (h *scriptHost) wrap(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if n.Type == html.DocumentNode && h.docObj != nil {
		return h.docObj
	}
	if obj, ok := h.wrappers[n]; ok {
		return obj
	}
	obj := h.vm.NewObject()
	h.wrappers[n] = obj
	_ = obj.DefineDataProperty("__node", h.vm.ToValue(n), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
	h.defineNode(obj, n)
	if n.Type == html.ElementNode {
		h.defineElement(obj, n)
	}
	return obj
}

func (h *scriptHost) accessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	vm := h.vm
	g := vm.ToValue(func(goja.FunctionCall) goja.Value { return get() })
	var s goja.Value
	if set != nil {
		s = vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	_ = obj.DefineAccessorProperty(name, g, s, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

// defineNode adds the members shared by elements and text nodes.
func (h *scriptHost) defineNode(obj *goja.Object, n *html.Node) {
	vm := h.vm
	nodeType := 1
	if n.Type == html.TextNode {
		nodeType = 3
	}
	_ = obj.Set("nodeType", nodeType)
	h.accessor(obj, "parentNode", func() goja.Value { return h.wrap(n.Parent) }, nil)
	h.accessor(obj, "parentElement", func() goja.Value {
		if n.Parent != nil && n.Parent.Type == html.ElementNode {
			return h.wrap(n.Parent)
		}
		return goja.Null()
	}, nil)
	h.accessor(obj, "textContent", func() goja.Value { return vm.ToValue(nodeText(n)) }, func(v goja.Value) {
		if n.Type == html.TextNode {
			n.Data = v.String()
			return
		}
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
		}
		if s := v.String(); s != "" {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
		}
	})
	if n.Type == html.TextNode {
		h.accessor(obj, "nodeValue", func() goja.Value { return vm.ToValue(n.Data) }, func(v goja.Value) { n.Data = v.String() })
	}
	h.accessor(obj, "nextSibling", func() goja.Value { return h.wrap(n.NextSibling) }, nil)
	h.accessor(obj, "previousSibling", func() goja.Value { return h.wrap(n.PrevSibling) }, nil)
	_ = obj.Set("remove", func(goja.FunctionCall) goja.Value {
		detach(n)
		return goja.Undefined()
	})
	_ = obj.Set("addEventListener", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = obj.Set("removeEventListener", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
}

func (h *scriptHost) defineElement(obj *goja.Object, n *html.Node) {
	vm := h.vm
	attrGetter := func(key string) func() goja.Value {
		return func() goja.Value {
			v, _ := attr(n, key)
			return vm.ToValue(v)
		}
	}
	attrSetter := func(key string) func(goja.Value) {
		return func(v goja.Value) { setAttr(n, key, v.String()) }
	}

	h.accessor(obj, "tagName", func() goja.Value { return vm.ToValue(strings.ToUpper(n.Data)) }, nil)
	h.accessor(obj, "nodeName", func() goja.Value { return vm.ToValue(strings.ToUpper(n.Data)) }, nil)
	h.accessor(obj, "id", attrGetter("id"), attrSetter("id"))
	h.accessor(obj, "className", attrGetter("class"), attrSetter("class"))
	h.accessor(obj, "innerText", func() goja.Value { return vm.ToValue(nodeText(n)) }, func(v goja.Value) {
		_ = obj.Set("textContent", v)
	})
	h.accessor(obj, "innerHTML", func() goja.Value { return vm.ToValue(renderChildren(n)) }, func(v goja.Value) {
		nodes, err := html.ParseFragment(strings.NewReader(v.String()), n)
		if err != nil {
			h.throw("cannot parse markup: %s", err.Error())
		}
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
		}
		for _, c := range nodes {
			n.AppendChild(c)
		}
	})
	h.accessor(obj, "outerHTML", func() goja.Value {
		var sb strings.Builder
		_ = html.Render(&sb, n)
		return vm.ToValue(sb.String())
	}, nil)
	h.accessor(obj, "children", func() goja.Value { return h.nodeList(elementChildren(n)) }, nil)
	h.accessor(obj, "childNodes", func() goja.Value {
		var all []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			all = append(all, c)
		}
		return h.nodeList(all)
	}, nil)
	h.accessor(obj, "firstElementChild", func() goja.Value {
		if cs := elementChildren(n); len(cs) > 0 {
			return h.wrap(cs[0])
		}
		return goja.Null()
	}, nil)
	h.accessor(obj, "lastElementChild", func() goja.Value {
		if cs := elementChildren(n); len(cs) > 0 {
			return h.wrap(cs[len(cs)-1])
		}
		return goja.Null()
	}, nil)
	h.accessor(obj, "nextElementSibling", func() goja.Value {
		for c := n.NextSibling; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				return h.wrap(c)
			}
		}
		return goja.Null()
	}, nil)
	h.accessor(obj, "previousElementSibling", func() goja.Value {
		for c := n.PrevSibling; c != nil; c = c.PrevSibling {
			if c.Type == html.ElementNode {
				return h.wrap(c)
			}
		}
		return goja.Null()
	}, nil)

	_ = obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if v, ok := attr(n, strings.ToLower(call.Argument(0).String())); ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	_ = obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		setAttr(n, strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = obj.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		removeAttr(n, strings.ToLower(call.Argument(0).String()))
		return goja.Undefined()
	})
	_ = obj.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		_, ok := attr(n, strings.ToLower(call.Argument(0).String()))
		return vm.ToValue(ok)
	})
	_ = obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		c := h.node(call.Argument(0))
		detach(c)
		n.AppendChild(c)
		return call.Argument(0)
	})
	_ = obj.Set("append", func(call goja.FunctionCall) goja.Value {
		for _, a := range call.Arguments {
			c := h.unwrap(a)
			if c == nil {
				c = &html.Node{Type: html.TextNode, Data: a.String()}
			}
			detach(c)
			n.AppendChild(c)
		}
		return goja.Undefined()
	})
	_ = obj.Set("insertBefore", func(call goja.FunctionCall) goja.Value {
		c := h.node(call.Argument(0))
		ref := h.unwrap(call.Argument(1))
		detach(c)
		if ref == nil || ref.Parent != n {
			n.AppendChild(c)
		} else {
			n.InsertBefore(c, ref)
		}
		return call.Argument(0)
	})
	_ = obj.Set("removeChild", func(call goja.FunctionCall) goja.Value {
		c := h.node(call.Argument(0))
		if c.Parent != n {
			h.throw("%s is not a child of this node", call.Argument(0).String())
		}
		n.RemoveChild(c)
		return call.Argument(0)
	})
	_ = obj.Set("querySelector", h.querySelector(n))
	_ = obj.Set("querySelectorAll", h.querySelectorAll(n))
	_ = obj.Set("getElementsByTagName", h.byTagName(n))
	_ = obj.Set("getElementsByClassName", h.byClassName(n))
	_ = obj.Set("matches", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(h.compileSelector(call.Argument(0).String()).Match(n))
	})
	_ = obj.Set("closest", func(call goja.FunctionCall) goja.Value {
		sel := h.compileSelector(call.Argument(0).String())
		for c := n; c != nil && c.Type == html.ElementNode; c = c.Parent {
			if sel.Match(c) {
				return h.wrap(c)
			}
		}
		return goja.Null()
	})
	_ = obj.Set("classList", h.classList(n))
	_ = obj.Set("style", h.styleObject(n))
}

func (h *scriptHost) classList(n *html.Node) *goja.Object {
	vm := h.vm
	cl := vm.NewObject()
	write := func(list []string) { setAttr(n, "class", strings.Join(list, " ")) }
	_ = cl.Set("add", func(call goja.FunctionCall) goja.Value {
		list := classes(n)
		for _, a := range call.Arguments {
			if c := a.String(); !contains(list, c) {
				list = append(list, c)
			}
		}
		write(list)
		return goja.Undefined()
	})
	remove := func(list []string, c string) []string {
		out := list[:0]
		for _, v := range list {
			if v != c {
				out = append(out, v)
			}
		}
		return out
	}
	_ = cl.Set("remove", func(call goja.FunctionCall) goja.Value {
		list := classes(n)
		for _, a := range call.Arguments {
			list = remove(list, a.String())
		}
		write(list)
		return goja.Undefined()
	})
	_ = cl.Set("toggle", func(call goja.FunctionCall) goja.Value {
		c := call.Argument(0).String()
		list := classes(n)
		on := !contains(list, c)
		if force := call.Argument(1); !goja.IsUndefined(force) {
			on = force.ToBoolean()
		}
		if on {
			if !contains(list, c) {
				list = append(list, c)
			}
		} else {
			list = remove(list, c)
		}
		write(list)
		return vm.ToValue(on)
	})
	_ = cl.Set("contains", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(contains(classes(n), call.Argument(0).String()))
	})
	_ = cl.Set("replace", func(call goja.FunctionCall) goja.Value {
		old, repl := call.Argument(0).String(), call.Argument(1).String()
		list := classes(n)
		found := false
		for i, v := range list {
			if v == old {
				list[i] = repl
				found = true
			}
		}
		if found {
			write(list)
		}
		return vm.ToValue(found)
	})
	_ = cl.Set("item", func(call goja.FunctionCall) goja.Value {
		list := classes(n)
		if i := call.Argument(0).ToInteger(); i >= 0 && int(i) < len(list) {
			return vm.ToValue(list[i])
		}
		return goja.Null()
	})
	h.accessor(cl, "length", func() goja.Value { return vm.ToValue(len(classes(n))) }, nil)
	h.accessor(cl, "value", func() goja.Value { return vm.ToValue(strings.Join(classes(n), " ")) }, nil)
	return cl
}

// inline style helpers; the style attribute is the single source of truth.

func inlineDeclarations(n *html.Node) []qrule {
	style, _ := attr(n, "style")
	return consumeBlock(tokenizeCSSString(style), true).rules
}

func writeInline(n *html.Node, props [][2]string) {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, p[0]+": "+p[1]+";")
	}
	if len(parts) == 0 {
		removeAttr(n, "style")
		return
	}
	setAttr(n, "style", strings.Join(parts, " "))
}

func inlineProps(n *html.Node) [][2]string {
	var props [][2]string
	for _, r := range inlineDeclarations(n) {
		props = append(props, [2]string{strings.ToLower(strings.TrimSpace(r.key.String())), strings.TrimSpace(r.value.String())})
	}
	return props
}

func setInline(n *html.Node, prop, value string) {
	props := inlineProps(n)
	out := props[:0]
	for _, p := range props {
		if p[0] != prop {
			out = append(out, p)
		}
	}
	if value != "" {
		out = append(out, [2]string{prop, value})
	}
	writeInline(n, out)
}

// cssName converts fontSize to font-size.
func cssName(jsName string) string {
	var sb strings.Builder
	for _, r := range jsName {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('-')
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var styleProperties = []string{
	"color", "backgroundColor", "fontSize", "fontWeight", "fontStyle", "fontFamily",
	"display", "visibility", "textDecoration", "textAlign", "border", "margin", "padding",
}

func (h *scriptHost) styleObject(n *html.Node) *goja.Object {
	vm := h.vm
	st := vm.NewObject()
	get := func(prop string) string {
		for _, p := range inlineProps(n) {
			if p[0] == prop {
				return p[1]
			}
		}
		return ""
	}
	_ = st.Set("getPropertyValue", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(get(strings.ToLower(call.Argument(0).String())))
	})
	_ = st.Set("setProperty", func(call goja.FunctionCall) goja.Value {
		value := call.Argument(1).String()
		if goja.IsUndefined(call.Argument(1)) || goja.IsNull(call.Argument(1)) {
			value = ""
		}
		if p := call.Argument(2).String(); strings.EqualFold(p, "important") {
			value += " !important"
		}
		setInline(n, strings.ToLower(call.Argument(0).String()), value)
		return goja.Undefined()
	})
	_ = st.Set("removeProperty", func(call goja.FunctionCall) goja.Value {
		prop := strings.ToLower(call.Argument(0).String())
		old := get(prop)
		setInline(n, prop, "")
		return vm.ToValue(old)
	})
	h.accessor(st, "cssText", func() goja.Value {
		style, _ := attr(n, "style")
		return vm.ToValue(style)
	}, func(v goja.Value) { setAttr(n, "style", v.String()) })
	for _, name := range styleProperties {
		prop := cssName(name)
		h.accessor(st, name, func() goja.Value { return vm.ToValue(get(prop)) }, func(v goja.Value) {
			value := v.String()
			if goja.IsNull(v) || goja.IsUndefined(v) {
				value = ""
			}
			setInline(n, prop, value)
		})
	}
	return st
}
