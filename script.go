package stylecheck

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var errScriptTimeout = errors.New("script exceeded its time budget")

// ScriptOptions controls how embedded scripts are run before styles are
// queried.
type ScriptOptions struct {
	// Disabled leaves the parsed markup untouched.
	Disabled bool
	// Quiescence is the virtual time after the load event during which
	// pending timers still run. Timers due later are dropped.
	Quiescence time.Duration
	// Budget is the wall-clock limit for a single script or callback.
	Budget time.Duration
	Logger *zap.Logger
}

const (
	defaultQuiescence   = 5 * time.Second
	defaultScriptBudget = 2 * time.Second
	// maxTasks bounds the number of timer callbacks per document, so a zero
	// delay interval cannot keep the loop busy.
	maxTasks = 10000
)

type timer struct {
	id       int64
	due      time.Duration
	seq      int64
	fn       goja.Callable
	args     []goja.Value
	interval time.Duration
	repeat   bool
	index    int
}

type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }
func (q timerQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}
func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *timerQueue) Push(x any) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}
func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// scriptHost runs the inline scripts of one document. Time is virtual: timers
// fire in due order without sleeping.
type scriptHost struct {
	vm        *goja.Runtime
	doc       *goquery.Document
	logger    *zap.Logger
	budget    time.Duration
	now       time.Duration
	seq       int64
	nextID    int64
	timers    timerQueue
	byID      map[int64]*timer
	wrappers  map[*html.Node]*goja.Object
	docObj    *goja.Object
	listeners map[string][]goja.Callable
}

func newScriptHost(doc *goquery.Document, opts ScriptOptions) *scriptHost {
	h := &scriptHost{
		vm:        goja.New(),
		doc:       doc,
		logger:    opts.Logger,
		budget:    opts.Budget,
		byID:      make(map[int64]*timer),
		wrappers:  make(map[*html.Node]*goja.Object),
		listeners: make(map[string][]goja.Callable),
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.budget <= 0 {
		h.budget = defaultScriptBudget
	}
	h.installGlobals()
	return h
}

func isJavaScript(n *html.Node) bool {
	if _, ok := attr(n, "src"); ok {
		return false
	}
	typ, _ := attr(n, "type")
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript", "text/ecmascript", "application/ecmascript", "module":
		return true
	}
	return false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// guard runs fn with the wall-clock budget armed.
func (h *scriptHost) guard(fn func() error) error {
	fired := make(chan struct{})
	t := time.AfterFunc(h.budget, func() {
		h.vm.Interrupt(errScriptTimeout)
		close(fired)
	})
	err := fn()
	if !t.Stop() {
		// the interrupt must land before it is cleared
		<-fired
	}
	h.vm.ClearInterrupt()
	return err
}

func (h *scriptHost) report(what string, err error) {
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		h.logger.Warn("script interrupted", zap.String("script", what), zap.Duration("budget", h.budget))
		return
	}
	h.logger.Warn("script error", zap.String("script", what), zap.Error(err))
}

func (h *scriptHost) call(what string, fn goja.Callable, this goja.Value, args ...goja.Value) {
	err := h.guard(func() error {
		_, err := fn(this, args...)
		return err
	})
	if err != nil {
		h.report(what, err)
	}
}

func (h *scriptHost) dispatch(event string) {
	evt := h.vm.NewObject()
	_ = evt.Set("type", event)
	_ = evt.Set("preventDefault", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	for _, fn := range h.listeners[event] {
		h.call(event+" listener", fn, h.vm.GlobalObject(), evt)
	}
}

// run executes the inline scripts in document order, fires the load events
// and then drains the timer queue until it is empty or the quiescence
// deadline passes.
func (h *scriptHost) run(ctx context.Context, quiescence time.Duration) error {
	if quiescence <= 0 {
		quiescence = defaultQuiescence
	}
	// Collect first: scripts may add or remove script elements.
	var scripts []*html.Node
	h.doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if n := sel.Get(0); isJavaScript(n) {
			scripts = append(scripts, n)
		}
	})
	for i, n := range scripts {
		name := fmt.Sprintf("inline script #%d", i+1)
		src := nodeText(n)
		err := h.guard(func() error {
			_, err := h.vm.RunScript(name, src)
			return err
		})
		if err != nil {
			h.report(name, err)
		}
	}
	_ = h.docObj.Set("readyState", "interactive")
	h.dispatch("DOMContentLoaded")
	_ = h.docObj.Set("readyState", "complete")
	h.dispatch("load")

	deadline := h.now + quiescence
	tasks := 0
	for h.timers.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := heap.Pop(&h.timers).(*timer)
		if t.due > deadline || tasks >= maxTasks {
			h.logger.Info("document did not settle, pending timers dropped",
				zap.Int("pending", h.timers.Len()+1), zap.Duration("deadline", quiescence))
			break
		}
		tasks++
		h.now = t.due
		if t.repeat {
			t.due = h.now + t.interval
			h.seq++
			t.seq = h.seq
			heap.Push(&h.timers, t)
		} else {
			delete(h.byID, t.id)
		}
		h.call(fmt.Sprintf("timer %d", t.id), t.fn, goja.Undefined(), t.args...)
	}
	h.timers = nil
	return nil
}

func (h *scriptHost) schedule(call goja.FunctionCall, repeat bool) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		// string bodies are evaluated like eval
		src := call.Argument(0).String()
		fn = func(goja.Value, ...goja.Value) (goja.Value, error) {
			return h.vm.RunString(src)
		}
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	if repeat && delay < time.Millisecond {
		delay = time.Millisecond
	}
	h.nextID++
	h.seq++
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = call.Arguments[2:]
	}
	t := &timer{id: h.nextID, due: h.now + delay, seq: h.seq, fn: fn, args: args, interval: delay, repeat: repeat}
	h.byID[t.id] = t
	heap.Push(&h.timers, t)
	return h.vm.ToValue(t.id)
}

func (h *scriptHost) clear(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if t, ok := h.byID[id]; ok {
		delete(h.byID, id)
		if t.index >= 0 {
			heap.Remove(&h.timers, t.index)
		}
	}
	return goja.Undefined()
}

func (h *scriptHost) installGlobals() {
	vm := h.vm
	global := vm.GlobalObject()
	_ = vm.Set("window", global)
	_ = vm.Set("self", global)
	h.docObj = h.documentObject()
	_ = vm.Set("document", h.docObj)

	console := vm.NewObject()
	logf := func(level string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			h.logger.Debug("console."+level, zap.String("message", strings.Join(parts, " ")))
			return goja.Undefined()
		}
	}
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(level, logf(level))
	}
	_ = vm.Set("console", console)

	_ = vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value { return h.schedule(call, false) })
	_ = vm.Set("setInterval", func(call goja.FunctionCall) goja.Value { return h.schedule(call, true) })
	_ = vm.Set("clearTimeout", h.clear)
	_ = vm.Set("clearInterval", h.clear)
	_ = vm.Set("requestAnimationFrame", func(call goja.FunctionCall) goja.Value {
		return h.schedule(goja.FunctionCall{This: call.This, Arguments: []goja.Value{call.Argument(0), vm.ToValue(16)}}, false)
	})
	_ = vm.Set("cancelAnimationFrame", h.clear)
	_ = vm.Set("addEventListener", h.addListener)
	_ = vm.Set("removeEventListener", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = vm.Set("alert", func(goja.FunctionCall) goja.Value { return goja.Undefined() })

	// queueMicrotask rides on the promise job queue the runtime drains after
	// every top-level call.
	if _, err := vm.RunString(`globalThis.queueMicrotask = function (fn) { Promise.resolve().then(fn); };`); err != nil {
		h.logger.Warn("cannot install queueMicrotask", zap.Error(err))
	}
}

func (h *scriptHost) addListener(call goja.FunctionCall) goja.Value {
	event := call.Argument(0).String()
	if fn, ok := goja.AssertFunction(call.Argument(1)); ok {
		h.listeners[event] = append(h.listeners[event], fn)
	}
	return goja.Undefined()
}

// runScripts executes the document's inline scripts until it settles.
func runScripts(ctx context.Context, doc *goquery.Document, opts ScriptOptions) error {
	h := newScriptHost(doc, opts)
	return h.run(ctx, opts.Quiescence)
}
