package stylecheck

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrChecksFailed signals that at least one assertion did not hold.
var ErrChecksFailed = errors.New("style checks failed")

// Assertion is one named style check.
type Assertion struct {
	Name     string
	Selector string
	// Property is "color" or "font-size". Colors compare as #rrggbb, other
	// properties as the exact computed string.
	Property string
	Expected string
	// All checks every matching element and fails when nothing matches.
	// Otherwise only the first match is checked.
	All bool
}

// Result is the outcome of one assertion.
type Result struct {
	Name   string
	Pass   bool
	Actual []string
	// Multi is set when Actual holds one value per matched element.
	Multi bool
}

// DefaultAssertions returns the exercise's checks in evaluation order.
func DefaultAssertions() []Assertion {
	return []Assertion{
		{Name: "body color", Selector: "body", Property: "color", Expected: "#7f8c8d"},
		{Name: "body font-size", Selector: "body", Property: "font-size", Expected: "12px"},
		{Name: ".selected color", Selector: ".selected", Property: "color", Expected: "#e74c3c", All: true},
		{Name: "p.selected > span color", Selector: "p.selected span", Property: "color", Expected: "#3498db", All: true},
	}
}

func (a Assertion) holds(actual string) bool {
	if a.Property == "color" {
		return HexColor(actual) == strings.ToLower(a.Expected)
	}
	return actual == a.Expected
}

// Evaluate runs the assertion against the environment.
func (a Assertion) Evaluate(env *Environment) Result {
	nodes := env.Find(a.Selector)
	if !a.All {
		if len(nodes) == 0 {
			return Result{Name: a.Name, Actual: []string{""}}
		}
		actual := env.ComputedStyle(nodes[0]).Get(a.Property)
		return Result{Name: a.Name, Pass: a.holds(actual), Actual: []string{actual}}
	}
	res := Result{Name: a.Name, Pass: len(nodes) > 0, Multi: true, Actual: []string{}}
	for _, n := range nodes {
		actual := env.ComputedStyle(n).Get(a.Property)
		res.Actual = append(res.Actual, actual)
		if !a.holds(actual) {
			res.Pass = false
		}
	}
	return res
}

// Runner loads an exercise from Root and checks its styles.
type Runner struct {
	Root        string
	Document    string
	Stylesheets []string
	Assertions  []Assertion
	Scripts     ScriptOptions
	Logger      *zap.Logger
}

// NewRunner returns a runner with the exercise's file names and checks.
func NewRunner(root string) *Runner {
	return &Runner{
		Root:        root,
		Document:    "index.html",
		Stylesheets: []string{"setting.css", "style.css"},
		Assertions:  DefaultAssertions(),
		Scripts: ScriptOptions{
			Quiescence: defaultQuiescence,
			Budget:     defaultScriptBudget,
		},
	}
}

// Run loads the document and stylesheets, lets the document settle and
// evaluates the assertions in order. The only error is an unreadable
// document or a cancelled context.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	markup, err := LoadDocument(r.Root, r.Document)
	if err != nil {
		return nil, err
	}
	css := LoadStylesheets(r.Root, r.Stylesheets, logger)

	opts := r.Scripts
	opts.Logger = logger
	start := time.Now()
	env, err := NewEnvironment(ctx, markup, r.Root, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("document settled", zap.Duration("took", time.Since(start)))
	if err = env.InjectCSS(css); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(r.Assertions))
	for _, a := range r.Assertions {
		res := a.Evaluate(env)
		logger.Debug("assertion evaluated", zap.String("name", res.Name), zap.Bool("pass", res.Pass), zap.Strings("actual", res.Actual))
		results = append(results, res)
	}
	return results, nil
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}
