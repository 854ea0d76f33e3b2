// Package stylecheck grades a styling exercise. It loads an HTML document,
// runs its inline scripts until the page settles, applies the exercise's
// stylesheets and compares computed colors and font sizes of selected
// elements against the expected values.
//
// Style resolution is scoped to what the checks need: selectors are matched
// with cascadia, the cascade honours origin, importance, specificity and
// source order, and color and font-size are resolved with inheritance.
package stylecheck
