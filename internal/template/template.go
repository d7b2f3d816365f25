// Package template resolves <name> and <?=name?> placeholders in toolchain
// configuration text.
package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMissingPlaceholder matches any MissingPlaceholderError via errors.Is.
var ErrMissingPlaceholder = errors.New("missing placeholder")

// placeholderRe matches the two supported spans. Group 1 is the name of a
// <?=name?> span, group 2 the name of a <name> span.
var placeholderRe = regexp.MustCompile(`<\?=\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*\?>|<([A-Za-z_][A-Za-z0-9_.-]*)>`)

// Scope supplies placeholder values.
type Scope interface {
	Lookup(name string) (string, bool)
}

// Values is a map-backed Scope.
type Values map[string]string

// Lookup implements Scope.
func (v Values) Lookup(name string) (string, bool) {
	s, ok := v[name]
	return s, ok
}

// MissingPlaceholderError reports a filtered template that references a name
// the scope does not define.
type MissingPlaceholderError struct {
	Name   string
	Origin string
}

func (e *MissingPlaceholderError) Error() string {
	if e.Origin == "" {
		return fmt.Sprintf("template: placeholder <%s> is not defined", e.Name)
	}
	return fmt.Sprintf("template: placeholder <%s> is not defined (in %s)", e.Name, e.Origin)
}

// Is reports whether target is ErrMissingPlaceholder.
func (e *MissingPlaceholderError) Is(target error) bool {
	return target == ErrMissingPlaceholder
}

// Resolve substitutes placeholders in text. Unfiltered text is returned as
// is. Filtered text is scanned once, left to right; substituted values are
// never expanded again. origin names the owning file or command and only
// appears in errors.
func Resolve(origin, text string, scope Scope, filtered bool) (string, error) {
	if !filtered {
		return text, nil
	}
	matches := placeholderRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		name := spanName(text, m)
		value, ok := lookup(scope, name)
		if !ok {
			return "", &MissingPlaceholderError{Name: name, Origin: origin}
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(value)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// Placeholders returns the names referenced by text in order of first
// appearance.
func Placeholders(text string) []string {
	matches := placeholderRe.FindAllStringSubmatchIndex(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		name := spanName(text, m)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func spanName(text string, m []int) string {
	if m[2] >= 0 {
		return text[m[2]:m[3]]
	}
	return text[m[4]:m[5]]
}

func lookup(scope Scope, name string) (string, bool) {
	if scope == nil {
		return "", false
	}
	return scope.Lookup(name)
}
