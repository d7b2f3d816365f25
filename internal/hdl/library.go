package hdl

import "sort"

// Operator is the boolean function of a gate element.
type Operator int

const (
	OpNot Operator = iota
	OpAnd
	OpOr
	OpXor
	OpNand
	OpNor
	OpXnor
)

// Element describes a library component. Inputs is the fixed input count;
// zero means the element accepts two or more inputs.
type Element struct {
	Name     string
	Inputs   int
	Operator Operator
}

// Arity reports whether n input pins are acceptable for the element.
func (e Element) Arity(n int) bool {
	if e.Inputs == 0 {
		return n >= 2
	}
	return n == e.Inputs
}

// Library resolves element names used by circuit parts.
type Library interface {
	Element(name string) (Element, error)
}

// MapLibrary is a Library backed by a map keyed by element name.
type MapLibrary map[string]Element

// Element implements Library.
func (l MapLibrary) Element(name string) (Element, error) {
	e, ok := l[name]
	if !ok {
		return Element{}, &ElementNotFoundError{Name: name}
	}
	return e, nil
}

// Names returns the element names in sorted order.
func (l MapLibrary) Names() []string {
	out := make([]string, 0, len(l))
	for n := range l {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// BuiltinLibrary returns the basic gate set.
func BuiltinLibrary() MapLibrary {
	return MapLibrary{
		"Not":  {Name: "Not", Inputs: 1, Operator: OpNot},
		"And":  {Name: "And", Operator: OpAnd},
		"Or":   {Name: "Or", Operator: OpOr},
		"XOr":  {Name: "XOr", Operator: OpXor},
		"NAnd": {Name: "NAnd", Operator: OpNand},
		"NOr":  {Name: "NOr", Operator: OpNor},
		"XNOr": {Name: "XNOr", Operator: OpXnor},
	}
}
