package hdl

import "fmt"

// ElementNotFoundError is returned when a part names an element the library
// does not provide.
type ElementNotFoundError struct {
	Name string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("hdl: element %q not found in library", e.Name)
}

// PinError reports a pin that is missing, surplus or not connected to a
// driven net.
type PinError struct {
	Part string
	Pin  string
	Msg  string
}

func (e *PinError) Error() string {
	return fmt.Sprintf("hdl: %s pin %s: %s", e.Part, e.Pin, e.Msg)
}

// NodeError reports a net-level inconsistency: multiple drivers or
// mismatching widths.
type NodeError struct {
	Net string
	Msg string
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("hdl: net %s: %s", e.Net, e.Msg)
}
