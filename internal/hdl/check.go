package hdl

import (
	"fmt"
	"strings"
)

// gate is a checked part ready for export.
type gate struct {
	op     Operator
	inputs []string
	output string
}

// Netlist is the connectivity-checked form of a Circuit.
type Netlist struct {
	Circuit *Circuit
	widths  map[string]int
	wires   []string
	gates   []gate
	read    map[string]bool
	outputs map[string]bool
	// shadows maps outputs read inside the circuit to the internal VHDL
	// signal that drives them.
	shadows map[string]string
}

// Width returns the resolved width of net, or zero if unknown.
func (n *Netlist) Width(net string) int {
	return n.widths[net]
}

// Wires returns the internal nets in order of declaration.
func (n *Netlist) Wires() []string {
	return n.wires
}

// Check resolves every part against lib and verifies connectivity: each
// element exists, each pin count matches, each read net has exactly one
// driver, widths agree and every output port is driven.
func (c *Circuit) Check(lib Library) (*Netlist, error) {
	n := &Netlist{
		Circuit: c,
		widths:  make(map[string]int),
		read:    make(map[string]bool),
		outputs: make(map[string]bool),
		shadows: make(map[string]string),
	}

	driven := make(map[string]bool)
	for _, in := range c.Inputs {
		if driven[in.Name] {
			return nil, &NodeError{Net: in.Name, Msg: "declared twice"}
		}
		driven[in.Name] = true
		n.widths[in.Name] = in.Width()
	}
	for _, out := range c.Outputs {
		if driven[out.Name] || n.outputs[out.Name] {
			return nil, &NodeError{Net: out.Name, Msg: "declared twice"}
		}
		n.outputs[out.Name] = true
	}

	for i, p := range c.Parts {
		label := partLabel(p, i)
		elem, err := lib.Element(p.Element)
		if err != nil {
			return nil, err
		}
		if !elem.Arity(len(p.Inputs)) {
			want := "2 or more"
			if elem.Inputs > 0 {
				want = fmt.Sprint(elem.Inputs)
			}
			return nil, &PinError{Part: label, Pin: "in", Msg: fmt.Sprintf("expects %s inputs, got %d", want, len(p.Inputs))}
		}
		if p.Output == "" {
			return nil, &PinError{Part: label, Pin: "out", Msg: "not connected"}
		}
		if driven[p.Output] {
			return nil, &NodeError{Net: p.Output, Msg: "has more than one driver"}
		}
		driven[p.Output] = true
		if !n.outputs[p.Output] {
			n.wires = append(n.wires, p.Output)
		}
		n.gates = append(n.gates, gate{op: elem.Operator, inputs: p.Inputs, output: p.Output})
	}

	for i, p := range c.Parts {
		for k, net := range p.Inputs {
			if net == "" || !driven[net] {
				return nil, &PinError{Part: partLabel(p, i), Pin: fmt.Sprintf("in%d", k), Msg: fmt.Sprintf("net %q is not driven", net)}
			}
			n.read[net] = true
		}
	}

	for _, out := range c.Outputs {
		if !driven[out.Name] {
			return nil, &PinError{Part: c.Name, Pin: out.Name, Msg: "output is not driven"}
		}
	}

	if err := n.resolveWidths(); err != nil {
		return nil, err
	}

	for _, out := range c.Outputs {
		if got := n.widths[out.Name]; got != out.Width() {
			return nil, &NodeError{Net: out.Name, Msg: fmt.Sprintf("is %d bits wide, port declares %d", got, out.Width())}
		}
	}
	n.assignShadows()
	return n, nil
}

// assignShadows names the internal signal of every output that is also read.
// VHDL identifiers are case-insensitive, so names are compared lowercased.
func (n *Netlist) assignShadows() {
	taken := make(map[string]bool, len(n.widths))
	for net := range n.widths {
		taken[strings.ToLower(net)] = true
	}
	for _, out := range n.Circuit.Outputs {
		if !n.read[out.Name] {
			continue
		}
		name := "s_" + out.Name
		for i := 1; taken[strings.ToLower(name)]; i++ {
			name = fmt.Sprintf("s_%s_%d", out.Name, i)
		}
		taken[strings.ToLower(name)] = true
		n.shadows[out.Name] = name
	}
}

// resolveWidths propagates widths from the inputs through the gates until
// nothing changes. Nets left without a width sit on a combinational loop.
func (n *Netlist) resolveWidths() error {
	for changed := true; changed; {
		changed = false
		for _, g := range n.gates {
			if _, ok := n.widths[g.output]; ok {
				continue
			}
			w, ok, err := n.inputWidth(g)
			if err != nil {
				return err
			}
			if ok {
				n.widths[g.output] = w
				changed = true
			}
		}
	}
	for _, g := range n.gates {
		if _, ok := n.widths[g.output]; !ok {
			return &NodeError{Net: g.output, Msg: "is part of a combinational loop"}
		}
	}
	return nil
}

func (n *Netlist) inputWidth(g gate) (int, bool, error) {
	width := 0
	for _, in := range g.inputs {
		w, ok := n.widths[in]
		if !ok {
			return 0, false, nil
		}
		if width != 0 && w != width {
			return 0, false, &NodeError{Net: g.output, Msg: fmt.Sprintf("inputs have different widths (%d and %d)", width, w)}
		}
		width = w
	}
	return width, true, nil
}

func partLabel(p Part, i int) string {
	if p.Label != "" {
		return p.Label
	}
	return fmt.Sprintf("%s#%d", p.Element, i)
}
