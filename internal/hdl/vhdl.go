package hdl

import (
	"fmt"
	"io"
	"strings"
)

// WriteVHDL checks c against lib and writes it as a VHDL entity with a
// dataflow architecture. Output ports that are also read inside the circuit
// are driven through an internal s_<name> signal, suffixed when that name is
// already taken.
func WriteVHDL(w io.Writer, c *Circuit, lib Library) error {
	n, err := c.Check(lib)
	if err != nil {
		return err
	}

	signal := func(net string) string {
		if s, ok := n.shadows[net]; ok {
			return s
		}
		return net
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Generated by raido from circuit %s.\n\n", c.Name)
	b.WriteString("LIBRARY ieee;\nUSE ieee.std_logic_1164.all;\n\n")
	fmt.Fprintf(&b, "entity %s is\n  port (\n", c.Name)

	var ports []string
	for _, p := range c.Inputs {
		ports = append(ports, fmt.Sprintf("    %s: in %s", p.Name, vhdlType(p.Width())))
	}
	for _, p := range c.Outputs {
		ports = append(ports, fmt.Sprintf("    %s: out %s", p.Name, vhdlType(p.Width())))
	}
	b.WriteString(strings.Join(ports, ";\n"))
	fmt.Fprintf(&b, " );\nend %s;\n\n", c.Name)

	fmt.Fprintf(&b, "architecture Behavioral of %s is\n", c.Name)
	for _, wire := range n.Wires() {
		fmt.Fprintf(&b, "  signal %s: %s;\n", wire, vhdlType(n.Width(wire)))
	}
	for _, p := range c.Outputs {
		if signal(p.Name) != p.Name {
			fmt.Fprintf(&b, "  signal %s: %s;\n", signal(p.Name), vhdlType(p.Width()))
		}
	}
	b.WriteString("begin\n")
	for _, g := range n.gates {
		inputs := make([]string, len(g.inputs))
		for i, in := range g.inputs {
			inputs[i] = signal(in)
		}
		fmt.Fprintf(&b, "  %s <= %s;\n", signal(g.output), vhdlExpr(g.op, inputs))
	}
	for _, p := range c.Outputs {
		if s := signal(p.Name); s != p.Name {
			fmt.Fprintf(&b, "  %s <= %s;\n", p.Name, s)
		}
	}
	b.WriteString("end Behavioral;\n")

	_, err = io.WriteString(w, b.String())
	return err
}

func vhdlType(width int) string {
	if width <= 1 {
		return "std_logic"
	}
	return fmt.Sprintf("std_logic_vector(%d downto 0)", width-1)
}

func vhdlExpr(op Operator, inputs []string) string {
	join := func(kw string) string {
		return "(" + strings.Join(inputs, " "+kw+" ") + ")"
	}
	switch op {
	case OpNot:
		return "NOT " + inputs[0]
	case OpAnd:
		return join("AND")
	case OpOr:
		return join("OR")
	case OpXor:
		return join("XOR")
	case OpNand:
		return "NOT " + join("AND")
	case OpNor:
		return "NOT " + join("OR")
	case OpXnor:
		return "NOT " + join("XOR")
	}
	return inputs[0]
}
