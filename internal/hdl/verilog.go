package hdl

import (
	"fmt"
	"io"
	"strings"
)

// WriteVerilog checks c against lib and writes it as a Verilog module.
func WriteVerilog(w io.Writer, c *Circuit, lib Library) error {
	n, err := c.Check(lib)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "/*\n * Generated by raido from circuit %s.\n */\n", c.Name)
	fmt.Fprintf(&b, "module %s (\n", c.Name)

	var ports []string
	for _, p := range c.Inputs {
		ports = append(ports, "  input "+verilogRange(p.Width())+p.Name)
	}
	for _, p := range c.Outputs {
		ports = append(ports, "  output "+verilogRange(p.Width())+p.Name)
	}
	b.WriteString(strings.Join(ports, ",\n"))
	b.WriteString("\n);\n")

	for _, wire := range n.Wires() {
		fmt.Fprintf(&b, "  wire %s%s;\n", verilogRange(n.Width(wire)), wire)
	}
	if len(n.Wires()) > 0 {
		b.WriteString("\n")
	}
	for _, g := range n.gates {
		fmt.Fprintf(&b, "  assign %s = %s;\n", g.output, verilogExpr(g))
	}
	b.WriteString("endmodule\n")

	_, err = io.WriteString(w, b.String())
	return err
}

func verilogRange(width int) string {
	if width <= 1 {
		return ""
	}
	return fmt.Sprintf("[%d:0] ", width-1)
}

func verilogExpr(g gate) string {
	join := func(op string) string {
		return "(" + strings.Join(g.inputs, " "+op+" ") + ")"
	}
	switch g.op {
	case OpNot:
		return "~" + g.inputs[0]
	case OpAnd:
		return join("&")
	case OpOr:
		return join("|")
	case OpXor:
		return join("^")
	case OpNand:
		return "~" + join("&")
	case OpNor:
		return "~" + join("|")
	case OpXnor:
		return "~" + join("^")
	}
	return g.inputs[0]
}
