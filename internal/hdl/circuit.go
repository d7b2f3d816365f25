// Package hdl holds the gate-level circuit model used as the source of
// generated HDL artifacts, the element library it is built from, and the
// Verilog and VHDL writers.
package hdl

import (
	"fmt"
	"os"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

var identRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Circuit is a flat netlist: named ports and gate instances connected by
// net names.
type Circuit struct {
	Name    string `yaml:"name"`
	Inputs  []Port `yaml:"inputs"`
	Outputs []Port `yaml:"outputs"`
	Parts   []Part `yaml:"parts"`
}

// Port is a top-level input or output.
type Port struct {
	Name string `yaml:"name"`
	Bits int    `yaml:"bits"`
}

// Width returns the port width, defaulting to a single bit.
func (p Port) Width() int {
	if p.Bits <= 0 {
		return 1
	}
	return p.Bits
}

// Validate validates the port declaration.
func (p Port) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, append([]validation.Rule{validation.Required}, validName...)...),
		validation.Field(&p.Bits, validation.Min(0), validation.Max(64)),
	)
}

// Part is one instance of a library element. Inputs lists the nets wired to
// the element's input pins in pin order; Output is the net it drives.
type Part struct {
	Element string   `yaml:"element"`
	Label   string   `yaml:"label"`
	Inputs  []string `yaml:"inputs"`
	Output  string   `yaml:"output"`
}

// Validate validates the part declaration. Connectivity is checked by
// Circuit.Check, which needs the library.
func (p Part) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Element, validation.Required),
		validation.Field(&p.Output, validName...),
	)
}

// Validate checks the structural fields of the circuit.
func (c *Circuit) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, append([]validation.Rule{validation.Required}, validName...)...),
		validation.Field(&c.Outputs, validation.Required),
		validation.Field(&c.Inputs),
		validation.Field(&c.Parts),
	)
}

// Parse decodes a YAML design document.
func Parse(data []byte) (*Circuit, error) {
	var c Circuit
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("hdl: parse circuit: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("hdl: invalid circuit: %w", err)
	}
	return &c, nil
}

// LoadFile reads and parses the design file at path.
func LoadFile(path string) (*Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hdl: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return c, nil
}
