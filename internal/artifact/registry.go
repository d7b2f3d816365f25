// Package artifact maps required-artifact tags to the routines that
// generate them from a circuit.
package artifact

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/raido/internal/hdl"
)

// Kind is a supported artifact tag as written in a command's requires field.
type Kind string

// Builtin kinds.
const (
	KindVerilog Kind = "verilog"
	KindVHDL    Kind = "vhdl"
)

var (
	// ErrUnsupported matches UnsupportedArtifactError.
	ErrUnsupported = errors.New("unsupported artifact")
	// ErrGenerationFailed matches GenerationError.
	ErrGenerationFailed = errors.New("artifact generation failed")
)

// Artifact is generated source text plus the extension its file should use
// and any placeholder values the generator contributes.
type Artifact struct {
	Content   string
	Extension string
	Values    map[string]string
}

// Generator produces an artifact from a circuit.
type Generator func(c *hdl.Circuit, lib hdl.Library) (Artifact, error)

// UnsupportedArtifactError is returned for tags without a generator.
type UnsupportedArtifactError struct {
	Tag string
}

func (e *UnsupportedArtifactError) Error() string {
	return fmt.Sprintf("artifact: no generator for %q", e.Tag)
}

// Is reports whether target is ErrUnsupported.
func (e *UnsupportedArtifactError) Is(target error) bool {
	return target == ErrUnsupported
}

// GenerationError wraps a failure raised while converting the circuit.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("artifact: generate %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrGenerationFailed.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// Registry binds kinds to generators.
type Registry struct {
	generators map[Kind]Generator
}

// NewRegistry returns a registry with the builtin Verilog and VHDL
// generators.
func NewRegistry() *Registry {
	r := &Registry{generators: make(map[Kind]Generator)}
	r.Register(KindVerilog, Verilog)
	r.Register(KindVHDL, VHDL)
	return r
}

// Register binds g to kind, replacing any previous binding.
func (r *Registry) Register(kind Kind, g Generator) {
	r.generators[kind] = g
}

// Supports reports whether tag has a generator.
func (r *Registry) Supports(tag string) bool {
	_, ok := r.generators[Kind(strings.TrimSpace(tag))]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.generators))
	for k := range r.generators {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Generate runs the generator bound to tag.
func (r *Registry) Generate(tag string, c *hdl.Circuit, lib hdl.Library) (Artifact, error) {
	kind := Kind(strings.TrimSpace(tag))
	g, ok := r.generators[kind]
	if !ok {
		return Artifact{}, &UnsupportedArtifactError{Tag: tag}
	}
	if c == nil {
		return Artifact{}, &GenerationError{Kind: kind, Err: errors.New("no circuit available")}
	}
	a, err := g(c, lib)
	if err != nil {
		return Artifact{}, &GenerationError{Kind: kind, Err: err}
	}
	return a, nil
}

// Verilog generates a .v module.
func Verilog(c *hdl.Circuit, lib hdl.Library) (Artifact, error) {
	var b strings.Builder
	if err := hdl.WriteVerilog(&b, c, lib); err != nil {
		return Artifact{}, err
	}
	return Artifact{Content: b.String(), Extension: "v", Values: map[string]string{"top": c.Name}}, nil
}

// VHDL generates a .vhdl entity.
func VHDL(c *hdl.Circuit, lib hdl.Library) (Artifact, error) {
	var b strings.Builder
	if err := hdl.WriteVHDL(&b, c, lib); err != nil {
		return Artifact{}, err
	}
	return Artifact{Content: b.String(), Extension: "vhdl", Values: map[string]string{"top": c.Name}}, nil
}
