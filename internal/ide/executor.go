package ide

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/starford/raido/internal/artifact"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/hdl"
	"github.com/starford/raido/internal/template"
)

// DesignProvider returns the path of the active design file.
type DesignProvider func() (string, error)

// CircuitProvider returns the circuit of the active design.
type CircuitProvider func(design string) (*hdl.Circuit, error)

// LibraryProvider returns the element library used to resolve parts.
type LibraryProvider func() (hdl.Library, error)

// Option is a functional option for configuring an Executor.
type Option func(*Executor)

// WithDesign sets the design file provider.
func WithDesign(p DesignProvider) Option {
	return func(e *Executor) {
		e.design = p
	}
}

// WithDesignPath uses a fixed design file path.
func WithDesignPath(path string) Option {
	return WithDesign(func() (string, error) { return path, nil })
}

// WithCircuit sets the circuit provider. The default loads the design file
// with hdl.LoadFile.
func WithCircuit(p CircuitProvider) Option {
	return func(e *Executor) {
		e.circuit = p
	}
}

// WithLibrary sets the library provider. The default is the builtin gate
// library.
func WithLibrary(p LibraryProvider) Option {
	return func(e *Executor) {
		e.library = p
	}
}

// WithRegistry sets the artifact generator registry.
func WithRegistry(r *artifact.Registry) Option {
	return func(e *Executor) {
		e.registry = r
	}
}

// WithLogger sets the logger used for execution tracing.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// Result describes a completed execution.
type Result struct {
	Command          string   `json:"command"`
	Dir              string   `json:"dir"`
	Args             []string `json:"args"`
	Artifact         string   `json:"artifact,omitempty"`
	ArtifactChecksum string   `json:"artifact_checksum,omitempty"`
	Files            []string `json:"files"`
}

// Executor runs commands of one Configuration against the active design.
// Executions must be serialized by the caller.
type Executor struct {
	config   *Configuration
	boundary IO
	registry *artifact.Registry
	design   DesignProvider
	circuit  CircuitProvider
	library  LibraryProvider
	logger   *slog.Logger
}

// NewExecutor creates an Executor writing through boundary.
func NewExecutor(cfg *Configuration, boundary IO, opts ...Option) *Executor {
	e := &Executor{
		config:   cfg,
		boundary: boundary,
		registry: artifact.NewRegistry(),
		circuit:  hdl.LoadFile,
		library:  func() (hdl.Library, error) { return hdl.BuiltinLibrary(), nil },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configuration returns the configuration the executor runs.
func (e *Executor) Configuration() *Configuration {
	return e.config
}

// Commands returns the configured commands in declared order.
func (e *Executor) Commands() []Command {
	return e.config.Commands()
}

// Execute runs cmd: it generates the required artifact, writes every
// declared file, resolves the arguments and starts the process. File
// templates resolve path to the design file; argument templates resolve it
// to the artifact when cmd requires one. Any failure
// aborts the run, is reported once through the IO boundary and returned.
// Files written before the failure are left in place.
func (e *Executor) Execute(ctx context.Context, cmd Command, interactive bool) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("ide: %s: unexpected failure: %v", cmd.Name, r)
		}
		if err != nil {
			e.logger.Debug("execute: errored", slog.String("command", cmd.Name), slog.String("error", err.Error()))
			e.boundary.ReportError(cmd, err)
		}
	}()

	if e.design == nil {
		return nil, errors.New("ide: no design file provider configured")
	}
	design, err := e.design()
	if err != nil {
		return nil, fmt.Errorf("ide: design file: %w", err)
	}
	base := NewContext(design)
	tctx := base
	res = &Result{Command: cmd.Name, Dir: tctx.Dir}

	if cmd.Requires != "" {
		tctx, err = e.generate(cmd, tctx, res)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("execute: artifact resolved", slog.String("command", cmd.Name), slog.String("path", tctx.Path))
	}

	// Files are shared by every command and see the design context; only
	// the command's own arguments see the artifact.
	for _, f := range e.config.files {
		path, err := e.writeFile(f, base)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, path)
	}
	e.logger.Debug("execute: files written", slog.String("command", cmd.Name), slog.Int("count", len(res.Files)))

	args := make([]string, 0, len(cmd.Args))
	for _, a := range cmd.Args {
		resolved, err := template.Resolve(cmd.Name, a, tctx, cmd.Filter)
		if err != nil {
			return nil, err
		}
		args = append(args, resolved)
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, &IOError{Op: "start", Err: fmt.Errorf("command %q has no program to run", cmd.Name)}
	}
	res.Args = args

	if err := e.boundary.StartProcess(ctx, cmd, tctx.Dir, interactive, args); err != nil {
		return nil, &IOError{Op: "start", Path: args[0], Err: err}
	}
	e.logger.Debug("execute: dispatched", slog.String("command", cmd.Name), slog.String("dir", tctx.Dir), slog.Any("args", args))
	return res, nil
}

// generate produces the required artifact, writes it and returns the
// context extended with its path.
func (e *Executor) generate(cmd Command, tctx Context, res *Result) (Context, error) {
	if !e.registry.Supports(cmd.Requires) {
		return tctx, &artifact.UnsupportedArtifactError{Tag: cmd.Requires}
	}
	kind := artifact.Kind(strings.TrimSpace(cmd.Requires))
	c, err := e.circuit(tctx.Design)
	if err != nil {
		return tctx, &artifact.GenerationError{Kind: kind, Err: err}
	}
	lib, err := e.library()
	if err != nil {
		return tctx, &artifact.GenerationError{Kind: kind, Err: err}
	}
	a, err := e.registry.Generate(cmd.Requires, c, lib)
	if err != nil {
		return tctx, err
	}

	path := tctx.ArtifactPath(a.Extension)
	if err := e.write(path, a.Content, true); err != nil {
		return tctx, err
	}
	res.Artifact = path
	res.ArtifactChecksum = checksum.Sum([]byte(a.Content))
	return tctx.WithArtifact(path, a.Values), nil
}

func (e *Executor) writeFile(f File, tctx Context) (string, error) {
	name, err := template.Resolve(f.Name, f.Name, tctx, true)
	if err != nil {
		return "", err
	}
	content, err := template.Resolve(name, f.Content, tctx, f.Filter)
	if err != nil {
		return "", err
	}
	path := tctx.resolvePath(name)
	if err := e.write(path, content, f.Overwrite); err != nil {
		return "", err
	}
	return path, nil
}

// write acquires an output stream for path, writes content and releases the
// stream on every path.
func (e *Executor) write(path, content string, overwrite bool) error {
	w, err := e.boundary.OpenOutput(path, overwrite)
	if err != nil {
		return &IOError{Op: "open", Path: path, Err: err}
	}
	if _, err := io.WriteString(w, content); err != nil {
		_ = w.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := w.Close(); err != nil {
		return &IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}
