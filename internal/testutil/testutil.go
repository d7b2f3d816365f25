// Package testutil provides shared test helpers: an in-memory IO boundary
// for the executor, fixture designs and temporary history databases.
package testutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/ide"
)

// NegSimple is a small design: Y = !A & B.
const NegSimple = `name: negSimple
inputs:
  - name: A
  - name: B
outputs:
  - name: Y
parts:
  - element: Not
    inputs: [A]
    output: n1
  - element: And
    inputs: [n1, B]
    output: Y
`

// Toolchain is a YAML IDE configuration with one artifact-producing
// command, one plain command and one script file.
const Toolchain = `name: sim
commands:
  - name: build
    requires: verilog
    filter: true
    args: [make, "<path>"]
  - name: lint
    filter: false
    args: [verilator, --lint-only]
files:
  - name: "<shortname>.ys"
    overwrite: true
    filter: true
    content: "read_verilog <shortname>.v"
`

// TestExecutor returns an executor for Toolchain over a NegSimple design,
// writing through rec.
func TestExecutor(t *testing.T, rec *Recorder) *ide.Executor {
	t.Helper()
	cfg, err := ide.Load(strings.NewReader(Toolchain), ide.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	return ide.NewExecutor(cfg, rec,
		ide.WithDesignPath(TestDesign(t)),
		ide.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
}

// StartedProcess is one recorded StartProcess call.
type StartedProcess struct {
	Command     string
	Dir         string
	Interactive bool
	Args        []string
}

// ReportedError is one recorded ReportError call.
type ReportedError struct {
	Command string
	Err     error
}

// Recorder implements ide.IO in memory.
type Recorder struct {
	mu      sync.Mutex
	files   map[string]*bytes.Buffer
	order   []string
	started []StartedProcess
	errors  []ReportedError

	// OpenErr, if set, is consulted before every OpenOutput.
	OpenErr func(path string) error
	// StartErr, if set, is returned by StartProcess.
	StartErr error
}

var _ ide.IO = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{files: make(map[string]*bytes.Buffer)}
}

type bufferCloser struct {
	*bytes.Buffer
}

func (bufferCloser) Close() error { return nil }

// OpenOutput implements ide.IO. Every call replaces the recorded content.
func (r *Recorder) OpenOutput(path string, _ bool) (io.WriteCloser, error) {
	if r.OpenErr != nil {
		if err := r.OpenErr(path); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := &bytes.Buffer{}
	if _, ok := r.files[path]; !ok {
		r.order = append(r.order, path)
	}
	r.files[path] = buf
	return bufferCloser{buf}, nil
}

// StartProcess implements ide.IO.
func (r *Recorder) StartProcess(_ context.Context, cmd ide.Command, dir string, interactive bool, args []string) error {
	if r.StartErr != nil {
		return r.StartErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, StartedProcess{
		Command:     cmd.Name,
		Dir:         dir,
		Interactive: interactive,
		Args:        slices.Clone(args),
	})
	return nil
}

// ReportError implements ide.IO.
func (r *Recorder) ReportError(cmd ide.Command, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, ReportedError{Command: cmd.Name, Err: err})
}

// Files returns the written paths in first-write order.
func (r *Recorder) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// File returns the content written to path.
func (r *Recorder) File(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf, ok := r.files[path]
	if !ok {
		return "", false
	}
	return buf.String(), true
}

// Started returns the recorded process starts.
func (r *Recorder) Started() []StartedProcess {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.started)
}

// Errors returns the recorded error reports.
func (r *Recorder) Errors() []ReportedError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.errors)
}

// Clear forgets everything recorded so far.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = make(map[string]*bytes.Buffer)
	r.order = nil
	r.started = nil
	r.errors = nil
}

// TestDesign writes NegSimple into a temp directory and returns its path.
func TestDesign(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "negSimple.dig")
	if err := os.WriteFile(path, []byte(NegSimple), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestHistory creates a temporary SQLite history store that is automatically
// cleaned up.
func TestHistory(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
