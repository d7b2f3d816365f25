// Package osio implements the executor's IO boundary on the local file
// system and OS processes.
package osio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/starford/raido/internal/ide"
)

// Adapter implements ide.IO with real files and processes.
type Adapter struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	wg sync.WaitGroup
}

var _ ide.IO = (*Adapter)(nil)

// Option is a functional option for configuring an Adapter.
type Option func(*Adapter)

// WithStreams sets the streams attached to interactive processes. stderr
// also receives error reports.
func WithStreams(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(a *Adapter) {
		a.stdin, a.stdout, a.stderr = stdin, stdout, stderr
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// New creates an Adapter attached to the process's standard streams.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OpenOutput returns a writer that atomically replaces path on Close:
// tmp file → fsync → rename. Parent directories are created. With
// overwrite=false and an existing target, writes are discarded and the
// existing file is kept.
func (a *Adapter) OpenOutput(path string, overwrite bool) (io.WriteCloser, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			a.logger.Debug("osio: keeping existing file", slog.String("path", path))
			return nopWriteCloser{io.Discard}, nil
		}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("osio: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".raido-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("osio: create temp: %w", err)
	}
	return &atomicFile{tmp: tmp, target: path}, nil
}

// StartProcess starts args[0] in dir without waiting for it. Interactive
// processes share the adapter's streams; others have their output
// discarded. Exit status is logged when the process ends.
func (a *Adapter) StartProcess(ctx context.Context, cmd ide.Command, dir string, interactive bool, args []string) error {
	if len(args) == 0 {
		return errors.New("osio: empty argument list")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// Not bound to ctx: the process outlives the request that started it.
	c := exec.Command(args[0], args[1:]...)
	c.Dir = dir
	if interactive {
		c.Stdin, c.Stdout, c.Stderr = a.stdin, a.stdout, a.stderr
	}
	if err := c.Start(); err != nil {
		return fmt.Errorf("osio: start %s: %w", args[0], err)
	}
	a.logger.Info("osio: process started",
		slog.String("command", cmd.Name),
		slog.String("program", args[0]),
		slog.Int("pid", c.Process.Pid))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := c.Wait(); err != nil {
			a.logger.Warn("osio: process failed",
				slog.String("command", cmd.Name),
				slog.String("error", err.Error()))
			return
		}
		a.logger.Info("osio: process finished", slog.String("command", cmd.Name))
	}()
	return nil
}

// ReportError logs err and prints it to the error stream.
func (a *Adapter) ReportError(cmd ide.Command, err error) {
	a.logger.Error("command failed", slog.String("command", cmd.Name), slog.String("error", err.Error()))
	fmt.Fprintf(a.stderr, "%s: %v\n", cmd.Name, err)
}

// Wait blocks until every process started by the adapter has exited.
func (a *Adapter) Wait() {
	a.wg.Wait()
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// atomicFile buffers writes in a temp file next to target and renames it
// into place on Close. A failed write or close removes the temp file.
type atomicFile struct {
	tmp    *os.File
	target string
	failed bool
	closed bool
}

func (f *atomicFile) Write(p []byte) (int, error) {
	n, err := f.tmp.Write(p)
	if err != nil {
		f.failed = true
	}
	return n, err
}

func (f *atomicFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	tmpName := f.tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = f.tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if f.failed {
		return fmt.Errorf("osio: write to %s failed", f.target)
	}
	if err := f.tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("osio: chmod: %w", err)
	}
	if err := f.tmp.Sync(); err != nil {
		return fmt.Errorf("osio: fsync: %w", err)
	}
	if err := f.tmp.Close(); err != nil {
		return fmt.Errorf("osio: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.target); err != nil {
		return fmt.Errorf("osio: rename: %w", err)
	}
	success = true
	return nil
}
