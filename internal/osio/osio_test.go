package osio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/raido/internal/ide"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testAdapter(t *testing.T) (*Adapter, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := New(WithStreams(strings.NewReader(""), &stdout, &stderr), WithLogger(quietLogger()))
	t.Cleanup(a.Wait)
	return a, &stdout, &stderr
}

func writeAll(t *testing.T, a *Adapter, path, content string, overwrite bool) {
	t.Helper()
	w, err := a.OpenOutput(path, overwrite)
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenOutputCreatesSubdirs(t *testing.T) {
	a, _, _ := testAdapter(t)
	path := filepath.Join(t.TempDir(), "a", "b", "test.v")
	writeAll(t, a, path, "module m; endmodule\n", true)

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "module m; endmodule\n" {
		t.Errorf("content = %q", got)
	}
}

func TestOpenOutputReplacesAtomically(t *testing.T) {
	a, _, _ := testAdapter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "file1")
	writeAll(t, a, path, "original", true)
	writeAll(t, a, path, "updated", true)

	got, _ := os.ReadFile(path)
	if string(got) != "updated" {
		t.Errorf("content = %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".raido-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestOpenOutputKeepsExistingWithoutOverwrite(t *testing.T) {
	a, _, _ := testAdapter(t)
	path := filepath.Join(t.TempDir(), "board.pcf")
	writeAll(t, a, path, "user edits", true)
	writeAll(t, a, path, "generated", false)

	got, _ := os.ReadFile(path)
	if string(got) != "user edits" {
		t.Errorf("content = %q, existing file must be kept", got)
	}

	fresh := filepath.Join(t.TempDir(), "new.pcf")
	writeAll(t, a, fresh, "generated", false)
	got, _ = os.ReadFile(fresh)
	if string(got) != "generated" {
		t.Errorf("content = %q, missing file must be written", got)
	}
}

func TestOpenOutputFailure(t *testing.T) {
	a, _, _ := testAdapter(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := a.OpenOutput(filepath.Join(blocker, "child"), true); err == nil {
		t.Error("expected error when parent is a file")
	}
}

func TestStartProcessNonInteractive(t *testing.T) {
	a, stdout, _ := testAdapter(t)
	dir := t.TempDir()
	cmd := ide.Command{Name: "touch"}
	if err := a.StartProcess(context.Background(), cmd, dir, false, []string{"sh", "-c", "echo hi; echo done > out.txt"}); err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	a.Wait()

	got, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("process did not run in dir: %v", err)
	}
	if strings.TrimSpace(string(got)) != "done" {
		t.Errorf("out.txt = %q", got)
	}
	if stdout.Len() != 0 {
		t.Errorf("non-interactive output leaked: %q", stdout.String())
	}
}

func TestStartProcessInteractive(t *testing.T) {
	a, stdout, _ := testAdapter(t)
	if err := a.StartProcess(context.Background(), ide.Command{Name: "echo"}, t.TempDir(), true, []string{"echo", "hello"}); err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	a.Wait()
	if strings.TrimSpace(stdout.String()) != "hello" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestStartProcessErrors(t *testing.T) {
	a, _, _ := testAdapter(t)
	cmd := ide.Command{Name: "x"}
	if err := a.StartProcess(context.Background(), cmd, t.TempDir(), false, nil); err == nil {
		t.Error("expected error for empty args")
	}
	if err := a.StartProcess(context.Background(), cmd, t.TempDir(), false, []string{"raido-no-such-binary"}); err == nil {
		t.Error("expected error for missing binary")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.StartProcess(ctx, cmd, t.TempDir(), false, []string{"true"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestReportError(t *testing.T) {
	a, _, stderr := testAdapter(t)
	a.ReportError(ide.Command{Name: "prog"}, errors.New("boom"))
	if got := stderr.String(); got != "prog: boom\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestExecutorWithAdapter(t *testing.T) {
	a, _, _ := testAdapter(t)
	dir := t.TempDir()
	design := filepath.Join(dir, "negSimple.dig")
	if err := os.WriteFile(design, []byte("name: negSimple\ninputs:\n  - name: A\noutputs:\n  - name: Y\nparts:\n  - element: Not\n    inputs: [A]\n    output: Y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := ide.New("sim", []ide.Command{{
		Name:     "check",
		Requires: "verilog",
		Filter:   true,
		Args:     []string{"sh", "-c", "cp <path> copied.v"},
	}}, []ide.File{{Name: "<shortname>.ys", Overwrite: true, Filter: true, Content: "read_verilog <dir>/<shortname>.v"}})
	if err != nil {
		t.Fatal(err)
	}

	e := ide.NewExecutor(cfg, a, ide.WithDesignPath(design), ide.WithLogger(quietLogger()))
	if _, err := e.Execute(context.Background(), cfg.Commands()[0], false); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	a.Wait()

	artifact := filepath.Join(dir, "negSimple.v")
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
	ys, _ := os.ReadFile(filepath.Join(dir, "negSimple.ys"))
	if string(ys) != "read_verilog "+artifact {
		t.Errorf("script = %q", ys)
	}
	copied, err := os.ReadFile(filepath.Join(dir, "copied.v"))
	if err != nil || !strings.Contains(string(copied), "module negSimple") {
		t.Errorf("process did not see artifact: %v", err)
	}
}
