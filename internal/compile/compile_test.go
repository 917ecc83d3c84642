package compile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/crateship/crateship/internal/project"
	"github.com/crateship/crateship/internal/target"
	"github.com/crateship/crateship/internal/toolchain"
)

// Compiler fake returning a fixed exit code.
type fakeCompiler struct {
	exitCode int
	output   []string
	err      error

	invocations []Invocation
}

func (f *fakeCompiler) Invoke(ctx context.Context, inv Invocation, diags *Diagnostics) (int, error) {
	f.invocations = append(f.invocations, inv)
	if f.err != nil {
		return 0, f.err
	}
	for _, line := range f.output {
		diags.Append(line)
	}
	return f.exitCode, nil
}

func testRequest(t *testing.T, root string, active *toolchain.Active) Request {
	t.Helper()
	tgt, err := target.Validate("x86_64-unknown-linux-gnu")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	return Request{
		Root:      root,
		Target:    tgt,
		Profile:   Release,
		Jobs:      4,
		Toolchain: active,
		Functions: []project.Function{{Name: "handler", Dir: root}},
	}
}

func writeBinary(t *testing.T, req Request, name string) string {
	t.Helper()
	dir := OutputDir(req.Root, req.Target, req.Profile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll returned error: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("\x7fELF"), 0o755); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	return path
}

func TestCompile(t *testing.T) {
	root := t.TempDir()
	active := &toolchain.Active{Spec: toolchain.Spec{Channel: "stable"}}
	req := testRequest(t, root, active)
	path := writeBinary(t, req, "handler")

	compiler := &fakeCompiler{output: []string{"Compiling handler v0.1.0", "Finished release"}}
	runner := &Runner{Compiler: compiler, Stream: func() *Diagnostics { return NewDiagnostics(nil) }}

	result, err := runner.Compile(context.Background(), req)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !result.Success {
		t.Fatal("Success = false, want true")
	}
	if result.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", result.ExitCode)
	}
	if len(result.Binaries) != 1 {
		t.Fatalf("len(Binaries) = %d, want 1", len(result.Binaries))
	}
	if result.Binaries[0].Path != path {
		t.Fatalf("binary path = %q, want %q", result.Binaries[0].Path, path)
	}
	if result.Diagnostics.Len() != 2 {
		t.Fatalf("diagnostics lines = %d, want 2", result.Diagnostics.Len())
	}
}

func TestCompileFailure(t *testing.T) {
	root := t.TempDir()
	active := &toolchain.Active{Spec: toolchain.Spec{Channel: "stable"}}
	req := testRequest(t, root, active)

	compiler := &fakeCompiler{exitCode: 101, output: []string{"error[E0308]: mismatched types"}}
	runner := &Runner{Compiler: compiler, Stream: func() *Diagnostics { return NewDiagnostics(nil) }}

	result, err := runner.Compile(context.Background(), req)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if result.ExitCode != 101 {
		t.Fatalf("ExitCode = %d, want 101", result.ExitCode)
	}
	if len(result.Binaries) != 0 {
		t.Fatalf("len(Binaries) = %d, want 0", len(result.Binaries))
	}
	if result.Diagnostics.Len() == 0 {
		t.Fatal("diagnostics empty, want compiler output")
	}
}

func TestCompileCompilerUnavailable(t *testing.T) {
	root := t.TempDir()
	active := &toolchain.Active{Spec: toolchain.Spec{Channel: "stable"}}
	req := testRequest(t, root, active)

	compiler := &fakeCompiler{err: errors.New("cargo: executable not found")}
	runner := &Runner{Compiler: compiler, Stream: func() *Diagnostics { return NewDiagnostics(nil) }}

	_, err := runner.Compile(context.Background(), req)
	if !errors.Is(err, ErrCompilerUnavailable) {
		t.Fatalf("Compile error = %v, want ErrCompilerUnavailable", err)
	}
}

func TestCompileMissingArtifact(t *testing.T) {
	root := t.TempDir()
	active := &toolchain.Active{Spec: toolchain.Spec{Channel: "stable"}}
	req := testRequest(t, root, active)

	compiler := &fakeCompiler{}
	runner := &Runner{Compiler: compiler, Stream: func() *Diagnostics { return NewDiagnostics(nil) }}

	_, err := runner.Compile(context.Background(), req)
	if !errors.Is(err, ErrNoArtifact) {
		t.Fatalf("Compile error = %v, want ErrNoArtifact", err)
	}
}

func TestInvocationArgs(t *testing.T) {
	root := t.TempDir()
	active := &toolchain.Active{Spec: toolchain.Spec{Channel: "1.78.0"}}
	req := testRequest(t, root, active)
	req.Functions = append(req.Functions, project.Function{Name: "worker", Dir: root})

	inv := invocation(req)
	want := []string{
		"build",
		"--target", "x86_64-unknown-linux-gnu",
		"--jobs", "4",
		"--locked",
		"--release",
		"--bin", "handler",
		"--bin", "worker",
	}
	if !reflect.DeepEqual(inv.Args, want) {
		t.Fatalf("Args = %v, want %v", inv.Args, want)
	}
	if inv.Root != root {
		t.Fatalf("Root = %q, want %q", inv.Root, root)
	}
	if inv.Platform != "linux/amd64" {
		t.Fatalf("Platform = %q, want linux/amd64", inv.Platform)
	}
}

func TestInvocationDebugProfile(t *testing.T) {
	root := t.TempDir()
	active := &toolchain.Active{Spec: toolchain.Spec{Channel: "stable"}}
	req := testRequest(t, root, active)
	req.Profile = Debug

	inv := invocation(req)
	for _, arg := range inv.Args {
		if arg == "--release" {
			t.Fatal("debug invocation contains --release")
		}
	}
}

func TestInvocationEnv(t *testing.T) {
	root := t.TempDir()
	active := &toolchain.Active{Spec: toolchain.Spec{Channel: "stable"}}
	tgt, err := target.Validate("x86_64-unknown-linux-musl")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	req := testRequest(t, root, active)
	req.Target = tgt

	inv := invocation(req)
	want := []string{
		"RUSTUP_TOOLCHAIN=stable",
		"RUSTFLAGS=-C target-feature=+crt-static",
	}
	if !reflect.DeepEqual(inv.Env, want) {
		t.Fatalf("Env = %v, want %v", inv.Env, want)
	}
}

func TestInvocationDeterministic(t *testing.T) {
	root := t.TempDir()
	active := &toolchain.Active{Spec: toolchain.Spec{Channel: "stable"}}
	req := testRequest(t, root, active)

	first := invocation(req)
	second := invocation(req)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("invocation not deterministic: %+v vs %+v", first, second)
	}
}

func TestOutputDir(t *testing.T) {
	tgt, err := target.Validate("aarch64-unknown-linux-gnu")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	got := OutputDir("/work/app", tgt, Release)
	want := filepath.Join("/work/app", "target", "aarch64-unknown-linux-gnu", "release")
	if got != want {
		t.Fatalf("OutputDir = %q, want %q", got, want)
	}
}

func TestProfileValid(t *testing.T) {
	if !Debug.Valid() || !Release.Valid() {
		t.Fatal("known profiles reported invalid")
	}
	if Profile("bench").Valid() {
		t.Fatal("unknown profile reported valid")
	}
}
