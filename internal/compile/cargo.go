package compile

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"
)

// Compiler backend that runs cargo on the host.
type Cargo struct {
	Bin string // Path to the cargo binary. Empty uses "cargo" from PATH.
}

// Runs cargo as a child process.
//
// Stdout and stderr are pumped concurrently into the diagnostics so output
// appears in arrival order while the build runs. The child inherits the host
// environment with the invocation's entries appended, which is how the
// session-scoped toolchain and target flags reach cargo. Context cancellation
// kills the child process.
func (c *Cargo) Invoke(ctx context.Context, inv Invocation, diags *Diagnostics) (int, error) {
	bin := c.Bin
	if bin == "" {
		bin = "cargo"
	}

	cmd := exec.CommandContext(ctx, bin, inv.Args...)
	cmd.Dir = inv.Root
	cmd.Env = append(os.Environ(), inv.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, err
	}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	var g errgroup.Group
	g.Go(func() error { return pumpLines(stdout, diags) })
	g.Go(func() error { return pumpLines(stderr, diags) })
	pumpErr := g.Wait()

	err = cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, err
	}
	if pumpErr != nil {
		return 0, pumpErr
	}

	return 0, nil
}

// Reads lines from a compiler output stream into the diagnostics.
func pumpLines(r io.Reader, diags *Diagnostics) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		diags.Append(scanner.Text())
	}
	return scanner.Err()
}
