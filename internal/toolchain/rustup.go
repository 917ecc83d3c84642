package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Installer backed by the rustup binary.
type Rustup struct {
	Bin string // Path to the rustup binary. Empty uses "rustup" from PATH.
}

// Reports whether the channel appears in rustup's installed toolchain list.
//
// The match is by prefix because rustup lists fully qualified names
// (e.g., "stable-x86_64-unknown-linux-gnu") for channel installs.
func (r *Rustup) IsInstalled(ctx context.Context, spec Spec) (bool, error) {
	out, err := r.run(ctx, "toolchain", "list")
	if err != nil {
		return false, err
	}

	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSuffix(strings.TrimSpace(line), " (default)")
		name, _, _ = strings.Cut(name, " ")
		if name == spec.Channel || strings.HasPrefix(name, spec.Channel+"-") {
			return true, nil
		}
	}
	return false, nil
}

// Installs the channel with the minimal profile.
func (r *Rustup) Install(ctx context.Context, spec Spec) error {
	_, err := r.run(ctx, "toolchain", "install", spec.Channel, "--profile", "minimal")
	return err
}

// Verifies the toolchain resolves a working cargo.
//
// No rustup default is changed; session scoping happens via
// RUSTUP_TOOLCHAIN env injection on each compiler invocation.
func (r *Rustup) Activate(ctx context.Context, spec Spec) error {
	out, err := r.run(ctx, "which", "--toolchain", spec.Channel, "cargo")
	if err != nil {
		return err
	}
	slog.Debug("toolchain verified", "channel", spec.Channel, "cargo", strings.TrimSpace(out))
	return nil
}

// Adds the target triple's standard library to the toolchain.
//
// Rustup treats an already-installed target as a no-op, so this is safe to
// call on every build.
func (r *Rustup) AddTarget(ctx context.Context, spec Spec, triple string) error {
	_, err := r.run(ctx, "target", "add", triple, "--toolchain", spec.Channel)
	return err
}

// Runs rustup with the given arguments and returns its combined output.
func (r *Rustup) run(ctx context.Context, args ...string) (string, error) {
	bin := r.Bin
	if bin == "" {
		bin = "rustup"
	}

	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("rustup %s: %v: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
