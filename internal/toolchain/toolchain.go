package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Identifies a toolchain by rustup channel (e.g., "stable", "1.78.0").
type Spec struct {
	Channel  string // Rustup channel or version.
	Required bool   // Whether resolution must fail when the toolchain is absent.
}

// External capability for managing toolchains.
//
// The real implementation shells out to rustup; tests substitute fakes
// implementing the same contract.
type Installer interface {

	// Reports whether the toolchain is present on the machine.
	IsInstalled(ctx context.Context, spec Spec) (bool, error)

	// Installs the toolchain.
	Install(ctx context.Context, spec Spec) error

	// Verifies the toolchain is usable. Activation for the build session
	// itself is handled by [Active.Environ]; Activate must not mutate any
	// machine-wide default.
	Activate(ctx context.Context, spec Spec) error

	// Ensures the standard library for the given target triple is present
	// in the toolchain.
	AddTarget(ctx context.Context, spec Spec, triple string) error
}

// A toolchain resolved and activated for the current build session.
type Active struct {
	Spec Spec
}

// Returns the environment entries that scope compiler invocations to this
// toolchain.
//
// Activation works by env injection per command rather than by mutating the
// machine-wide rustup default, so concurrent projects on the same machine
// never interfere.
func (a *Active) Environ() []string {
	return []string{"RUSTUP_TOOLCHAIN=" + a.Spec.Channel}
}

// Resolves and activates toolchains for one build session.
//
// Exactly one toolchain is active per session. Resolution is idempotent:
// resolving the same spec again returns the already-active toolchain without
// touching the installer. Resolving a different spec while one is active is
// an error. The mutex serializes resolution so two concurrent builds sharing
// a session cannot race the activation.
type Session struct {
	installer   Installer
	autoInstall bool

	mu     sync.Mutex
	active *Active
}

// Creates a session backed by the given installer.
//
// When autoInstall is true, a missing toolchain is installed before
// activation. When false, a missing toolchain is a hard failure so builds
// stay reproducible and auditable.
func NewSession(installer Installer, autoInstall bool) *Session {
	return &Session{installer: installer, autoInstall: autoInstall}
}

// Resolves the spec to an active toolchain.
//
// Checks installation, optionally installs, and activates the toolchain for
// this session. Calling Resolve twice with the same spec yields the same
// [Active] with no further installer side effects.
func (s *Session) Resolve(ctx context.Context, spec Spec) (*Active, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		if s.active.Spec == spec {
			slog.Debug("toolchain already active", "channel", spec.Channel)
			return s.active, nil
		}
		return nil, fmt.Errorf("%w: %q is active, cannot activate %q", ErrSessionConflict, s.active.Spec.Channel, spec.Channel)
	}

	installed, err := s.installer.IsInstalled(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolchain, err)
	}

	if !installed {
		if !s.autoInstall {
			return nil, fmt.Errorf("%w: %q (run 'rustup toolchain install %s' or pass --auto-install)", ErrNotInstalled, spec.Channel, spec.Channel)
		}
		slog.Info("installing toolchain", "channel", spec.Channel)
		if err := s.installer.Install(ctx, spec); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInstallFailed, spec.Channel, err)
		}
	}

	if err := s.installer.Activate(ctx, spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolchain, err)
	}

	s.active = &Active{Spec: spec}
	slog.Info("toolchain active", "channel", spec.Channel)
	return s.active, nil
}

// Ensures the standard library for the target triple is available in the
// active toolchain.
//
// Must be called after [Session.Resolve].
func (s *Session) EnsureTarget(ctx context.Context, triple string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return fmt.Errorf("%w: no toolchain active", ErrToolchain)
	}

	if err := s.installer.AddTarget(ctx, s.active.Spec, triple); err != nil {
		return fmt.Errorf("%w: target %q: %v", ErrToolchain, triple, err)
	}
	return nil
}
