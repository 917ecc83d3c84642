package toolchain

import "context"

// Installer for environments where the toolchain is already provided, such
// as a sandbox image that ships cargo and the target standard libraries.
//
// Every operation succeeds without touching the host; activation is still
// scoped to the session via [Active.Environ].
type Preinstalled struct{}

func (Preinstalled) IsInstalled(ctx context.Context, spec Spec) (bool, error) { return true, nil }

func (Preinstalled) Install(ctx context.Context, spec Spec) error { return nil }

func (Preinstalled) Activate(ctx context.Context, spec Spec) error { return nil }

func (Preinstalled) AddTarget(ctx context.Context, spec Spec, triple string) error { return nil }
