package toolchain

import "errors"

var (
	ErrToolchain       = errors.New("toolchain error")
	ErrNotInstalled    = errors.New("toolchain not installed")
	ErrInstallFailed   = errors.New("toolchain install failed")
	ErrSessionConflict = errors.New("toolchain session conflict")
)
