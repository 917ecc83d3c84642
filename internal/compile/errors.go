package compile

import "errors"

var (
	ErrCompilerUnavailable = errors.New("compiler could not be run")
	ErrNoArtifact          = errors.New("compiler reported success but artifact is missing")
)
