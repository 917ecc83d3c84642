package project

import "errors"

var (
	ErrManifest        = errors.New("invalid cargo manifest")
	ErrNoFunctions     = errors.New("no functions to build")
	ErrUnknownFunction = errors.New("unknown function")
)
