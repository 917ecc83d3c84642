package sandbox

import "errors"

var ErrSandbox = errors.New("sandbox error")
