package target

import "errors"

var ErrUnsupportedTarget = errors.New("unsupported target")
