package core

import "errors"

// ErrUnknownModule is returned when no module is registered under an ID.
var ErrUnknownModule = errors.New("core: unknown module")
