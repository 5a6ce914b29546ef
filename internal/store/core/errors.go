package core

import "errors"

// ErrNotFound is returned when a record does not exist. Adapters translate
// their driver-specific sentinel into this one.
var ErrNotFound = errors.New("not found")
