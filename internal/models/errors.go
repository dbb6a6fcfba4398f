package models

import "errors"

// ErrDuplicate is reported by storage when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")
