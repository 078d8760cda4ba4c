package store

import "errors"

// ErrNotFound is returned when a requested snapshot does not exist.
var ErrNotFound = errors.New("not found")
