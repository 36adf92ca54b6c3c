package directory

import "errors"

// ErrNoResults is returned when an exact lookup matches nothing.
var ErrNoResults = errors.New("no matching records")
