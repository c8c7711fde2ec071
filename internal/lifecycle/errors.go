package lifecycle

import "errors"

// Rejection kinds. Returned errors wrap one of these with a detail message,
// except ErrForbidden which is returned bare so callers learn nothing about
// why a secret was refused.
var (
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("invalid callback secret")
	ErrNotFound   = errors.New("record not found")
)
