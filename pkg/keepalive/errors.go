package keepalive

import "errors"

// ErrAlreadyActive is returned by Start when called more than once on the
// same Keepalive without an intervening Stop.
var ErrAlreadyActive = errors.New("keepalive: Start has already been called")
