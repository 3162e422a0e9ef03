package credential

import "errors"

// Credential store errors.
var (
	ErrTableFull      = errors.New("credential: table is at capacity")
	ErrNotFound       = errors.New("credential: no record for address")
	ErrCorruptFile    = errors.New("credential: record file is corrupt")
	ErrUnsupportedVersion = errors.New("credential: unsupported on-disk record version")
	ErrVerifyMismatch = errors.New("credential: reload after write did not match")
)
