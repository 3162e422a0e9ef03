package discovery

import "errors"

// Discovery errors.
var (
	ErrMalformedResponse = errors.New("discovery: malformed response")
	ErrClosed            = errors.New("discovery: manager is closed")
	ErrAlreadyScanning   = errors.New("discovery: scan already in progress")
	ErrResultsTableFull  = errors.New("discovery: results table is at capacity")
)
