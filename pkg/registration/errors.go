package registration

import "errors"

// ErrInvalidPSNAccountID is returned when a PSN account id string is
// neither valid base64 of 8 bytes nor a 16-character hex string.
var ErrInvalidPSNAccountID = errors.New("registration: PSN account id is not valid base64 or 16-character hex")
