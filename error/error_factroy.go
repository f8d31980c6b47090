package error

import "errors"

var (
	InvalidAddress  = errors.New("invalid address")
	InvalidWidth    = errors.New("invalid width")
	InvalidCount    = errors.New("invalid character count")
	UnknownEncoding = errors.New("unknown string encoding")
	UnknownCommand  = errors.New("unknown command")
)
