package logs

import "errors"

var (
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogOutput = errors.New("invalid log output")
)
