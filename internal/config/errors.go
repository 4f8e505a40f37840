package config

import "errors"

var (
	ErrFailedToLoadConfig     = errors.New("failed to load config")
	ErrFailedToValidateConfig = errors.New("failed to validate config")
	ErrUnsupportedConfigVer   = errors.New("unsupported config version")
	ErrUnsupportedExtension   = errors.New("unsupported file extension")

	ErrInvalidHeader   = errors.New("invalid header")
	ErrInvalidKey      = errors.New("invalid crypto key")
	ErrInvalidFunction = errors.New("invalid function")
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrInvalidProperty = errors.New("invalid property")
	ErrInvalidSource   = errors.New("invalid source")
	ErrNoListener      = errors.New("no listener configured")
)
