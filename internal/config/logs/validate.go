package logs

import (
	"errors"
	"fmt"

	"github.com/atlanticdynamic/scriptgate/internal/logging/writers"
)

// Validate checks format, level and output.
func (lc *Config) Validate() error {
	var errs []error

	if !lc.Format.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidLogFormat, lc.Format))
	}
	if !lc.Level.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidLogLevel, lc.Level))
	}
	if err := writers.ValidateOutput(lc.Output); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidLogOutput, err))
	}

	return errors.Join(errs...)
}
