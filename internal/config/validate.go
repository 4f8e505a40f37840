package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/atlanticdynamic/scriptgate/internal/crypto"
	"github.com/atlanticdynamic/scriptgate/internal/script/capability"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
	"golang.org/x/net/http/httpguts"
)

// Validate checks the whole configuration and returns every problem found,
// joined.
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = VersionUnknown
	}
	if c.Version != VersionLatest {
		return fmt.Errorf("%w: %s", ErrUnsupportedConfigVer, c.Version)
	}

	var errs []error
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	errs = append(errs, c.Server.validate()...)

	for name := range c.Properties {
		if gateway.IsProtected(name) {
			errs = append(errs, fmt.Errorf("%w: %q is a protected binding", ErrInvalidProperty, name))
		}
	}

	for i, s := range c.Sources {
		if strings.TrimSpace(s.Path) == "" {
			errs = append(errs, fmt.Errorf("%w: source at index %d has an empty path", ErrInvalidSource, i))
		}
	}

	if _, err := c.CryptoConfig(); err != nil {
		errs = append(errs, fmt.Errorf("crypto: %w", err))
	}

	functionNames := make(map[string]bool, len(c.Functions))
	for i, fn := range c.Functions {
		switch {
		case strings.TrimSpace(fn.Name) == "":
			errs = append(errs, fmt.Errorf("%w: function at index %d has an empty name", ErrInvalidFunction, i))
		case capability.IsReserved(fn.Name):
			errs = append(errs, fmt.Errorf("%w: %q is a reserved name", ErrInvalidFunction, fn.Name))
		case functionNames[fn.Name]:
			errs = append(errs, fmt.Errorf("%w: duplicate function name: %s", ErrInvalidFunction, fn.Name))
		}
		functionNames[fn.Name] = true
		if fn.Script.IsEmpty() {
			errs = append(errs, fmt.Errorf("%w: function %q has no script", ErrInvalidFunction, fn.Name))
		}
	}

	scheduleNames := make(map[string]bool, len(c.Schedules))
	for i, s := range c.Schedules {
		switch {
		case strings.TrimSpace(s.Name) == "":
			errs = append(errs, fmt.Errorf("%w: schedule at index %d has an empty name", ErrInvalidSchedule, i))
		case scheduleNames[s.Name]:
			errs = append(errs, fmt.Errorf("%w: duplicate schedule name: %s", ErrInvalidSchedule, s.Name))
		}
		scheduleNames[s.Name] = true
		if s.Interval <= 0 {
			errs = append(errs, fmt.Errorf("%w: schedule %q needs a positive interval", ErrInvalidSchedule, s.Name))
		}
		if s.Script.IsEmpty() {
			errs = append(errs, fmt.Errorf("%w: schedule %q has no script", ErrInvalidSchedule, s.Name))
		}
	}

	return errors.Join(errs...)
}

func (s Server) validate() []error {
	var errs []error
	if s.HTTPListen == "" && s.GRPCListen == "" {
		errs = append(errs, ErrNoListener)
	}
	if s.MCP && s.HTTPListen == "" {
		errs = append(errs, fmt.Errorf("server: mcp requires http_listen"))
	}
	for name, value := range s.Headers {
		if !httpguts.ValidHeaderFieldName(name) {
			errs = append(errs, fmt.Errorf("%w: name %q", ErrInvalidHeader, name))
			continue
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			errs = append(errs, fmt.Errorf("%w: value for %q", ErrInvalidHeader, http.CanonicalHeaderKey(name)))
		}
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.DrainTimeout < 0 {
		errs = append(errs, fmt.Errorf("server: timeouts must not be negative"))
	}
	return errs
}

// CryptoConfig decodes the key aliases and checks the crypto defaults.
func (c *Config) CryptoConfig() (crypto.Config, error) {
	out := crypto.Config{
		DefaultHashAlgorithm: c.Crypto.DefaultHashAlgorithm,
		DefaultCipher:        c.Crypto.DefaultCipher,
		Keys:                 make(map[string][]byte, len(c.Crypto.Keys)),
	}

	var errs []error
	for alias, encoded := range c.Crypto.Keys {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: alias %q is not base64", ErrInvalidKey, alias))
			continue
		}
		out.Keys[alias] = key
	}
	if len(errs) > 0 {
		return crypto.Config{}, errors.Join(errs...)
	}

	if _, err := crypto.NewService(out); err != nil {
		return crypto.Config{}, err
	}
	return out, nil
}
