package config

import "reflect"

// Equals reports whether c and other describe the same configuration.
func (c *Config) Equals(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	return reflect.DeepEqual(c, other)
}
