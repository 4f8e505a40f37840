package cache

import (
	"log/slog"

	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
)

type Option func(*Cache)

// WithLogger sets a custom logger for the Cache.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithLogHandler sets a custom log handler for the Cache.
func WithLogHandler(handler slog.Handler) Option {
	return func(c *Cache) {
		c.logger = slog.New(handler).WithGroup("script.Cache")
	}
}

// WithHasher replaces the content hash used to name inline scripts.
func WithHasher(h Hasher) Option {
	return func(c *Cache) {
		c.hasher = h
	}
}

// WithObserver sets the receiver of compile and hit events.
func WithObserver(o Observer) Option {
	return func(c *Cache) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLoader sets the loader used for file descriptors.
func WithLoader(l SourceLoader) Option {
	return func(c *Cache) {
		c.SetLoader(l)
	}
}

// WithEngines registers engines at construction.
func WithEngines(engines ...engine.Engine) Option {
	return func(c *Cache) {
		for _, e := range engines {
			c.engines[e.Type()] = e
		}
	}
}
