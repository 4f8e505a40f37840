package config

import (
	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
)

func scriptSource(src string) descriptor.Descriptor {
	return descriptor.Descriptor{Source: src, Type: "text/starlark"}
}
