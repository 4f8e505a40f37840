package cache

import (
	"crypto/sha1" //nolint:gosec // content addressing, not a security boundary
	"encoding/hex"
	"strings"

	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
)

// Hasher derives a stable name from script source and type.
type Hasher func(source, scriptType string) (string, error)

// SHA1Name returns the uppercase hex SHA-1 of source followed by scriptType.
func SHA1Name(source, scriptType string) (string, error) {
	h := sha1.New() //nolint:gosec
	if _, err := h.Write([]byte(source)); err != nil {
		return "", err
	}
	if _, err := h.Write([]byte(scriptType)); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}

// Resolve assigns the descriptor's name. An explicit name is kept, a file path
// becomes the name, and inline source is named by its content hash. When
// hashing fails the descriptor is returned unnamed along with the hash error,
// which callers treat as non-fatal.
func Resolve(d descriptor.Descriptor, hasher Hasher) (descriptor.Descriptor, error) {
	switch {
	case d.Name != "":
		return d, nil
	case d.File != "":
		d.Name = d.File
		return d, nil
	case d.Source != "":
		name, err := hasher(d.Source, d.Type)
		if err != nil {
			return d, err
		}
		d.Name = name
		return d, nil
	default:
		return d, fault.ClientInput("script descriptor requires one of name, file or source")
	}
}
