package crypto

import (
	"errors"
	"fmt"
)

var (
	// ErrCrypto is the base error for this package.
	ErrCrypto = errors.New("crypto error")

	ErrUnsupportedAlgorithm = fmt.Errorf("%w: unsupported algorithm", ErrCrypto)
	ErrUnknownKey           = fmt.Errorf("%w: unknown key alias", ErrCrypto)
	ErrInvalidKey           = fmt.Errorf("%w: invalid key", ErrCrypto)
	ErrNotEncrypted         = fmt.Errorf("%w: value is not encrypted", ErrCrypto)
	ErrNotHashed            = fmt.Errorf("%w: value is not hashed", ErrCrypto)
	ErrDecryptFailed        = fmt.Errorf("%w: decryption failed", ErrCrypto)
)
