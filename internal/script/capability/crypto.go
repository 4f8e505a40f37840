package capability

import (
	"context"
	"errors"

	"github.com/atlanticdynamic/scriptgate/internal/crypto"
	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
)

// CryptoProvider owns the crypto group in the registry.
const CryptoProvider = "crypto"

// CryptoService is the subset of *crypto.Service the crypto group needs.
type CryptoService interface {
	Hash(value any, algorithm string) (any, error)
	Encrypt(value any, cipherName, alias string) (any, error)
	Decrypt(value any) (any, error)
	IsEncrypted(value any) bool
	IsHashed(value any) bool
	Matches(plain string, value any) (bool, error)
}

// BindCrypto installs hash, encrypt, decrypt, isEncrypted, isHashed and matches.
func BindCrypto(r *Registry, svc CryptoService) {
	r.installGroup(CryptoProvider, CryptoFunctions(svc))
}

// UnbindCrypto removes the crypto group.
func UnbindCrypto(r *Registry) {
	r.RemoveProvider(CryptoProvider)
}

// CryptoFunctions builds the crypto group without registering it.
func CryptoFunctions(svc CryptoService) map[string]Function {
	return map[string]Function{
		"hash": func(_ context.Context, args ...any) (any, error) {
			if len(args) < 1 || len(args) > 2 || !isJSONValue(args[0]) {
				return nil, noSignature("hash", args)
			}
			var algorithm string
			if len(args) == 2 {
				var ok bool
				if algorithm, ok = optionalString(args[1]); !ok {
					return nil, noSignature("hash", args)
				}
			}
			return cryptoResult(svc.Hash(args[0], algorithm))
		},

		"encrypt": func(_ context.Context, args ...any) (any, error) {
			var cipherName, alias string
			ok := len(args) >= 1 && isJSONValue(args[0])
			switch {
			case ok && len(args) == 2:
				alias, ok = args[1].(string)
			case ok && len(args) == 3:
				cipherName, ok = optionalString(args[1])
				if ok {
					alias, ok = args[2].(string)
				}
			default:
				ok = false
			}
			if !ok {
				return nil, noSignature("encrypt", args)
			}
			return cryptoResult(svc.Encrypt(args[0], cipherName, alias))
		},

		"decrypt": func(_ context.Context, args ...any) (any, error) {
			if len(args) != 1 {
				return nil, noSignature("decrypt", args)
			}
			if _, ok := args[0].(map[string]any); !ok {
				return nil, noSignature("decrypt", args)
			}
			return cryptoResult(svc.Decrypt(args[0]))
		},

		"isEncrypted": func(_ context.Context, args ...any) (any, error) {
			if len(args) == 0 {
				return false, nil
			}
			return svc.IsEncrypted(args[0]), nil
		},

		"isHashed": func(_ context.Context, args ...any) (any, error) {
			if len(args) == 0 {
				return false, nil
			}
			return svc.IsHashed(args[0]), nil
		},

		"matches": func(_ context.Context, args ...any) (any, error) {
			if len(args) < 2 {
				return false, nil
			}
			plain, ok := scalarText(args[0])
			if !ok || len(args) > 2 {
				return nil, noSignature("matches", args)
			}
			return cryptoResult(svc.Matches(plain, args[1]))
		},
	}
}

func cryptoResult[T any](v T, err error) (any, error) {
	if err == nil {
		return v, nil
	}
	switch {
	case errors.Is(err, crypto.ErrUnsupportedAlgorithm),
		errors.Is(err, crypto.ErrUnknownKey),
		errors.Is(err, crypto.ErrNotEncrypted),
		errors.Is(err, crypto.ErrNotHashed):
		return nil, fault.Wrap(fault.KindClientInput, err, "")
	default:
		return nil, fault.Internal(err)
	}
}
