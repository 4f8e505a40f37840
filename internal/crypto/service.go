// Package crypto implements the hashing and encryption service exposed to
// scripts. Protected values are JSON envelopes so they can be stored in
// resources and recognized later by IsEncrypted and IsHashed.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"maps"
	"reflect"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/chacha20poly1305"
)

// Supported algorithms and ciphers.
const (
	HashSHA256 = "SHA-256"
	HashSHA512 = "SHA-512"
	HashBcrypt = "BCRYPT"

	CipherAESGCM            = "AES/GCM/NoPadding"
	CipherXChaCha20Poly1305 = "XCHACHA20-POLY1305"
)

// Config configures a Service.
type Config struct {
	DefaultHashAlgorithm string
	DefaultCipher        string
	// Keys maps an alias to raw key bytes.
	Keys map[string][]byte
}

// Service hashes, encrypts and decrypts JSON-compatible values.
type Service struct {
	defaultHash   string
	defaultCipher string
	keys          map[string][]byte
	random        io.Reader
}

// NewService validates cfg and builds a Service.
func NewService(cfg Config) (*Service, error) {
	s := &Service{
		defaultHash:   HashSHA256,
		defaultCipher: CipherAESGCM,
		keys:          maps.Clone(cfg.Keys),
		random:        rand.Reader,
	}
	if cfg.DefaultHashAlgorithm != "" {
		s.defaultHash = strings.ToUpper(cfg.DefaultHashAlgorithm)
	}
	if cfg.DefaultCipher != "" {
		s.defaultCipher = canonicalCipher(cfg.DefaultCipher)
	}

	if _, err := hashFunc(s.defaultHash); err != nil && s.defaultHash != HashBcrypt {
		return nil, err
	}
	if s.defaultCipher == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, cfg.DefaultCipher)
	}
	for alias, key := range s.keys {
		if len(key) != 16 && len(key) != 24 && len(key) != 32 {
			return nil, fmt.Errorf("%w: alias %q must be 16, 24 or 32 bytes", ErrInvalidKey, alias)
		}
	}
	return s, nil
}

// DefaultHashAlgorithm is used when Hash receives an empty algorithm.
func (s *Service) DefaultHashAlgorithm() string { return s.defaultHash }

// DefaultCipher is used when Encrypt receives an empty cipher.
func (s *Service) DefaultCipher() string { return s.defaultCipher }

// Hash returns a salted-hash envelope of value.
func (s *Service) Hash(value any, algorithm string) (any, error) {
	if algorithm == "" {
		algorithm = s.defaultHash
	}
	algorithm = strings.ToUpper(algorithm)

	plain, err := plaintext(value)
	if err != nil {
		return nil, err
	}

	if algorithm == HashBcrypt {
		digest, err := bcrypt.GenerateFromPassword(plain, bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
		}
		return newEnvelope(typeSaltedHash, map[string]any{
			fieldAlgorithm: HashBcrypt,
			fieldData:      string(digest),
		}), nil
	}

	newHash, err := hashFunc(algorithm)
	if err != nil {
		return nil, err
	}
	salt := make([]byte, defaultSaltLength)
	if _, err := io.ReadFull(s.random, salt); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}

	return newEnvelope(typeSaltedHash, map[string]any{
		fieldAlgorithm: algorithm,
		fieldSalt:      base64.StdEncoding.EncodeToString(salt),
		fieldData:      base64.StdEncoding.EncodeToString(saltedDigest(newHash, salt, plain)),
	}), nil
}

// Encrypt returns an encryption envelope of value under the key alias.
func (s *Service) Encrypt(value any, cipherName, alias string) (any, error) {
	if cipherName == "" {
		cipherName = s.defaultCipher
	}

	key, ok := s.keys[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, alias)
	}
	aead, err := newAEAD(cipherName, key)
	if err != nil {
		return nil, err
	}

	plain, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(s.random, nonce); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}
	sealed := aead.Seal(nil, nonce, plain, []byte(alias))

	return newEnvelope(typeEncrypted, map[string]any{
		fieldCipher: canonicalCipher(cipherName),
		fieldKey:    alias,
		fieldIV:     base64.StdEncoding.EncodeToString(nonce),
		fieldData:   base64.StdEncoding.EncodeToString(sealed),
	}), nil
}

// Decrypt opens an encryption envelope and returns the original value.
func (s *Service) Decrypt(value any) (any, error) {
	env, ok := openEnvelope(value, typeEncrypted)
	if !ok {
		return nil, ErrNotEncrypted
	}

	alias := stringField(env, fieldKey)
	key, ok := s.keys[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, alias)
	}
	aead, err := newAEAD(stringField(env, fieldCipher), key)
	if err != nil {
		return nil, err
	}

	nonce, err := base64.StdEncoding.DecodeString(stringField(env, fieldIV))
	if err != nil || len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad iv", ErrDecryptFailed)
	}
	sealed, err := base64.StdEncoding.DecodeString(stringField(env, fieldData))
	if err != nil {
		return nil, fmt.Errorf("%w: bad data", ErrDecryptFailed)
	}

	plain, err := aead.Open(nil, nonce, sealed, []byte(alias))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptFailed, err)
	}

	var out any
	if err := json.Unmarshal(plain, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptFailed, err)
	}
	return out, nil
}

// IsEncrypted reports whether value is an encryption envelope.
func (s *Service) IsEncrypted(value any) bool {
	_, ok := openEnvelope(value, typeEncrypted)
	return ok
}

// IsHashed reports whether value is a salted-hash envelope.
func (s *Service) IsHashed(value any) bool {
	_, ok := openEnvelope(value, typeSaltedHash)
	return ok
}

// Matches reports whether plain corresponds to value, which may be a hash or
// an encryption envelope.
func (s *Service) Matches(plain string, value any) (bool, error) {
	if env, ok := openEnvelope(value, typeSaltedHash); ok {
		return matchHash(env, []byte(plain))
	}
	if s.IsEncrypted(value) {
		decrypted, err := s.Decrypt(value)
		if err != nil {
			return false, err
		}
		if str, ok := decrypted.(string); ok {
			return subtle.ConstantTimeCompare([]byte(str), []byte(plain)) == 1, nil
		}
		var candidate any
		if err := json.Unmarshal([]byte(plain), &candidate); err != nil {
			return false, nil
		}
		return reflect.DeepEqual(candidate, decrypted), nil
	}
	return false, ErrNotHashed
}

func matchHash(env map[string]any, plain []byte) (bool, error) {
	algorithm := stringField(env, fieldAlgorithm)
	if algorithm == HashBcrypt {
		err := bcrypt.CompareHashAndPassword([]byte(stringField(env, fieldData)), plain)
		return err == nil, nil
	}

	newHash, err := hashFunc(algorithm)
	if err != nil {
		return false, err
	}
	salt, err := base64.StdEncoding.DecodeString(stringField(env, fieldSalt))
	if err != nil {
		return false, fmt.Errorf("%w: bad salt", ErrCrypto)
	}
	want, err := base64.StdEncoding.DecodeString(stringField(env, fieldData))
	if err != nil {
		return false, fmt.Errorf("%w: bad digest", ErrCrypto)
	}
	return subtle.ConstantTimeCompare(want, saltedDigest(newHash, salt, plain)) == 1, nil
}

func saltedDigest(newHash func() hash.Hash, salt, plain []byte) []byte {
	h := newHash()
	h.Write(plain)
	h.Write(salt)
	return h.Sum(nil)
}

func hashFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case HashSHA256:
		return sha256.New, nil
	case HashSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}
}

// canonicalCipher returns the constant matching name case-insensitively, or "".
func canonicalCipher(name string) string {
	for _, c := range []string{CipherAESGCM, CipherXChaCha20Poly1305} {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	return ""
}

func newAEAD(name string, key []byte) (cipher.AEAD, error) {
	switch canonicalCipher(name) {
	case CipherAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
		return cipher.NewGCM(block)
	case CipherXChaCha20Poly1305:
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
		return aead, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, name)
	}
}

// plaintext renders a value for hashing: strings as-is, everything else as JSON.
func plaintext(value any) ([]byte, error) {
	if s, ok := value.(string); ok {
		return []byte(s), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}
	return b, nil
}
