package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HartBrook/tokun/internal/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "sealed:v1:"
	secretKeyLen = 32
	nonceLen     = 24
)

// Sealed encrypts secret values before they reach the wrapped store.
// Keys ending in "_key" are secret; everything else passes through.
type Sealed struct {
	inner KV
	key   [secretKeyLen]byte
}

// NewSealed wraps inner, sealing secrets with key.
func NewSealed(inner KV, key [secretKeyLen]byte) *Sealed {
	return &Sealed{inner: inner, key: key}
}

// IsSecret reports whether values stored under key are sealed.
func IsSecret(key string) bool {
	return strings.HasSuffix(key, "_key")
}

func (s *Sealed) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok || !IsSecret(key) {
		return value, ok, err
	}
	// Values written before sealing was enabled are returned as-is.
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, true, nil
	}

	plain, err := s.open(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", false, errors.StoreFailed(fmt.Sprintf("unseal %q", key), err)
	}
	return plain, true, nil
}

func (s *Sealed) Set(ctx context.Context, key, value string) error {
	if !IsSecret(key) || value == "" {
		return s.inner.Set(ctx, key, value)
	}

	sealed, err := s.seal(value)
	if err != nil {
		return errors.StoreFailed(fmt.Sprintf("seal %q", key), err)
	}
	return s.inner.Set(ctx, key, sealedPrefix+sealed)
}

func (s *Sealed) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *Sealed) seal(plain string) (string, error) {
	var nonce [nonceLen]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (s *Sealed) open(encoded string) (string, error) {
	box, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(box) < nonceLen+secretbox.Overhead {
		return "", stderrors.New("sealed value too short")
	}

	var nonce [nonceLen]byte
	copy(nonce[:], box[:nonceLen])
	plain, ok := secretbox.Open(nil, box[nonceLen:], &nonce, &s.key)
	if !ok {
		return "", stderrors.New("sealed value failed authentication")
	}
	return string(plain), nil
}

// LoadOrCreateKey reads the secret key at path, generating a new one
// (mode 0600) when the file does not exist.
func LoadOrCreateKey(path string) ([secretKeyLen]byte, error) {
	var key [secretKeyLen]byte

	data, err := os.ReadFile(path)
	if err == nil {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil || len(raw) != secretKeyLen {
			return key, errors.StoreFailed("read secret key", fmt.Errorf("%s is not a valid key file", path))
		}
		copy(key[:], raw)
		return key, nil
	}
	if !os.IsNotExist(err) {
		return key, errors.StoreFailed("read secret key", err)
	}

	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return key, errors.StoreFailed("generate secret key", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return key, errors.StoreFailed("write secret key", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key[:]) + "\n"
	if err := os.WriteFile(path, []byte(encoded), 0600); err != nil {
		return key, errors.StoreFailed("write secret key", err)
	}
	return key, nil
}
