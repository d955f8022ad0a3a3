// Package authclient is the Go counterpart of the mobile app's session
// layer: a persisted, observable session cache and an HTTP client that keeps
// the access/refresh rotation invisible to feature code.
package authclient

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// ErrKeyNotFound is returned by Get when no value exists for the key.
var ErrKeyNotFound = errors.New("authclient: key not found")

// Storage is the narrow persistence contract the session store runs on.
// Pick the implementation by the sensitivity of the data: FileStorage for
// plain state, EncryptedStorage for credentials at rest.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// FileStorage keeps one file per key inside a directory.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("authclient: create storage dir: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *FileStorage) Set(key string, value []byte) error {
	return os.WriteFile(s.path(key), value, 0o600)
}

func (s *FileStorage) Remove(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileStorage) path(key string) string {
	// keys are logical names, not paths
	key = strings.ReplaceAll(key, string(filepath.Separator), "_")
	return filepath.Join(s.dir, key+".json")
}

const (
	keySize   = 32
	nonceSize = 24
)

// EncryptedStorage seals values with secretbox before handing them to the
// wrapped Storage. The nonce is prepended to the ciphertext.
type EncryptedStorage struct {
	inner Storage
	key   [keySize]byte
}

func NewEncryptedStorage(inner Storage, key []byte) (*EncryptedStorage, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("authclient: encryption key must be %d bytes, got %d", keySize, len(key))
	}
	s := &EncryptedStorage{inner: inner}
	copy(s.key[:], key)
	return s, nil
}

func (s *EncryptedStorage) Get(key string) ([]byte, error) {
	sealed, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < nonceSize {
		return nil, errors.New("authclient: sealed value too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errors.New("authclient: sealed value corrupt")
	}
	return plain, nil
}

func (s *EncryptedStorage) Set(key string, value []byte) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}
	sealed := secretbox.Seal(nonce[:], value, &nonce, &s.key)
	return s.inner.Set(key, sealed)
}

func (s *EncryptedStorage) Remove(key string) error {
	return s.inner.Remove(key)
}
