package tokenstore

import (
	"context"
	"crypto/rand"
	"errors"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize  = 16
	nonceSize = 24
)

// FileStore seals the token with a key derived from the configured
// secret and writes it to a single file readable only by the agent.
type FileStore struct {
	path   string
	secret string
}

func NewFileStore(path, secret string) *FileStore {
	return &FileStore{path: path, secret: secret}
}

func (s *FileStore) Get(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if len(data) < saltSize+nonceSize+secretbox.Overhead {
		return "", errors.New("token file corrupt")
	}

	key, err := s.deriveKey(data[:saltSize])
	if err != nil {
		return "", err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[saltSize:saltSize+nonceSize])

	token, ok := secretbox.Open(nil, data[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return "", errors.New("token file unreadable with configured secret")
	}
	return string(token), nil
}

func (s *FileStore) Set(_ context.Context, token string) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}

	key, err := s.deriveKey(salt)
	if err != nil {
		return err
	}

	sealed := secretbox.Seal(nil, []byte(token), &nonce, key)
	data := append(append(salt, nonce[:]...), sealed...)
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) Delete(_ context.Context) error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) deriveKey(salt []byte) (*[32]byte, error) {
	raw, err := scrypt.Key([]byte(s.secret), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, err
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
