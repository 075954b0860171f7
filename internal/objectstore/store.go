package objectstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound indicates the requested hash has no stored blob.
var ErrNotFound = errors.New("object not found")

// Store is content-addressed blob storage on the local filesystem.
// Objects are keyed by the hex sha256 of their bytes and sharded into
// two-character prefix directories. Identical bytes always land on the
// same key, so writes are naturally idempotent.
type Store struct {
	root string
}

// Open prepares a store rooted at dir, creating it when missing.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("object store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure object store dir: %w", err)
	}
	return &Store{root: dir}, nil
}

// Put writes data and returns its content hash.
func (s *Store) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	path := s.path(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ensure shard dir: %w", err)
	}

	// Write through a temp file so readers never observe partial blobs.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp object: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("commit object: %w", err)
	}
	return hash, nil
}

// Get returns the bytes stored under hash.
func (s *Store) Get(hash string) ([]byte, error) {
	data, err := os.ReadFile(s.path(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("read object %s: %w", hash, err)
	}
	return data, nil
}

// Exists reports whether a blob is stored under hash.
func (s *Store) Exists(hash string) bool {
	_, err := os.Stat(s.path(hash))
	return err == nil
}

func (s *Store) path(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(s.root, hash)
	}
	return filepath.Join(s.root, hash[:2], hash)
}
