// Package storage provides the durable key-value contract the stores are
// built on. Writes must be flushed before returning; the hunt engine relies
// on that to survive restarts without double-claims.
package storage

import "errors"

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// Store is a flat key-value store. Keys are slash-separated paths.
type Store interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	List(prefix string) ([]string, error)
	Exists(key string) (bool, error)
}
