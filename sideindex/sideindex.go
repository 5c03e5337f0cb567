// Package sideindex provides the small external key/value index used to
// remember an upload session's file manifest. The interface is a hash
// map per key: one serialized value per (key, field) pair.
//
// The Memory implementation is for testing. The QL implementation keeps
// the index in an embedded database and is intended for development.
// MySQL is used in production.
package sideindex

import (
	"errors"
	"sync"
)

// Index is a minimal hash-field store keyed by a session's safe name.
type Index interface {
	// HashSet stores value under (key, field), replacing any previous
	// value.
	HashSet(key, field string, value []byte) error

	// HashGet returns the value stored under (key, field), or
	// ErrNotFound.
	HashGet(key, field string) ([]byte, error)
}

// ErrNotFound is returned by HashGet when nothing is stored under the
// given key and field.
var ErrNotFound = errors.New("no value for key and field")

// Memory is an in-memory Index for testing.
type Memory struct {
	m    sync.RWMutex
	data map[string]map[string][]byte
}

var _ Index = &Memory{}

// NewMemory returns a new, empty memory index.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

// HashSet stores value under (key, field).
func (mi *Memory) HashSet(key, field string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	mi.m.Lock()
	fields, ok := mi.data[key]
	if !ok {
		fields = make(map[string][]byte)
		mi.data[key] = fields
	}
	fields[field] = v
	mi.m.Unlock()
	return nil
}

// HashGet returns the value stored under (key, field).
func (mi *Memory) HashGet(key, field string) ([]byte, error) {
	mi.m.RLock()
	v, ok := mi.data[key][field]
	mi.m.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}
