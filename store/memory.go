package store

import (
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"strings"
	"sync"
)

// Memory implements a simple in-memory version of a store. It is
// intended mainly for testing.
type Memory struct {
	m     sync.RWMutex
	store map[string][]byte
}

var _ Store = &Memory{}

// NewMemory returns a new, empty memory store.
func NewMemory() *Memory {
	return &Memory{store: make(map[string][]byte)}
}

// Exists reports whether an object is present at key.
func (ms *Memory) Exists(key string) bool {
	ms.m.RLock()
	_, ok := ms.store[key]
	ms.m.RUnlock()
	return ok
}

// Get returns a copy of the payload at key, or ErrNotFound.
func (ms *Memory) Get(key string) ([]byte, error) {
	ms.m.RLock()
	v, ok := ms.store[key]
	ms.m.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores body at key, overwriting any previous object there.
func (ms *Memory) Put(key string, body []byte) error {
	v := make([]byte, len(body))
	copy(v, body)
	ms.m.Lock()
	ms.store[key] = v
	ms.m.Unlock()
	return nil
}

// PutFile reads the local file at path and stores it at key.
func (ms *Memory) PutFile(key string, path string) error {
	body, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	return ms.Put(key, body)
}

// Delete the given key from the store. It is not an error if the item
// does not exist in the store.
func (ms *Memory) Delete(key string) error {
	ms.m.Lock()
	delete(ms.store, key)
	ms.m.Unlock()
	return nil
}

// DeletePrefix removes every object whose key begins with prefix.
func (ms *Memory) DeletePrefix(prefix string) error {
	ms.m.Lock()
	for k := range ms.store {
		if strings.HasPrefix(k, prefix) {
			delete(ms.store, k)
		}
	}
	ms.m.Unlock()
	return nil
}

// ListPrefix returns all the key entries which begin with the given
// prefix. The keys come back sorted, the same order S3 lists them in.
func (ms *Memory) ListPrefix(prefix string) ([]string, error) {
	var result []string
	ms.m.RLock()
	for k := range ms.store {
		if strings.HasPrefix(k, prefix) {
			result = append(result, k)
		}
	}
	ms.m.RUnlock()
	sort.Strings(result)
	return result, nil
}

// Copy duplicates the object at src to dst.
func (ms *Memory) Copy(src, dst string) error {
	body, err := ms.Get(src)
	if err != nil {
		return err
	}
	return ms.Put(dst, body)
}

// BatchCopy copies sources[i] to targets[i]. Failed pairs are collected
// into a BatchError after every pair has been attempted.
func (ms *Memory) BatchCopy(sources, targets []string) error {
	if len(sources) != len(targets) {
		return ErrBadBatch
	}
	var failed []CopyPair
	for i := range sources {
		err := ms.Copy(sources[i], targets[i])
		if err != nil {
			failed = append(failed, CopyPair{Source: sources[i], Target: targets[i], Err: err})
		}
	}
	if len(failed) > 0 {
		return &BatchError{Failed: failed}
	}
	return nil
}

// CreateFolder records a zero-byte marker object at key + "/".
func (ms *Memory) CreateFolder(key string) error {
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}
	return ms.Put(key, nil)
}

// Dump writes a listing of the contents of the store to the given
// writer. This is intended for testing and debugging.
func (ms *Memory) Dump(w io.Writer) {
	ms.m.RLock()
	for k, v := range ms.store {
		s := v
		if len(s) > 300 {
			s = s[:50]
		}
		fmt.Fprintf(w, "%s: %s\n", k, string(s))
	}
	ms.m.RUnlock()
}
