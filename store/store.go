// Package store provides a simple key-value blob store abstraction with
// bucket/key semantics: byte payloads, prefix listing, and item-level
// copy and delete. The S3 implementation is the one used in production.
// The Memory implementation is useful for testing.
//
// Keys are flat strings. A trailing "/" marker object is the only notion
// of a folder the stores have.
package store

import (
	"errors"
	"fmt"
	"strings"
)

// Store is the set of primitives the file storage layer needs from a
// blob store. Implementations bind the bucket at construction time.
type Store interface {
	// Exists reports whether an object is present at key.
	Exists(key string) bool

	// Get returns the payload stored at key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Put stores body at key, overwriting any previous object.
	Put(key string, body []byte) error

	// PutFile uploads the local file at path to key.
	PutFile(key string, path string) error

	// Delete removes the object at key. Deleting a missing key is not
	// an error.
	Delete(key string) error

	// DeletePrefix removes every object whose key begins with prefix.
	DeletePrefix(prefix string) error

	// ListPrefix returns the keys of every object whose key begins
	// with prefix. The order of the result is store-defined.
	ListPrefix(prefix string) ([]string, error)

	// Copy duplicates the object at src to dst within the store.
	Copy(src, dst string) error

	// BatchCopy copies sources[i] to targets[i] for every i. The two
	// lists must have equal length. Empty lists succeed without any
	// store access. Failed pairs are reported in a BatchError; the
	// remaining pairs are still attempted.
	BatchCopy(sources, targets []string) error

	// CreateFolder writes a zero-byte marker object at key + "/".
	CreateFolder(key string) error
}

// ErrNotFound is returned by Get when no object exists at the key.
var ErrNotFound = errors.New("key does not exist")

// ErrBadBatch is returned by BatchCopy when the source and target
// lists have different lengths.
var ErrBadBatch = errors.New("source and target lists differ in length")

// CopyPair is one source/target pair of a batch copy, together with the
// error that pair produced.
type CopyPair struct {
	Source string
	Target string
	Err    error
}

// BatchError reports the pairs of a batch copy that failed. Pairs not
// listed were copied successfully.
type BatchError struct {
	Failed []CopyPair
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "batch copy: %d item(s) failed:", len(e.Failed))
	for _, p := range e.Failed {
		fmt.Fprintf(&b, " %s -> %s (%v);", p.Source, p.Target, p.Err)
	}
	return b.String()
}
