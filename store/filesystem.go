package store

import (
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	raven "github.com/getsentry/raven-go"
)

// FileSystem keeps objects as plain files under a root directory. The
// slashes in a key become directory separators, so an object's key is
// also its path relative to the root. It is intended for development
// and small deployments; production uses the S3 store.
type FileSystem struct {
	root string
}

var _ Store = &FileSystem{}

// NewFileSystem creates a new FileSystem store based at the given root path.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root: root}
}

func (s *FileSystem) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Exists reports whether an object is present at key.
func (s *FileSystem) Exists(key string) bool {
	info, err := os.Stat(s.path(key))
	return err == nil && !info.IsDir()
}

// Get returns the content of the object at key, or ErrNotFound.
func (s *FileSystem) Get(key string) ([]byte, error) {
	body, err := ioutil.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return body, err
}

// Put stores body at key, overwriting any previous object there.
func (s *FileSystem) Put(key string, body []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	err := ioutil.WriteFile(p, body, 0644)
	if err != nil {
		log.Println("FS Put:", key, err)
		raven.CaptureError(err, map[string]string{"Root": s.root, "Key": key})
	}
	return err
}

// PutFile copies the local file at path to key.
func (s *FileSystem) PutFile(key string, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	dst, err := os.Create(p)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		log.Println("FS PutFile:", key, err)
		raven.CaptureError(err, map[string]string{"Root": s.root, "Key": key})
	}
	return err
}

// Delete removes the object at key. It is not an error to delete
// something that doesn't exist. Empty parent directories are left in
// place.
func (s *FileSystem) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	log.Println("FS Delete:", key, err)
	raven.CaptureError(err, map[string]string{"Root": s.root, "Key": key})
	return err
}

// DeletePrefix removes every object whose key begins with prefix.
func (s *FileSystem) DeletePrefix(prefix string) error {
	keys, err := s.ListPrefix(prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// ListPrefix returns the keys in this store that begin with prefix. A
// key prefix is a string prefix, not a directory: "files/2018" matches
// everything under every directory starting with "2018". The keys come
// back sorted, the same order S3 lists them in.
func (s *FileSystem) ListPrefix(prefix string) ([]string, error) {
	var result []string
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			result = append(result, key)
		}
		return nil
	})
	if err != nil {
		log.Println("FS ListPrefix:", prefix, err)
		raven.CaptureError(err, map[string]string{"Root": s.root, "Prefix": prefix})
		return nil, err
	}
	sort.Strings(result)
	return result, nil
}

// Copy duplicates the object at src to dst within the store.
func (s *FileSystem) Copy(src, dst string) error {
	body, err := s.Get(src)
	if err != nil {
		return err
	}
	return s.Put(dst, body)
}

// BatchCopy copies sources[i] to targets[i]. All pairs are attempted;
// the failures, if any, come back in a single BatchError.
func (s *FileSystem) BatchCopy(sources, targets []string) error {
	if len(sources) != len(targets) {
		return ErrBadBatch
	}
	var failed []CopyPair
	for i := range sources {
		err := s.Copy(sources[i], targets[i])
		if err != nil {
			failed = append(failed, CopyPair{Source: sources[i], Target: targets[i], Err: err})
		}
	}
	if len(failed) > 0 {
		return &BatchError{Failed: failed}
	}
	return nil
}

// CreateFolder makes the directory for key. Unlike S3 there is no
// marker object; the directory itself is the marker, and it will not
// appear in prefix listings.
func (s *FileSystem) CreateFolder(key string) error {
	err := os.MkdirAll(s.path(key), 0755)
	if err != nil {
		log.Println("FS CreateFolder:", key, err)
		raven.CaptureError(err, map[string]string{"Root": s.root, "Key": key})
	}
	return err
}
