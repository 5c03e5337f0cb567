package filestore

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/catbridge/filestorage/store"
)

// countingStore wraps a store and counts the write calls made through
// it.
type countingStore struct {
	store.Store
	putfiles int
	puts     int
	folders  int
}

func (c *countingStore) PutFile(key, path string) error {
	c.putfiles++
	return c.Store.PutFile(key, path)
}

func (c *countingStore) Put(key string, body []byte) error {
	c.puts++
	return c.Store.Put(key, body)
}

func (c *countingStore) CreateFolder(key string) error {
	c.folders++
	return c.Store.CreateFolder(key)
}

var errInduced = errors.New("induced store failure")

// failingStore wraps a store and fails any write or copy whose key
// contains failSubstr.
type failingStore struct {
	store.Store
	failSubstr string
}

func (f *failingStore) PutFile(key, path string) error {
	if strings.Contains(key, f.failSubstr) {
		return errInduced
	}
	return f.Store.PutFile(key, path)
}

func (f *failingStore) Copy(src, dst string) error {
	if strings.Contains(src, f.failSubstr) || strings.Contains(dst, f.failSubstr) {
		return errInduced
	}
	return f.Store.Copy(src, dst)
}

func (f *failingStore) Delete(key string) error {
	if strings.Contains(key, f.failSubstr) {
		return errInduced
	}
	return f.Store.Delete(key)
}

// tempFile creates a file with the given name and content inside a
// fresh temp directory and returns its path.
func tempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "filestore")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fixedDetector reports the same FileInfo for every file.
type fixedDetector struct {
	info FileInfo
}

func (d fixedDetector) Detect(path string) (FileInfo, error) {
	return d.info, nil
}
