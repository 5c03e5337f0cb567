package filestore

import (
	"os"
	"testing"
	"time"

	"github.com/catbridge/filestorage/store"
)

var testCreateDate = time.Date(2018, 12, 12, 9, 0, 0, 0, time.UTC)

func TestCacheArchive(t *testing.T) {
	ms := store.NewMemory()
	z := &Zip{S: ms}

	zip := tempFile(t, "project.zip", "PK...")
	if err := z.CacheArchive(testHash, zip); err != nil {
		t.Fatalf("Received %s", err.Error())
	}
	key := "originalZip/cache/" + testHash + "__originalZip__/project.zip"
	if !ms.Exists(key) {
		t.Errorf("archive missing at %s", key)
	}
	if _, err := os.Stat(zip); !os.IsNotExist(err) {
		t.Errorf("local archive was not consumed")
	}
}

func TestCacheArchiveUploadFailure(t *testing.T) {
	fs := &failingStore{Store: store.NewMemory(), failSubstr: "originalZip/cache/"}
	z := &Zip{S: fs}

	zip := tempFile(t, "project.zip", "PK...")
	if err := z.CacheArchive(testHash, zip); err == nil {
		t.Fatalf("expected upload failure")
	}
	// the local archive survives a failed upload
	if _, err := os.Stat(zip); err != nil {
		t.Errorf("failed upload consumed the local archive")
	}
}

func TestLinkZipToProject(t *testing.T) {
	ms := store.NewMemory()
	cacheKey := "originalZip/cache/" + testHash + "__originalZip__/project.zip"
	ms.Put(cacheKey, []byte("PK..."))

	z := &Zip{S: ms}
	if err := z.LinkToProject(testCreateDate, testHash, 99); err != nil {
		t.Fatalf("Received %s", err.Error())
	}

	workKey := "originalZip/work/20181212/99/project.zip"
	if !ms.Exists(workKey) {
		t.Errorf("archive missing from project work dir")
	}
	// exactly one live location: the cache copy is gone
	if ms.Exists(cacheKey) {
		t.Errorf("archive still in cache after relink")
	}

	// a second run sees an empty cache prefix and is a no-op
	if err := z.LinkToProject(testCreateDate, testHash, 99); err != nil {
		t.Errorf("retry of completed relink returned %v", err)
	}
	if !ms.Exists(workKey) {
		t.Errorf("retry disturbed the relinked archive")
	}
}

func TestLinkZipPartialFailure(t *testing.T) {
	ms := store.NewMemory()
	prefix := "originalZip/cache/" + testHash + "__originalZip__"
	ms.Put(prefix+"/a.zip", []byte("a"))
	ms.Put(prefix+"/b.zip", []byte("b"))

	fs := &failingStore{Store: ms, failSubstr: "/b.zip"}
	z := &Zip{S: fs}
	err := z.LinkToProject(testCreateDate, testHash, 99)
	re, ok := err.(*RelinkError)
	if !ok {
		t.Fatalf("expected RelinkError, got %v", err)
	}
	if re.Hash != testHash {
		t.Errorf("RelinkError names hash %s", re.Hash)
	}

	// the item that succeeded is relinked, the failed one still cached
	if !ms.Exists("originalZip/work/20181212/99/a.zip") {
		t.Errorf("completed item missing from work dir")
	}
	if !ms.Exists(prefix + "/b.zip") {
		t.Errorf("failed item missing from cache")
	}

	// retry after the failure clears finishes the job
	z2 := &Zip{S: ms}
	if err := z2.LinkToProject(testCreateDate, testHash, 99); err != nil {
		t.Fatalf("retry returned %v", err)
	}
	if !ms.Exists("originalZip/work/20181212/99/b.zip") {
		t.Errorf("retry did not relink remaining item")
	}
	keys, _ := ms.ListPrefix(prefix)
	if len(keys) != 0 {
		t.Errorf("cache still holds %v after retry", keys)
	}
}
