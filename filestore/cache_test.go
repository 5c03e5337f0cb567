package filestore

import (
	"os"
	"testing"

	"github.com/catbridge/filestorage/store"
)

const testHash = "6981e08bc467f8af85fd686c54287ac755408e89"

func TestMakeCachePackage(t *testing.T) {
	ms := &countingStore{Store: store.NewMemory()}
	c := &Cache{S: ms, Detect: fixedDetector{FileInfo{Proprietary: true, Extension: "sdlxliff"}}}

	xliff := tempFile(t, "os.odt.sdlxliff", "<xliff/>")
	orig := tempFile(t, "os.odt", "original")

	err := c.MakeCachePackage(testHash, "it-IT", orig, xliff)
	if err != nil {
		t.Fatalf("Received %s", err.Error())
	}

	const prefix = "cache-package/69/81/e08bc467f8af85fd686c54287ac755408e89__it-it"
	if !ms.Exists(prefix + "/orig/os.odt") {
		t.Errorf("original missing from cache")
	}
	if !ms.Exists(prefix + "/work/os.odt.sdlxliff") {
		t.Errorf("work file missing from cache")
	}
	if _, err := os.Stat(xliff); !os.IsNotExist(err) {
		t.Errorf("local work file was not consumed")
	}
}

func TestMakeCachePackageIdempotent(t *testing.T) {
	ms := &countingStore{Store: store.NewMemory()}
	c := &Cache{S: ms, Detect: fixedDetector{FileInfo{Proprietary: true, Extension: "sdlxliff"}}}

	xliff := tempFile(t, "doc.sdlxliff", "one")
	if err := c.MakeCachePackage(testHash, "it-it", "", xliff); err != nil {
		t.Fatalf("Received %s", err.Error())
	}
	uploads := ms.putfiles

	// the second call must short-circuit without uploading
	xliff2 := tempFile(t, "doc.sdlxliff", "two")
	if err := c.MakeCachePackage(testHash, "it-it", "", xliff2); err != nil {
		t.Fatalf("Received %s", err.Error())
	}
	if ms.putfiles != uploads {
		t.Errorf("second call uploaded again: %d -> %d", uploads, ms.putfiles)
	}
	// the skipped local file is not consumed
	if _, err := os.Stat(xliff2); err != nil {
		t.Errorf("short-circuited call consumed the local file")
	}

	// with ForceVersion the upload happens again
	c.ForceVersion = true
	if err := c.MakeCachePackage(testHash, "it-it", "", xliff2); err != nil {
		t.Fatalf("Received %s", err.Error())
	}
	if ms.putfiles == uploads {
		t.Errorf("ForceVersion did not re-upload")
	}
}

func TestMakeCachePackageExtension(t *testing.T) {
	var table = []struct {
		name     string
		info     FileInfo
		expected string
	}{
		// plain converted file gets the canonical extension
		{"report.docx", FileInfo{Proprietary: false, Extension: "docx"}, "work/report.docx.sdlxliff"},
		// already canonical
		{"report.sdlxliff", FileInfo{Proprietary: false, Extension: "sdlxliff"}, "work/report.sdlxliff"},
		// proprietary formats keep their name
		{"report.mqxliff", FileInfo{Proprietary: true, Extension: "mqxliff"}, "work/report.mqxliff"},
	}
	for _, test := range table {
		ms := store.NewMemory()
		c := &Cache{S: ms, Detect: fixedDetector{test.info}}
		xliff := tempFile(t, test.name, "content")
		if err := c.MakeCachePackage(testHash, "it-it", "", xliff); err != nil {
			t.Fatalf("%s: %s", test.name, err.Error())
		}
		key, err := c.XliffFromCache(testHash, "it-it")
		if err != nil {
			t.Fatalf("%s: %s", test.name, err.Error())
		}
		if lastTwo(key) != test.expected {
			t.Errorf("%s: stored at %s, expected .../%s", test.name, key, test.expected)
		}
	}
}

func TestMakeCachePackageOriginalFailureAborts(t *testing.T) {
	fs := &failingStore{Store: store.NewMemory(), failSubstr: "/orig/"}
	c := &Cache{S: fs, Detect: fixedDetector{FileInfo{}}}

	xliff := tempFile(t, "doc.sdlxliff", "work")
	orig := tempFile(t, "doc.odt", "original")
	err := c.MakeCachePackage(testHash, "it-it", orig, xliff)
	if err == nil {
		t.Fatalf("expected error after original upload failure")
	}
	// nothing of the entry may exist and the work file is untouched
	keys, _ := fs.ListPrefix("cache-package/")
	if len(keys) != 0 {
		t.Errorf("store contains %v after aborted operation", keys)
	}
	if _, err := os.Stat(xliff); err != nil {
		t.Errorf("aborted operation consumed the local work file")
	}
}

func TestCacheLookups(t *testing.T) {
	ms := store.NewMemory()
	c := &Cache{S: ms}

	_, err := c.XliffFromCache(testHash, "it-it")
	if err != store.ErrNotFound {
		t.Errorf("lookup on empty cache returned %v", err)
	}

	const prefix = "cache-package/69/81/e08bc467f8af85fd686c54287ac755408e89__it-it"
	ms.Put(prefix+"/work/os.odt.sdlxliff", []byte("x"))
	ms.Put(prefix+"/orig/os.odt", []byte("y"))

	key, err := c.XliffFromCache(testHash, "it-it")
	if err != nil {
		t.Fatalf("Received %s", err.Error())
	}
	if key != prefix+"/work/os.odt.sdlxliff" {
		t.Errorf("Received %s", key)
	}

	key, err = c.OriginalFromCache(testHash, "it-it")
	if err != nil {
		t.Fatalf("Received %s", err.Error())
	}
	if key != prefix+"/orig/os.odt" {
		t.Errorf("Received %s", key)
	}
}

// lastTwo returns the final two segments of a key.
func lastTwo(key string) string {
	parts := []byte(key)
	slashes := 0
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == '/' {
			slashes++
			if slashes == 2 {
				return key[i+1:]
			}
		}
	}
	return key
}
