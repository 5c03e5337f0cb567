package filestore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/catbridge/filestorage/sideindex"
	"github.com/catbridge/filestorage/store"
)

const testSession = "{CAD1B6E1-B312-8713-E8C3-97145410FD37}"
const testSafeSession = "cad1b6e1-b312-8713-e8c3-97145410fd37"

// makeStagingTree builds a session staging tree with one subdirectory
// and two files: a hash-keyed manifest file (no extension) and a plain
// payload file inside the subdirectory.
func makeStagingTree(t *testing.T, session string) string {
	t.Helper()
	root, err := ioutil.TempDir("", "upload")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(root) })

	sess := filepath.Join(root, session)
	sub := filepath.Join(sess, "AAD03B600BC4792B3DC4BF3A2D7191327A482D4A|it-IT")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	hashfile := filepath.Join(sess, "aad03b600bc4792b3dc4bf3a2d7191327a482d4a")
	if err := ioutil.WriteFile(hashfile, []byte("file.txt\nfile2.txt\n"), 0644); err != nil {
		t.Fatal(err)
	}
	payload := filepath.Join(sub, "file.txt")
	if err := ioutil.WriteFile(payload, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestMoveUploadSessionToQueue(t *testing.T) {
	root := makeStagingTree(t, testSession)
	ms := &countingStore{Store: store.NewMemory()}
	idx := sideindex.NewMemory()
	q := &Queue{S: ms, Index: idx, UploadDir: root}

	if err := q.MoveUploadSessionToQueue(testSession); err != nil {
		t.Fatalf("Received %s", err.Error())
	}

	// one directory, two files
	if ms.folders != 1 {
		t.Errorf("Received %d folder marker call(s), expected 1", ms.folders)
	}
	if ms.putfiles != 2 {
		t.Errorf("Received %d upload call(s), expected 2", ms.putfiles)
	}

	// keys are lower-cased and "|" became the safe delimiter
	prefix := QueueFolder + "/" + testSafeSession
	if !ms.Exists(prefix + "/aad03b600bc4792b3dc4bf3a2d7191327a482d4a") {
		t.Errorf("hash key missing from queue")
	}
	if !ms.Exists(prefix + "/aad03b600bc4792b3dc4bf3a2d7191327a482d4a__it-it/file.txt") {
		t.Errorf("payload key missing from queue")
	}
	if !ms.Exists(prefix + "/aad03b600bc4792b3dc4bf3a2d7191327a482d4a__it-it/") {
		t.Errorf("folder marker missing from queue")
	}

	// the staging tree was consumed
	if _, err := os.Stat(filepath.Join(root, testSession)); !os.IsNotExist(err) {
		t.Errorf("staging tree still exists")
	}

	// the file map was saved under the safe session name
	if _, err := idx.HashGet(testSafeSession, "file_map"); err != nil {
		t.Errorf("file map missing from side-index: %v", err)
	}
}

func TestHashesFromDir(t *testing.T) {
	root := makeStagingTree(t, testSession)
	ms := store.NewMemory()
	idx := sideindex.NewMemory()
	q := &Queue{S: ms, Index: idx, UploadDir: root}

	if err := q.MoveUploadSessionToQueue(testSession); err != nil {
		t.Fatalf("Received %s", err.Error())
	}

	hashes, err := q.HashesFromDir("/some/upload/root/" + testSession)
	if err != nil {
		t.Fatalf("Received %s", err.Error())
	}
	hashKey := QueueFolder + "/" + testSafeSession + "/aad03b600bc4792b3dc4bf3a2d7191327a482d4a"
	if len(hashes.Conversion.Sha) != 1 || hashes.Conversion.Sha[0] != hashKey {
		t.Errorf("Received sha list %v", hashes.Conversion.Sha)
	}
	names := hashes.Conversion.FileName[hashKey]
	if len(names) != 2 || names[0] != "file.txt" || names[1] != "file2.txt" {
		t.Errorf("Received name list %v", names)
	}
	if len(hashes.Zip) != 0 {
		t.Errorf("zip hashes should be empty, got %v", hashes.Zip)
	}
}

func TestHashesFromDirMissingSession(t *testing.T) {
	q := &Queue{S: store.NewMemory(), Index: sideindex.NewMemory()}
	_, err := q.HashesFromDir("/upload/never-staged")
	if err != sideindex.ErrNotFound {
		t.Errorf("Received %v", err)
	}
}

func TestMoveUploadSessionPartialFailure(t *testing.T) {
	root := makeStagingTree(t, testSession)
	fs := &failingStore{Store: store.NewMemory(), failSubstr: "/file.txt"}
	idx := sideindex.NewMemory()
	q := &Queue{S: fs, Index: idx, UploadDir: root}

	err := q.MoveUploadSessionToQueue(testSession)
	se, ok := err.(*StageError)
	if !ok {
		t.Fatalf("expected StageError, got %v", err)
	}
	if len(se.Failed) != 1 {
		t.Errorf("Received failed list %v", se.Failed)
	}

	// the staging tree must survive a partial failure
	if _, err := os.Stat(filepath.Join(root, testSession)); err != nil {
		t.Errorf("staging tree was removed after partial failure")
	}

	// the hash file uploaded fine, so the file map is still written
	if _, err := idx.HashGet(testSafeSession, "file_map"); err != nil {
		t.Errorf("file map missing after partial failure: %v", err)
	}
}

func TestDeleteQueue(t *testing.T) {
	ms := store.NewMemory()
	prefix := QueueFolder + "/" + testSafeSession
	ms.Put(prefix+"/a", []byte("1"))
	ms.Put(prefix+"/sub/b", []byte("2"))
	ms.Put(QueueFolder+"/other-session/c", []byte("3"))

	q := &Queue{S: ms}
	if err := q.DeleteQueue("/upload/" + testSession); err != nil {
		t.Fatalf("Received %s", err.Error())
	}
	keys, _ := ms.ListPrefix(QueueFolder + "/")
	if len(keys) != 1 || keys[0] != QueueFolder+"/other-session/c" {
		t.Errorf("queue contains %v after delete", keys)
	}
}
