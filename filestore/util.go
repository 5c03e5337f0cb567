package filestore

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/catbridge/filestorage/store"
)

// lastKeyPart returns the last "/" separated segment of a key.
//
// Example:
//
//	c1/68/9bd71f...__it-it/orig/hello.txt --> hello.txt
func lastKeyPart(key string) string {
	i := strings.LastIndex(key, "/")
	return key[i+1:]
}

// SessionSafeName returns the blob-store safe form of an upload session
// identifier: lower-cased, with GUID-style braces stripped.
//
// Example:
//
//	{CAD1B6E1-B312-8713-E8C3-97145410FD37} --> cad1b6e1-b312-8713-e8c3-97145410fd37
func SessionSafeName(session string) string {
	s := strings.ToLower(session)
	s = strings.Replace(s, "{", "", -1)
	return strings.Replace(s, "}", "", -1)
}

// DatePath renders a creation date as the YYYYMMDD path segment used
// under files/ and originalZip/work/.
func DatePath(t time.Time) string {
	return t.Format("20060102")
}

// uploadFile sends the local file at path to key, logging the outcome
// either way. The returned error carries the cause; callers decide
// whether it aborts their operation.
func uploadFile(s store.Store, key, path string) error {
	err := s.PutFile(key, path)
	if err != nil {
		log.Printf("Error uploading file %s to %s: %s", path, key, err.Error())
		return errors.Wrapf(err, "uploading %s", key)
	}
	log.Printf("Successfully uploaded file %s", key)
	return nil
}

// removeLocal deletes a local temp file that has been consumed by a
// confirmed upload. Cleanup failures are logged and swallowed.
func removeLocal(path string) {
	if err := os.Remove(path); err != nil {
		log.Printf("cannot remove local file %s: %s", path, err.Error())
	}
}
