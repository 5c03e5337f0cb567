package filestore

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/catbridge/filestorage/store"
)

// Zip caches uploaded original archives by content hash and later
// relinks them into a project's dated work directory. An archive has
// exactly one live location at any time: still in the cache area, or
// already relinked.
type Zip struct {
	S store.Store

	// ZipDir is the local directory where archives wait before upload.
	// It is only touched for cleanup after a failed upload.
	ZipDir string
}

// zipCachePrefix is the not-yet-linked namespace of an archive hash.
func zipCachePrefix(hash string) string {
	return ZipFolder + "/cache/" + hash + zipPlaceholder
}

// CacheArchive uploads the local archive at zipPath under the hash's
// cache prefix. On success the local file is treated as consumed and
// removed. On failure the hash's local cache directory is cleaned up
// best effort and the upload error is returned.
func (z *Zip) CacheArchive(hash, zipPath string) error {
	key := zipCachePrefix(hash) + "/" + lastKeyPart(zipPath)
	if err := uploadFile(z.S, key, zipPath); err != nil {
		if z.ZipDir != "" {
			local := filepath.Join(z.ZipDir, hash+zipPlaceholder)
			if rmErr := os.RemoveAll(local); rmErr != nil {
				log.Printf("cannot clean local zip cache %s: %s", local, rmErr.Error())
			}
		}
		return err
	}
	removeLocal(zipPath)
	return nil
}

// RelinkError reports an archive relocation that stopped partway: Done
// items were fully relinked, the item at Key failed, and any remaining
// items are still in the cache area. The operation may be re-invoked to
// resume.
type RelinkError struct {
	Hash string
	Done int
	Key  string
	Err  error
}

func (e *RelinkError) Error() string {
	return fmt.Sprintf("relinking archive %s: %d item(s) done, failed at %s: %v",
		e.Hash, e.Done, e.Key, e.Err)
}

// LinkToProject moves every cached archive item of hash into the
// project's dated work directory, one item at a time, copy then delete.
// The sequence is not transactional: a crash or failure partway leaves
// the archive split across both locations. It is safe to re-invoke; the
// copy is skipped when the destination already exists, and items whose
// cache copy is already gone no longer appear in the listing, so a
// retry of an already-completed relink is a no-op.
func (z *Zip) LinkToProject(createDate time.Time, hash string, projectID int64) error {
	keys, err := z.S.ListPrefix(zipCachePrefix(hash))
	if err != nil {
		return err
	}
	done := 0
	for _, key := range keys {
		dest := fmt.Sprintf("%s/work/%s/%d/%s",
			ZipFolder, DatePath(createDate), projectID, lastKeyPart(key))
		if !z.S.Exists(dest) {
			if err := z.S.Copy(key, dest); err != nil {
				return &RelinkError{Hash: hash, Done: done, Key: key, Err: err}
			}
		}
		if err := z.S.Delete(key); err != nil {
			return &RelinkError{Hash: hash, Done: done, Key: key, Err: err}
		}
		done++
	}
	return nil
}
