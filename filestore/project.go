package filestore

import (
	"fmt"
	"log"
	"strings"

	"github.com/pkg/errors"

	"github.com/catbridge/filestorage/store"
)

// Project promotes cache entries into a project-scoped namespace under
// files/ and resolves a project file's original and work copies.
type Project struct {
	S store.Store
}

// MoveFromCacheToFileDir copies every file of the cache entry named by
// dateHashPath ("<datePath>/<hash>") into the project file's directory:
// originals under files/<datePath>/<fileID>/orig/ and work files under
// files/<datePath>/<fileID>/xliff/. The copies are issued as one batch;
// a partial failure comes back as a store.BatchError naming the pairs
// that failed, and the call may be retried as-is.
func (p *Project) MoveFromCacheToFileDir(dateHashPath, lang string, fileID int64) error {
	datePath, hash, err := splitDateHashPath(dateHashPath)
	if err != nil {
		return err
	}
	items, err := listCacheEntry(p.S, hash, lang)
	if err != nil {
		return err
	}
	var sources, targets []string
	for _, item := range items {
		area := "xliff"
		if item.Kind == KindOriginal {
			area = "orig"
		}
		sources = append(sources, item.Key)
		targets = append(targets, fmt.Sprintf("%s/%s/%d/%s/%s",
			FilesFolder, datePath, fileID, area, lastKeyPart(item.Key)))
	}
	log.Printf("project file %d: copying %d file(s) from cache package to project folder", fileID, len(sources))
	return p.S.BatchCopy(sources, targets)
}

// OriginalFromFileDir returns the key of the project file's original
// copy, or store.ErrNotFound.
func (p *Project) OriginalFromFileDir(fileID int64, dateHashPath string) (string, error) {
	return p.findKey(fileID, dateHashPath, "orig")
}

// XliffFromFileDir returns the key of the project file's work copy, or
// store.ErrNotFound.
func (p *Project) XliffFromFileDir(fileID int64, dateHashPath string) (string, error) {
	return p.findKey(fileID, dateHashPath, "xliff")
}

// findKey lists the given area of the project file's directory and
// returns the first item. As with cache entries, a single item per area
// is expected; the first listed wins otherwise.
func (p *Project) findKey(fileID int64, dateHashPath, area string) (string, error) {
	datePath, _, err := splitDateHashPath(dateHashPath)
	if err != nil {
		return "", err
	}
	prefix := fmt.Sprintf("%s/%s/%d/%s", FilesFolder, datePath, fileID, area)
	items, err := p.S.ListPrefix(prefix)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", store.ErrNotFound
	}
	return items[0], nil
}

// listCacheEntry lists both areas of the cache entry for (hash, lang).
// Each returned item carries the area it was listed from.
func listCacheEntry(s store.Store, hash, lang string) ([]Item, error) {
	prefix, err := CachePrefix(hash, lang)
	if err != nil {
		return nil, err
	}
	origs, err := s.ListPrefix(prefix + "/orig")
	if err != nil {
		return nil, err
	}
	works, err := s.ListPrefix(prefix + "/work")
	if err != nil {
		return nil, err
	}
	var items []Item
	for _, key := range origs {
		items = append(items, Item{Key: key, Kind: KindOriginal})
	}
	for _, key := range works {
		items = append(items, Item{Key: key, Kind: KindWork})
	}
	return items, nil
}

// splitDateHashPath splits "<datePath>/<hash>" into its two parts.
func splitDateHashPath(dateHashPath string) (datePath, hash string, err error) {
	i := strings.Index(dateHashPath, "/")
	if i < 0 {
		return "", "", errors.Errorf("malformed date-hash path %q", dateHashPath)
	}
	return dateHashPath[:i], dateHashPath[i+1:], nil
}
