package filestore

import (
	"github.com/pkg/errors"

	"github.com/catbridge/filestorage/store"
)

// Cache manages the global deduplicated cache of uploaded files and
// their converted work products. Every entry lives under the prefix
// derived by CachePrefix and holds an orig/ area (the untouched upload)
// and a work/ area (the converted artifact).
type Cache struct {
	S store.Store

	// Detect decides the target extension of work files. When nil,
	// XliffDetector is used.
	Detect Detector

	// ForceVersion disables the already-cached short circuit, so work
	// files are re-uploaded even when a valid cached copy exists.
	ForceVersion bool
}

// MakeCachePackage stores the cache entry for (hash, lang). xliffPath
// is the local converted work file; originalPath, when not empty, is
// the local untouched upload and is stored in the entry's orig/ area
// first. A failed original upload aborts the whole operation.
//
// When the target work file already exists and ForceVersion is off the
// call returns immediately without uploading anything: the entry was
// produced by an earlier upload of the same document.
//
// On success the local work file is treated as consumed and removed.
func (c *Cache) MakeCachePackage(hash, lang, originalPath, xliffPath string) error {
	prefix, err := CachePrefix(hash, lang)
	if err != nil {
		return err
	}
	if !c.ForceVersion && c.S.Exists(prefix+"/work/"+lastKeyPart(xliffPath)) {
		// already cached, skip the conversion upload entirely
		return nil
	}
	dest, err := c.workDestination(prefix, xliffPath, originalPath)
	if err != nil {
		return err
	}
	if err = uploadFile(c.S, dest, xliffPath); err != nil {
		return err
	}
	removeLocal(xliffPath)
	return nil
}

// workDestination computes the key for the work file, uploading the
// original file first when one was given. Work files that are not in a
// proprietary format get the canonical extension appended unless they
// already carry it.
func (c *Cache) workDestination(prefix, xliffPath, originalPath string) (string, error) {
	if originalPath == "" {
		name := lastKeyPart(xliffPath)
		det := c.Detect
		if det == nil {
			det = XliffDetector{}
		}
		info, err := det.Detect(xliffPath)
		if err != nil {
			return "", errors.Wrapf(err, "detecting type of %s", xliffPath)
		}
		if !info.Proprietary && info.Extension != "sdlxliff" {
			name += XliffExtension
		}
		return prefix + "/work/" + name, nil
	}

	name := lastKeyPart(originalPath)
	if err := uploadFile(c.S, prefix+"/orig/"+name, originalPath); err != nil {
		// without its original the entry is useless; abort
		return "", err
	}
	return prefix + "/work/" + name + XliffExtension, nil
}

// OriginalFromCache returns the key of the cached original file for
// (hash, lang), or store.ErrNotFound.
func (c *Cache) OriginalFromCache(hash, lang string) (string, error) {
	return c.findKey(hash, lang, "orig")
}

// XliffFromCache returns the key of the cached work file for
// (hash, lang), or store.ErrNotFound.
func (c *Cache) XliffFromCache(hash, lang string) (string, error) {
	return c.findKey(hash, lang, "work")
}

// findKey lists the given area of the cache entry and returns the first
// item. A cache leaf is expected to hold a single item per area; if
// more exist, the first listed wins, and the listing order is
// store-defined.
func (c *Cache) findKey(hash, lang, area string) (string, error) {
	prefix, err := CachePrefix(hash, lang)
	if err != nil {
		return "", err
	}
	items, err := c.S.ListPrefix(prefix + "/" + area)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", store.ErrNotFound
	}
	return items[0], nil
}
