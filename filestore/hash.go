package filestore

import (
	"errors"
	"strings"
)

// ErrInvalidHash is returned when a content hash is too short to be
// split into the dedup tree levels.
var ErrInvalidHash = errors.New("content hash is shorter than 4 characters")

// SplitHash splits a content hash into the three levels of the dedup
// tree: the first two characters, the next two, and the remainder.
// Hashes must be at least 4 characters long.
func SplitHash(hash string) (first, second, rest string, err error) {
	if len(hash) < 4 {
		return "", "", "", ErrInvalidHash
	}
	return hash[0:2], hash[2:4], hash[4:], nil
}

// CachePrefix derives the cache-package prefix for a content hash and
// a target language. The derivation is deterministic, and distinct
// (hash, lang) pairs always produce distinct prefixes.
//
// Example:
//
//	CachePrefix("6981e08bc467f8af85fd686c54287ac755408e89", "it-IT")
//	  == "cache-package/69/81/e08bc467f8af85fd686c54287ac755408e89__it-it"
func CachePrefix(hash, lang string) (string, error) {
	first, second, rest, err := SplitHash(hash)
	if err != nil {
		return "", err
	}
	return CachePackageFolder + "/" + first + "/" + second + "/" +
		rest + SafeDelimiter + strings.ToLower(lang), nil
}
