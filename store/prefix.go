package store

import (
	"strings"
)

// NewWithPrefix wraps the store s by one which will prefix all its keys
// by prefix. This provides a way to namespace the keys, and to share
// the same underlying store among a group of users.
func NewWithPrefix(s Store, prefix string) Store {
	return prefixstore{s: s, p: prefix}
}

type prefixstore struct {
	s Store  // the store being wrapped
	p string // the prefix for our keys
}

func (ps prefixstore) Exists(key string) bool {
	return ps.s.Exists(ps.p + key)
}

func (ps prefixstore) Get(key string) ([]byte, error) {
	return ps.s.Get(ps.p + key)
}

func (ps prefixstore) Put(key string, body []byte) error {
	return ps.s.Put(ps.p+key, body)
}

func (ps prefixstore) PutFile(key string, path string) error {
	return ps.s.PutFile(ps.p+key, path)
}

func (ps prefixstore) Delete(key string) error {
	return ps.s.Delete(ps.p + key)
}

func (ps prefixstore) DeletePrefix(prefix string) error {
	return ps.s.DeletePrefix(ps.p + prefix)
}

func (ps prefixstore) ListPrefix(prefix string) ([]string, error) {
	var plen = len(ps.p)
	var result []string
	keys, err := ps.s.ListPrefix(ps.p + prefix)
	for _, key := range keys {
		if strings.HasPrefix(key, ps.p) {
			result = append(result, key[plen:])
		}
	}
	return result, err
}

func (ps prefixstore) Copy(src, dst string) error {
	return ps.s.Copy(ps.p+src, ps.p+dst)
}

func (ps prefixstore) BatchCopy(sources, targets []string) error {
	if len(sources) != len(targets) {
		return ErrBadBatch
	}
	var psources, ptargets []string
	for i := range sources {
		psources = append(psources, ps.p+sources[i])
		ptargets = append(ptargets, ps.p+targets[i])
	}
	return ps.s.BatchCopy(psources, ptargets)
}

func (ps prefixstore) CreateFolder(key string) error {
	return ps.s.CreateFolder(ps.p + key)
}
