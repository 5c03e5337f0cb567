// Package filestore implements the multi-stage file storage layer of a
// translation pipeline on top of a remote key/value blob store.
//
// Files move through a fixed set of blob-store namespaces:
//
//	queue-projects/   raw upload sessions staged for conversion
//	cache-package/    the global deduplicated cache, keyed by content
//	                  hash and target language
//	files/            per-project working copies, promoted from the cache
//	fast-analysis/    one serialized analysis record per project
//	originalZip/      uploaded archives, cached by hash and later
//	                  relinked into a project's work directory
//
// The package holds no authoritative state of its own: every entity
// lives in the blob store, except for the per-session file manifest,
// which lives in a side-index for the lifetime of the upload session.
//
// None of the operations take locks. Multi-object sequences (the batch
// promote and the archive relink) are resumable but not transactional;
// callers must be prepared to re-invoke them after a partial failure.
// The caller is expected to ensure a single writer per cache entry and
// per upload session.
package filestore

// Blob-store namespace roots. These are part of the wire format: any
// consumer reading the trees depends on them.
const (
	CachePackageFolder = "cache-package"
	FilesFolder        = "files"
	QueueFolder        = "queue-projects"
	ZipFolder          = "originalZip"
	FastAnalysisFolder = "fast-analysis"
)

// SafeDelimiter replaces the "|" separator that upstream uses to pair a
// content hash with a language tag. "|" is not safe in object keys.
const SafeDelimiter = "__"

// XliffExtension is the canonical extension given to converted work
// files that are not already in a recognized proprietary format.
const XliffExtension = ".sdlxliff"

// zipPlaceholder namespaces cached archives that have not been linked
// into a project yet.
const zipPlaceholder = "__originalZip__"

// Kind tags a listed cache item with the area it was listed from. The
// tag is attached at the point of listing and never re-derived from the
// key text.
type Kind int

const (
	// KindOriginal is an untouched uploaded file (the orig area).
	KindOriginal Kind = iota
	// KindWork is a converted work file (the work area).
	KindWork
)

// Item is one listed cache entry member.
type Item struct {
	Key  string
	Kind Kind
}
