package filestore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/catbridge/filestorage/sideindex"
	"github.com/catbridge/filestorage/store"
)

// Queue stages raw upload sessions into the blob store and remembers
// each session's file manifest in the side-index.
type Queue struct {
	S     store.Store
	Index sideindex.Index

	// UploadDir is the local root holding one staging tree per upload
	// session.
	UploadDir string
}

// fileMapField is the side-index field the manifest is stored under.
const fileMapField = "file_map"

const fileMapVersion = 1

// FileMap is the versioned manifest of a staged upload session: for
// every staged hash key (a queue key with no extension) the list of
// original file names read from that key's payload.
type FileMap struct {
	Version int                 `json:"version"`
	Entries map[string][]string `json:"entries"`
}

// StageError reports the destination keys of a session staging that
// could not be uploaded. The rest of the tree was staged, the file map
// was written for the staged subset, and the local staging tree was
// kept so the session can be staged again.
type StageError struct {
	Session string
	Failed  []string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("staging session %s: %d item(s) failed: %s",
		e.Session, len(e.Failed), strings.Join(e.Failed, ", "))
}

// MoveUploadSessionToQueue walks the session's local staging tree,
// parents before children, and mirrors it into the blob store under
// queue-projects/<safe session name>/. Directories become folder
// markers. Staged sub-paths are lower-cased, and the "|" that upstream
// uses to pair a hash with a language tag becomes the safe "__"
// delimiter.
//
// The payload of every staged key with no extension is the list of
// original file names for that content hash; the lists are accumulated
// and saved into the side-index as the session's file map.
//
// On a fully clean walk the local staging tree is deleted. Individual
// upload failures do not stop the walk; they come back in a single
// StageError and the staging tree is left in place for a retry.
func (q *Queue) MoveUploadSessionToQueue(session string) error {
	root := filepath.Join(q.UploadDir, session)
	safeName := SessionSafeName(session)
	prefix := QueueFolder + "/" + safeName
	entries := make(map[string][]string)
	var failed []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := prefix + "/" + safeSubPath(rel)

		if info.IsDir() {
			if err := q.S.CreateFolder(key); err != nil {
				failed = append(failed, key)
			}
			return nil
		}
		if err := q.S.PutFile(key, path); err != nil {
			log.Printf("Error uploading %s to queue: %s", path, err.Error())
			failed = append(failed, key)
			return nil
		}
		if !strings.Contains(key, ".") {
			// the staged key is a content hash; its payload lists the
			// original file names
			names, err := readLines(path)
			if err != nil {
				failed = append(failed, key)
				return nil
			}
			entries[key] = names
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "walking upload session %s", session)
	}

	value, err := json.Marshal(FileMap{Version: fileMapVersion, Entries: entries})
	if err != nil {
		return errors.Wrap(err, "encoding file map")
	}
	if err = q.Index.HashSet(safeName, fileMapField, value); err != nil {
		return errors.Wrapf(err, "saving file map for session %s", session)
	}

	if len(failed) > 0 {
		return &StageError{Session: session, Failed: failed}
	}
	if err = os.RemoveAll(root); err != nil {
		log.Printf("cannot remove staging tree %s: %s", root, err.Error())
	}
	return nil
}

// Hashes is what the conversion step reads back for a staged session.
type Hashes struct {
	Conversion ConversionHashes `json:"conversionHashes"`
	Zip        []string         `json:"zipHashes"`
}

// ConversionHashes lists the staged hash keys and, for each, the
// original file names uploaded under that hash.
type ConversionHashes struct {
	Sha      []string            `json:"sha"`
	FileName map[string][]string `json:"fileName"`
}

// HashesFromDir reads back the file map of the session named by the
// last path segment of dirPath. Zip hashes are tracked by the archive
// manager, not here, and always come back empty.
func (q *Queue) HashesFromDir(dirPath string) (Hashes, error) {
	result := Hashes{
		Conversion: ConversionHashes{FileName: make(map[string][]string)},
		Zip:        []string{},
	}
	safeName := SessionSafeName(lastKeyPart(dirPath))
	value, err := q.Index.HashGet(safeName, fileMapField)
	if err != nil {
		return result, err
	}
	var fm FileMap
	if err = json.Unmarshal(value, &fm); err != nil {
		return result, errors.Wrapf(err, "decoding file map for session %s", safeName)
	}
	for key, names := range fm.Entries {
		result.Conversion.Sha = append(result.Conversion.Sha, key)
		result.Conversion.FileName[key] = names
	}
	sort.Strings(result.Conversion.Sha)
	return result, nil
}

// DeleteQueue removes every staged blob of the session named by the
// last path segment of uploadDir.
func (q *Queue) DeleteQueue(uploadDir string) error {
	return q.S.DeletePrefix(QueueFolder + "/" + SessionSafeName(lastKeyPart(uploadDir)))
}

// safeSubPath converts a staging-tree relative path into its blob-store
// form: forward slashes, lower-case, "|" replaced by the safe
// delimiter.
func safeSubPath(rel string) string {
	s := strings.ToLower(filepath.ToSlash(rel))
	return strings.Replace(s, "|", SafeDelimiter, -1)
}

// readLines returns the lines of the file at path, without their line
// endings.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
