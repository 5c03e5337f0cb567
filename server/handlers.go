package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/catbridge/filestorage/filestore"
	"github.com/catbridge/filestorage/sideindex"
	"github.com/catbridge/filestorage/store"
)

// StageQueueHandler handles requests to POST /queue/:session
//
// It walks the local staging tree of the named upload session and
// copies it into the blob store. A partial failure returns 500 with a
// report listing the paths that could not be staged; the local tree is
// kept so the request can be retried.
func (s *RESTServer) StageQueueHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session := ps.ByName("session")
	err := s.queue.MoveUploadSessionToQueue(session)
	if err == nil {
		fmt.Fprintln(w, "ok")
		return
	}
	if se, ok := errors.Cause(err).(*filestore.StageError); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(500)
		json.NewEncoder(w).Encode(stageFailure(se))
		return
	}
	w.WriteHeader(500)
	fmt.Fprintln(w, err.Error())
}

// QueueHashesHandler handles requests to GET /queue/:session/hashes
func (s *RESTServer) QueueHashesHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	hashes, err := s.queue.HashesFromDir(ps.ByName("session"))
	if err != nil {
		if errors.Cause(err) == sideindex.ErrNotFound {
			w.WriteHeader(404)
		} else {
			w.WriteHeader(500)
		}
		fmt.Fprintln(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(hashes)
}

// DeleteQueueHandler handles requests to DELETE /queue/:session
func (s *RESTServer) DeleteQueueHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	err := s.queue.DeleteQueue(ps.ByName("session"))
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}
	fmt.Fprintln(w, "ok")
}

// MakeCacheHandler handles requests to POST /cache
//
// The JSON body names the content hash, the language, and the local
// paths of the original and converted files.
func (s *RESTServer) MakeCacheHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Hash         string `json:"hash"`
		Lang         string `json:"lang"`
		OriginalPath string `json:"original_path"`
		XliffPath    string `json:"xliff_path"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	err := s.cache.MakeCachePackage(body.Hash, body.Lang, body.OriginalPath, body.XliffPath)
	if err != nil {
		if errors.Cause(err) == filestore.ErrInvalidHash {
			w.WriteHeader(400)
		} else {
			w.WriteHeader(500)
		}
		fmt.Fprintln(w, err.Error())
		return
	}
	fmt.Fprintln(w, "ok")
}

// CacheLookupHandler handles requests to
//
//	GET /cache/:hash/:lang/orig
//	GET /cache/:hash/:lang/xliff
//
// On success it returns {"key": <blob store key>}.
func (s *RESTServer) CacheLookupHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var key string
	var err error
	if strings.HasSuffix(r.URL.Path, "/orig") {
		key, err = s.cache.OriginalFromCache(ps.ByName("hash"), ps.ByName("lang"))
	} else {
		key, err = s.cache.XliffFromCache(ps.ByName("hash"), ps.ByName("lang"))
	}
	writeKeyResult(w, key, err)
}

// PromoteProjectHandler handles requests to POST /project/promote
//
// It copies a cache entry into a project's file directory. A partial
// copy returns 500 with a report of the pairs that failed.
func (s *RESTServer) PromoteProjectHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		DateHashPath string `json:"date_hash_path"`
		Lang         string `json:"lang"`
		FileID       int64  `json:"file_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	err := s.projects.MoveFromCacheToFileDir(body.DateHashPath, body.Lang, body.FileID)
	if err == nil {
		fmt.Fprintln(w, "ok")
		return
	}
	if be, ok := errors.Cause(err).(*store.BatchError); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(500)
		json.NewEncoder(w).Encode(batchFailure(be))
		return
	}
	w.WriteHeader(500)
	fmt.Fprintln(w, err.Error())
}

// ProjectLookupHandler handles requests to
//
//	GET /project/:id/orig?path=<dateHashPath>
//	GET /project/:id/xliff?path=<dateHashPath>
func (s *RESTServer) ProjectLookupHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fileID, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, "bad file id")
		return
	}
	path := r.FormValue("path")
	var key string
	if strings.HasSuffix(r.URL.Path, "/orig") {
		key, err = s.projects.OriginalFromFileDir(fileID, path)
	} else {
		key, err = s.projects.XliffFromFileDir(fileID, path)
	}
	writeKeyResult(w, key, err)
}

// StoreAnalysisHandler handles requests to POST /analysis/:project
//
// The body is the JSON list of segments to save for the project.
func (s *RESTServer) StoreAnalysisHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	projectID, ok := projectParam(w, ps)
	if !ok {
		return
	}
	var segments []filestore.Segment
	if !decodeJSON(w, r, &segments) {
		return
	}
	err := s.analysis.Store(projectID, segments)
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}
	fmt.Fprintln(w, "ok")
}

// FetchAnalysisHandler handles requests to GET /analysis/:project
func (s *RESTServer) FetchAnalysisHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	projectID, ok := projectParam(w, ps)
	if !ok {
		return
	}
	rec, err := s.analysis.Fetch(projectID)
	if err != nil {
		if errors.Cause(err) == store.ErrNotFound {
			w.WriteHeader(404)
		} else {
			w.WriteHeader(500)
		}
		fmt.Fprintln(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// DeleteAnalysisHandler handles requests to DELETE /analysis/:project
func (s *RESTServer) DeleteAnalysisHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	projectID, ok := projectParam(w, ps)
	if !ok {
		return
	}
	err := s.analysis.Delete(projectID)
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}
	fmt.Fprintln(w, "ok")
}

// CacheZipHandler handles requests to POST /zip/cache
func (s *RESTServer) CacheZipHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Hash    string `json:"hash"`
		ZipPath string `json:"zip_path"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	err := s.zips.CacheArchive(body.Hash, body.ZipPath)
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}
	fmt.Fprintln(w, "ok")
}

// LinkZipHandler handles requests to POST /zip/link
//
// The create date is given as "YYYY-MM-DD". A failure mid-relink
// returns 500 with a report naming the key that failed and the keys
// already moved; retrying the request resumes where it stopped.
func (s *RESTServer) LinkZipHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		CreateDate string `json:"create_date"`
		Hash       string `json:"hash"`
		ProjectID  int64  `json:"project_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	createDate, err := time.Parse("2006-01-02", body.CreateDate)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, "bad create_date, want YYYY-MM-DD")
		return
	}
	err = s.zips.LinkToProject(createDate, body.Hash, body.ProjectID)
	if err == nil {
		fmt.Fprintln(w, "ok")
		return
	}
	if re, ok := errors.Cause(err).(*filestore.RelinkError); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(500)
		json.NewEncoder(w).Encode(relinkFailure(re))
		return
	}
	w.WriteHeader(500)
	fmt.Fprintln(w, err.Error())
}

// decodeJSON decodes the request body into v. On a bad body it writes
// a 400 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, "bad request body:", err.Error())
		return false
	}
	return true
}

// projectParam parses the :project route parameter. On a bad value it
// writes a 400 response and returns false.
func projectParam(w http.ResponseWriter, ps httprouter.Params) (int64, bool) {
	projectID, err := strconv.ParseInt(ps.ByName("project"), 10, 64)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, "bad project id")
		return 0, false
	}
	return projectID, true
}

// writeKeyResult finishes a lookup request: 404 when nothing was
// found, otherwise {"key": <key>}.
func writeKeyResult(w http.ResponseWriter, key string, err error) {
	if err != nil {
		switch errors.Cause(err) {
		case store.ErrNotFound:
			w.WriteHeader(404)
		case filestore.ErrInvalidHash:
			w.WriteHeader(400)
		default:
			w.WriteHeader(500)
		}
		fmt.Fprintln(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"key": key})
}

// JSON shapes for partial failure reports. The error values inside the
// manager errors are flattened to strings.

type failedPair struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

func batchFailure(be *store.BatchError) map[string]interface{} {
	var pairs []failedPair
	for _, p := range be.Failed {
		pairs = append(pairs, failedPair{Source: p.Source, Target: p.Target, Error: p.Err.Error()})
	}
	return map[string]interface{}{"failed": pairs}
}

func stageFailure(se *filestore.StageError) map[string]interface{} {
	return map[string]interface{}{
		"session": se.Session,
		"failed":  se.Failed,
	}
}

func relinkFailure(re *filestore.RelinkError) map[string]interface{} {
	return map[string]interface{}{
		"hash":  re.Hash,
		"done":  re.Done,
		"key":   re.Key,
		"error": re.Err.Error(),
	}
}
