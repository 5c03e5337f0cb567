// Package client is a Go API to the file storage server. It talks to
// the REST interface and hides the route layout from callers.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"time"

	"github.com/antonholmquist/jason"
)

// Exported errors
var (
	ErrNotFound       = errors.New("Not found on server")
	ErrNotAuthorized  = errors.New("Access Denied")
	ErrBadRequest     = errors.New("Server rejected the request")
	ErrUnexpectedResp = errors.New("Unexpected Response Code")
)

// A Connection holds the endpoint and credentials of a file storage
// server. An empty Token means no authentication is attempted.
type Connection struct {
	HostURL string
	Token   string

	client *http.Client
}

// StageQueue asks the server to move the named upload session into the
// blob store.
func (c *Connection) StageQueue(session string) error {
	return c.doPost("/queue/"+session, nil)
}

// QueueHashes returns the staged hash manifest of an upload session.
func (c *Connection) QueueHashes(session string) (*jason.Object, error) {
	return c.doJasonGet("/queue/" + session + "/hashes")
}

// DeleteQueue removes the staged queue tree of an upload session.
func (c *Connection) DeleteQueue(session string) error {
	return c.doDelete("/queue/" + session)
}

// MakeCache asks the server to build the cache entry for (hash, lang)
// from the given local paths. The paths are local to the server.
func (c *Connection) MakeCache(hash, lang, originalPath, xliffPath string) error {
	return c.doPost("/cache", map[string]interface{}{
		"hash":          hash,
		"lang":          lang,
		"original_path": originalPath,
		"xliff_path":    xliffPath,
	})
}

// CacheOriginal returns the blob key of the cached original for
// (hash, lang).
func (c *Connection) CacheOriginal(hash, lang string) (string, error) {
	return c.doKeyGet("/cache/" + hash + "/" + lang + "/orig")
}

// CacheXliff returns the blob key of the cached work file for
// (hash, lang).
func (c *Connection) CacheXliff(hash, lang string) (string, error) {
	return c.doKeyGet("/cache/" + hash + "/" + lang + "/xliff")
}

// Promote copies a cache entry into a project's file directory.
func (c *Connection) Promote(dateHashPath, lang string, fileID int64) error {
	return c.doPost("/project/promote", map[string]interface{}{
		"date_hash_path": dateHashPath,
		"lang":           lang,
		"file_id":        fileID,
	})
}

// ProjectOriginal returns the blob key of a project file's original.
func (c *Connection) ProjectOriginal(fileID int64, dateHashPath string) (string, error) {
	return c.doKeyGet("/project/" + strconv.FormatInt(fileID, 10) + "/orig?path=" + dateHashPath)
}

// ProjectXliff returns the blob key of a project file's work file.
func (c *Connection) ProjectXliff(fileID int64, dateHashPath string) (string, error) {
	return c.doKeyGet("/project/" + strconv.FormatInt(fileID, 10) + "/xliff?path=" + dateHashPath)
}

// Analysis returns the fast-analysis record of a project.
func (c *Connection) Analysis(projectID int64) (*jason.Object, error) {
	return c.doJasonGet("/analysis/" + strconv.FormatInt(projectID, 10))
}

// DeleteAnalysis removes the fast-analysis record of a project.
func (c *Connection) DeleteAnalysis(projectID int64) error {
	return c.doDelete("/analysis/" + strconv.FormatInt(projectID, 10))
}

// CacheZip asks the server to cache the local archive at zipPath under
// the given hash. The path is local to the server.
func (c *Connection) CacheZip(hash, zipPath string) error {
	return c.doPost("/zip/cache", map[string]interface{}{
		"hash":     hash,
		"zip_path": zipPath,
	})
}

// LinkZip moves a cached archive into a project's dated work directory.
func (c *Connection) LinkZip(createDate time.Time, hash string, projectID int64) error {
	return c.doPost("/zip/link", map[string]interface{}{
		"create_date": createDate.Format("2006-01-02"),
		"hash":        hash,
		"project_id":  projectID,
	})
}

// do performs an http request using our client with a timeout. The
// timeout is arbitrary, and is just there so we don't hang indefinitely
// should the server never close the connection.
func (c *Connection) do(req *http.Request) (*http.Response, error) {
	if c.Token != "" {
		req.Header.Add("X-Api-Key", c.Token)
	}
	if c.client == nil {
		c.client = &http.Client{
			Timeout: 10 * time.Minute, // arbitrary
		}
	}
	return c.client.Do(req)
}

func (c *Connection) doPost(path string, body map[string]interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	req, err := http.NewRequest("POST", c.HostURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return statusError(resp)
}

func (c *Connection) doDelete(path string) error {
	req, err := http.NewRequest("DELETE", c.HostURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return statusError(resp)
}

func (c *Connection) doJasonGet(path string) (*jason.Object, error) {
	req, err := http.NewRequest("GET", c.HostURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp); err != nil {
		return nil, err
	}
	return jason.NewObjectFromReader(resp.Body)
}

// doKeyGet performs a lookup request and unwraps the {"key": ...}
// response.
func (c *Connection) doKeyGet(path string) (string, error) {
	v, err := c.doJasonGet(path)
	if err != nil {
		return "", err
	}
	return v.GetString("key")
}

func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case 200:
		return nil
	case 400:
		return ErrBadRequest
	case 404:
		return ErrNotFound
	case 401:
		return ErrNotAuthorized
	default:
		text, _ := ioutil.ReadAll(resp.Body)
		return fmt.Errorf("Received status %d from server: %s", resp.StatusCode, bytes.TrimSpace(text))
	}
}
