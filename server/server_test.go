package server

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/catbridge/filestorage/sideindex"
	"github.com/catbridge/filestorage/store"
)

const testHash = "6981e08bf0851c1d0e004f72a1f6e9425ca00377"

func TestWelcome(t *testing.T) {
	text := getbody(t, "GET", "/", 200)
	if !strings.Contains(text, "File Storage") {
		t.Errorf("Received %#v, expected a welcome banner", text)
	}
}

func TestCacheRoutes(t *testing.T) {
	orig := writeTempFile(t, "report.docx", "original payload")
	xliff := writeTempFile(t, "report.docx.sdlxliff", "<xliff></xliff>")

	checkStatus(t, "GET", "/cache/"+testHash+"/en-US/orig", 404)

	uploadjson(t, "POST", "/cache",
		`{"hash":"`+testHash+`","lang":"en-US","original_path":"`+jsonpath(orig)+`","xliff_path":"`+jsonpath(xliff)+`"}`, 200)

	text := getbody(t, "GET", "/cache/"+testHash+"/en-US/orig", 200)
	if !strings.Contains(text, "/orig/report.docx") {
		t.Errorf("Received %#v, expected an orig key", text)
	}
	text = getbody(t, "GET", "/cache/"+testHash+"/en-US/xliff", 200)
	if !strings.Contains(text, "/work/report.docx.sdlxliff") {
		t.Errorf("Received %#v, expected a work key", text)
	}

	// malformed hashes are rejected before touching the store
	uploadjson(t, "POST", "/cache",
		`{"hash":"abc","lang":"en-US","xliff_path":"`+jsonpath(xliff)+`"}`, 400)
	checkStatus(t, "GET", "/cache/abc/en-US/orig", 400)
}

func TestQueueRoutes(t *testing.T) {
	const session = "testsession01"
	root := filepath.Join(testUploadDir, session)
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	hashfile := filepath.Join(root, testHash)
	if err := ioutil.WriteFile(hashfile, []byte("report.docx\n"), 0644); err != nil {
		t.Fatal(err)
	}
	payload := filepath.Join(root, "report.docx")
	if err := ioutil.WriteFile(payload, []byte("contents"), 0644); err != nil {
		t.Fatal(err)
	}

	checkStatus(t, "GET", "/queue/"+session+"/hashes", 404)
	checkStatus(t, "POST", "/queue/"+session, 200)

	text := getbody(t, "GET", "/queue/"+session+"/hashes", 200)
	if !strings.Contains(text, "queue-projects/"+session+"/"+testHash) {
		t.Errorf("Received %#v, expected the staged hash key", text)
	}
	if !strings.Contains(text, "report.docx") {
		t.Errorf("Received %#v, expected the original file name", text)
	}

	// the staging tree is consumed on a clean walk
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("staging tree %s still exists", root)
	}

	checkStatus(t, "DELETE", "/queue/"+session, 200)
	if testStore.Exists("queue-projects/" + session + "/report.docx") {
		t.Errorf("queue tree still in store after delete")
	}
}

func TestProjectRoutes(t *testing.T) {
	const hash = "aaaae08bf0851c1d0e004f72a1f6e9425ca00377"
	prefix := "cache-package/aa/aa/e08bf0851c1d0e004f72a1f6e9425ca00377__it-it"
	seed(t, prefix+"/orig/manual.docx", "original")
	seed(t, prefix+"/work/manual.docx.sdlxliff", "work")

	uploadjson(t, "POST", "/project/promote",
		`{"date_hash_path":"20181212/`+hash+`","lang":"it-IT","file_id":42}`, 200)

	text := getbody(t, "GET", "/project/42/orig?path=20181212/"+hash, 200)
	if !strings.Contains(text, "files/20181212/42/orig/manual.docx") {
		t.Errorf("Received %#v, expected the project orig key", text)
	}
	text = getbody(t, "GET", "/project/42/xliff?path=20181212/"+hash, 200)
	if !strings.Contains(text, "files/20181212/42/xliff/manual.docx.sdlxliff") {
		t.Errorf("Received %#v, expected the project xliff key", text)
	}

	checkStatus(t, "GET", "/project/notanumber/orig?path=20181212/"+hash, 400)
	checkStatus(t, "GET", "/project/504/orig?path=20181212/"+hash, 404)
}

func TestAnalysisRoutes(t *testing.T) {
	checkStatus(t, "GET", "/analysis/77", 404)
	uploadjson(t, "POST", "/analysis/77",
		`[{"file_id":1,"internal_id":"seg-1","text":"Hello","word_count":1}]`, 200)

	text := getbody(t, "GET", "/analysis/77", 200)
	if !strings.Contains(text, "seg-1") {
		t.Errorf("Received %#v, expected the stored segment", text)
	}

	checkStatus(t, "DELETE", "/analysis/77", 200)
	checkStatus(t, "GET", "/analysis/77", 404)
	checkStatus(t, "GET", "/analysis/notanumber", 400)
}

func TestZipRoutes(t *testing.T) {
	const hash = "bbbbe08bf0851c1d0e004f72a1f6e9425ca00377"
	archive := writeTempFile(t, "bundle.zip", "zip bytes")

	uploadjson(t, "POST", "/zip/cache",
		`{"hash":"`+hash+`","zip_path":"`+jsonpath(archive)+`"}`, 200)
	if !testStore.Exists("originalZip/cache/" + hash + "__originalZip__/bundle.zip") {
		t.Fatal("cached archive not in store")
	}

	uploadjson(t, "POST", "/zip/link",
		`{"create_date":"2018-12-12","hash":"`+hash+`","project_id":7}`, 200)
	if !testStore.Exists("originalZip/work/20181212/7/bundle.zip") {
		t.Error("relinked archive not in project work dir")
	}

	uploadjson(t, "POST", "/zip/link",
		`{"create_date":"12/12/2018","hash":"`+hash+`","project_id":7}`, 400)
}

func uploadjson(t *testing.T, verb, route string, body string, expstatus int) {
	req, err := http.NewRequest(verb, testServer.URL+route, strings.NewReader(body))
	if err != nil {
		t.Fatal("Problem creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(route, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != expstatus {
		text, _ := ioutil.ReadAll(resp.Body)
		t.Errorf("%s: Expected status %d and received %d (%s)",
			route,
			expstatus,
			resp.StatusCode,
			text)
	}
}

func getbody(t *testing.T, verb, route string, expstatus int) string {
	resp := checkRoute(t, verb, route, expstatus)
	if resp != nil {
		body, err := ioutil.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(route, err)
		}
		resp.Body.Close()
		return string(body)
	}
	return ""
}

func checkStatus(t *testing.T, verb, route string, expstatus int) {
	resp := checkRoute(t, verb, route, expstatus)
	if resp != nil {
		resp.Body.Close()
	}
}

func checkRoute(t *testing.T, verb, route string, expstatus int) *http.Response {
	req, err := http.NewRequest(verb, testServer.URL+route, nil)
	if err != nil {
		t.Fatal("Problem creating request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(route, err)
		return nil
	}
	if resp.StatusCode != expstatus {
		t.Errorf("%s: Expected status %d and received %d",
			route,
			expstatus,
			resp.StatusCode)
		resp.Body.Close()
		return nil
	}
	return resp
}

func writeTempFile(t *testing.T, name, content string) string {
	dir, err := ioutil.TempDir("", "fsserver")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// jsonpath makes a filesystem path safe for embedding in a JSON string.
func jsonpath(p string) string {
	return strings.Replace(p, `\`, `\\`, -1)
}

func seed(t *testing.T, key, content string) {
	if err := testStore.Put(key, []byte(content)); err != nil {
		t.Fatal(err)
	}
}

var (
	testServer    *httptest.Server
	testStore     *store.Memory
	testUploadDir string
)

func init() {
	testStore = store.NewMemory()
	testUploadDir, _ = ioutil.TempDir("", "fsqueue")
	s := &RESTServer{
		Store:     testStore,
		Index:     sideindex.NewMemory(),
		Validator: NewNobodyDecoder(),
		UploadDir: testUploadDir,
	}
	s.initManagers()
	testServer = httptest.NewServer(s.addRoutes())
}
