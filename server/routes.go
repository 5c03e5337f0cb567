package server

import (
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // for pprof server
	"os"
	"path/filepath"

	"github.com/facebookgo/httpdown"
	"github.com/julienschmidt/httprouter"

	"github.com/catbridge/filestorage/filestore"
	"github.com/catbridge/filestorage/sideindex"
	"github.com/catbridge/filestorage/store"
)

// RESTServer holds the configuration for a file storage REST API server.
//
// Set the public fields and then call Run. Run will listen on the given
// port and handle requests. Do not change any fields after calling Run.
//
// Only Store needs to be set. The other fields allow more customization.
type RESTServer struct {
	// Port number to listen on. Defaults to 14000.
	PortNumber string
	PProfPort  string

	// Store is the blob store everything is kept in. Run will panic if
	// Store is nil.
	Store store.Store

	// Index holds the per-session file manifests. If nil, one is set
	// up using MySQL or DataDir below.
	Index sideindex.Index

	// Pass in a dial command to use a MySQL server for the side-index.
	// Otherwise a lightweight internal database is used, placed inside
	// the DataDir directory. If DataDir is also empty the database is
	// kept entirely in the server's memory. (useful for testing).
	// e.g. "user:password@tcp(localhost:5555)/dbname" or just "/dbname"
	// if everything else can be the default.
	MySQL string

	// DataDir is a local scratch directory: the internal database and
	// default upload/zip staging areas live under it.
	DataDir string

	// UploadDir is the local root holding upload session trees.
	// Defaults to DataDir/uploads.
	UploadDir string

	// ZipDir is the local root holding zip archives waiting to be
	// cached. Defaults to DataDir/zips.
	ZipDir string

	// ForceVersion disables the cache short circuit so work files are
	// re-uploaded even when a cached copy exists.
	ForceVersion bool

	// Validator does authentication by decoding any user tokens
	// presented to the API. If this is nil then no authentication will
	// be done.
	Validator TokenDecoder

	cache    *filestore.Cache
	projects *filestore.Project
	queue    *filestore.Queue
	analysis *filestore.Analysis
	zips     *filestore.Zip
	server   httpdown.Server // used to close our listening socket
}

// Run initializes the managers and then blocks listening for and
// handling http requests.
func (s *RESTServer) Run() error {
	log.Println("==========")
	log.Printf("Starting File Storage Server version %s", Version)
	log.Printf("DataDir = %s", s.DataDir)

	if s.Store == nil {
		panic("No blob store given. Store is nil.")
	}

	if s.Validator == nil {
		log.Println("No Validator given")
		s.Validator = NewNobodyDecoder()
	}

	if s.Index == nil {
		var err error
		if s.MySQL != "" {
			log.Printf("Using MySQL")
			s.Index, err = sideindex.NewMysql(s.MySQL)
			if err != nil {
				panic("problem setting up database: " + err.Error())
			}
		} else {
			path := "memory"
			if s.DataDir != "" {
				path = filepath.Join(s.DataDir, "sideindex.ql")
			}
			log.Printf("Using internal database at %s", path)
			s.Index = sideindex.NewQl(path)
		}
	}

	if s.UploadDir == "" && s.DataDir != "" {
		s.UploadDir = filepath.Join(s.DataDir, "uploads")
	}
	if s.ZipDir == "" && s.DataDir != "" {
		s.ZipDir = filepath.Join(s.DataDir, "zips")
	}
	if s.UploadDir != "" {
		os.MkdirAll(s.UploadDir, 0755)
	}
	if s.ZipDir != "" {
		os.MkdirAll(s.ZipDir, 0755)
	}

	s.initManagers()

	// for pprof
	if s.PProfPort != "" {
		log.Println("Starting PProf on port", s.PProfPort)
		go func() {
			log.Println(http.ListenAndServe(":"+s.PProfPort, nil))
		}()
	}
	if s.PortNumber == "" {
		s.PortNumber = "14000"
	}
	log.Println("Listening on", s.PortNumber)

	h := httpdown.HTTP{}
	var err error
	s.server, err = h.ListenAndServe(&http.Server{
		Addr:    ":" + s.PortNumber,
		Handler: s.addRoutes(),
	})
	if err != nil {
		log.Println(err)
		return err
	}
	return s.server.Wait()
}

func (s *RESTServer) initManagers() {
	s.cache = &filestore.Cache{S: s.Store, ForceVersion: s.ForceVersion}
	s.projects = &filestore.Project{S: s.Store}
	s.queue = &filestore.Queue{S: s.Store, Index: s.Index, UploadDir: s.UploadDir}
	s.analysis = &filestore.Analysis{S: s.Store}
	s.zips = &filestore.Zip{S: s.Store, ZipDir: s.ZipDir}
}

// Stop will stop the server and return when the socket is closed.
func (s *RESTServer) Stop() error {
	return s.server.Stop()
}

func (s *RESTServer) addRoutes() http.Handler {
	var routes = []struct {
		method  string
		route   string
		role    Role // RoleUnknown means no API key is needed to access
		handler httprouter.Handle
	}{
		// upload session staging
		{"POST", "/queue/:session", RoleWrite, s.StageQueueHandler},
		{"GET", "/queue/:session/hashes", RoleRead, s.QueueHashesHandler},
		{"DELETE", "/queue/:session", RoleWrite, s.DeleteQueueHandler},

		// the dedup cache
		{"POST", "/cache", RoleWrite, s.MakeCacheHandler},
		{"GET", "/cache/:hash/:lang/orig", RoleRead, s.CacheLookupHandler},
		{"GET", "/cache/:hash/:lang/xliff", RoleRead, s.CacheLookupHandler},

		// project file promotion and lookup
		{"POST", "/project/promote", RoleWrite, s.PromoteProjectHandler},
		{"GET", "/project/:id/orig", RoleRead, s.ProjectLookupHandler},
		{"GET", "/project/:id/xliff", RoleRead, s.ProjectLookupHandler},

		// fast-analysis records
		{"POST", "/analysis/:project", RoleWrite, s.StoreAnalysisHandler},
		{"GET", "/analysis/:project", RoleRead, s.FetchAnalysisHandler},
		{"DELETE", "/analysis/:project", RoleWrite, s.DeleteAnalysisHandler},

		// zip archives
		{"POST", "/zip/cache", RoleWrite, s.CacheZipHandler},
		{"POST", "/zip/link", RoleWrite, s.LinkZipHandler},

		// other
		{"GET", "/", RoleUnknown, WelcomeHandler},
		{"GET", "/debug/vars", RoleUnknown, VarHandler}, // standard route for expvars data
	}

	r := httprouter.New()
	for _, route := range routes {
		r.Handle(route.method,
			route.route,
			logWrapper(s.authzWrapper(route.handler, route.role)))
	}
	return r
}

// General route handlers and convinence functions

// VarHandler adapts the expvar default handler to the httprouter three parameter handler.
func VarHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	// this code is taken from the stdlib expvar package.
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, "{\n")
	first := true
	expvar.Do(func(kv expvar.KeyValue) {
		if !first {
			fmt.Fprintf(w, ",\n")
		}
		first = false
		fmt.Fprintf(w, "%q: %s", kv.Key, kv.Value)
	})
	fmt.Fprintf(w, "\n}\n")
}

// NotImplementedHandler will return a 501 not implemented error.
func NotImplementedHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	w.WriteHeader(http.StatusNotImplemented)
	fmt.Fprintf(w, "Not Implemented\n")
}

// authzWrapper returns a Handler which will first verify the user token as
// having at least the given Role. The user name is added as a parameter
// "username".
func (s *RESTServer) authzWrapper(handler httprouter.Handle, leastRole Role) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := r.Header.Get("X-Api-Key")
		user, role, err := s.Validator.TokenDecode(token)
		if err != nil {
			w.WriteHeader(500)
			fmt.Fprintln(w, err.Error())
			return
		}

		// is role valid?
		if role < leastRole {
			w.WriteHeader(401)
			fmt.Fprintln(w, "Forbidden")
			return
		}

		// remove any previous username
		for i := range ps {
			if ps[i].Key == "username" {
				ps[i].Value = user
				goto out
			}
		}
		// add a new username if none found
		ps = append(ps, httprouter.Param{Key: "username", Value: user})
	out:
		handler(w, r, ps)
	}
}

// logWrapper takes a handler and returns a handler which does the same thing,
// after first logging the request URL.
func logWrapper(handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		log.Println(r.Method, r.URL)
		handler(w, r, ps)
	}
}
