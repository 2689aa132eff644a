// Package server exposes the pstore file service as a REST API.
//
// Every route is authenticated by an API token passed in the X-Api-Key
// header. The user a token decodes to is the owner identity for every
// operation it performs, so the ownership checks of the file service apply
// to web callers exactly as they do to any other host.
package server

import (
	"encoding/json"
	"expvar"
	"fmt"
	"html/template"
	"log"
	"net/http"
	_ "net/http/pprof" // for pprof server
	"os"
	"path/filepath"

	"github.com/facebookgo/httpdown"
	raven "github.com/getsentry/raven-go"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/permastore/pstore/bids"
	"github.com/permastore/pstore/pstore"
	"github.com/permastore/pstore/store"
	"github.com/permastore/pstore/util"
)

// Version of the server. Set at build time with the linker.
var Version = "devel"

// DefaultMaxNodeSize bounds node payloads. 64,000 bytes keeps a node
// postable as a hex string within common 128 KB command line limits.
const DefaultMaxNodeSize = 64000

// the number of node uploads we let run at a given time. More will wait.
const maxConcurrentUploads = 10

// RESTServer holds the configuration for a pstore REST API server.
//
// Set the public fields and then call Run. Run listens on the given port
// and handles requests until Stop is called. Do not change any fields
// after calling Run.
type RESTServer struct {
	// Port number to listen on. Defaults to 14000.
	PortNumber string
	PProfPort  string

	// StorageDir is the path file records and node payloads are kept
	// under. If empty, everything is held in memory and is lost on exit.
	StorageDir string

	// FileStore overrides StorageDir with an arbitrary store, e.g. an
	// S3 bucket. Leave nil to store under StorageDir.
	FileStore store.Store

	// Pass in a dial command to read the name auction mirror from a
	// MySQL server, e.g. "user:password@tcp(localhost:3306)/dbname".
	// Otherwise a lightweight internal database inside StorageDir is
	// used (entirely in memory when StorageDir is empty too).
	MySQL string

	// DisableSuffixAuth turns off the suffix-bidding rule for dotted
	// names, making every name first come, first served.
	DisableSuffixAuth bool

	// MaxNodeSize bounds the payload of a single node in bytes.
	// Defaults to DefaultMaxNodeSize.
	MaxNodeSize int64

	// Validator authenticates the API tokens presented to the API. If
	// nil, every request is let through as an admin named "nobody".
	Validator TokenDecoder

	// Files is the file service. If nil, Run builds one over StorageDir.
	Files *pstore.Service

	// Bids is the auction registry consulted for dotted names. If nil,
	// Run builds one according to MySQL and StorageDir.
	Bids bids.Registry

	server httpdown.Server // used to close our listening socket
	upgate *util.Gate      // bounds concurrent node uploads
}

// Run initializes the server's stores and then blocks listening for and
// handling http requests.
func (s *RESTServer) Run() error {
	log.Println("==========")
	log.Printf("Starting pstore server version %s", Version)
	log.Printf("StorageDir = %s", s.StorageDir)

	if s.PortNumber == "" {
		s.PortNumber = "14000"
	}
	if s.MaxNodeSize == 0 {
		s.MaxNodeSize = DefaultMaxNodeSize
	}
	if s.Validator == nil {
		log.Println("No Validator given, all requests are admin")
		s.Validator = NewNobodyDecoder()
	}

	if s.Bids == nil {
		var err error
		if s.MySQL != "" {
			log.Printf("Using MySQL bid registry")
			s.Bids, err = bids.NewMysqlRegistry(s.MySQL)
		} else {
			path := "memory"
			if s.StorageDir != "" {
				path = filepath.Join(s.StorageDir, "bids.ql")
			}
			log.Printf("Using internal bid registry at %s", path)
			s.Bids, err = bids.NewQlRegistry(path)
		}
		if err != nil {
			return errors.Wrap(err, "bid registry")
		}
	}

	if s.Files == nil {
		fs := s.FileStore
		if fs == nil && s.StorageDir == "" {
			log.Println("Keeping files in memory")
			fs = store.NewMemory()
		} else if fs == nil {
			path := filepath.Join(s.StorageDir, "files")
			os.MkdirAll(path, 0755)
			fs = store.NewFileSystem(path)
		}
		s.Files = pstore.New(fs, pstore.Authority{
			Bids:     s.Bids,
			Disabled: s.DisableSuffixAuth,
		})
	}
	log.Println("Scanning file records")
	if err := s.Files.Load(); err != nil {
		return errors.Wrap(err, "load files")
	}

	if s.PProfPort != "" {
		log.Println("Starting PProf on port", s.PProfPort)
		go func() {
			log.Println(http.ListenAndServe(":"+s.PProfPort, nil))
		}()
	}
	log.Println("Listening on", s.PortNumber)

	var err error
	h := httpdown.HTTP{}
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

// Stop closes the listening socket and returns once in-flight requests
// have drained.
func (s *RESTServer) Stop() error {
	return s.server.Stop()
}

func (s *RESTServer) addRoutes() http.Handler {
	var routes = []struct {
		method  string
		route   string
		role    Role // RoleUnknown means no API key is needed
		handler httprouter.Handle
	}{
		{"GET", "/file", RoleMDOnly, s.ListFileHandler},
		{"GET", "/file/:name", RoleRead, s.ContentHandler},
		{"HEAD", "/file/:name", RoleRead, s.ContentHandler},
		{"GET", "/file/:name/metadata", RoleMDOnly, s.FileInfoHandler},
		{"GET", "/file/:name/node/:id", RoleRead, s.NodeHandler},

		// the seven mutating operations
		{"POST", "/file/:name", RoleWrite, s.CreateFileHandler},
		{"DELETE", "/file/:name", RoleWrite, s.DeleteFileHandler},
		{"POST", "/file/:name/reset", RoleWrite, s.ResetFileHandler},
		{"PUT", "/file/:name/published", RoleWrite, s.SetPublishedHandler},
		{"POST", "/file/:name/immutable", RoleWrite, s.SetImmutableHandler},
		{"PUT", "/file/:name/node/:id", RoleWrite, s.SetNodeHandler},
		{"DELETE", "/file/:name/node", RoleWrite, s.DeleteNodeHandler},

		// other
		{"GET", "/", RoleUnknown, WelcomeHandler},
		{"GET", "/debug/vars", RoleUnknown, VarHandler}, // standard route for expvars data
	}

	if s.upgate == nil {
		s.upgate = util.NewGate(maxConcurrentUploads)
	}
	if s.MaxNodeSize == 0 {
		s.MaxNodeSize = DefaultMaxNodeSize
	}
	r := httprouter.New()
	for _, route := range routes {
		r.Handle(route.method,
			route.route,
			logWrapper(s.authzWrapper(route.handler, route.role)))
	}
	return r
}

// General route handlers and convenience functions

// WelcomeHandler greets unauthenticated visitors.
func WelcomeHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fmt.Fprintf(w, "PermaStore %s\n", Version)
}

// VarHandler adapts the expvar default handler to the httprouter three
// parameter handler.
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

// writeHTMLorJSON renders val either as JSON or through the given
// template, depending on the request's Accept-Encoding header.
func writeHTMLorJSON(w http.ResponseWriter,
	r *http.Request,
	tmpl *template.Template,
	val interface{}) {

	if r.Header.Get("Accept-Encoding") == "application/json" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(val)
		return
	}
	tmpl.Execute(w, val)
}

// authzWrapper returns a Handler which verifies the request token has at
// least the given Role. The token's user name is added as the parameter
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
		ps = append(ps, httprouter.Param{Key: "username", Value: user})
	out:
		handler(w, r, ps)
	}
}

// logWrapper takes a handler and returns one that logs the request URL
// first.
func logWrapper(handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		log.Println(r.Method, r.URL)
		handler(w, r, ps)
	}
}

// writeError maps a file service error to an HTTP status. Unrecognized
// errors are treated as internal and reported to sentry.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch errors.Cause(err) {
	case pstore.ErrFileNotFound, pstore.ErrNoSuchNode:
		status = 404
	case pstore.ErrFileExists:
		status = 409
	case pstore.ErrNotOwner,
		pstore.ErrNotAuthenticated,
		pstore.ErrSuffixNotSold,
		pstore.ErrSuffixNotOwned,
		pstore.ErrSuffixRequired:
		status = 403
	case pstore.ErrEmptyName,
		pstore.ErrEmptyData,
		pstore.ErrPastTop,
		pstore.ErrEmptyFile,
		pstore.ErrNotPublished:
		status = 400
	default:
		status = 500
		raven.CaptureError(err, nil)
	}
	w.WriteHeader(status)
	fmt.Fprintln(w, err.Error())
}
