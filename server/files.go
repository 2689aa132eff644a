package server

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/permastore/pstore/names"
	"github.com/permastore/pstore/pstore"
)

// caller resolves the authenticated token user into an account name. The
// token file is the place linking tokens to accounts, so a malformed user
// there means the request can never pass an ownership check.
func caller(w http.ResponseWriter, ps httprouter.Params) (names.Name, bool) {
	user, err := names.Parse(ps.ByName("username"))
	if err != nil {
		w.WriteHeader(403)
		fmt.Fprintf(w, "token user is not a valid account name: %s\n", err.Error())
		return 0, false
	}
	return user, true
}

// filename resolves the :name route parameter.
func filename(w http.ResponseWriter, ps httprouter.Params) (names.Name, bool) {
	n, err := names.Parse(ps.ByName("name"))
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, err.Error())
		return 0, false
	}
	return n, true
}

// CreateFileHandler handles requests to POST /file/:name
func (s *RESTServer) CreateFileHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := caller(w, ps)
	if !ok {
		return
	}
	name, ok := filename(w, ps)
	if !ok {
		return
	}
	err := s.Files.Create(pstore.Account(user), user, name)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(201)
}

// DeleteFileHandler handles requests to DELETE /file/:name
func (s *RESTServer) DeleteFileHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := caller(w, ps)
	if !ok {
		return
	}
	name, ok := filename(w, ps)
	if !ok {
		return
	}
	err := s.Files.Delete(pstore.Account(user), user, name)
	if err != nil {
		writeError(w, err)
	}
}

// ResetFileHandler handles requests to POST /file/:name/reset
func (s *RESTServer) ResetFileHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := caller(w, ps)
	if !ok {
		return
	}
	name, ok := filename(w, ps)
	if !ok {
		return
	}
	err := s.Files.Reset(pstore.Account(user), user, name)
	if err != nil {
		writeError(w, err)
	}
}

// SetPublishedHandler handles requests to PUT /file/:name/published. The
// body is "true" or "false".
func (s *RESTServer) SetPublishedHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := caller(w, ps)
	if !ok {
		return
	}
	name, ok := filename(w, ps)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16))
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, err.Error())
		return
	}
	published, err := strconv.ParseBool(string(body))
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, "body must be true or false")
		return
	}
	err = s.Files.SetPublished(pstore.Account(user), user, name, published)
	if err != nil {
		writeError(w, err)
	}
}

// SetImmutableHandler handles requests to POST /file/:name/immutable.
// There is no undo.
func (s *RESTServer) SetImmutableHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := caller(w, ps)
	if !ok {
		return
	}
	name, ok := filename(w, ps)
	if !ok {
		return
	}
	err := s.Files.SetImmutable(pstore.Account(user), user, name)
	if err != nil {
		writeError(w, err)
	}
}

// SetNodeHandler handles requests to PUT /file/:name/node/:id. The request
// body is the node's payload. The id must be at most the file's current
// top.
func (s *RESTServer) SetNodeHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := caller(w, ps)
	if !ok {
		return
	}
	name, ok := filename(w, ps)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(ps.ByName("id"), 10, 64)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, "bad node id")
		return
	}
	s.upgate.Enter()
	defer s.upgate.Leave()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxNodeSize))
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintf(w, "node payload is limited to %d bytes\n", s.MaxNodeSize)
		return
	}
	err = s.Files.SetNode(pstore.Account(user), user, name, id, data)
	if err != nil {
		writeError(w, err)
	}
}

// DeleteNodeHandler handles requests to DELETE /file/:name/node. Only the
// last node may be removed, so no id is taken.
func (s *RESTServer) DeleteNodeHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := caller(w, ps)
	if !ok {
		return
	}
	name, ok := filename(w, ps)
	if !ok {
		return
	}
	err := s.Files.DeleteNode(pstore.Account(user), user, name)
	if err != nil {
		writeError(w, err)
	}
}

// ListFileHandler handles requests to GET /file
func (s *RESTServer) ListFileHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	writeHTMLorJSON(w, r, listTemplate, s.Files.List())
}

var listTemplate = template.Must(template.New("list").Parse(`<html>
<h1>Files</h1>
<ol>
{{ range . }}
	<li><a href="/file/{{ . }}/metadata">{{ . }}</a></li>
{{ else }}
	<li>No files</li>
{{ end }}
</ol>
</html>`))

// FileInfoHandler handles requests to GET /file/:name/metadata
func (s *RESTServer) FileInfoHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name, ok := filename(w, ps)
	if !ok {
		return
	}
	info, err := s.Files.Stat(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeHTMLorJSON(w, r, infoTemplate, info)
}

var infoTemplate = template.Must(template.New("info").Parse(`<html>
<h1>{{ .Name }}</h1>
<dl>
<dt>Owner</dt><dd>{{ .Owner }}</dd>
<dt>Published</dt><dd>{{ .Published }}</dd>
<dt>Nodes</dt><dd>{{ .Top }}</dd>
<dt>Size</dt><dd>{{ .Size }}</dd>
<dt>Created</dt><dd>{{ .Created }}</dd>
<dt>Modified</dt><dd>{{ .Modified }}</dd>
</dl>
<a href="/file/{{ .Name }}">Content</a>
</html>`))

// ContentHandler handles requests to GET /file/:name, streaming the file's
// nodes in order as one blob.
func (s *RESTServer) ContentHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name, ok := filename(w, ps)
	if !ok {
		return
	}
	info, err := s.Files.Stat(name)
	if err != nil {
		writeError(w, err)
		return
	}
	rc, err := s.Files.Open(name)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("X-Pstore-Published", strconv.FormatBool(info.Published))
	if r.Method == "HEAD" {
		return
	}
	io.Copy(w, rc)
}

// NodeHandler handles requests to GET /file/:name/node/:id, returning the
// payload of a single node.
func (s *RESTServer) NodeHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name, ok := filename(w, ps)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(ps.ByName("id"), 10, 64)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, "bad node id")
		return
	}
	data, err := s.Files.Node(name, id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}
