// Package sharefiletest provides an in-memory ShareFile account served over
// httptest, covering the password grant and the v3 endpoints used by the
// sharefile package.
package sharefiletest

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"regexp"
	"slices"
	"sync"
	"testing"
)

// Fixed account values accepted by the server.
const (
	Username     = "user@example.com"
	Password     = "correct-horse"
	ClientID     = "client-id"
	ClientSecret = "client-secret"
	AccessToken  = "access-1"
	RootID       = "fo-root"
	RootName     = "Root"
)

var itemRoute = regexp.MustCompile(`^/sf/v3/Items\(([^)]+)\)(?:/(\w+))?$`)

// SentShare is a Shares/Send request body as received.
type SentShare struct {
	Items          []string
	Emails         []string
	Subject        string
	Body           string
	MaxDownloads   int
	ExpirationDays int
}

type item struct {
	id       string
	name     string
	desc     string
	parent   string
	folder   bool
	children []string
	data     []byte
}

type pendingUpload struct {
	parent string
	name   string
}

// Server is a fake ShareFile account. Items live in memory; folder creation
// and uploads replace a same-named sibling.
type Server struct {
	tb  testing.TB
	srv *httptest.Server

	mu          sync.Mutex
	items       map[string]*item
	nextID      int
	uploads     map[string]pendingUpload
	sent        []SentShare
	lastGrant   map[string]string
	failUploads bool
}

// NewServer starts a Server holding only the root folder. It is closed
// when the test ends.
func NewServer(tb testing.TB) *Server {
	tb.Helper()

	s := &Server{
		tb:      tb,
		items:   map[string]*item{RootID: {id: RootID, name: RootName, folder: true}},
		uploads: make(map[string]pendingUpload),
	}

	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	tb.Cleanup(s.srv.Close)

	return s
}

// URL is the server root.
func (s *Server) URL() string { return s.srv.URL }

// TokenURL is the password grant endpoint.
func (s *Server) TokenURL() string { return s.srv.URL + "/oauth/token" }

// APIBaseURL is the v3 API root.
func (s *Server) APIBaseURL() string { return s.srv.URL + "/sf/v3/" }

// Client returns an HTTP client configured for the server.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// Sent returns the share emails received so far.
func (s *Server) Sent() []SentShare {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.sent)
}

// LastGrant returns the form fields of the most recent token request.
func (s *Server) LastGrant() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Clone(s.lastGrant)
}

// FailUploads makes the chunk endpoint report a rejected upload.
func (s *Server) FailUploads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failUploads = fail
}

// Content returns the stored bytes of a file item.
func (s *Server) Content(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok || it.folder {
		return nil, false
	}

	return slices.Clone(it.data), true
}

func (s *Server) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *Server) childNamed(parent, name string) string {
	for _, id := range s.items[parent].children {
		if s.items[id].name == name {
			return id
		}
	}

	return ""
}

func (s *Server) remove(id string) {
	it := s.items[id]
	for _, c := range slices.Clone(it.children) {
		s.remove(c)
	}

	delete(s.items, id)

	if p, ok := s.items[it.parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(c string) bool { return c == id })
	}
}

func (s *Server) add(parent string, it *item) {
	if old := s.childNamed(parent, it.name); old != "" {
		s.remove(old)
	}

	it.parent = parent
	s.items[it.id] = it
	s.items[parent].children = append(s.items[parent].children, it.id)
}

func (s *Server) itemJSON(it *item, expand bool) map[string]any {
	m := map[string]any{
		"Id":            it.id,
		"Name":          it.name,
		"FileName":      it.name,
		"Description":   it.desc,
		"FileSizeBytes": len(it.data),
		"CreationDate":  "2024-05-09T15:06:54.237Z",
		"url":           s.srv.URL + "/sf/v3/Items(" + it.id + ")",
		"odata.type":    "ShareFile.Api.Models.File",
	}

	if it.folder {
		m["odata.type"] = "ShareFile.Api.Models.Folder"
	}

	if it.parent != "" {
		m["Parent"] = map[string]any{"Id": it.parent}
	}

	if expand {
		children := []map[string]any{}
		for _, c := range it.children {
			children = append(children, s.itemJSON(s.items[c], false))
		}

		m["Children"] = children
	}

	return m
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.tb.Errorf("sharefiletest: encoding response: %v", err)
	}
}

func (s *Server) notFound(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusNotFound, map[string]any{
		"code":    "NotFound",
		"message": map[string]any{"lang": "en-US", "value": "Item not found"},
	})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.URL.Path {
	case "/oauth/token":
		s.serveToken(w, r)
		return
	case "/upload-chunk":
		s.serveChunk(w, r)
		return
	case "/dl":
		it, ok := s.items[r.URL.Query().Get("id")]
		if !ok {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write(it.data)

		return
	}

	if r.Header.Get("Authorization") != "Bearer "+AccessToken {
		s.writeJSON(w, http.StatusUnauthorized, map[string]any{"code": "Unauthorized"})
		return
	}

	switch {
	case r.URL.Path == "/sf/v3/Sessions/Login":
		s.writeJSON(w, http.StatusOK, map[string]any{
			"Id": "sess-1",
			"Principal": map[string]any{
				"Id": "usr-1", "Name": "Test User", "Email": Username, "Username": Username,
			},
		})
	case r.URL.Path == "/sf/v3/Items" && r.Method == http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.itemJSON(s.items[RootID], r.URL.Query().Get("$expand") == "Children"))
	case r.URL.Path == "/sf/v3/Shares" && r.Method == http.MethodPost:
		s.serveCreateShare(w, r)
	case r.URL.Path == "/sf/v3/Shares/Send" && r.Method == http.MethodPost:
		var p SentShare
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.sent = append(s.sent, p)
		w.WriteHeader(http.StatusNoContent)
	default:
		s.serveItem(w, r)
	}
}

func (s *Server) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.lastGrant = map[string]string{}
	for k := range r.PostForm {
		s.lastGrant[k] = r.PostForm.Get(k)
	}

	if r.PostForm.Get("grant_type") != "password" || r.PostForm.Get("password") != Password {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "username or password is incorrect",
		})

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  AccessToken,
		"refresh_token": "refresh-1",
		"token_type":    "bearer",
		"expires_in":    28800,
	})
}

func (s *Server) serveItem(w http.ResponseWriter, r *http.Request) {
	m := itemRoute.FindStringSubmatch(r.URL.Path)
	if m == nil {
		http.NotFound(w, r)
		return
	}

	it, ok := s.items[m[1]]
	if !ok {
		s.notFound(w)
		return
	}

	switch m[2] {
	case "":
		s.writeJSON(w, http.StatusOK, s.itemJSON(it, false))
	case "Folder":
		s.serveCreateFolder(w, r, it)
	case "Upload2":
		var req struct {
			Method   string
			FileName string
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		token := s.newID("up")
		s.uploads[token] = pendingUpload{parent: it.id, name: req.FileName}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"Method":   req.Method,
			"ChunkUri": s.srv.URL + "/upload-chunk?uploadid=" + token,
		})
	case "Download":
		if r.URL.Query().Get("redirect") != "false" {
			http.Redirect(w, r, s.srv.URL+"/dl?id="+it.id, http.StatusFound)
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]any{
			"DownloadToken": "dt-1",
			"DownloadUrl":   s.srv.URL + "/dl?id=" + it.id,
		})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveCreateFolder(w http.ResponseWriter, r *http.Request, parent *item) {
	var body struct{ Name, Description string }
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("overwrite") != "true" && s.childNamed(parent.id, body.Name) != "" {
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"code":    "Conflict",
			"message": map[string]any{"lang": "en-US", "value": "An item with this name already exists"},
		})

		return
	}

	folder := &item{id: s.newID("fo"), name: body.Name, desc: body.Description, folder: true}
	s.add(parent.id, folder)
	s.writeJSON(w, http.StatusOK, s.itemJSON(folder, false))
}

func (s *Server) serveChunk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	up, ok := s.uploads[q.Get("uploadid")]
	if !ok || q.Get("fmt") != "json" {
		http.Error(w, "bad upload", http.StatusBadRequest)
		return
	}

	delete(s.uploads, q.Get("uploadid"))

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.failUploads {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"error": true, "errorMessage": "quota exceeded", "errorCode": 507,
		})

		return
	}

	file := &item{id: s.newID("fi"), name: up.name, data: data}
	s.add(up.parent, file)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"error": false,
		"value": []map[string]any{{"id": file.id, "filename": file.name, "size": len(data)}},
	})
}

func (s *Server) serveCreateShare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShareType string
		Items     []struct{ ID string `json:"Id"` }
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		http.Error(w, "bad share", http.StatusBadRequest)
		return
	}

	it, ok := s.items[req.Items[0].ID]
	if !ok {
		s.notFound(w)
		return
	}

	id := s.newID("s")
	s.writeJSON(w, http.StatusOK, map[string]any{
		"Id":           id,
		"Uri":          "https://acme.sharefile.com/d-" + id,
		"ShareType":    req.ShareType,
		"MaxDownloads": -1,
		"Items":        []map[string]any{s.itemJSON(it, false)},
	})
}
