// Package drivetest provides a fake Google Drive server for tests
package drivetest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	drive "google.golang.org/api/drive/v3"
)

// FolderMimeType is the MIME type Drive gives folders
const FolderMimeType = "application/vnd.google-apps.folder"

// Token is the access token handed out by the fake
const Token = "test-token"

// BrokenID is an id whose requests have their connection dropped
const BrokenID = "broken"

var (
	keyOnce sync.Once
	keyPEM  []byte
	keyErr  error
)

// Server is a fake of the parts of the Drive v3 API used by drivemeta
// and of the OAuth token endpoint
type Server struct {
	t      testing.TB
	mu     sync.Mutex
	files  map[string]*drive.File
	status map[string]int // ids which fail with this HTTP status
	gets   map[string]int
	tokens int32
	server *httptest.Server
}

// New starts a fake Drive which is closed when the test ends
func New(t testing.TB) *Server {
	s := &Server{
		t:      t,
		files:  map[string]*drive.File{},
		status: map[string]int{},
		gets:   map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", s.serveToken)
	mux.HandleFunc("/drive/v3/files/", s.serveFile)
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func (s *Server) serveToken(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.tokens, 1)
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","expires_in":3600}`, Token)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	if got := r.Header.Get("Authorization"); got != "Bearer "+Token {
		s.t.Errorf("bad Authorization header %q", got)
	}
	id := strings.TrimPrefix(r.URL.Path, "/drive/v3/files/")
	if id == BrokenID {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			s.t.Errorf("hijack failed: %v", err)
			return
		}
		_ = conn.Close()
		return
	}
	s.mu.Lock()
	s.gets[id]++
	file, found := s.files[id]
	code, failed := s.status[id]
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if !found && !failed {
		code, failed = http.StatusNotFound, true
	}
	if failed {
		w.WriteHeader(code)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, code, http.StatusText(code))
		return
	}
	if err := json.NewEncoder(w).Encode(file); err != nil {
		s.t.Errorf("encode failed: %v", err)
	}
}

// URL returns the Drive API endpoint to configure
func (s *Server) URL() string {
	return s.server.URL + "/drive/v3/"
}

// TokenURL returns the OAuth token endpoint
func (s *Server) TokenURL() string {
	return s.server.URL + "/token"
}

// Tokens returns how many access tokens have been handed out
func (s *Server) Tokens() int {
	return int(atomic.LoadInt32(&s.tokens))
}

// Gets returns how many times id has been read
func (s *Server) Gets(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[id]
}

// AddFolder adds a folder
func (s *Server) AddFolder(id, name string, parents ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = &drive.File{Id: id, Name: name, MimeType: FolderMimeType, Parents: parents}
}

// AddImage adds a 4096 byte png 1110 pixels high
func (s *Server) AddImage(id, name string, parents ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = &drive.File{
		Id:                 id,
		Name:               name,
		MimeType:           "image/png",
		Size:               4096,
		CreatedTime:        "2022-06-01T10:11:12Z",
		ImageMediaMetadata: &drive.FileImageMediaMetadata{Height: 1110},
		Parents:            parents,
	}
}

// SetStatus makes reads of id fail with the HTTP status code
func (s *Server) SetStatus(id string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = code
}

// Credentials returns service account JSON which gets its tokens
// from this server
func (s *Server) Credentials() string {
	keyOnce.Do(func() {
		var key *rsa.PrivateKey
		key, keyErr = rsa.GenerateKey(rand.Reader, 2048)
		if keyErr != nil {
			return
		}
		keyPEM = pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		})
	})
	if keyErr != nil {
		s.t.Fatalf("failed to make key: %v", keyErr)
	}
	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "drivemeta-test",
		"private_key_id": "test-key",
		"private_key":    string(keyPEM),
		"client_email":   "test@drivemeta-test.iam.gserviceaccount.com",
		"client_id":      "1234",
		"token_uri":      s.TokenURL(),
	})
	if err != nil {
		s.t.Fatalf("failed to make credentials: %v", err)
	}
	return string(data)
}

// Config returns the backend config for this server
func (s *Server) Config() map[string]string {
	return map[string]string{
		"service_account_credentials": s.Credentials(),
		"endpoint":                    s.URL(),
	}
}
