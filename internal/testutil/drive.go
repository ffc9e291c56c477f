package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"regexp"
	"strings"
	"sync"
	"testing"
)

// DriveAccessToken is the only bearer token DriveServer accepts.
const DriveAccessToken = "test-access-token"

// DriveUser is the display name DriveServer reports for the signed-in account.
const DriveUser = "Test User"

var driveNameQuery = regexp.MustCompile(`name = '((?:[^'\\]|\\.)*)'`)

// DriveServer is an in-memory stand-in for the Drive v3 endpoints the
// remote backend calls: about, files list, download, create and update.
type DriveServer struct {
	*httptest.Server

	mu    sync.Mutex
	files map[string]driveFile // by id
	next  int
}

type driveFile struct {
	name string
	data []byte
}

// StartDriveServer starts a DriveServer that is closed when the test ends.
func StartDriveServer(t *testing.T) *DriveServer {
	t.Helper()
	d := &DriveServer{files: make(map[string]driveFile)}
	d.Server = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.Close)
	return d
}

// Document returns the content of the named document.
func (d *DriveServer) Document(name string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.files {
		if f.name == name {
			return f.data, true
		}
	}
	return nil, false
}

// PutDocument stores a document as if another client had written it.
func (d *DriveServer) PutDocument(name string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.files[fmt.Sprintf("file-%d", d.next)] = driveFile{name: name, data: data}
}

func (d *DriveServer) serve(w http.ResponseWriter, r *http.Request) {
	if strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") != DriveAccessToken {
		driveError(w, http.StatusUnauthorized, "Invalid Credentials")
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p := r.URL.Path
	switch {
	case strings.HasSuffix(p, "/about"):
		driveJSON(w, map[string]interface{}{
			"user": map[string]string{"displayName": DriveUser, "emailAddress": "test@example.com"},
		})

	case r.Method == http.MethodGet && strings.HasSuffix(p, "/files"):
		var want string
		if m := driveNameQuery.FindStringSubmatch(r.URL.Query().Get("q")); m != nil {
			want = strings.ReplaceAll(m[1], `\'`, `'`)
		}
		files := []map[string]string{}
		for id, f := range d.files {
			if f.name == want {
				files = append(files, map[string]string{"id": id, "name": f.name})
			}
		}
		driveJSON(w, map[string]interface{}{"files": files})

	case r.Method == http.MethodGet && strings.Contains(p, "/files/"):
		f, ok := d.files[path.Base(p)]
		if !ok {
			driveError(w, http.StatusNotFound, "File not found")
			return
		}
		_, _ = w.Write(f.data)

	case r.Method == http.MethodPost && strings.HasSuffix(p, "/files"):
		name, data, err := readDriveUpload(r)
		if err != nil {
			driveError(w, http.StatusBadRequest, err.Error())
			return
		}
		d.next++
		id := fmt.Sprintf("file-%d", d.next)
		d.files[id] = driveFile{name: name, data: data}
		driveJSON(w, map[string]string{"id": id})

	case r.Method == http.MethodPatch && strings.Contains(p, "/files/"):
		id := path.Base(p)
		f, ok := d.files[id]
		if !ok {
			driveError(w, http.StatusNotFound, "File not found")
			return
		}
		_, data, err := readDriveUpload(r)
		if err != nil {
			driveError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.data = data
		d.files[id] = f
		driveJSON(w, map[string]string{"id": id})

	default:
		driveError(w, http.StatusNotFound, "no route for "+r.Method+" "+p)
	}
}

// readDriveUpload returns the file name and media of a multipart upload.
func readDriveUpload(r *http.Request) (string, []byte, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "", nil, err
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		data, err := io.ReadAll(r.Body)
		return "", data, err
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	var parts [][]byte
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}
		data, _ := io.ReadAll(part)
		parts = append(parts, data)
	}
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("expected 2 parts, got %d", len(parts))
	}

	var meta struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(parts[0], &meta); err != nil {
		return "", nil, err
	}
	return meta.Name, parts[1], nil
}

func driveJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func driveError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"code": status, "message": msg},
	})
}
