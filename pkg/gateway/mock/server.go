package mock

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/edgefiler/filer_sdk_go/internal/filerapi"
)

const apiPrefix = "/api"

// Handler serves the mock over the management API wire format, so that HTTP
// gateways can talk to it.
func (m *Mock) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, apiPrefix)
		if path == r.URL.Path || path == "" {
			writeError(w, http.StatusNotFound, "unknown endpoint")
			return
		}
		switch r.Method {
		case http.MethodGet:
			m.serveGet(w, r, path)
		case http.MethodPut:
			m.servePut(w, r, path)
		case http.MethodPost:
			m.serveAction(w, r, path)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}

func (m *Mock) serveGet(w http.ResponseWriter, r *http.Request, path string) {
	if !strings.HasPrefix(path, filerapi.TaskPrefix) && !m.has(path) {
		writeError(w, http.StatusNotFound, "path not found: "+path)
		return
	}
	data, err := m.Get(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeRaw(w, data)
}

func (m *Mock) servePut(w http.ResponseWriter, r *http.Request, path string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := m.Put(r.Context(), path, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeRaw(w, []byte("null"))
}

func (m *Mock) serveAction(w http.ResponseWriter, r *http.Request, scope string) {
	var req filerapi.ActionEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Type != filerapi.ActionType || req.Name == "" {
		writeError(w, http.StatusBadRequest, "expected a named user-defined action")
		return
	}
	data, err := m.Execute(r.Context(), scope, req.Name, req.Param)
	switch {
	case errors.Is(err, ErrNoHandler):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeRaw(w, data)
}

func (m *Mock) has(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.config[path]
	return ok
}

func writeRaw(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"msg": msg})
}
