package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorize(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	// A dropped client must not abort a half written build.
	if err := s.site.BuildStatic(s.ctx); err != nil {
		s.logger.Error("rebuild", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "built"})
}

func (s *Server) authorize(r *http.Request) bool {
	secret := strings.TrimSpace(s.opts.RebuildSecret)
	if secret == "" {
		return true
	}
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// handlePage serves built files. Extensionless paths fall back to the .html
// page and then to the directory index, so /blog/post finds blog/post.html.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	root := s.site.OutputDir()
	clean := sanitizeRequestPath(r.URL.Path)
	for _, candidate := range candidates(clean) {
		target := filepath.Join(root, filepath.FromSlash(candidate))
		if !isWithin(root, target) {
			continue
		}
		if s.serveFile(w, r, target) {
			return
		}
	}
	writeError(w, http.StatusNotFound, "not found")
}

func candidates(clean string) []string {
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" {
		return []string{"index.html"}
	}
	if path.Ext(rel) != "" {
		return []string{rel, path.Join(rel, "index.html")}
	}
	return []string{rel + ".html", path.Join(rel, "index.html"), rel}
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, target string) bool {
	info, err := s.fs.Stat(target)
	if err != nil || info.IsDir() {
		return false
	}
	file, err := s.fs.Open(target)
	if err != nil {
		return false
	}
	defer file.Close()
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
