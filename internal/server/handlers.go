package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/blumotif/folio/internal/admin"
	"github.com/blumotif/folio/internal/auth"
	"github.com/blumotif/folio/internal/blobstore"
	"github.com/blumotif/folio/internal/site"
)

func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.mirror.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("section")
	if !site.IsSection(name) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown section %q", name))
		return
	}
	v, err := s.mirror.Section(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.mirror.Projects()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if projects == nil {
		projects = []site.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	url, err := s.blobs.Resolve(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch {
	case url == "":
		writeError(w, http.StatusNotFound, "file not found")
	case strings.HasPrefix(url, "http"):
		http.Redirect(w, r, url, http.StatusFound)
	default:
		mime, data, err := blobstore.DecodeDataURL(url)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "stored file is corrupt")
			return
		}
		w.Header().Set("Content-Type", mime)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	}
}

func (s *Server) handleMessageSubmit(w http.ResponseWriter, r *http.Request) {
	var m site.Message
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid message body")
		return
	}

	key, err := site.AppendMessage(r.Context(), s.kv, m)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login body")
		return
	}

	sess, err := s.auth.Login(r.Context(), body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrNotConfigured) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     sess.Token,
		"expiresAt": sess.ExpiresAt.UnixMilli(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(r.Context(), bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveSections(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	var sections map[string]map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, 8<<20)).Decode(&sections); err != nil {
		writeError(w, http.StatusBadRequest, "invalid sections body")
		return
	}

	for name, doc := range sections {
		if err := s.editor.SetSection(token, name, doc); err != nil {
			writeAdminError(w, err)
			return
		}
	}
	if err := s.editor.Save(r.Context(), token); err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": len(sections)})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(admin.MaxUploadSize + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, admin.MaxUploadSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read file part")
		return
	}

	index := 0
	if v := r.FormValue("index"); v != "" {
		index, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid index")
			return
		}
	}
	ref := admin.FieldRef{
		Section:    r.FormValue("section"),
		ArrayField: r.FormValue("arrayField"),
		Index:      index,
		LeafField:  r.FormValue("leafField"),
	}

	mime := header.Header.Get("Content-Type")
	if v := r.FormValue("mime"); v != "" {
		mime = v
	}

	key, err := s.editor.Upload(r.Context(), bearerToken(r), ref, blobstore.File{
		Name: header.Filename,
		MIME: mime,
		Data: data,
	}, nil)
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing file path")
		return
	}
	if err := s.editor.DeleteFile(r.Context(), bearerToken(r), path); err != nil {
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	n, err := site.Seed(r.Context(), s.kv)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"seeded": n})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := site.Messages(r.Context(), s.kv)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []site.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// writeAdminError maps mutation-flow errors onto HTTP statuses.
func writeAdminError(w http.ResponseWriter, err error) {
	var verr *admin.ValidationError
	switch {
	case errors.Is(err, admin.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
