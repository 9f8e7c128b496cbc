package web

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/export"
	"github.com/JonMunkholm/sweeper/internal/ingest"
	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/web/templates"
)

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, templates.UploadPage(s.uploadPageData(core.UserInfo{}, nil)))
}

// handleCreateSession reads the uploaded files, inspects each one and
// redirects to the new session. A file that fails to parse is kept in the
// session with its error so the others can still be processed.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		msg := core.MapError(err)
		logging.FromContext(r.Context()).Warn("upload rejected", "code", msg.Code, "error", err)
		s.renderPage(w, r, statusFor(msg.Code), templates.UploadPage(s.uploadPageData(up.user.info(), &msg)))
		return
	}

	reqs := make([]core.Request, len(up.files))
	for i, f := range up.files {
		reqs[i] = core.Request{File: f}
	}
	results := s.service.ProcessAll(pipelineContext(r), reqs)

	stored := make([]core.StoredFile, len(up.files))
	for i, f := range up.files {
		res := results[i]
		stored[i] = core.StoredFile{File: f, Header: res.Header, Result: &res}
	}
	sess := s.sessions.Create(up.user.info(), stored)

	logging.FromContext(r.Context()).Info("session created",
		"session", sess.ID,
		"files", len(stored),
	)
	http.Redirect(w, r, "/sessions/"+sess.ID, http.StatusSeeOther)
}

// handleSession renders every file of a session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.renderPage(w, r, http.StatusOK, templates.SessionPage(sess))
}

// handleDeleteSession drops the session and goes back to the upload page.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.sessions.Delete(sessionID); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	logging.FromContext(r.Context()).Info("session deleted", "session", sessionID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleProcess runs the selected steps on one file and stores the result
// in the session. Every run starts again from the uploaded bytes.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	fileID := chi.URLParam(r, "fileID")

	f, err := s.sessions.File(sessionID, fileID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("parse form: %w", err), http.StatusBadRequest)
		return
	}
	opts, err := parseOptions(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	res := s.service.Process(pipelineContext(r), core.Request{File: f.File, Options: opts})
	if err := s.sessions.SetResult(sessionID, fileID, opts, &res); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	http.Redirect(w, r, "/sessions/"+url.PathEscape(sessionID)+"#file-"+url.PathEscape(fileID), http.StatusSeeOther)
}

// handleDownload serves the export from the latest run of a file.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	art, err := s.sessions.Artifact(chi.URLParam(r, "sessionID"), chi.URLParam(r, "fileID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeArtifact(w, r, art)
}

func (s *Server) uploadPageData(user core.UserInfo, msg *core.UserMessage) templates.UploadPageData {
	return templates.UploadPageData{
		User:        user,
		MaxFiles:    s.cfg.Upload.MaxFiles,
		MaxFileSize: s.cfg.Upload.MaxFileSize,
		Error:       msg,
	}
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// writeArtifact sends an export as a file download.
func writeArtifact(w http.ResponseWriter, r *http.Request, art *export.Artifact) {
	w.Header().Set("Content-Type", art.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	if _, err := w.Write(art.Data); err != nil {
		logging.FromContext(r.Context()).Warn("write download", "file", art.FileName, "error", err)
	}
}

// fileNames lists the names of files for log lines.
func fileNames(files []ingest.File) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}
