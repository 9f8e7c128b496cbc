package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/export"
	"github.com/JonMunkholm/sweeper/internal/logging"
)

// FileResponse is one file in an inspect response. Error is set instead of
// failing the whole request when only that file could not be read.
type FileResponse struct {
	core.Result
	Error *core.UserMessage `json:"error,omitempty"`
}

// InspectResponse is the body of POST /api/inspect.
type InspectResponse struct {
	Files []FileResponse `json:"files"`
}

// handleInspect summarizes every uploaded file without changing it.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	reqs := make([]core.Request, len(up.files))
	for i, f := range up.files {
		reqs[i] = core.Request{File: f}
	}
	results := s.service.ProcessAll(pipelineContext(r), reqs)

	resp := InspectResponse{Files: make([]FileResponse, len(results))}
	for i, res := range results {
		resp.Files[i] = FileResponse{Result: res}
		if !res.OK() {
			msg := res.UserError()
			resp.Files[i].Error = &msg
		}
	}

	logging.FromContext(r.Context()).Debug("inspect", "files", fileNames(up.files))
	render.JSON(w, r, resp)
}

// handleConvert runs the pipeline on a single file and returns the export.
// Without a target the file is converted to CSV.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if len(up.files) != 1 {
		s.respondError(w, r, fmt.Errorf("%w: convert takes one file, got %d", errTooManyFiles, len(up.files)), http.StatusBadRequest)
		return
	}

	opts, err := parseOptions(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if opts.Target == export.TargetNone {
		opts.Target = export.TargetCSV
	}

	res := s.service.Process(pipelineContext(r), core.Request{File: up.files[0], Options: opts})
	if !res.OK() {
		s.respondError(w, r, res.Err, 0)
		return
	}

	w.Header().Set("X-Rows", fmt.Sprint(res.Rows))
	writeArtifact(w, r, res.Artifact)
}
