package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/export"
	"github.com/JonMunkholm/sweeper/internal/ingest"
)

const (
	// multipartMemory is kept in memory per request; larger parts spill to disk.
	multipartMemory = 32 << 20

	// formOverhead covers the non-file fields and multipart boundaries.
	formOverhead = 1 << 20

	maxFormBytes = 1 << 20
)

var formValidator = validator.New(validator.WithRequiredStructEnabled())

// userForm is the optional identity block on the upload page.
type userForm struct {
	Name  string `validate:"max=200"`
	Email string `validate:"omitempty,email,max=320"`
}

func (f userForm) info() core.UserInfo {
	return core.UserInfo{Name: f.Name, Email: f.Email}
}

func (f userForm) validate() error {
	err := formValidator.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if verrs[0].Field() == "Email" {
			return fmt.Errorf("%w: %q", errInvalidEmail, f.Email)
		}
		return fmt.Errorf("invalid %s: failed %s", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
	}
	return err
}

// upload is a parsed multipart request.
type upload struct {
	user  userForm
	files []ingest.File
}

// readUpload parses a multipart body with one or more files under "files"
// (or "file" for API clients). Files over the size limit are returned with
// their size but no data so the pipeline can reject them on their own
// without failing the rest of the upload.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	maxFile := s.cfg.Upload.MaxFileSize
	maxFiles := s.cfg.Upload.MaxFiles
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*int64(maxFiles)+formOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return upload{}, fmt.Errorf("%w: %v", errNoFile, err)
		}
		return upload{}, fmt.Errorf("parse upload: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	up := upload{user: userForm{
		Name:  strings.TrimSpace(r.FormValue("name")),
		Email: strings.TrimSpace(r.FormValue("email")),
	}}
	if err := up.user.validate(); err != nil {
		return up, err
	}

	headers := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		return up, errNoFile
	}
	if len(headers) > maxFiles {
		return up, fmt.Errorf("%w: %d > %d", errTooManyFiles, len(headers), maxFiles)
	}

	up.files = make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readPart(fh, maxFile)
		if err != nil {
			return up, err
		}
		up.files = append(up.files, f)
	}
	return up, nil
}

func readPart(fh *multipart.FileHeader, maxFile int64) (ingest.File, error) {
	if fh.Size > maxFile {
		return ingest.File{Name: fh.Filename, Size: fh.Size}, nil
	}

	src, err := fh.Open()
	if err != nil {
		return ingest.File{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return ingest.File{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return ingest.NewFile(fh.Filename, data), nil
}

// parseOptions reads the processing choices from a parsed form. Checkboxes
// accept "true", "1" or "on".
func parseOptions(r *http.Request) (core.Options, error) {
	target, err := export.ParseTarget(r.FormValue("target"))
	if err != nil {
		return core.Options{}, err
	}

	var columns []string
	for _, c := range r.Form["columns"] {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}

	return core.Options{
		RemoveDuplicates: formBool(r, "remove_duplicates"),
		FillMissing:      formBool(r, "fill_missing"),
		Project:          formBool(r, "project"),
		Columns:          columns,
		Visualize:        formBool(r, "visualize"),
		Target:           target,
	}, nil
}

func formBool(r *http.Request, name string) bool {
	v := strings.TrimSpace(r.FormValue(name))
	if strings.EqualFold(v, "on") {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
