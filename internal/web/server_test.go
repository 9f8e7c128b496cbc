package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/export"
	"github.com/JonMunkholm/sweeper/internal/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: 10 * time.Second,
		},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxFiles:      3,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			PreviewRows:   5,
		},
		Session: config.SessionConfig{TTL: time.Minute, SweepInterval: time.Minute},
		Security: config.SecurityConfig{
			EnableCSP: true,
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	m := metrics.New()
	svc := core.NewService(core.ServiceConfig{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		PreviewRows:   cfg.Upload.PreviewRows,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
	}, m)
	return NewServer(cfg, svc, core.NewSessionStore(cfg.Session.TTL), m)
}

type part struct {
	name string
	data string
}

// multipartBody builds an upload with the given fields and files under "files".
func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func postFiles(t *testing.T, s *Server, path string, fields map[string]string, files ...part) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	return do(s, req)
}

// createSession uploads files and returns the session the redirect points at.
func createSession(t *testing.T, s *Server, files ...part) core.Session {
	t.Helper()
	rec := postFiles(t, s, "/sessions", map[string]string{"name": "Ann"}, files...)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	loc := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/sessions/"))
	sess, err := s.sessions.Get(strings.TrimPrefix(loc, "/sessions/"))
	require.NoError(t, err)
	return sess
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="files"`)
	assert.Contains(t, rec.Body.String(), "Up to 3 files, 1.0 MB each.")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestCreateSession_KeepsFailedFiles(t *testing.T) {
	s := newTestServer(t, testConfig())
	sess := createSession(t, s,
		part{"sales.csv", "a,b\n1,2\n1,2\n"},
		part{"notes.txt", "hello"},
	)

	require.Len(t, sess.Files, 2)
	assert.Equal(t, "Ann", sess.User.Name)
	assert.Equal(t, []string{"a", "b"}, sess.Files[0].Header)
	assert.True(t, sess.Files[0].Result.OK())
	assert.Equal(t, "FILE006", sess.Files[1].Result.UserError().Code)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/sessions/"+sess.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "File Name: sales.csv")
	assert.Contains(t, body, "Unsupported file type")
}

func TestCreateSession_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		files    []part
		wantCode string
		status   int
	}{
		{"no files", map[string]string{"name": "Ann"}, nil, "FILE004", http.StatusBadRequest},
		{"bad email", map[string]string{"email": "not-an-email"}, []part{{"a.csv", "a\n1\n"}}, "FORM001", http.StatusBadRequest},
		{"too many files", nil, []part{{"a.csv", "a\n"}, {"b.csv", "a\n"}, {"c.csv", "a\n"}, {"d.csv", "a\n"}}, "FILE007", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig())
			rec := postFiles(t, s, "/sessions", tt.fields, tt.files...)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), "(Code: "+tt.wantCode+")")
			assert.Contains(t, rec.Body.String(), `name="files"`, "upload form is shown again")
			assert.Zero(t, s.sessions.Len())
		})
	}
}

func TestCreateSession_OversizedFileIsolated(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 16
	s := newTestServer(t, cfg)

	sess := createSession(t, s,
		part{"big.csv", "a,b\n" + strings.Repeat("1,2\n", 10)},
		part{"small.csv", "a\n1\n"},
	)
	require.Len(t, sess.Files, 2)
	assert.Equal(t, "FILE001", sess.Files[0].Result.UserError().Code)
	assert.True(t, sess.Files[1].Result.OK())
}

func TestProcessAndDownload(t *testing.T) {
	s := newTestServer(t, testConfig())
	sess := createSession(t, s, part{"sales.csv", "k,n\na,1\na,1\nb,\n"})
	fileID := sess.Files[0].ID
	base := "/sessions/" + sess.ID + "/files/" + fileID

	rec := do(s, httptest.NewRequest(http.MethodGet, base+"/download", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "SES003")

	form := url.Values{
		"remove_duplicates": {"true"},
		"fill_missing":      {"on"},
		"target":            {"csv"},
	}
	req := httptest.NewRequest(http.MethodPost, base+"/process", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = do(s, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/sessions/"+sess.ID+"#file-"+fileID, rec.Header().Get("Location"))

	f, err := s.sessions.File(sess.ID, fileID)
	require.NoError(t, err)
	assert.True(t, f.Options.RemoveDuplicates)
	assert.Equal(t, 1, f.Result.Removed)

	rec = do(s, httptest.NewRequest(http.MethodGet, base+"/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.MIMECSV, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=sales.csv`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "k,n\na,1\nb,1\n", rec.Body.String())
}

func TestProcess_UnknownTarget(t *testing.T) {
	s := newTestServer(t, testConfig())
	sess := createSession(t, s, part{"a.csv", "a\n1\n"})

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/files/"+sess.Files[0].ID+"/process",
		strings.NewReader("target=parquet"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(s, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "CNV001")
}

func TestSession_NotFound(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(s, httptest.NewRequest(http.MethodGet, "/sessions/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "SES001")

	req := httptest.NewRequest(http.MethodGet, "/sessions/nope", nil)
	req.Header.Set("Accept", "application/json")
	rec = do(s, req)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SES001", body.Code)
}

func TestSession_Delete(t *testing.T) {
	s := newTestServer(t, testConfig())
	sess := createSession(t, s, part{"a.csv", "x\n1\n"})

	rec := do(s, httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/delete", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = do(s, httptest.NewRequest(http.MethodGet, "/sessions/"+sess.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodPost, "/sessions/nope/delete", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "SES001")
}

func TestAPIInspect(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := postFiles(t, s, "/api/inspect", nil,
		part{"a.csv", "x,y\n1,2\n3,\n"},
		part{"b.json", "{}"},
	)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Files []struct {
			FileName string            `json:"file_name"`
			Rows     int               `json:"rows"`
			Header   []string          `json:"header"`
			Error    *core.UserMessage `json:"error"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 2)

	assert.Equal(t, "a.csv", resp.Files[0].FileName)
	assert.Equal(t, 2, resp.Files[0].Rows)
	assert.Equal(t, []string{"x", "y"}, resp.Files[0].Header)
	assert.Nil(t, resp.Files[0].Error)

	require.NotNil(t, resp.Files[1].Error)
	assert.Equal(t, "FILE006", resp.Files[1].Error.Code)
}

func TestAPIConvert(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := postFiles(t, s, "/api/convert", map[string]string{"target": "excel"}, part{"data.csv", "a,b\n1,2\n"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.MIMEExcel, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "data.xlsx")
	assert.Equal(t, "PK", rec.Body.String()[:2])

	rec = postFiles(t, s, "/api/convert", map[string]string{"project": "true", "columns": "zip"}, part{"data.csv", "a,b\n1,2\n"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "COL001", body.Code)

	rec = postFiles(t, s, "/api/convert", nil, part{"a.csv", "a\n"}, part{"b.csv", "a\n"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RequiresKeyWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Security.APIKeys = []string{"0123456789abcdef"}
	s := newTestServer(t, cfg)

	rec := postFiles(t, s, "/api/inspect", nil, part{"a.csv", "a\n1\n"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AUTH001", body.Code)

	b, ct := multipartBody(t, nil, part{"a.csv", "a\n1\n"})
	req := httptest.NewRequest(http.MethodPost, "/api/inspect", b)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-API-Key", "0123456789abcdef")
	assert.Equal(t, http.StatusOK, do(s, req).Code)

	assert.Equal(t, http.StatusOK, do(s, httptest.NewRequest(http.MethodGet, "/", nil)).Code, "pages stay open")
}

func TestAPI_CORS(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedOrigins = []string{"https://app.example.com"}
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/inspect", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := do(s, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAPI_CORSAllowsAPIKeyHeader(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedOrigins = []string{"https://app.example.com"}
	cfg.Security.APIKeys = []string{"0123456789abcdef"}
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/convert", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-API-Key")
	rec := do(s, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "x-api-key")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE001")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, testConfig())
	createSession(t, s, part{"a.csv", "a\n1\n"})

	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Sessions)
	assert.Equal(t, 2, health.Jobs.MaxConcurrent)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sweeper_files_ingested_total{format="csv"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		"FILE001": http.StatusRequestEntityTooLarge,
		"FILE002": http.StatusUnprocessableEntity,
		"FILE004": http.StatusBadRequest,
		"FILE006": http.StatusUnsupportedMediaType,
		"FORM001": http.StatusBadRequest,
		"COL001":  http.StatusBadRequest,
		"SES003":  http.StatusNotFound,
		"JOB001":  http.StatusServiceUnavailable,
		"JOB003":  http.StatusGatewayTimeout,
		"RATE001": http.StatusTooManyRequests,
		"AUTH002": http.StatusForbidden,
		"ERR000":  http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, statusFor(code), code)
	}
}
