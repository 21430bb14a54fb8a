package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/giygas/dermacare-api/catalog"
	"github.com/giygas/dermacare-api/dermatologist"
	"github.com/giygas/dermacare-api/gemini"
	"github.com/giygas/dermacare-api/health"
	"github.com/giygas/dermacare-api/upload"
	"github.com/giygas/dermacare-api/validation"
	"github.com/go-chi/chi/v5"
)

var jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

// fakeGemini answers generateContent calls with a fixed status and body
type fakeGemini struct {
	status     int
	body       string
	calls      atomic.Int32
	lastPrompt atomic.Value
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)

	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
		f.lastPrompt.Store(req.Contents[0].Parts[0].Text)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func geminiReply(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}],"role":"model"}}]}`, text)
}

const geminiForbidden = `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`

type testEnv struct {
	router    chi.Router
	handler   *HTTPHandlerImpl
	fake      *fakeGemini
	uploadDir string
}

// newTestEnv wires the real handler stack against a fake Gemini endpoint. A nil fake points the
// client at a closed server so every call fails at the transport level.
func newTestEnv(t *testing.T, fake *fakeGemini) *testEnv {
	t.Helper()

	var baseURL string
	if fake != nil {
		srv := httptest.NewServer(fake)
		t.Cleanup(srv.Close)
		baseURL = srv.URL
	} else {
		srv := httptest.NewServer(http.NotFoundHandler())
		baseURL = srv.URL
		srv.Close()
		fake = &fakeGemini{}
	}

	client, err := gemini.NewClient(context.Background(), gemini.Config{APIKey: "test-key", BaseURL: baseURL})
	if err != nil {
		t.Fatalf("failed to create gemini client: %v", err)
	}

	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	uploadDir := t.TempDir()
	store, err := upload.NewStore(uploadDir)
	if err != nil {
		t.Fatalf("failed to create upload store: %v", err)
	}

	templatesDir := t.TempDir()
	index := `<html><body>{{range .Conditions}}<li>{{.}}</li>{{end}}</body></html>`
	if err := os.WriteFile(filepath.Join(templatesDir, "index.html"), []byte(index), 0o644); err != nil {
		t.Fatal(err)
	}
	tmpl, err := LoadTemplates(templatesDir)
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}

	h := NewHTTPHandler(Dependencies{
		Catalog:   cat,
		Analyzer:  dermatologist.NewService(client),
		Validator: validation.NewDataValidator(),
		Health:    health.NewHealthChecker(health.Dependencies{Catalog: cat, Model: client.Model(), UploadDir: uploadDir}),
		Uploads:   store,
		Templates: tmpl,
	})

	r := chi.NewRouter()
	r.Get("/", h.Home)
	r.Post("/api/upload-image", h.UploadImage)
	r.Post("/api/chat", h.Chat)
	r.Get("/api/medicines/{condition}", h.GetMedicines)
	r.Get("/health", h.HealthCheck)

	return &testEnv{router: r, handler: h, fake: fake, uploadDir: uploadDir}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) assertNoUploadsLeft(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.uploadDir)
	if err != nil {
		t.Fatalf("failed to read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files left in the upload dir, found %d", len(entries))
	}
}

type formFile struct {
	field    string
	filename string
	content  []byte
}

func multipartRequest(t *testing.T, file *formFile, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if file != nil {
		part, err := mw.CreateFormFile(file.field, file.filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(file.content)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload-image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestUploadImageValidation(t *testing.T) {
	tests := []struct {
		name    string
		request func(t *testing.T) *http.Request
		wantErr string
	}{
		{
			name: "no file part",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, nil, map[string]string{"query": "what is this?"})
			},
			wantErr: ErrNoFileUploaded,
		},
		{
			name: "not multipart",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/upload-image", strings.NewReader(`{"file":"x"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantErr: ErrNoFileUploaded,
		},
		{
			name: "empty filename",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, &formFile{field: "file", filename: ""}, nil)
			},
			wantErr: ErrNoFileSelected,
		},
		{
			name: "wrong field name",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, &formFile{field: "image", filename: "rash.jpg", content: jpegBytes}, nil)
			},
			wantErr: ErrNoFileUploaded,
		},
		{
			name: "disallowed extension",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, &formFile{field: "file", filename: "report.pdf", content: []byte("%PDF")}, nil)
			},
			wantErr: ErrInvalidFileType,
		},
		{
			name: "no extension",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, &formFile{field: "file", filename: "rash", content: jpegBytes}, nil)
			},
			wantErr: ErrInvalidFileType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &fakeGemini{status: http.StatusOK, body: geminiReply("unused")})

			rec := env.do(tt.request(t))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decode[map[string]string](t, rec)["error"]; got != tt.wantErr {
				t.Errorf("error = %q, want %q", got, tt.wantErr)
			}
			if env.fake.calls.Load() != 0 {
				t.Error("rejected uploads must not reach the model")
			}
			env.assertNoUploadsLeft(t)
		})
	}
}

func TestUploadImageAllowedExtensions(t *testing.T) {
	for _, name := range []string{"rash.png", "rash.jpg", "rash.JPEG", "rash.gif"} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, &fakeGemini{status: http.StatusOK, body: geminiReply("Mild irritation.")})

			rec := env.do(multipartRequest(t, &formFile{field: "file", filename: name, content: jpegBytes}, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if env.fake.calls.Load() != 1 {
				t.Errorf("expected one model call, got %d", env.fake.calls.Load())
			}
		})
	}
}

func TestUploadImageSuccess(t *testing.T) {
	env := newTestEnv(t, &fakeGemini{status: http.StatusOK, body: geminiReply("These silvery plaques suggest Psoriasis.")})

	rec := env.do(multipartRequest(t,
		&formFile{field: "file", filename: "elbow.jpg", content: jpegBytes},
		map[string]string{"query": "Why is my elbow scaly?"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[UploadResponse](t, rec)
	if resp.Analysis != "These silvery plaques suggest Psoriasis." {
		t.Errorf("unexpected analysis %q", resp.Analysis)
	}
	if len(resp.Medicines) != 3 || resp.Medicines[0].Brand != "Dermovate" {
		t.Errorf("expected psoriasis medicines, got %v", resp.Medicines)
	}
	if _, err := time.ParseInLocation(TimestampLayout, resp.Timestamp, time.Local); err != nil {
		t.Errorf("timestamp %q does not match layout: %v", resp.Timestamp, err)
	}

	prompt, _ := env.fake.lastPrompt.Load().(string)
	if !strings.Contains(prompt, "Why is my elbow scaly?") {
		t.Error("the query should be part of the prompt")
	}

	env.assertNoUploadsLeft(t)
}

func TestUploadImageDefaultQuery(t *testing.T) {
	env := newTestEnv(t, &fakeGemini{status: http.StatusOK, body: geminiReply("ok")})

	rec := env.do(multipartRequest(t, &formFile{field: "file", filename: "arm.png", content: jpegBytes}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	prompt, _ := env.fake.lastPrompt.Load().(string)
	if !strings.Contains(prompt, dermatologist.DefaultImageQuery) {
		t.Errorf("expected the default query in the prompt, got %q", prompt)
	}
}

func TestUploadImageProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		fake       *fakeGemini
		wantPrefix string
	}{
		{"provider status", &fakeGemini{status: http.StatusForbidden, body: geminiForbidden}, "Error analyzing image: 403"},
		{"no candidates", &fakeGemini{status: http.StatusOK, body: `{"candidates":[]}`}, dermatologist.ImageNoCandidatesReply},
		{"transport failure", nil, "Error processing image: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.fake)

			rec := env.do(multipartRequest(t, &formFile{field: "file", filename: "rash.jpg", content: jpegBytes}, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("upstream failures must still return 200, got %d", rec.Code)
			}

			resp := decode[UploadResponse](t, rec)
			if !strings.HasPrefix(resp.Analysis, tt.wantPrefix) {
				t.Errorf("analysis = %q, want prefix %q", resp.Analysis, tt.wantPrefix)
			}
			if len(resp.Medicines) == 0 || resp.Medicines[0].Brand != "Dermacort" {
				t.Errorf("expected default dermatitis medicines, got %v", resp.Medicines)
			}

			env.assertNoUploadsLeft(t)
		})
	}
}

func TestUploadImageTooLarge(t *testing.T) {
	env := newTestEnv(t, &fakeGemini{status: http.StatusOK, body: geminiReply("unused")})
	env.handler.deps.MaxUploadSize = 512

	rec := env.do(multipartRequest(t, &formFile{field: "file", filename: "big.jpg", content: bytes.Repeat([]byte{0xff}, 2048)}, nil))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if decode[map[string]string](t, rec)["error"] == "" {
		t.Error("expected an error message")
	}
	if env.fake.calls.Load() != 0 {
		t.Error("oversized uploads must not reach the model")
	}
	env.assertNoUploadsLeft(t)
}

func TestChatValidation(t *testing.T) {
	bodies := map[string]string{
		"empty message":  `{"message":""}`,
		"missing field":  `{"text":"hello"}`,
		"invalid json":   `{"message":`,
		"empty body":     ``,
		"wrong type":     `{"message":42}`,
		"json null body": `null`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, &fakeGemini{status: http.StatusOK, body: geminiReply("unused")})

			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := env.do(req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if got := decode[map[string]string](t, rec)["error"]; got != ErrNoMessage {
				t.Errorf("error = %q, want %q", got, ErrNoMessage)
			}
			if env.fake.calls.Load() != 0 {
				t.Error("invalid chat requests must not reach the model")
			}
		})
	}
}

func TestChat(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeGemini
		want string
	}{
		{"success", &fakeGemini{status: http.StatusOK, body: geminiReply("Apply a fragrance-free moisturiser twice daily.")}, "Apply a fragrance-free moisturiser twice daily."},
		{"provider status", &fakeGemini{status: http.StatusForbidden, body: geminiForbidden}, dermatologist.ChatStatusErrorReply},
		{"no candidates", &fakeGemini{status: http.StatusOK, body: `{}`}, dermatologist.ChatNoCandidatesReply},
		{"transport failure", nil, dermatologist.ChatFailureReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.fake)

			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"My hands are very dry"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := env.do(req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			resp := decode[ChatResponse](t, rec)
			if resp.Response != tt.want {
				t.Errorf("response = %q, want %q", resp.Response, tt.want)
			}
			if resp.Timestamp == "" {
				t.Error("expected a timestamp")
			}
		})
	}
}

func TestGetMedicines(t *testing.T) {
	env := newTestEnv(t, &fakeGemini{status: http.StatusOK, body: geminiReply("unused")})

	tests := []struct {
		path      string
		wantLen   int
		wantBrand string
	}{
		{"/api/medicines/eczema", 3, "Dermacort"},
		{"/api/medicines/ACNE", 3, "Acretin"},
		{"/api/medicines/fungal_infection", 3, "Lamisil"},
		{"/api/medicines/unknown_xyz", 0, ""},
		{"/api/medicines/a%3Bdrop", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if tt.wantLen == 0 && !strings.Contains(rec.Body.String(), `"medicines":[]`) {
				t.Errorf("unknown conditions must serialise as an empty list, got %s", rec.Body.String())
			}

			resp := decode[MedicinesResponse](t, rec)
			if len(resp.Medicines) != tt.wantLen {
				t.Fatalf("got %d medicines, want %d", len(resp.Medicines), tt.wantLen)
			}
			if tt.wantLen > 0 && resp.Medicines[0].Brand != tt.wantBrand {
				t.Errorf("first brand = %s, want %s", resp.Medicines[0].Brand, tt.wantBrand)
			}
		})
	}

	if env.fake.calls.Load() != 0 {
		t.Error("lookups must not reach the model")
	}
}

func TestHealthCheckEndpoint(t *testing.T) {
	env := newTestEnv(t, &fakeGemini{status: http.StatusOK, body: geminiReply("unused")})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode[HealthResponse](t, rec)
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
	if resp.Data["model"] != gemini.DefaultModel {
		t.Errorf("unexpected model %v", resp.Data["model"])
	}
	if _, ok := resp.System["goroutines"]; !ok {
		t.Error("expected system information")
	}

	// Unconfigured model
	env.handler.deps.Health = health.NewHealthChecker(health.Dependencies{})
	rec = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHome(t *testing.T) {
	env := newTestEnv(t, &fakeGemini{status: http.StatusOK, body: geminiReply("unused")})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "<li>fungal_infection</li>") {
		t.Errorf("landing page should list the catalog conditions, got %s", rec.Body.String())
	}

	env.handler.deps.Templates = template.Must(template.New("other").Parse("x"))
	rec = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("missing index.html template should yield 500, got %d", rec.Code)
	}

	env.handler.deps.Templates = nil
	rec = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("nil templates should yield 500, got %d", rec.Code)
	}
}

func TestLoadTemplatesMissing(t *testing.T) {
	if _, err := LoadTemplates(t.TempDir()); err == nil {
		t.Error("expected an error when index.html is missing")
	}
}

func TestRespondWithError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, http.StatusBadRequest, "bad input")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec.Body.String() != `{"error":"bad input"}` {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("unexpected content type %s", ct)
	}
}

func TestRespondWithJSONMarshalFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
