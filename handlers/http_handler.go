package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/giygas/dermacare-api/catalog/entities"
	"github.com/giygas/dermacare-api/dermatologist"
	"github.com/giygas/dermacare-api/interfaces"
	"github.com/giygas/dermacare-api/logging"
	"github.com/giygas/dermacare-api/upload"
	"github.com/giygas/dermacare-api/validation"
	"github.com/go-chi/chi/v5"
)

// Compile-time check to ensure HTTPHandlerImpl implements the HTTPHandler interface
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// Client-facing error messages
const (
	ErrNoFileUploaded  = "No file uploaded"
	ErrNoFileSelected  = "No file selected"
	ErrInvalidFileType = "Invalid file type. Please upload PNG, JPG, or JPEG files."
	ErrNoMessage       = "No message provided"
)

// multipartMemory is how much of a multipart body is kept in memory before spilling to disk
const multipartMemory = 8 << 20

// Dependencies bundles everything the handlers need
type Dependencies struct {
	Catalog           interfaces.MedicineCatalog
	Analyzer          interfaces.Analyzer
	Validator         interfaces.DataValidator
	Health            interfaces.HealthChecker
	Uploads           *upload.Store
	Templates         *template.Template
	AllowedExtensions []string
	MaxUploadSize     int64
}

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	deps Dependencies
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(deps Dependencies) *HTTPHandlerImpl {
	if len(deps.AllowedExtensions) == 0 {
		deps.AllowedExtensions = upload.DefaultAllowedExtensions
	}
	if deps.MaxUploadSize <= 0 {
		deps.MaxUploadSize = 16 * 1024 * 1024
	}
	return &HTTPHandlerImpl{deps: deps}
}

// LoadTemplates parses index.html from the templates directory
func LoadTemplates(dir string) (*template.Template, error) {
	tmpl, err := template.ParseFiles(filepath.Join(dir, "index.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// UploadResponse is returned by the image analysis endpoint
type UploadResponse struct {
	Analysis  string                    `json:"analysis"`
	Medicines []entities.MedicineRecord `json:"medicines"`
	Timestamp string                    `json:"timestamp"`
}

// ChatResponse is returned by the chat endpoint
type ChatResponse struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// MedicinesResponse is returned by the medicine lookup endpoint
type MedicinesResponse struct {
	Medicines []entities.MedicineRecord `json:"medicines"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// Home renders the landing page
func (h *HTTPHandlerImpl) Home(w http.ResponseWriter, r *http.Request) {
	if h.deps.Templates == nil {
		RespondWithError(w, http.StatusInternalServerError, "Landing page unavailable")
		return
	}

	var keys []string
	if h.deps.Catalog != nil {
		keys = h.deps.Catalog.Keys()
	}

	var buf bytes.Buffer
	if err := h.deps.Templates.ExecuteTemplate(&buf, "index.html", map[string]any{"Conditions": keys}); err != nil {
		logging.Error("Failed to render landing page", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Landing page unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// UploadImage analyses an uploaded photograph and recommends medicines based on the analysis.
// The image is kept on disk only while the model call is in flight.
func (h *HTTPHandlerImpl) UploadImage(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.deps.MaxUploadSize {
		h.respondTooLarge(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondTooLarge(w, r)
			return
		}
		logging.Debug("Upload without a multipart body", "error", err)
		RespondWithError(w, http.StatusBadRequest, ErrNoFileUploaded)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		// A file input submitted without a selection arrives as a part with an empty filename,
		// which the multipart reader files under plain values.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			RespondWithError(w, http.StatusBadRequest, ErrNoFileSelected)
			return
		}
		RespondWithError(w, http.StatusBadRequest, ErrNoFileUploaded)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		RespondWithError(w, http.StatusBadRequest, ErrNoFileSelected)
		return
	}

	if !upload.AllowedFile(header.Filename, h.deps.AllowedExtensions) {
		logging.Warn("Rejected upload with disallowed extension", "filename", header.Filename)
		RespondWithError(w, http.StatusBadRequest, ErrInvalidFileType)
		return
	}

	query := dermatologist.DefaultImageQuery
	if values, ok := r.MultipartForm.Value["query"]; ok && len(values) > 0 {
		query = values[0]
	}

	var analysis string
	err = h.deps.Uploads.WithTempFile(file, header.Filename, func(path string) error {
		img, err := upload.ReadImage(path)
		if err != nil {
			return err
		}
		analysis = h.deps.Analyzer.AnalyzeImage(r.Context(), *img, query)
		return nil
	})
	if err != nil {
		logging.Error("Failed to process upload", "filename", header.Filename, "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to process uploaded file")
		return
	}

	RespondWithJSON(w, http.StatusOK, UploadResponse{
		Analysis:  analysis,
		Medicines: h.deps.Catalog.Recommend(analysis),
		Timestamp: Timestamp(),
	})
}

func (h *HTTPHandlerImpl) respondTooLarge(w http.ResponseWriter, r *http.Request) {
	logging.Warn("Upload too large",
		"content_length", r.ContentLength,
		"max_allowed", h.deps.MaxUploadSize,
		"remote_addr", r.RemoteAddr)
	RespondWithError(w, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Request body too large. Maximum allowed size is %d bytes", h.deps.MaxUploadSize))
}

// Chat answers a free-text dermatology question
func (h *HTTPHandlerImpl) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadSize)

	var req validation.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondTooLarge(w, r)
			return
		}
		if !errors.Is(err, io.EOF) {
			logging.Debug("Invalid chat body", "error", err)
		}
		RespondWithError(w, http.StatusBadRequest, ErrNoMessage)
		return
	}

	if err := h.deps.Validator.ValidateChatMessage(req.Message); err != nil {
		RespondWithError(w, http.StatusBadRequest, ErrNoMessage)
		return
	}

	RespondWithJSON(w, http.StatusOK, ChatResponse{
		Response:  h.deps.Analyzer.Chat(r.Context(), req.Message),
		Timestamp: Timestamp(),
	})
}

// GetMedicines returns the medicines listed for a condition key; unknown keys yield an empty list
func (h *HTTPHandlerImpl) GetMedicines(w http.ResponseWriter, r *http.Request) {
	condition := chi.URLParam(r, "condition")

	if err := h.deps.Validator.ValidateCondition(condition); err != nil {
		logging.Debug("Unusual condition lookup", "condition", condition, "error", err)
		RespondWithJSON(w, http.StatusOK, MedicinesResponse{Medicines: []entities.MedicineRecord{}})
		return
	}

	RespondWithJSON(w, http.StatusOK, MedicinesResponse{Medicines: h.deps.Catalog.LookupByExactKey(condition)})
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, data, httpStatus := h.deps.Health.HealthCheck()

	RespondWithJSON(w, httpStatus, HealthResponse{
		Status: status,
		Data:   data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	})
}
