package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/giygas/dermacare-api/catalog"
	"github.com/giygas/dermacare-api/gemini"
	"github.com/giygas/dermacare-api/validation"
	"github.com/go-chi/chi/v5"
)

// stubAnalyzer answers instantly so benchmarks measure the handler only
type stubAnalyzer struct{ reply string }

func (s stubAnalyzer) AnalyzeImage(ctx context.Context, image gemini.Image, query string) string {
	return s.reply
}

func (s stubAnalyzer) Chat(ctx context.Context, message string) string {
	return s.reply
}

func newBenchRouter(b *testing.B) chi.Router {
	b.Helper()

	cat, err := catalog.Default()
	if err != nil {
		b.Fatal(err)
	}

	h := NewHTTPHandler(Dependencies{
		Catalog:   cat,
		Analyzer:  stubAnalyzer{reply: "Signs of psoriasis on the elbow."},
		Validator: validation.NewDataValidator(),
	})

	r := chi.NewRouter()
	r.Post("/api/chat", h.Chat)
	r.Get("/api/medicines/{condition}", h.GetMedicines)
	return r
}

// BenchmarkGetMedicines benchmarks the condition lookup endpoint
func BenchmarkGetMedicines(b *testing.B) {
	r := newBenchRouter(b)

	for b.Loop() {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/medicines/fungal_infection", nil))
	}
}

// BenchmarkGetMedicinesUnknown benchmarks lookups that miss the catalog
func BenchmarkGetMedicinesUnknown(b *testing.B) {
	r := newBenchRouter(b)

	for b.Loop() {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/medicines/unknown_xyz", nil))
	}
}

// BenchmarkChat benchmarks body decoding and validation on the chat endpoint
func BenchmarkChat(b *testing.B) {
	r := newBenchRouter(b)

	for b.Loop() {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"My skin is itchy after swimming"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(rr, req)
	}
}
