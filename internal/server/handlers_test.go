package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/composer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/history"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/session"
)

const testDims = 8

func newTestServer(t *testing.T) (*Server, *llm.MockGenerator) {
	t.Helper()
	cfg := config.Default()
	embedder := llm.NewMockEmbedder(testDims)
	gen := &llm.MockGenerator{Answer: "Grounded answer."}
	store := session.NewStore(testDims, session.MemoryVectorFactory())
	engine := search.NewEngine(store, embedder, nil, search.Config{}, zap.NewNop())
	comp := composer.New(gen, composer.Options{}, zap.NewNop())
	hist, err := history.New(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { hist.Close() })

	srv := NewServer(extract.NewExtractor(), chunker.NewChunker(chunker.DefaultOptions()),
		embedder, store, engine, comp, hist, cfg, zap.NewNop())
	return srv, gen
}

func multipartUpload(t *testing.T, sessionID, filename, content, strategy string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if sessionID != "" {
		mw.WriteField("session_id", sessionID)
	}
	if strategy != "" {
		mw.WriteField("chunk_strategy", strategy)
	}
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func uploadDocument(t *testing.T, srv *Server, sessionID string) models.UploadStats {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, multipartUpload(t, sessionID,
		"energy.txt", "Solar panels convert sunlight into electricity. Wind turbines harvest kinetic energy.", ""))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status: got %d, body %s", w.Code, w.Body.String())
	}
	var stats models.UploadStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	return stats
}

func TestHandleUpload(t *testing.T) {
	srv, _ := newTestServer(t)
	stats := uploadDocument(t, srv, "s1")
	if stats.SessionID != "s1" {
		t.Errorf("session_id = %q", stats.SessionID)
	}
	if stats.Pages != 1 || stats.Chunks != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Strategy != models.StrategyFast {
		t.Errorf("strategy = %q", stats.Strategy)
	}
}

func TestHandleUpload_generatesSessionID(t *testing.T) {
	srv, _ := newTestServer(t)
	stats := uploadDocument(t, srv, "")
	if stats.SessionID == "" {
		t.Error("expected a generated session_id")
	}
}

func TestHandleUpload_badStrategy(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, multipartUpload(t, "s1", "a.txt", "text", "balanced"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleUpload_missingFile(t *testing.T) {
	srv, _ := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("session_id", "s1")
	mw.Close()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleChat(t *testing.T) {
	srv, gen := newTestServer(t)
	uploadDocument(t, srv, "s1")

	body, _ := json.Marshal(models.ChatRequest{Query: "how do solar panels work", SessionID: "s1"})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}

	var resp models.ChatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "Grounded answer." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.SessionID != "s1" || resp.Query != "how do solar panels work" {
		t.Errorf("echo fields = %q/%q", resp.SessionID, resp.Query)
	}
	if len(resp.Context) == 0 {
		t.Error("no context chunks returned")
	}
	if len(resp.Citations) == 0 || resp.Citations[0].Filename != "energy.txt" {
		t.Errorf("citations = %+v", resp.Citations)
	}
	if !strings.Contains(gen.LastPrompt, "CURRENT QUESTION: how do solar panels work") {
		t.Error("prompt missing the question")
	}
}

func TestHandleChat_historyAccumulates(t *testing.T) {
	srv, gen := newTestServer(t)
	uploadDocument(t, srv, "s1")

	ask := func(q string) {
		body, _ := json.Marshal(models.ChatRequest{Query: q, SessionID: "s1"})
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body)))
		if w.Code != http.StatusOK {
			t.Fatalf("chat status: got %d", w.Code)
		}
	}
	ask("first question")
	ask("second question")

	if !strings.Contains(gen.LastPrompt, "User: first question") {
		t.Error("second prompt missing first turn")
	}
	if !strings.Contains(gen.LastPrompt, "Assistant: Grounded answer.") {
		t.Error("second prompt missing first answer")
	}
}

func TestHandleChat_unknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	body, _ := json.Marshal(models.ChatRequest{Query: "q", SessionID: "ghost"})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body)))
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleChat_badMode(t *testing.T) {
	srv, _ := newTestServer(t)
	uploadDocument(t, srv, "s1")
	body, _ := json.Marshal(models.ChatRequest{Query: "q", SessionID: "s1", SearchMode: "psychic"})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleChat_missingQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	body, _ := json.Marshal(models.ChatRequest{SessionID: "s1"})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleClearSession(t *testing.T) {
	srv, _ := newTestServer(t)
	uploadDocument(t, srv, "s1")

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/s1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/stats", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("stats after clear: got %d", w.Code)
	}
}

func TestHandleSessionStats(t *testing.T) {
	srv, _ := newTestServer(t)
	uploadDocument(t, srv, "s1")

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var stats models.UploadStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Filename != "energy.txt" || stats.Chunks != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleUpload_replacesIndex(t *testing.T) {
	srv, _ := newTestServer(t)
	uploadDocument(t, srv, "s1")

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, multipartUpload(t, "s1", "second.txt", "A completely different document about glaciers.", ""))
	if w.Code != http.StatusCreated {
		t.Fatalf("second upload status: got %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/stats", nil))
	var stats models.UploadStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Filename != "second.txt" {
		t.Errorf("active document = %q, want second.txt", stats.Filename)
	}
}
