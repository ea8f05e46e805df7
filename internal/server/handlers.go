package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	strategy, ok := models.ParseChunkStrategy(r.FormValue("chunk_strategy"))
	if !ok {
		s.respondError(w, http.StatusBadRequest, "unknown chunk_strategy")
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	ctx := r.Context()
	doc, err := s.extractor.Extract(content, header.Filename)
	if err != nil {
		s.logger.Error("extraction failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	chunks, err := s.chunker.Chunk(doc, strategy)
	if err != nil {
		s.logger.Error("chunking failed", zap.String("doc_id", doc.ID), zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if len(chunks) == 0 {
		s.respondError(w, http.StatusUnprocessableEntity, "document contains no extractable text")
		return
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		s.logger.Error("embedding failed", zap.String("doc_id", doc.ID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "embedding service failed")
		return
	}

	gen, err := s.store.Put(ctx, sessionID, doc, strategy, chunks, embeddings)
	if err != nil {
		s.logger.Error("index build failed", zap.String("session_id", sessionID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("document indexed",
		zap.String("session_id", sessionID),
		zap.String("doc_id", doc.ID),
		zap.Int("chunks", len(chunks)),
		zap.String("strategy", string(strategy)))
	s.respondJSON(w, http.StatusCreated, gen.Stats(sessionID))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Search.DefaultTopK, s.config.Search.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := models.ParseSearchMode(req.SearchMode)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	s.logger.Debug("chat request",
		zap.String("session_id", req.SessionID),
		zap.String("mode", string(mode)),
		zap.Int("top_k", req.TopK),
		zap.Bool("web", req.EnableWebSearch))

	ret, err := s.engine.Retrieve(ctx, req.SessionID, req.Query, mode, req.TopK, req.EnableWebSearch)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			s.respondError(w, http.StatusNotFound, "no document indexed for session")
			return
		}
		s.logger.Error("retrieval failed", zap.String("session_id", req.SessionID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	hist, err := s.history.Recent(ctx, req.SessionID, s.config.Search.HistoryMessages)
	if err != nil {
		s.logger.Warn("history load failed", zap.String("session_id", req.SessionID), zap.Error(err))
	}

	answer, citations, err := s.composer.Compose(ctx, req.Query, ret.Document, ret.Results, hist)
	if err != nil {
		s.logger.Error("composition failed", zap.String("session_id", req.SessionID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "answer generation failed")
		return
	}

	if err := s.history.Save(ctx, req.SessionID, "user", req.Query); err != nil {
		s.logger.Warn("history save failed", zap.Error(err))
	}
	if err := s.history.Save(ctx, req.SessionID, "assistant", answer); err != nil {
		s.logger.Warn("history save failed", zap.Error(err))
	}

	s.respondJSON(w, http.StatusOK, models.ChatResponse{
		Answer:    answer,
		Context:   ret.Results,
		Citations: citations,
		SessionID: req.SessionID,
		Query:     req.Query,
		Warnings:  ret.Warnings,
	})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.store.Clear(id)
	if err := s.history.Clear(r.Context(), id); err != nil {
		s.logger.Warn("history clear failed", zap.String("session_id", id), zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "cleared"})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gen, err := s.store.Snapshot(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "no document indexed for session")
		return
	}
	s.respondJSON(w, http.StatusOK, gen.Stats(id))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
