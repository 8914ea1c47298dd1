package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/docqa-io/docqa/internal/analytics"
	"github.com/docqa-io/docqa/internal/answer"
	"github.com/docqa-io/docqa/internal/conversation"
	"github.com/docqa-io/docqa/internal/index"
	"github.com/docqa-io/docqa/internal/ingest"
)

// RegisterRoutes mounts all API endpoints under /api.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Post("/", s.handleUploadDocument)
			r.Put("/{id}", s.handleUpdateDocument)
			r.Delete("/{id}", s.handleDeleteDocument)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", s.handleListConversations)
			r.Get("/{id}", s.handleGetConversation)
			r.Post("/{id}/rating", s.handleRateTurn)
		})

		r.Get("/analytics", s.handleAnalytics)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Post("/cache/clear", s.handleCacheClear)
	})
}

type chatRequest struct {
	Query          string `json:"query"`
	Language       string `json:"language"`
	TopK           int    `json:"top_k"`
	ConversationID string `json:"conversation_id"`
	Layer          string `json:"layer"`
	Category       string `json:"category"`
}

type chatResponse struct {
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	ConversationID string   `json:"conversation_id"`
	TurnID         string   `json:"turn_id"`
	Language       string   `json:"language"`
	Cached         bool     `json:"cached"`
	DurationMs     int64    `json:"duration_ms"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	resp, err := s.ask(r.Context(), req)
	if err != nil {
		s.log.WithError(err).Error("answering chat request")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ask runs the answer pipeline and does the bookkeeping shared by the
// plain and WebSocket chat paths: persisting the turn and recording the
// query event. Bookkeeping failures are logged, never surfaced.
func (s *Server) ask(ctx context.Context, req chatRequest) (*chatResponse, error) {
	resp, err := s.deps.Answer.Ask(ctx, answer.Request{
		Query:          req.Query,
		Language:       req.Language,
		TopK:           req.TopK,
		ConversationID: req.ConversationID,
		Layer:          index.Layer(req.Layer),
		Category:       req.Category,
	})
	if err != nil {
		return nil, err
	}

	turnID := uuid.New().String()
	if s.deps.Conversations != nil {
		turn := conversation.Turn{
			ID:             turnID,
			ConversationID: resp.ConversationID,
			Question:       req.Query,
			Answer:         resp.Answer,
			Sources:        resp.Sources,
			Language:       resp.Language,
			Cached:         resp.Cached,
		}
		if err := s.deps.Conversations.Append(ctx, turn); err != nil {
			s.log.WithError(err).Warn("persisting conversation turn")
		}
	}

	if s.deps.Analytics != nil {
		event := analytics.Event{
			Query:    req.Query,
			Language: resp.Language,
			Cached:   resp.Cached,
			Duration: resp.Duration,
			Results:  len(resp.Sources),
		}
		if err := s.deps.Analytics.Record(ctx, event); err != nil {
			s.log.WithError(err).Warn("recording query event")
		}
	}

	return &chatResponse{
		Answer:         resp.Answer,
		Sources:        resp.Sources,
		ConversationID: resp.ConversationID,
		TurnID:         turnID,
		Language:       resp.Language,
		Cached:         resp.Cached,
		DurationMs:     resp.Duration.Milliseconds(),
	}, nil
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Index.Documents(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []index.DocumentInfo{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	req, err := s.readUpload(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req.DocumentID = uuid.New().String()

	// Ingestion can take a while on large documents; run it in the
	// background under the per-document lock and answer immediately.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if _, err := s.deps.Ingestor.IngestFile(ctx, *req); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"document_id": req.DocumentID,
				"filename":    req.Filename,
			}).Error("background ingestion failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"document_id": req.DocumentID,
		"status":      "ingesting",
	})
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	req, err := s.readUpload(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.deps.Ingestor.Update(r.Context(), documentID, *req)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	result, err := s.deps.Ingestor.Delete(r.Context(), documentID)
	switch {
	case errors.Is(err, ingest.ErrPartialDelete):
		writeJSON(w, http.StatusMultiStatus, result)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// readUpload parses a multipart document upload: the "file" part plus
// optional title/layer/category fields.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*ingest.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxFileSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, errors.New("invalid multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("missing file field")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("reading uploaded file")
	}

	layer := index.Layer(r.FormValue("layer"))
	if !index.ValidLayer(layer) {
		return nil, errors.New("unknown layer")
	}

	return &ingest.Request{
		Filename: header.Filename,
		Data:     data,
		Title:    r.FormValue("title"),
		Layer:    layer,
		Category: r.FormValue("category"),
	}, nil
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	summaries, err := s.deps.Conversations.List(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []conversation.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.deps.Conversations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type ratingRequest struct {
	TurnID   string `json:"turn_id"`
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (s *Server) handleRateTurn(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	err := s.deps.Conversations.Rate(r.Context(), req.TurnID, req.Rating, req.Feedback)
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	overview, err := s.deps.Analytics.Overview(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Cache.Stats(r.Context()))
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Cache.Clear(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
