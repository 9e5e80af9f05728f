// Package http exposes the engine over a small JSON API. The streaming
// endpoint flushes partial generation output as it arrives.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/finsight/finrag-go/internal/adapters/loader"
	"github.com/finsight/finrag-go/internal/chunker"
	"github.com/finsight/finrag-go/internal/completion"
	"github.com/finsight/finrag-go/internal/domain/usecases"
	"github.com/finsight/finrag-go/internal/index"
)

// Server serves the query and corpus-management API.
type Server struct {
	answer *usecases.AnswerUseCase
	ingest *usecases.IngestUseCase
	idx    *index.Index
	addr   string
	logger *zap.Logger
}

// NewServer creates the API server. A nil logger disables logging.
func NewServer(answer *usecases.AnswerUseCase, ingest *usecases.IngestUseCase, idx *index.Index, addr string, logger *zap.Logger) *Server {
	if addr == "" {
		addr = ":8080"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{answer: answer, ingest: ingest, idx: idx, addr: addr, logger: logger}
}

// Start blocks serving HTTP until the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/units", s.handleListUnits)
	mux.HandleFunc("DELETE /api/units/{id}", s.handleDeleteUnit)

	s.logger.Info("http server listening", zap.String("addr", s.addr))
	return http.ListenAndServe(s.addr, mux)
}

type queryRequest struct {
	Query string `json:"query"`
	// Stream selects chunked plain-text streaming instead of a JSON body.
	Stream bool `json:"stream"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	if req.Stream {
		s.streamQuery(w, r, req.Query)
		return
	}

	answer, err := s.answer.AnswerQuery(r.Context(), req.Query, nil)
	if err != nil && !errors.Is(err, completion.ErrGeneration) {
		s.logger.Error("query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answer": answer,
		"failed": errors.Is(err, completion.ErrGeneration),
	})
}

func (s *Server) streamQuery(w http.ResponseWriter, r *http.Request, query string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	_, err := s.answer.AnswerQuery(r.Context(), query, func(part string) {
		w.Write([]byte(part))
		flusher.Flush()
	})
	if err != nil && errors.Is(err, completion.ErrGeneration) {
		// The failure reply was not streamed as tokens; send it whole.
		w.Write([]byte(completion.FailureReply))
		flusher.Flush()
	} else if err != nil {
		s.logger.Error("streaming query failed", zap.Error(err))
	}
}

type ingestRequest struct {
	Path string `json:"path"`
	Kind string `json:"kind"` // paragraph, fixed, or ledger
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	kind, src, err := loader.Load(req.Path, req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := s.ingest.Ingest(r.Context(), kind, chunker.Config{}, src)
	if err != nil {
		if errors.Is(err, usecases.ErrNoUnits) {
			writeError(w, http.StatusUnprocessableEntity, "source produced no units")
			return
		}
		s.logger.Error("ingest failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": n})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.answer.ResetSession(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.idx.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	type unitView struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	views := make([]unitView, len(units))
	for i, u := range units {
		views[i] = unitView{ID: u.ID, Text: u.Text}
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": views})
}

func (s *Server) handleDeleteUnit(w http.ResponseWriter, r *http.Request) {
	if err := s.idx.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
