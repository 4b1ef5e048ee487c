package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/rinsho/internal/grounding"
	"github.com/hyperjump/rinsho/internal/kb"
	"github.com/hyperjump/rinsho/internal/models"
	"github.com/hyperjump/rinsho/internal/retrieval"
	"go.uber.org/zap"
)

type searchRequest struct {
	Query          string  `json:"query"`
	K              int     `json:"k"`
	ScoreThreshold float64 `json:"score_threshold"`
}

type categorySearchRequest struct {
	Query    string `json:"query"`
	Category string `json:"category"`
	K        int    `json:"k"`
}

type searchResponse struct {
	Results []models.SearchResult `json:"results"`
	Count   int                   `json:"count"`
}

type knowledgeResponse struct {
	Results []models.SearchResult `json:"results"`
	Context string                `json:"context"`
	Sources []grounding.Source    `json:"sources"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.K == 0 {
		req.K = s.config.Retrieval.DefaultK
	}
	if req.ScoreThreshold == 0 {
		req.ScoreThreshold = s.config.Retrieval.DefaultScoreThreshold
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("k", req.K))
	results, err := s.svc.Search(r.Context(), req.Query, req.K, req.ScoreThreshold)
	if err != nil {
		s.respondSearchError(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

func (s *Server) handleSearchByCategory(w http.ResponseWriter, r *http.Request) {
	var req categorySearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.K == 0 {
		req.K = s.config.Retrieval.DefaultK
	}
	s.logger.Debug("category search request", zap.String("query", req.Query), zap.String("category", req.Category))
	results, err := s.svc.SearchByCategory(r.Context(), req.Query, req.Category, req.K)
	if err != nil {
		s.respondSearchError(w, "category search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

func (s *Server) handleAddDocuments(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	docs, err := kb.DecodeDocuments(data)
	if err != nil {
		if retrieval.IsValidation(err) {
			s.respondError(w, http.StatusBadRequest, err.Error())
		} else {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
		}
		return
	}
	if err := s.svc.AddDocuments(r.Context(), docs); err != nil {
		s.respondSearchError(w, "add documents failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"status": "indexed", "count": len(docs)})
}

func (s *Server) handleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	docs := s.svc.Documents()
	s.logger.Debug("rebuild index request", zap.Int("documents", len(docs)))
	if err := s.svc.BuildIndex(r.Context(), docs); err != nil {
		s.respondSearchError(w, "rebuild failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "rebuilt", "documents": len(docs)})
}

func (s *Server) handleSaveIndex(w http.ResponseWriter, r *http.Request) {
	basePath := s.config.Storage.IndexBasePath
	if err := s.svc.SaveIndex(basePath); err != nil {
		s.logger.Error("save index failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "saved", "base_path": basePath})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.svc.Stats())
}

func (s *Server) handleCriteria(w http.ResponseWriter, r *http.Request) {
	symptoms := r.URL.Query().Get("symptoms")
	if symptoms == "" {
		s.respondError(w, http.StatusBadRequest, "symptoms query parameter is required")
		return
	}
	disorder := r.URL.Query().Get("disorder")
	results, err := s.knowledge.SearchDiagnosticCriteria(r.Context(), symptoms, disorder)
	if err != nil {
		s.respondSearchError(w, "criteria search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, knowledgeResponse{
		Results: results,
		Context: grounding.BuildContext(results),
		Sources: grounding.Sources(results),
	})
}

func (s *Server) handleTreatments(w http.ResponseWriter, r *http.Request) {
	diagnosis := r.URL.Query().Get("diagnosis")
	if diagnosis == "" {
		s.respondError(w, http.StatusBadRequest, "diagnosis query parameter is required")
		return
	}
	results, err := s.knowledge.SearchTreatmentOptions(r.Context(), diagnosis)
	if err != nil {
		s.respondSearchError(w, "treatment search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, knowledgeResponse{
		Results: results,
		Context: grounding.BuildContext(results),
		Sources: grounding.Sources(results),
	})
}

func (s *Server) handleDisorderInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, err := s.knowledge.GetDisorderInfo(r.Context(), name)
	if err != nil {
		s.respondSearchError(w, "disorder info failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondSearchError maps validation failures to 400 and everything else to 500.
func (s *Server) respondSearchError(w http.ResponseWriter, msg string, err error) {
	if retrieval.IsValidation(err) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error(msg, zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
