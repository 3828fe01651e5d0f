package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MichalGrecer/Customer-Finder/internal/config"
	"github.com/MichalGrecer/Customer-Finder/internal/pipeline"
	"github.com/MichalGrecer/Customer-Finder/internal/search"
	"go.uber.org/zap"
)

type runRequest struct {
	Phrases         []string `json:"phrases"`
	ResultsPerQuery int      `json:"results_per_query"`
	Country         string   `json:"country"`
}

func (s *Server) handleRunRequest(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Phrases) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "Phrases list cannot be empty")
		return
	}
	if req.ResultsPerQuery <= 0 {
		req.ResultsPerQuery = 10
	}

	loc := localeFor(req.Country)
	err := s.runner.Start(context.Background(), pipeline.Request{
		Phrases:         req.Phrases,
		ResultsPerQuery: req.ResultsPerQuery,
		Language:        loc.Language,
		Region:          loc.Region,
	})
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		s.respondWithError(w, http.StatusConflict, "A run is already in progress")
		return
	case errors.Is(err, search.ErrNoCredentials):
		s.respondWithError(w, http.StatusPreconditionFailed, "API credentials are not configured")
		return
	case err != nil:
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Run accepted"})
}

func (s *Server) handleStatusRequest(w http.ResponseWriter, r *http.Request) {
	status := s.runner.Status()

	quota := s.search.Quota()
	count, err := quota.Count()
	if err != nil {
		s.logger.Error("failed to read quota state", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not read quota state")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"run": status,
		"quota": map[string]interface{}{
			"used":       count,
			"limit":      quota.Limit(),
			"next_reset": quota.NextReset(time.Now()).Format(time.RFC3339),
		},
	})
}

func (s *Server) handleHistoryRequest(w http.ResponseWriter, r *http.Request) {
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.respondWithError(w, http.StatusBadRequest, "Invalid value for n")
			return
		}
		n = parsed
	}

	text, err := s.history.Tail(n)
	if err != nil {
		s.logger.Error("failed to read search history", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not read search history")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

type credentialsRequest struct {
	APIKey string `json:"api_key"`
	CSEID  string `json:"cse_id"`
}

func (s *Server) handleCredentialsUpdate(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	creds := config.Credentials{APIKey: req.APIKey, CSEID: req.CSEID}
	if !creds.Valid() {
		s.respondWithError(w, http.StatusBadRequest, "Both api_key and cse_id are required")
		return
	}

	if err := s.creds.Set(creds); err != nil {
		s.logger.Error("failed to save credentials", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not save credentials")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	healthStatus := make(map[string]string)

	if _, err := s.search.Quota().Count(); err != nil {
		healthStatus["quota_state"] = "unhealthy"
		s.logger.Error("health check failed for quota state", zap.Error(err))
	} else {
		healthStatus["quota_state"] = "healthy"
	}

	if s.search.Ready() {
		healthStatus["credentials"] = "configured"
	} else {
		healthStatus["credentials"] = "missing"
	}

	if healthStatus["quota_state"] != "healthy" {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}

	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
