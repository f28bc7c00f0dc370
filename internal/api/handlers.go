package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/savegress/payguard/internal/scoring"
	"github.com/savegress/payguard/pkg/models"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	engine *scoring.Engine
}

// NewHandlers creates new handlers
func NewHandlers(engine *scoring.Engine) *Handlers {
	return &Handlers{engine: engine}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "payguard",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ScoreRequest is the payload for a scoring call
type ScoreRequest struct {
	Transaction *models.Transaction `json:"transaction"`
	User        *models.User        `json:"user"`
}

// ScoreTransaction scores one transaction for fraud risk
func (h *Handlers) ScoreTransaction(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Transaction == nil || req.User == nil {
		respondError(w, http.StatusBadRequest, "Both transaction and user are required")
		return
	}
	if req.Transaction.Amount.IsNegative() || req.Transaction.Amount.IsZero() {
		respondError(w, http.StatusBadRequest, "Transaction amount must be positive")
		return
	}
	if !req.Transaction.Channel.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown payment channel")
		return
	}

	if req.Transaction.ID == "" {
		req.Transaction.ID = uuid.NewString()
	}
	if req.Transaction.Timestamp.IsZero() {
		req.Transaction.Timestamp = time.Now()
	}

	result, err := h.engine.DetectFraud(req.Transaction, req.User)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respond(w, http.StatusOK, result)
}

// TrainRequest is the payload for a training call
type TrainRequest struct {
	Users        []*models.User        `json:"users"`
	Transactions []*models.Transaction `json:"transactions"`
}

// TrainModel rebuilds profiles and baselines from the submitted corpus
func (h *Handlers) TrainModel(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	for _, user := range req.Users {
		if user == nil || user.ID == "" {
			respondError(w, http.StatusBadRequest, "Corpus contains a user without an id")
			return
		}
	}
	for _, txn := range req.Transactions {
		if txn == nil || !txn.Channel.Valid() {
			respondError(w, http.StatusBadRequest, "Corpus contains a transaction with an unknown payment channel")
			return
		}
	}

	h.engine.Train(req.Users, req.Transactions)
	respond(w, http.StatusOK, h.engine.Metrics())
}

// GetModelMetrics returns the model introspection view
func (h *Handlers) GetModelMetrics(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.engine.Metrics())
}

// GetEvaluationStats returns aggregate scoring outcome counts
func (h *Handlers) GetEvaluationStats(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.engine.Stats())
}

// ListRecentEvaluations returns the most recent scoring results
func (h *Handlers) ListRecentEvaluations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	respond(w, http.StatusOK, h.engine.RecentEvaluations(limit))
}

// GetRiskTables returns the published channel and region risk tables
func (h *Handlers) GetRiskTables(w http.ResponseWriter, r *http.Request) {
	channels, regions := h.engine.RiskTables()
	respond(w, http.StatusOK, map[string]interface{}{
		"channels": channels,
		"regions":  regions,
	})
}

// Helper functions

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}
