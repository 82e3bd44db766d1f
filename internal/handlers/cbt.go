package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/astralume/astral-api/internal/models"
	"github.com/astralume/astral-api/internal/request"
	"github.com/astralume/astral-api/internal/services/cbt"
	"github.com/astralume/astral-api/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// CBTHandler serves the thought-record journal routes. Records are scoped to
// a user: the authenticated user when the request carries a token, otherwise
// an explicit userId parameter (anonymous journaling with a client-held id).
type CBTHandler struct {
	store    *cbt.Store
	analyzer *cbt.Analyzer
}

// NewCBTHandler creates the CBT handler.
func NewCBTHandler(store *cbt.Store, analyzer *cbt.Analyzer) *CBTHandler {
	return &CBTHandler{store: store, analyzer: analyzer}
}

// RegisterRoutes registers CBT routes. The router should already carry the
// /cbt prefix.
func (h *CBTHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/records", h.ListRecords).Methods("GET")
	r.HandleFunc("/records", h.AppendRecord).Methods("POST")
	r.HandleFunc("/analysis", h.Analyze).Methods("POST")
	r.HandleFunc("/analysis/aggregate", h.AnalyzeAggregate).Methods("POST")
}

// userID resolves the record owner: context user first, userId param second.
func (h *CBTHandler) userID(r *http.Request) (uuid.UUID, error) {
	if user := request.UserFromContext(r); user != nil {
		return user.ID, nil
	}
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("userId is required")
	}
	return uuid.Parse(raw)
}

// ListRecords returns the user's live records, oldest first.
func (h *CBTHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.store.List(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load records")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": records})
}

// AppendRecord adds one thought record to the user's journal.
func (h *CBTHandler) AppendRecord(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var record models.CBTRecord
	if err := decodeJSON(r, &record); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	record.Situation = validation.SanitizeText(record.Situation)
	record.HotThought = validation.SanitizeText(record.HotThought)
	for _, m := range record.Moods {
		if err := validation.ValidateMoodIntensity(m.IntensityBefore); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := validation.ValidateMoodIntensity(m.IntensityAfter); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	records, err := h.store.Append(r.Context(), userID, record)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save record")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"records": records})
}

// AnalyzeRequest carries one record for analysis.
type AnalyzeRequest struct {
	Record models.CBTRecord `json:"record" validate:"required"`
	Lang   string           `json:"lang" validate:"omitempty,lang"`
}

// Analyze generates a CBT-informed reading of a single thought record.
func (h *CBTHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	content, err := h.analyzer.Analyze(r.Context(), req.Record, models.ParseLang(req.Lang))
	if err != nil {
		respondGenerationError(w, err)
		return
	}
	respondContent(w, content, nil)
}

// AnalyzeAggregate generates a cross-entry pattern analysis over the user's
// journal.
func (h *CBTHandler) AnalyzeAggregate(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	lang := models.ParseLang(r.URL.Query().Get("lang"))

	content, err := h.analyzer.AnalyzeAggregate(r.Context(), userID, lang)
	if err != nil {
		if errors.Is(err, cbt.ErrNoRecords) {
			respondError(w, http.StatusNotFound, "no records to analyze")
			return
		}
		respondGenerationError(w, err)
		return
	}
	respondContent(w, content, nil)
}
