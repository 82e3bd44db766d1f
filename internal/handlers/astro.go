package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/astralume/astral-api/internal/models"
	"github.com/astralume/astral-api/internal/services/ai"
	"github.com/astralume/astral-api/internal/services/geo"
	"github.com/astralume/astral-api/internal/services/prompt"
	"github.com/astralume/astral-api/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AstroHandler serves the chart and interpretive-content routes.
type AstroHandler struct {
	generator *ai.Generator
	ephemeris EphemerisClient
	geo       *geo.Client
	logger    *zap.Logger
}

// EphemerisClient is the chart-computation dependency of the astro routes.
type EphemerisClient interface {
	NatalChart(ctx context.Context, birth models.BirthData) (models.Chart, error)
	Transits(ctx context.Context, birth models.BirthData, moment time.Time) (models.Chart, error)
}

// NewAstroHandler creates the astro handler.
func NewAstroHandler(generator *ai.Generator, ephemeris EphemerisClient, geoClient *geo.Client, logger *zap.Logger) *AstroHandler {
	return &AstroHandler{
		generator: generator,
		ephemeris: ephemeris,
		geo:       geoClient,
		logger:    logger,
	}
}

// RegisterRoutes registers astro routes. The router should already carry the
// /astro prefix.
func (h *AstroHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/natal/chart", h.NatalChart).Methods("GET")
	r.HandleFunc("/natal/overview", h.contentRoute("natal_overview")).Methods("GET")
	r.HandleFunc("/natal/core-themes", h.contentRoute("natal_core_themes")).Methods("GET")
	r.HandleFunc("/natal/dimension", h.NatalDimension).Methods("GET")
	r.HandleFunc("/natal/technical", h.contentRoute("natal_technical")).Methods("GET")
	r.HandleFunc("/daily", h.Daily).Methods("GET")
	r.HandleFunc("/ask", h.Ask).Methods("POST")
	r.HandleFunc("/synastry", h.Synastry).Methods("POST")
	r.HandleFunc("/wiki", h.Wiki).Methods("GET")
}

// birthFromQuery parses birth parameters from the query string. Missing
// coordinates are resolved from the city name; a missing city falls back to
// the default location, so a date alone is enough to compute a chart.
func (h *AstroHandler) birthFromQuery(r *http.Request) (models.BirthData, error) {
	q := r.URL.Query()
	birth := models.BirthData{
		Date:     q.Get("date"),
		Time:     q.Get("time"),
		City:     q.Get("city"),
		Timezone: q.Get("tz"),
	}

	if lat := q.Get("lat"); lat != "" {
		v, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return birth, fmt.Errorf("invalid lat: %q", lat)
		}
		birth.Lat = v
	}
	if lon := q.Get("lon"); lon != "" {
		v, err := strconv.ParseFloat(lon, 64)
		if err != nil {
			return birth, fmt.Errorf("invalid lon: %q", lon)
		}
		birth.Lon = v
	}

	if err := validation.Validate.Struct(birth); err != nil {
		return birth, fmt.Errorf("invalid birth data: %w", err)
	}

	if birth.Lat == 0 && birth.Lon == 0 {
		loc := h.geo.Resolve(r.Context(), birth.City)
		birth.Lat = loc.Lat
		birth.Lon = loc.Lon
		if birth.Timezone == "" {
			birth.Timezone = loc.Timezone
		}
		if birth.City == "" {
			birth.City = loc.City
		}
	}
	return birth, nil
}

// NatalChart returns the raw chart without interpretation.
func (h *AstroHandler) NatalChart(w http.ResponseWriter, r *http.Request) {
	birth, err := h.birthFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chart, err := h.ephemeris.NatalChart(r.Context(), birth)
	if err != nil {
		h.logger.Error("natal_chart_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "chart computation failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"birth": birth,
		"chart": chart.AsAny(),
	})
}

// contentRoute builds a GET handler for the chart-plus-template routes that
// differ only in promptId.
func (h *AstroHandler) contentRoute(promptID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.generateForChart(w, r, promptID, nil)
	}
}

// NatalDimension analyzes one dimension of the chart.
func (h *AstroHandler) NatalDimension(w http.ResponseWriter, r *http.Request) {
	dimension := r.URL.Query().Get("dimension")
	if err := validation.ValidateDimension(dimension); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.generateForChart(w, r, "natal_dimension", map[string]any{"dimension": dimension})
}

// Daily generates today's guidance from the natal chart and current transits.
func (h *AstroHandler) Daily(w http.ResponseWriter, r *http.Request) {
	birth, err := h.birthFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	lang := models.ParseLang(r.URL.Query().Get("lang"))

	chart, err := h.ephemeris.NatalChart(r.Context(), birth)
	if err != nil {
		h.logger.Error("natal_chart_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "chart computation failed")
		return
	}
	transits, err := h.ephemeris.Transits(r.Context(), birth, time.Now())
	if err != nil {
		h.logger.Error("transits_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "transit computation failed")
		return
	}

	content, err := h.generator.Generate(r.Context(), "daily_transit", prompt.Context{
		"chart":    chart.AsAny(),
		"transits": transits.AsAny(),
	}, lang)
	if err != nil {
		respondGenerationError(w, err)
		return
	}
	respondContent(w, content, map[string]any{"date": time.Now().UTC().Format("2006-01-02")})
}

// AskRequest is the payload of the ask route.
type AskRequest struct {
	Birth    models.BirthData `json:"birth" validate:"required"`
	Question string           `json:"question" validate:"required,max=2000"`
	Category string           `json:"category" validate:"omitempty,max=64"`
	Lang     string           `json:"lang" validate:"omitempty,lang"`
}

// Ask answers a free-text question against the user's chart.
func (h *AstroHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Question = validation.SanitizeText(req.Question)
	if err := validation.Validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	chart, err := h.ephemeris.NatalChart(r.Context(), req.Birth)
	if err != nil {
		h.logger.Error("natal_chart_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "chart computation failed")
		return
	}

	content, err := h.generator.Generate(r.Context(), "ask", prompt.Context{
		"chart":    chart.AsAny(),
		"question": req.Question,
		"category": req.Category,
	}, models.ParseLang(req.Lang))
	if err != nil {
		respondGenerationError(w, err)
		return
	}
	respondContent(w, content, map[string]any{"question": req.Question})
}

// SynastryRequest is the payload of the synastry route.
type SynastryRequest struct {
	BirthA models.BirthData `json:"birthA" validate:"required"`
	BirthB models.BirthData `json:"birthB" validate:"required"`
	Lang   string           `json:"lang" validate:"omitempty,lang"`
}

// Synastry compares two charts.
func (h *AstroHandler) Synastry(w http.ResponseWriter, r *http.Request) {
	var req SynastryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	chartA, err := h.ephemeris.NatalChart(r.Context(), req.BirthA)
	if err != nil {
		h.logger.Error("natal_chart_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "chart computation failed")
		return
	}
	chartB, err := h.ephemeris.NatalChart(r.Context(), req.BirthB)
	if err != nil {
		h.logger.Error("natal_chart_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "chart computation failed")
		return
	}

	content, err := h.generator.Generate(r.Context(), "synastry", prompt.Context{
		"chartA": chartA.AsAny(),
		"chartB": chartB.AsAny(),
	}, models.ParseLang(req.Lang))
	if err != nil {
		respondGenerationError(w, err)
		return
	}
	respondContent(w, content, nil)
}

// Wiki explains an astrological topic.
func (h *AstroHandler) Wiki(w http.ResponseWriter, r *http.Request) {
	topic := validation.SanitizeText(r.URL.Query().Get("topic"))
	if topic == "" {
		respondError(w, http.StatusBadRequest, "topic is required")
		return
	}
	lang := models.ParseLang(r.URL.Query().Get("lang"))

	content, err := h.generator.Generate(r.Context(), "wiki", prompt.Context{"topic": topic}, lang)
	if err != nil {
		respondGenerationError(w, err)
		return
	}
	respondContent(w, content, map[string]any{"topic": topic})
}

// generateForChart is the shared natal-content path: parse birth data,
// compute the chart, render one template against it.
func (h *AstroHandler) generateForChart(w http.ResponseWriter, r *http.Request, promptID string, extra map[string]any) {
	birth, err := h.birthFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	lang := models.ParseLang(r.URL.Query().Get("lang"))

	chart, err := h.ephemeris.NatalChart(r.Context(), birth)
	if err != nil {
		h.logger.Error("natal_chart_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "chart computation failed")
		return
	}

	rctx := prompt.Context{"chart": chart.AsAny()}
	for k, v := range extra {
		rctx[k] = v
	}

	content, err := h.generator.Generate(r.Context(), promptID, rctx, lang)
	if err != nil {
		respondGenerationError(w, err)
		return
	}
	respondContent(w, content, extra)
}
