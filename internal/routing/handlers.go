package routing

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/pelyams/simpler_recommendation_service/internal/domain"
	"github.com/pelyams/simpler_recommendation_service/internal/ports"
)

type RecommendationHandler struct {
	svc ports.RecommendationService
}

func NewRecommendationHandler(svc ports.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{
		svc: svc,
	}
}

func (h *RecommendationHandler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	var req domain.RecommendationsRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		storeErrToCtx(r.Context(), fmt.Errorf("%w: failed to decode payload: %w", domain.ErrInvalidInput, err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	h.respond(w, r, req.ProductIds)
}

// ListRecommendationsByQuery serves GET /recommendations?productIds=a,b.
// Repeated productIds parameters are accepted as well.
func (h *RecommendationHandler) ListRecommendationsByQuery(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, r.URL.Query()["productIds"])
}

func (h *RecommendationHandler) respond(w http.ResponseWriter, r *http.Request, productIds []string) {
	recommended, serviceErr := h.svc.ListRecommendations(r.Context(), productIds)
	if serviceErr != nil {
		storeServiceErrToCtx(r.Context(), serviceErr)
		if serviceErr.CriticalError != nil {
			if errors.Is(serviceErr.CriticalError, domain.ErrUnavailable) {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Product catalog unavailable"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}
	}
	writeJSON(w, http.StatusOK, domain.RecommendationsResponse{ProductIds: recommended})
}

func (h *RecommendationHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "SERVING"})
}

type FlagHandler struct {
	flags ports.FlagAdmin
}

func NewFlagHandler(flags ports.FlagAdmin) *FlagHandler {
	return &FlagHandler{flags: flags}
}

func (h *FlagHandler) SetFlag(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	decodeErr := decoder.Decode(&req)
	var err error
	switch {
	case decodeErr != nil:
		err = fmt.Errorf("%w: failed to decode payload: %w", domain.ErrInvalidInput, decodeErr)
	case name == "":
		err = fmt.Errorf("%w: flag name is empty", domain.ErrInvalidInput)
	case req.Enabled == nil:
		err = fmt.Errorf("%w: flag state is missing", domain.ErrInvalidInput)
	}
	if err != nil {
		storeErrToCtx(r.Context(), err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	flag := domain.Flag{Name: name, Enabled: *req.Enabled}
	if err := h.flags.SetFlag(r.Context(), flag); err != nil {
		storeErrToCtx(r.Context(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, flag)
}

func (h *FlagHandler) DeleteFlag(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.flags.DeleteFlag(r.Context(), name); err != nil {
		storeErrToCtx(r.Context(), err)
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Flag not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
