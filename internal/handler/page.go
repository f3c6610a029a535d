package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/wikireview/wikireview/internal/auth"
	"github.com/wikireview/wikireview/internal/service"
	"github.com/wikireview/wikireview/internal/wiki"
)

// PageHandler serves wiki article pass-through reads and the protection
// endpoints.
type PageHandler struct {
	engine      *wiki.Client // nil when the engine is not configured
	protections *service.ProtectionService
	logger      *slog.Logger
}

func NewPageHandler(engine *wiki.Client, protections *service.ProtectionService, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		engine:      engine,
		protections: protections,
		logger:      logger,
	}
}

type setProtectionRequest struct {
	Protected bool `json:"protected"`
}

// HandleGetPage fetches an article from the wiki engine together with the
// local protection state. Pure pass-through on the article side.
//
// HTTP: GET /api/pages/{id}
func (h *PageHandler) HandleGetPage(w http.ResponseWriter, r *http.Request) {
	subjectID, err := parseSubjectID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "wiki engine is not configured",
		})
		return
	}

	page, err := h.engine.GetPage(r.Context(), subjectID)
	if err != nil {
		h.logger.Error("wiki page fetch failed",
			slog.Int64("subjectID", subjectID),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_error",
			Message: "failed to fetch page from the wiki engine",
		})
		return
	}

	protection, err := h.protections.Get(r.Context(), subjectID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"page":       page,
		"protection": protection,
	})
}

// HandleGetProtection returns the protection record for a subject.
//
// HTTP: GET /api/pages/{id}/protection
func (h *PageHandler) HandleGetProtection(w http.ResponseWriter, r *http.Request) {
	subjectID, err := parseSubjectID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	protection, err := h.protections.Get(r.Context(), subjectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protection)
}

// HandleSetProtection changes protection state; first writer claims the
// page, later writers must be the creator.
//
// HTTP: PUT /api/pages/{id}/protection (behind RequireAuth)
func (h *PageHandler) HandleSetProtection(w http.ResponseWriter, r *http.Request) {
	subjectID, err := parseSubjectID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req setProtectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid protection JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	user, _ := auth.UserFromContext(r.Context())
	protection, err := h.protections.Set(r.Context(), subjectID, req.Protected, user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "protection": protection})
}
