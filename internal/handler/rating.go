package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/auth"
	"github.com/wikireview/wikireview/internal/service"
)

// RatingHandler serves star-rating reads and submissions.
type RatingHandler struct {
	ratings *service.RatingService
	logger  *slog.Logger
}

func NewRatingHandler(ratings *service.RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{ratings: ratings, logger: logger}
}

type submitRatingRequest struct {
	SubjectID    int64  `json:"subjectId"`
	SubjectLabel string `json:"subjectLabel"`
	Rating       int    `json:"rating"`
	Author       string `json:"author"`
}

// HandleGet returns the aggregate for a subject, with the caller's own
// rating when identifiable.
//
// HTTP: GET /api/ratings?subjectId=N (behind OptionalAuth)
func (h *RatingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	subjectID, err := parseSubjectID(r.URL.Query().Get("subjectId"))
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.ratings.Summary(r.Context(), subjectID, viewerIdentity(r))
	if err != nil {
		h.logger.Error("rating summary failed",
			slog.Int64("subjectID", subjectID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleSubmit records or overwrites a rating. Anonymous submissions are
// accepted; a signed-in caller's identity overrides the body's author.
//
// HTTP: POST /api/ratings (behind OptionalAuth)
func (h *RatingHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid rating JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}
	if req.SubjectID <= 0 {
		writeError(w, apperror.ValidationFailed("subjectId", "subjectId is required"))
		return
	}

	voter := req.Author
	if user, ok := auth.UserFromContext(r.Context()); ok {
		voter = user.Name()
	}

	summary, err := h.ratings.Submit(r.Context(), req.SubjectID, req.SubjectLabel, req.Rating, voter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"average":    summary.Average,
		"count":      summary.Count,
		"userRating": summary.UserRating,
	})
}
