package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/auth"
	"github.com/wikireview/wikireview/internal/model"
	"github.com/wikireview/wikireview/internal/service"
)

// CommentHandler serves the comment forest and comment mutations.
type CommentHandler struct {
	comments *service.CommentService
	votes    *service.VoteService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, votes *service.VoteService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		votes:    votes,
		logger:   logger,
	}
}

type addCommentRequest struct {
	SubjectID       int64   `json:"subjectId"`
	SubjectLabel    string  `json:"subjectLabel"`
	Text            string  `json:"text"`
	Author          string  `json:"author"`
	ParentCommentID *string `json:"parentCommentId"`
}

type voteRequest struct {
	Vote int `json:"vote"`
}

// HandleList returns a subject's comment forest with vote aggregates.
// Signed-in viewers get their own votes marked.
//
// HTTP: GET /api/comments?subjectId=N (behind OptionalAuth)
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	subjectID, err := parseSubjectID(r.URL.Query().Get("subjectId"))
	if err != nil {
		writeError(w, err)
		return
	}

	forest, err := h.comments.ListForSubject(r.Context(), subjectID, viewerIdentity(r))
	if err != nil {
		h.logger.Error("listing comments failed",
			slog.Int64("subjectID", subjectID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]*model.Comment{"comments": forest})
}

// HandleAdd posts a comment or a reply. Anonymous commenting is allowed;
// a signed-in caller's identity overrides whatever author the body claims.
//
// HTTP: POST /api/comments (behind OptionalAuth)
func (h *CommentHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid comment JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}
	if req.SubjectID <= 0 {
		writeError(w, apperror.ValidationFailed("subjectId", "subjectId is required"))
		return
	}

	author := req.Author
	if user, ok := auth.UserFromContext(r.Context()); ok {
		author = user.Name()
	}

	comment, err := h.comments.Add(r.Context(), req.SubjectID, req.SubjectLabel, req.Text, author, req.ParentCommentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "comment": comment})
}

// HandleDelete removes the caller's own comment and its reply subtree.
//
// HTTP: DELETE /api/comments/{id} (behind RequireAuth)
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	caller := ""
	if user != nil {
		caller = user.Name()
	}

	if err := h.comments.Delete(r.Context(), r.PathValue("id"), caller); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleVote casts, flips, or retracts the caller's vote on a comment.
//
// HTTP: POST /api/comments/{id}/vote (behind RequireAuth)
func (h *CommentHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid vote JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	result, err := h.votes.Cast(r.Context(), r.PathValue("id"), viewerIdentity(r), req.Vote)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"upvotes":   result.Upvotes,
		"downvotes": result.Downvotes,
		"userVote":  result.VoterValue,
	})
}

// viewerIdentity is the caller's display identity, or "" when anonymous.
func viewerIdentity(r *http.Request) string {
	if user, ok := auth.UserFromContext(r.Context()); ok {
		return user.Name()
	}
	return ""
}

func parseSubjectID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("subjectId", "subjectId must be a positive integer")
	}
	return id, nil
}
