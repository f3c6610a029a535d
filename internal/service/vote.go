package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/model"
	"github.com/wikireview/wikireview/internal/repository"
)

// VoteService is the vote ledger: one row per (comment, voter), toggled by
// repeated casts, aggregates always derived by counting rows.
type VoteService struct {
	comments repository.CommentRepository
	votes    repository.VoteRepository
	logger   *slog.Logger
}

func NewVoteService(
	comments repository.CommentRepository,
	votes repository.VoteRepository,
	logger *slog.Logger,
) *VoteService {
	return &VoteService{
		comments: comments,
		votes:    votes,
		logger:   logger,
	}
}

// Cast records a vote with toggle semantics:
//
//   - no prior vote        → insert
//   - prior vote, same     → delete (un-vote; the result's VoterValue is nil)
//   - prior vote, opposite → update in place
//
// Voting requires a resolved identity; unlike commenting and rating there
// is no anonymous slot. Two concurrent first votes from one voter both see
// "no prior vote"; the unique constraint rejects the loser's insert, which
// comes back as ErrConflict and is converted here into the toggle path.
func (s *VoteService) Cast(ctx context.Context, commentID, voter string, value int) (*model.VoteResult, error) {
	if voter == "" {
		return nil, apperror.Unauthenticated("voting requires a signed-in user")
	}
	if value != 1 && value != -1 {
		return nil, apperror.ValidationFailed("vote", "vote must be 1 or -1")
	}

	if _, err := s.comments.GetByID(ctx, commentID); err != nil {
		return nil, err
	}

	if err := s.applyToggle(ctx, commentID, voter, value, true); err != nil {
		return nil, err
	}

	result, err := s.votes.TallyForComment(ctx, commentID, voter)
	if err != nil {
		return nil, fmt.Errorf("tallying votes: %w", err)
	}

	s.logger.Info("vote cast",
		slog.String("commentID", commentID),
		slog.Int("value", value),
	)
	return result, nil
}

func (s *VoteService) applyToggle(ctx context.Context, commentID, voter string, value int, retryOnConflict bool) error {
	existing, err := s.votes.Get(ctx, commentID, voter)
	switch {
	case err == nil:
		if existing.Value == value {
			// Same value twice is an un-vote.
			return s.votes.Delete(ctx, existing.ID)
		}
		return s.votes.UpdateValue(ctx, existing.ID, value)

	case errors.Is(err, apperror.ErrNotFound):
		insertErr := s.votes.Insert(ctx, &model.Vote{
			CommentID: commentID,
			Voter:     voter,
			Value:     value,
		})
		if insertErr == nil {
			return nil
		}
		if errors.Is(insertErr, apperror.ErrConflict) && retryOnConflict {
			// Lost the first-vote race; re-read and toggle the winner's row.
			return s.applyToggle(ctx, commentID, voter, value, false)
		}
		return insertErr

	default:
		return fmt.Errorf("reading existing vote: %w", err)
	}
}
