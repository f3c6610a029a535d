package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/model"
	"github.com/wikireview/wikireview/internal/repository"
)

// RatingService is the rating ledger: one 1..5 row per (subject, voter),
// overwritten in place on resubmission.
type RatingService struct {
	ratings repository.RatingRepository
	logger  *slog.Logger
}

func NewRatingService(ratings repository.RatingRepository, logger *slog.Logger) *RatingService {
	return &RatingService{ratings: ratings, logger: logger}
}

// Submit records or overwrites the caller's rating and returns the fresh
// aggregate. Unauthenticated raters are allowed; they share the single
// "Anonymous" identity slot, so anonymous raters collectively hold one
// rating per subject.
func (s *RatingService) Submit(ctx context.Context, subjectID int64, subjectLabel string, value int, voter string) (*model.RatingSummary, error) {
	if value < 1 || value > 5 {
		return nil, apperror.ValidationFailed("rating", "rating must be an integer from 1 to 5")
	}

	voter = strings.TrimSpace(voter)
	if voter == "" {
		voter = AnonymousIdentity
	}

	if err := s.upsert(ctx, subjectID, subjectLabel, value, voter, true); err != nil {
		return nil, err
	}

	s.logger.Info("rating submitted",
		slog.Int64("subjectID", subjectID),
		slog.Int("value", value),
	)
	return s.Summary(ctx, subjectID, voter)
}

// Summary returns the subject's derived aggregate: mean of current values
// rounded half-up to one decimal place, zero when no ratings exist, plus
// the caller's own rating.
func (s *RatingService) Summary(ctx context.Context, subjectID int64, voter string) (*model.RatingSummary, error) {
	voter = strings.TrimSpace(voter)
	if voter == "" {
		voter = AnonymousIdentity
	}

	sum, count, userValue, err := s.ratings.Aggregate(ctx, subjectID, voter)
	if err != nil {
		return nil, fmt.Errorf("aggregating ratings: %w", err)
	}

	summary := &model.RatingSummary{Count: count, UserRating: userValue}
	if count > 0 {
		summary.Average = roundHalfUp1(float64(sum) / float64(count))
	}
	return summary, nil
}

func (s *RatingService) upsert(ctx context.Context, subjectID int64, subjectLabel string, value int, voter string, retryOnConflict bool) error {
	existing, err := s.ratings.Get(ctx, subjectID, voter)
	switch {
	case err == nil:
		return s.ratings.UpdateValue(ctx, existing.ID, value)

	case errors.Is(err, apperror.ErrNotFound):
		insertErr := s.ratings.Insert(ctx, &model.Rating{
			SubjectID:    subjectID,
			SubjectLabel: strings.TrimSpace(subjectLabel),
			Voter:        voter,
			Value:        value,
		})
		if insertErr == nil {
			return nil
		}
		if errors.Is(insertErr, apperror.ErrConflict) && retryOnConflict {
			// A concurrent submission from the same identity won the
			// insert; redo as an update of the winner's row.
			return s.upsert(ctx, subjectID, subjectLabel, value, voter, false)
		}
		return insertErr

	default:
		return fmt.Errorf("reading existing rating: %w", err)
	}
}

// roundHalfUp1 rounds to one decimal place with ties going up, so 4.25
// becomes 4.3 rather than banker's 4.2.
func roundHalfUp1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}
