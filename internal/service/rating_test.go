package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/model"
)

// mockRatingRepo is an in-memory rating ledger with the (subject, voter)
// uniqueness rule.
type mockRatingRepo struct {
	rows   []*model.Rating
	nextID int
}

func newMockRatingRepo() *mockRatingRepo {
	return &mockRatingRepo{}
}

func (m *mockRatingRepo) Get(_ context.Context, subjectID int64, voter string) (*model.Rating, error) {
	for _, r := range m.rows {
		if r.SubjectID == subjectID && r.Voter == voter {
			result := *r
			return &result, nil
		}
	}
	return nil, apperror.NotFound("rating", fmt.Sprintf("subject %d", subjectID))
}

func (m *mockRatingRepo) Insert(_ context.Context, rating *model.Rating) error {
	for _, r := range m.rows {
		if r.SubjectID == rating.SubjectID && r.Voter == rating.Voter {
			return apperror.Conflict("rating", "subject_id, voter")
		}
	}
	m.nextID++
	rating.ID = fmt.Sprintf("rating-%d", m.nextID)
	rating.CreatedAt = time.Now().UTC()
	rating.UpdatedAt = rating.CreatedAt
	stored := *rating
	m.rows = append(m.rows, &stored)
	return nil
}

func (m *mockRatingRepo) UpdateValue(_ context.Context, id string, value int) error {
	for _, r := range m.rows {
		if r.ID == id {
			r.Value = value
			r.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return apperror.NotFound("rating", id)
}

func (m *mockRatingRepo) Aggregate(_ context.Context, subjectID int64, voter string) (int, int, *int, error) {
	var sum, count int
	var userValue *int
	for _, r := range m.rows {
		if r.SubjectID != subjectID {
			continue
		}
		sum += r.Value
		count++
		if r.Voter == voter {
			value := r.Value
			userValue = &value
		}
	}
	return sum, count, userValue, nil
}

func newTestRatingService(t *testing.T) (*RatingService, *mockRatingRepo) {
	t.Helper()
	ratings := newMockRatingRepo()
	return NewRatingService(ratings, testLogger()), ratings
}

func TestSubmit_Success(t *testing.T) {
	svc, _ := newTestRatingService(t)

	summary, err := svc.Submit(context.Background(), 30, "Some Page", 4, "alice")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if summary.Average != 4.0 {
		t.Errorf("Average = %v, want 4.0", summary.Average)
	}
	if summary.Count != 1 {
		t.Errorf("Count = %d, want 1", summary.Count)
	}
	if summary.UserRating == nil || *summary.UserRating != 4 {
		t.Errorf("UserRating = %v, want 4", summary.UserRating)
	}
}

func TestSubmit_InvalidValue(t *testing.T) {
	svc, _ := newTestRatingService(t)

	for _, value := range []int{0, 6, -1, 100} {
		_, err := svc.Submit(context.Background(), 30, "", value, "alice")
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Submit(value=%d) error = %v, want ErrValidation", value, err)
		}
	}
}

// Resubmitting overwrites the existing rating; the count never grows.
func TestSubmit_OverwritesOwnRating(t *testing.T) {
	svc, _ := newTestRatingService(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, 30, "", 5, "alice"); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	summary, err := svc.Submit(ctx, 30, "", 2, "alice")
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if summary.Count != 1 {
		t.Errorf("Count = %d after resubmission, want 1", summary.Count)
	}
	if summary.Average != 2.0 {
		t.Errorf("Average = %v, want 2.0", summary.Average)
	}
}

// All anonymous raters share one identity slot, so collectively they hold a
// single rating per subject.
func TestSubmit_AnonymousCollapse(t *testing.T) {
	svc, _ := newTestRatingService(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, 30, "", 5, ""); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	summary, err := svc.Submit(ctx, 30, "", 1, "   ")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if summary.Count != 1 {
		t.Errorf("Count = %d for two anonymous submissions, want 1", summary.Count)
	}
	if summary.Average != 1.0 {
		t.Errorf("Average = %v, want the later submission's 1.0", summary.Average)
	}
}

func TestSummary_Averages(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]int
		want   float64
	}{
		{"several ratings", map[string]int{"a": 4, "b": 5, "c": 3}, 4.0},
		{"single rating", map[string]int{"a": 5}, 5.0},
		{"rounds half up", map[string]int{"a": 4, "b": 5, "c": 5}, 4.7},
		{"two point five", map[string]int{"a": 2, "b": 3}, 2.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestRatingService(t)
			ctx := context.Background()
			for voter, value := range tc.values {
				if _, err := svc.Submit(ctx, 30, "", value, voter); err != nil {
					t.Fatalf("setup: Submit() error = %v", err)
				}
			}

			summary, err := svc.Summary(ctx, 30, "")
			if err != nil {
				t.Fatalf("Summary() error = %v", err)
			}
			if summary.Average != tc.want {
				t.Errorf("Average = %v, want %v", summary.Average, tc.want)
			}
		})
	}
}

func TestSummary_NoRatings(t *testing.T) {
	svc, _ := newTestRatingService(t)

	summary, err := svc.Summary(context.Background(), 999, "alice")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Average != 0 {
		t.Errorf("Average = %v for an unrated subject, want 0", summary.Average)
	}
	if summary.Count != 0 {
		t.Errorf("Count = %d, want 0", summary.Count)
	}
	if summary.UserRating != nil {
		t.Errorf("UserRating = %v, want nil", *summary.UserRating)
	}
}

func TestRoundHalfUp1(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{4.25, 4.3},
		{4.24, 4.2},
		{4.666666, 4.7},
		{5.0, 5.0},
		{0.0, 0.0},
	}
	for _, tc := range cases {
		if got := roundHalfUp1(tc.in); got != tc.want {
			t.Errorf("roundHalfUp1(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
