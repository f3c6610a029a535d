package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/model"
	"github.com/wikireview/wikireview/internal/repository"
	"github.com/wikireview/wikireview/internal/wiki"
)

// ProtectionService manages page-protection metadata. Ownership is keyed by
// the immutable numeric subject ID (never the page title, which can be
// renamed on the wiki side) and claimed by the first authenticated user to
// set protection.
//
// The wiki client is optional: when the engine isn't configured, protection
// state is tracked locally and nothing is propagated.
type ProtectionService struct {
	protections repository.ProtectionRepository
	engine      *wiki.Client
	logger      *slog.Logger
}

func NewProtectionService(
	protections repository.ProtectionRepository,
	engine *wiki.Client,
	logger *slog.Logger,
) *ProtectionService {
	return &ProtectionService{
		protections: protections,
		engine:      engine,
		logger:      logger,
	}
}

// Get returns the protection record for a subject; an unclaimed page comes
// back as a zero-value record (unprotected, no creator) rather than an error.
func (s *ProtectionService) Get(ctx context.Context, subjectID int64) (*model.PageProtection, error) {
	p, err := s.protections.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return &model.PageProtection{SubjectID: subjectID}, nil
		}
		return nil, fmt.Errorf("reading protection: %w", err)
	}
	return p, nil
}

// Set changes a page's protection state.
//
// The first caller to set protection claims the page and becomes its
// creator; after that, only the creator may change the state. The primary
// check compares user IDs; rows from before accounts were linked fall back
// to the normalized display-name comparison. Everyone else gets
// ErrForbidden before anything is written.
func (s *ProtectionService) Set(ctx context.Context, subjectID int64, protected bool, caller *model.User) (*model.PageProtection, error) {
	if caller == nil {
		return nil, apperror.Unauthenticated("changing protection requires a signed-in user")
	}

	existing, err := s.protections.Get(ctx, subjectID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("reading protection: %w", err)
		}

		claim := &model.PageProtection{
			SubjectID:     subjectID,
			CreatorUserID: caller.ID,
			CreatorName:   caller.Name(),
			Protected:     protected,
		}
		if createErr := s.protections.Create(ctx, claim); createErr != nil {
			if errors.Is(createErr, apperror.ErrConflict) {
				// Someone else claimed the page first; re-read and fall
				// through to the ownership check.
				return s.Set(ctx, subjectID, protected, caller)
			}
			return nil, createErr
		}

		s.logger.Info("page claimed",
			slog.Int64("subjectID", subjectID),
			slog.String("creator", caller.ID),
		)
		s.propagate(ctx, subjectID, protected)
		return claim, nil
	}

	if !s.isCreator(existing, caller) {
		return nil, apperror.Forbidden("only the page's creator may change its protection")
	}

	if err := s.protections.SetProtected(ctx, subjectID, protected); err != nil {
		return nil, err
	}
	existing.Protected = protected

	s.logger.Info("protection changed",
		slog.Int64("subjectID", subjectID),
		slog.Bool("protected", protected),
	)
	s.propagate(ctx, subjectID, protected)
	return existing, nil
}

func (s *ProtectionService) isCreator(p *model.PageProtection, caller *model.User) bool {
	if p.CreatorUserID != "" {
		return p.CreatorUserID == caller.ID
	}
	return NormalizeIdentity(p.CreatorName) == NormalizeIdentity(caller.Name())
}

// propagate pushes the new state to the wiki engine: acquire an edit token,
// use it, and on a token rejection acquire a fresh one and retry once.
// Engine failures don't roll back the local record; the site's protection
// metadata is authoritative for the site, and the push is best-effort.
func (s *ProtectionService) propagate(ctx context.Context, subjectID int64, protected bool) {
	if s.engine == nil {
		return
	}

	err := s.protectOnce(ctx, subjectID, protected)
	if errors.Is(err, wiki.ErrTokenRejected) {
		err = s.protectOnce(ctx, subjectID, protected)
	}
	if err != nil {
		s.logger.Warn("failed to propagate protection to wiki engine",
			slog.Int64("subjectID", subjectID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ProtectionService) protectOnce(ctx context.Context, subjectID int64, protected bool) error {
	token, err := s.engine.AcquireEditToken(ctx)
	if err != nil {
		return err
	}
	return s.engine.Protect(ctx, token, subjectID, protected)
}
