package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/model"
	"github.com/wikireview/wikireview/internal/repository"
)

const (
	MaxCommentLength = 10000
	MaxAuthorLength  = 80

	// AnonymousIdentity is the shared identity slot for unauthenticated
	// commenters and raters. All anonymous participants collapse onto it.
	AnonymousIdentity = "Anonymous"
)

// CommentService owns the comment forest: flat rows with a parent
// back-reference in storage, a nested tree on the way out.
type CommentService struct {
	comments repository.CommentRepository
	votes    repository.VoteRepository
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	votes repository.VoteRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		votes:    votes,
		logger:   logger,
	}
}

// ListForSubject returns the subject's comment forest with vote aggregates
// resolved onto every node. viewer marks the caller's own votes; pass ""
// for anonymous readers.
//
// The tree is rebuilt from flat rows on every read: partition into roots
// and a parent-keyed multimap, then attach children recursively. Rows
// arrive in creation order, so both root order and reply order within a
// parent are creation order with no extra sorting. Depth is unbounded
// here; capping nesting is the presentation layer's call.
func (s *CommentService) ListForSubject(ctx context.Context, subjectID int64, viewer string) ([]*model.Comment, error) {
	rows, err := s.comments.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	tallies, err := s.votes.TallyForSubject(ctx, subjectID, viewer)
	if err != nil {
		return nil, fmt.Errorf("tallying votes: %w", err)
	}

	return buildForest(rows, tallies), nil
}

// Add validates and persists one comment.
//
// A reply's parent must exist (ErrNotFound) and belong to the same subject
// (ErrValidation), both checked before anything is written, so a rejected
// reply persists nothing.
func (s *CommentService) Add(ctx context.Context, subjectID int64, subjectLabel, body, authorName string, parentID *string) (*model.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}
	if len(body) > MaxCommentLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}

	authorName = strings.TrimSpace(authorName)
	if authorName == "" {
		authorName = AnonymousIdentity
	}
	if len(authorName) > MaxAuthorLength {
		return nil, apperror.ValidationFailed("author",
			fmt.Sprintf("author name must be %d characters or less", MaxAuthorLength))
	}

	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	if parentID != nil {
		parent, err := s.comments.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.SubjectID != subjectID {
			return nil, apperror.ValidationFailed("parentCommentId",
				"parent comment belongs to a different subject")
		}
	}

	comment := &model.Comment{
		SubjectID:    subjectID,
		SubjectLabel: strings.TrimSpace(subjectLabel),
		Body:         body,
		AuthorName:   authorName,
		ParentID:     parentID,
		Replies:      []*model.Comment{},
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Error("failed to create comment",
			slog.Int64("subjectID", subjectID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment added",
		slog.String("id", comment.ID),
		slog.Int64("subjectID", subjectID),
	)
	return comment, nil
}

// Delete removes a comment and, via the storage cascade, its whole reply
// subtree. Only the author may delete; the check compares normalized
// identities (trimmed, case-insensitive) since authorship is recorded as a
// display string.
func (s *CommentService) Delete(ctx context.Context, commentID, caller string) error {
	if caller == "" {
		return apperror.Unauthenticated("deleting a comment requires a signed-in user")
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}

	if NormalizeIdentity(comment.AuthorName) != NormalizeIdentity(caller) {
		return apperror.Forbidden("only the comment's author may delete it")
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}

	s.logger.Info("comment deleted", slog.String("id", commentID))
	return nil
}

// buildForest reconstructs the tree with one adjacency-map pass. A child
// whose parent row is missing from the batch (deleted mid-read) is dropped
// rather than promoted to a root.
func buildForest(rows []*model.Comment, tallies map[string]model.VoteResult) []*model.Comment {
	roots := []*model.Comment{}
	children := make(map[string][]*model.Comment)

	for _, c := range rows {
		if tally, ok := tallies[c.ID]; ok {
			c.Upvotes = tally.Upvotes
			c.Downvotes = tally.Downvotes
			c.ViewerVote = tally.VoterValue
		}
		c.Replies = []*model.Comment{}

		if c.ParentID == nil {
			roots = append(roots, c)
		} else {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	var attach func(node *model.Comment)
	attach = func(node *model.Comment) {
		for _, child := range children[node.ID] {
			attach(child)
			node.Replies = append(node.Replies, child)
		}
	}
	for _, root := range roots {
		attach(root)
	}

	return roots
}

// NormalizeIdentity folds a display-name identity for comparison: trimmed
// and case-insensitive, matching how authorship was historically recorded.
func NormalizeIdentity(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
