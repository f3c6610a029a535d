package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/model"
)

func createTestComment(t *testing.T, c *CommentStore, subjectID int64, body string, parentID *string) *model.Comment {
	t.Helper()
	comment := &model.Comment{
		SubjectID:  subjectID,
		Body:       body,
		AuthorName: "tester",
		ParentID:   parentID,
	}
	if err := c.Create(context.Background(), comment); err != nil {
		t.Fatalf("failed to create test comment: %v", err)
	}
	return comment
}

func TestCommentCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	c := db.Comments()

	created := createTestComment(t, c, 7, "first!", nil)
	if created.ID == "" {
		t.Fatal("Create() did not set comment.ID")
	}

	found, err := c.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Body != "first!" {
		t.Errorf("Body = %q, want %q", found.Body, "first!")
	}
	if found.SubjectID != 7 {
		t.Errorf("SubjectID = %d, want 7", found.SubjectID)
	}
	if found.ParentID != nil {
		t.Errorf("ParentID = %v, want nil for a root comment", *found.ParentID)
	}
}

func TestCommentCreate_MissingParent(t *testing.T) {
	db := newTestDB(t)
	c := db.Comments()

	bogus := "no-such-parent"
	comment := &model.Comment{SubjectID: 1, Body: "orphan", AuthorName: "x", ParentID: &bogus}
	err := c.Create(context.Background(), comment)
	if err == nil {
		t.Fatal("Create() should error when the parent row does not exist")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCommentListBySubject_OrderAndIsolation(t *testing.T) {
	db := newTestDB(t)
	c := db.Comments()

	first := createTestComment(t, c, 10, "one", nil)
	second := createTestComment(t, c, 10, "two", nil)
	createTestComment(t, c, 99, "other subject", nil)

	list, err := c.ListBySubject(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListBySubject() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListBySubject() returned %d comments, want 2", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Errorf("comments out of creation order: got [%s, %s]", list[0].ID, list[1].ID)
	}
}

func TestCommentDelete_CascadesToReplies(t *testing.T) {
	db := newTestDB(t)
	c := db.Comments()

	root := createTestComment(t, c, 5, "root", nil)
	reply := createTestComment(t, c, 5, "reply", &root.ID)
	createTestComment(t, c, 5, "nested reply", &reply.ID)
	keeper := createTestComment(t, c, 5, "unrelated", nil)

	if err := c.Delete(context.Background(), root.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	list, err := c.ListBySubject(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListBySubject() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("after cascade delete: %d comments remain, want 1", len(list))
	}
	if list[0].ID != keeper.ID {
		t.Errorf("wrong survivor: got %s, want %s", list[0].ID, keeper.ID)
	}
}

func TestCommentDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Comments().Delete(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// Deleting a comment must also clear its vote ledger rows via the cascade,
// so a re-created comment never inherits stale votes.
func TestCommentDelete_ClearsVotes(t *testing.T) {
	db := newTestDB(t)
	c := db.Comments()
	v := db.Votes()

	comment := createTestComment(t, c, 3, "voted on", nil)
	vote := &model.Vote{CommentID: comment.ID, Voter: "alice", Value: 1}
	if err := v.Insert(context.Background(), vote); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := c.Delete(context.Background(), comment.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := v.Get(context.Background(), comment.ID, "alice")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("vote row survived the comment delete: error = %v, want ErrNotFound", err)
	}
}
