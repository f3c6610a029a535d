package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/model"
)

// createTestUser inserts a user and fails the test on error.
func createTestUser(t *testing.T, u *UserStore, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "pbkdf2_sha512$10000$c2FsdA$a2V5",
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user %q: %v", username, err)
	}
	return user
}

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	user := &model.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		DisplayName:  "Alice A.",
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
	if user.UpdatedAt.IsZero() {
		t.Error("Create() did not set user.UpdatedAt")
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()
	createTestUser(t, u, "taken")

	dup := &model.User{Username: "taken", Email: "other@example.com"}
	err := u.Create(context.Background(), dup)
	if err == nil {
		t.Fatal("Create() should error on duplicate username")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()
	createTestUser(t, u, "original")

	dup := &model.User{Username: "someoneelse", Email: "original@example.com"}
	err := u.Create(context.Background(), dup)
	if err == nil {
		t.Fatal("Create() should error on duplicate email")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestUserGetByUsername(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()
	created := createTestUser(t, u, "findme")

	found, err := u.GetByUsername(context.Background(), "findme")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
	if found.PasswordHash != created.PasswordHash {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, created.PasswordHash)
	}
}

func TestUserGetByUsername_CaseSensitive(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()
	createTestUser(t, u, "CaseUser")

	_, err := u.GetByUsername(context.Background(), "caseuser")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("lookup with different case: error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUserUpsertByGitHubID_InsertThenUpdate(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	ghID := int64(42)
	first := &model.User{
		Username: "octo",
		Email:    "octo@example.com",
		GitHubID: &ghID,
	}
	if err := u.UpsertByGitHubID(context.Background(), first); err != nil {
		t.Fatalf("UpsertByGitHubID() insert error = %v", err)
	}
	if first.ID == "" {
		t.Fatal("upsert did not set user.ID on insert")
	}

	// Second login with a refreshed profile keeps the internal ID.
	second := &model.User{
		Username:    "octo",
		Email:       "newmail@example.com",
		DisplayName: "The Octocat",
		GitHubID:    &ghID,
	}
	if err := u.UpsertByGitHubID(context.Background(), second); err != nil {
		t.Fatalf("UpsertByGitHubID() update error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert changed internal ID: %q -> %q", first.ID, second.ID)
	}

	found, err := u.GetByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Email != "newmail@example.com" {
		t.Errorf("Email = %q, want refreshed value", found.Email)
	}
	if found.DisplayName != "The Octocat" {
		t.Errorf("DisplayName = %q, want refreshed value", found.DisplayName)
	}
}

func TestUserUpsertByGitHubID_RequiresID(t *testing.T) {
	db := newTestDB(t)

	err := db.Users().UpsertByGitHubID(context.Background(), &model.User{Username: "nogh"})
	if err == nil {
		t.Fatal("UpsertByGitHubID() should error without a GitHub ID")
	}
}
