package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/model"
)

func TestProtectionCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db.Users(), "protector")
	p := db.Protections()

	claim := &model.PageProtection{
		SubjectID:     50,
		CreatorUserID: user.ID,
		CreatorName:   "protector",
		Protected:     true,
	}
	if err := p.Create(context.Background(), claim); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := p.Get(context.Background(), 50)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found.Protected {
		t.Error("Protected = false, want true")
	}
	if found.CreatorUserID != user.ID {
		t.Errorf("CreatorUserID = %q, want %q", found.CreatorUserID, user.ID)
	}
}

func TestProtectionCreate_DuplicateSubject(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db.Users(), "firstclaimer")
	p := db.Protections()

	first := &model.PageProtection{SubjectID: 51, CreatorUserID: user.ID}
	if err := p.Create(context.Background(), first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	second := &model.PageProtection{SubjectID: 51, CreatorUserID: user.ID}
	err := p.Create(context.Background(), second)
	if err == nil {
		t.Fatal("Create() should error on an already-claimed subject")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestProtectionGet_Unclaimed(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Protections().Get(context.Background(), 12345)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestProtectionSetProtected(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db.Users(), "toggler")
	p := db.Protections()

	claim := &model.PageProtection{SubjectID: 52, CreatorUserID: user.ID, Protected: true}
	if err := p.Create(context.Background(), claim); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := p.SetProtected(context.Background(), 52, false); err != nil {
		t.Fatalf("SetProtected() error = %v", err)
	}

	found, err := p.Get(context.Background(), 52)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found.Protected {
		t.Error("Protected = true after unprotect, want false")
	}
}

func TestProtectionSetProtected_Unclaimed(t *testing.T) {
	db := newTestDB(t)

	err := db.Protections().SetProtected(context.Background(), 53, true)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
