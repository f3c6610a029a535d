package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pages/7" {
			t.Errorf("path = %q, want /api/pages/7", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":7,"title":"Some Page","html":"<p>body</p>"}`)
	}))
	defer srv.Close()

	page, err := New(srv.URL).GetPage(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if page.ID != 7 || page.Title != "Some Page" {
		t.Errorf("page = %+v", page)
	}
}

func TestGetPage_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetPage(context.Background(), 404)
	if err == nil {
		t.Fatal("GetPage() should error on 404")
	}
}

func TestAcquireEditToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tokens/edit" {
			t.Errorf("%s %s, want POST /api/tokens/edit", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"token":"edit-token-1"}`)
	}))
	defer srv.Close()

	token, err := New(srv.URL).AcquireEditToken(context.Background())
	if err != nil {
		t.Fatalf("AcquireEditToken() error = %v", err)
	}
	if token != "edit-token-1" {
		t.Errorf("token = %q, want edit-token-1", token)
	}
}

func TestAcquireEditToken_EmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token":""}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).AcquireEditToken(context.Background())
	if err == nil {
		t.Fatal("AcquireEditToken() should error on an empty token")
	}
}

func TestProtect(t *testing.T) {
	var gotToken, gotProtected string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pages/9/protect" {
			t.Errorf("path = %q, want /api/pages/9/protect", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		gotToken = r.PostFormValue("token")
		gotProtected = r.PostFormValue("protected")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := New(srv.URL).Protect(context.Background(), "tok", 9, true)
	if err != nil {
		t.Fatalf("Protect() error = %v", err)
	}
	if gotToken != "tok" {
		t.Errorf("token = %q, want tok", gotToken)
	}
	if gotProtected != "true" {
		t.Errorf("protected = %q, want true", gotProtected)
	}
}

func TestProtect_TokenRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		err := New(srv.URL).Protect(context.Background(), "stale", 9, true)
		if !errors.Is(err, ErrTokenRejected) {
			t.Errorf("status %d: error = %v, want ErrTokenRejected", status, err)
		}
		srv.Close()
	}
}
