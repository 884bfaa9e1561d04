package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/readshelf/apiserver/types"
)

func TestListReviewsRequiresBookID(t *testing.T) {
	api := newTestAPI(t)

	resp := api.doJSON(t, http.MethodGet, "/reviews", "", nil)
	requireStatus(t, resp, http.StatusBadRequest)
}

func TestCreateReviewRequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	book := api.seedBook(t, "Dune", "Herbert", nil)

	body := map[string]any{"bookId": book.ID, "rating": 4, "comment": "great"}
	resp := api.doJSON(t, http.MethodPost, "/reviews", "", body)
	requireStatus(t, resp, http.StatusUnauthorized)
}

func TestCreateReviewValidation(t *testing.T) {
	api := newTestAPI(t)
	user := api.seedUser(t, "Reader", "reader@example.com", "pass", false)
	book := api.seedBook(t, "Dune", "Herbert", nil)

	cases := []map[string]any{
		{"rating": 4, "comment": "great"},
		{"bookId": book.ID, "comment": "great"},
		{"bookId": book.ID, "rating": 4},
		{"bookId": book.ID, "rating": 9, "comment": "great"},
	}
	for i, body := range cases {
		resp := api.doJSON(t, http.MethodPost, "/reviews", token(t, user.ID), body)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("case %d: got %d, want 400", i, resp.Code)
		}
	}
}

func TestCreateReviewRecomputesBookRating(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, "Alice", "alice@example.com", "pass", false)
	bob := api.seedUser(t, "Bob", "bob@example.com", "pass", false)
	book := api.seedBook(t, "Dune", "Herbert", nil)

	resp := api.doJSON(t, http.MethodPost, "/reviews", token(t, alice.ID),
		map[string]any{"bookId": book.ID, "rating": 4, "comment": "loved it"})
	requireStatus(t, resp, http.StatusCreated)

	resp = api.doJSON(t, http.MethodPost, "/reviews", token(t, bob.ID),
		map[string]any{"bookId": book.ID, "rating": 2, "comment": "not for me"})
	requireStatus(t, resp, http.StatusCreated)

	resp = api.doJSON(t, http.MethodGet, fmt.Sprintf("/books/%d", book.ID), "", nil)
	requireStatus(t, resp, http.StatusOK)

	got := decodeBody[types.Book](t, resp)
	if got.Rating != 3.0 {
		t.Fatalf("expected rating 3.0, got %v", got.Rating)
	}
	if got.NumReviews != 2 {
		t.Fatalf("expected 2 reviews, got %d", got.NumReviews)
	}
}

func TestDuplicateReviewRejected(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, "Alice", "alice@example.com", "pass", false)
	book := api.seedBook(t, "Dune", "Herbert", nil)

	body := map[string]any{"bookId": book.ID, "rating": 4, "comment": "loved it"}
	resp := api.doJSON(t, http.MethodPost, "/reviews", token(t, alice.ID), body)
	requireStatus(t, resp, http.StatusCreated)

	body["rating"] = 1
	resp = api.doJSON(t, http.MethodPost, "/reviews", token(t, alice.ID), body)
	requireStatus(t, resp, http.StatusConflict)

	resp = api.doJSON(t, http.MethodGet, fmt.Sprintf("/books/%d", book.ID), "", nil)
	got := decodeBody[types.Book](t, resp)
	if got.Rating != 4.0 || got.NumReviews != 1 {
		t.Fatalf("book summary changed by rejected duplicate: rating %v, count %d", got.Rating, got.NumReviews)
	}
}

func TestCreateReviewUnknownBook(t *testing.T) {
	api := newTestAPI(t)
	user := api.seedUser(t, "Reader", "reader@example.com", "pass", false)

	body := map[string]any{"bookId": 42, "rating": 4, "comment": "great"}
	resp := api.doJSON(t, http.MethodPost, "/reviews", token(t, user.ID), body)
	requireStatus(t, resp, http.StatusNotFound)
}

func TestListReviewsIncludesUserName(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, "Alice", "alice@example.com", "pass", false)
	book := api.seedBook(t, "Dune", "Herbert", nil)

	resp := api.doJSON(t, http.MethodPost, "/reviews", token(t, alice.ID),
		map[string]any{"bookId": book.ID, "rating": 5, "comment": "superb"})
	requireStatus(t, resp, http.StatusCreated)

	resp = api.doJSON(t, http.MethodGet, fmt.Sprintf("/reviews?bookId=%d", book.ID), "", nil)
	requireStatus(t, resp, http.StatusOK)

	reviews := decodeBody[[]types.Review](t, resp)
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}
	if reviews[0].UserName != "Alice" {
		t.Fatalf("expected reviewer name Alice, got %q", reviews[0].UserName)
	}
}
