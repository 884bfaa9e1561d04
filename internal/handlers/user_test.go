package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/readshelf/apiserver/types"
)

func TestGetProfileSelfOrAdmin(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, "Alice", "alice@example.com", "pass", false)
	bob := api.seedUser(t, "Bob", "bob@example.com", "pass", false)
	admin := api.seedUser(t, "Admin", "admin@example.com", "pass", true)

	// Self.
	resp := api.doJSON(t, http.MethodGet, fmt.Sprintf("/users/%d", alice.ID), token(t, alice.ID), nil)
	requireStatus(t, resp, http.StatusOK)
	got := decodeBody[types.User](t, resp)
	if got.Email != alice.Email {
		t.Fatalf("unexpected profile: %+v", got)
	}

	// Another non-admin.
	resp = api.doJSON(t, http.MethodGet, fmt.Sprintf("/users/%d", alice.ID), token(t, bob.ID), nil)
	requireStatus(t, resp, http.StatusForbidden)

	// Admin.
	resp = api.doJSON(t, http.MethodGet, fmt.Sprintf("/users/%d", alice.ID), token(t, admin.ID), nil)
	requireStatus(t, resp, http.StatusOK)

	// No token.
	resp = api.doJSON(t, http.MethodGet, fmt.Sprintf("/users/%d", alice.ID), "", nil)
	requireStatus(t, resp, http.StatusUnauthorized)
}

func TestGetProfileNeverLeaksHash(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, "Alice", "alice@example.com", "pass", false)

	resp := api.doJSON(t, http.MethodGet, fmt.Sprintf("/users/%d", alice.ID), token(t, alice.ID), nil)
	requireStatus(t, resp, http.StatusOK)

	if strings.Contains(resp.Body.String(), alice.PasswordHash) {
		t.Fatalf("response leaked password hash")
	}
	if strings.Contains(resp.Body.String(), "password_hash") {
		t.Fatalf("response contains password_hash field")
	}
}

func TestGetProfileNotFound(t *testing.T) {
	api := newTestAPI(t)
	admin := api.seedUser(t, "Admin", "admin@example.com", "pass", true)

	resp := api.doJSON(t, http.MethodGet, "/users/99", token(t, admin.ID), nil)
	requireStatus(t, resp, http.StatusNotFound)
}

func TestUpdateProfileForbiddenForOthers(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, "Alice", "alice@example.com", "pass", false)
	bob := api.seedUser(t, "Bob", "bob@example.com", "pass", false)

	resp := api.doJSON(t, http.MethodPut, fmt.Sprintf("/users/%d", alice.ID), token(t, bob.ID),
		map[string]string{"name": "Mallory"})
	requireStatus(t, resp, http.StatusForbidden)

	stored, err := api.users.GetByID(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.Name != "Alice" {
		t.Fatalf("profile changed despite 403: %q", stored.Name)
	}
}

func TestUpdateProfileMergesFields(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, "Alice", "alice@example.com", "pass", false)

	resp := api.doJSON(t, http.MethodPut, fmt.Sprintf("/users/%d", alice.ID), token(t, alice.ID),
		map[string]string{"name": "Alicia"})
	requireStatus(t, resp, http.StatusOK)

	stored, err := api.users.GetByID(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.Name != "Alicia" {
		t.Fatalf("name not updated: %q", stored.Name)
	}
	if stored.Email != alice.Email {
		t.Fatalf("email changed unexpectedly: %q", stored.Email)
	}
	if stored.PasswordHash != alice.PasswordHash {
		t.Fatalf("password hash changed without a new password")
	}
}

func TestUpdateProfileRehashesOnlyNewPassword(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, "Alice", "alice@example.com", "pass", false)

	resp := api.doJSON(t, http.MethodPut, fmt.Sprintf("/users/%d", alice.ID), token(t, alice.ID),
		map[string]string{"password": "newpass"})
	requireStatus(t, resp, http.StatusOK)

	stored, err := api.users.GetByID(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.PasswordHash == alice.PasswordHash {
		t.Fatalf("password hash was not replaced")
	}

	// New password works for login; old one does not.
	resp = api.doJSON(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": alice.Email, "password": "newpass"})
	requireStatus(t, resp, http.StatusOK)

	resp = api.doJSON(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": alice.Email, "password": "pass"})
	requireStatus(t, resp, http.StatusUnauthorized)
}

func TestCreateAdminRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, "Alice", "alice@example.com", "pass", false)

	resp := api.doJSON(t, http.MethodPost, "/users/admin", token(t, alice.ID),
		map[string]string{"name": "Eve", "email": "eve@example.com", "password": "pass"})
	requireStatus(t, resp, http.StatusForbidden)
}

func TestCreateAdmin(t *testing.T) {
	api := newTestAPI(t)
	admin := api.seedUser(t, "Admin", "admin@example.com", "pass", true)

	resp := api.doJSON(t, http.MethodPost, "/users/admin", token(t, admin.ID),
		map[string]string{"name": "Second", "email": "second@example.com", "password": "pass"})
	requireStatus(t, resp, http.StatusCreated)

	created := decodeBody[types.User](t, resp)
	if !created.IsAdmin {
		t.Fatalf("created user is not an admin")
	}

	// Duplicate email conflicts.
	resp = api.doJSON(t, http.MethodPost, "/users/admin", token(t, admin.ID),
		map[string]string{"name": "Again", "email": "second@example.com", "password": "pass"})
	requireStatus(t, resp, http.StatusConflict)
}
