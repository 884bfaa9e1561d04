package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/readshelf/apiserver/internal/services"
	"github.com/readshelf/apiserver/internal/store"
	"github.com/readshelf/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserHandler provides HTTP handlers for user profiles.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes on the given router. Every route
// requires authentication.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewUserHandler(userService)

	r.Use(authMiddleware)
	r.Post("/admin", handler.CreateAdmin)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetProfile)
		r.Put("/", handler.UpdateProfile)
	})
}

// GetProfile returns a user profile. The caller must be the profile's
// owner or an admin.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	targetID, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller, ok := h.loadCaller(w, r)
	if !ok {
		return
	}
	if caller.ID != targetID && !caller.IsAdmin {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	user, err := h.userService.GetByID(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile updates a user's name, email, or password. The caller
// must be the profile's owner or an admin. Omitted fields keep their
// stored values; a supplied password is hashed exactly once.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	targetID, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller, ok := h.loadCaller(w, r)
	if !ok {
		return
	}
	if caller.ID != targetID && !caller.IsAdmin {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	var req ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	update := services.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
		update.NewPasswordHash = string(hashed)
	}

	user, err := h.userService.UpdateProfile(r.Context(), targetID, update)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "email already registered")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// CreateAdmin creates a new admin account. Only an existing admin may
// call it.
func (h *UserHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.loadCaller(w, r)
	if !ok {
		return
	}
	if !caller.IsAdmin {
		writeError(w, http.StatusForbidden, "only admins can create new admins")
		return
	}

	var req AdminCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	if _, err := h.userService.GetByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to check user")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create admin")
		return
	}

	admin, err := h.userService.Create(r.Context(), types.User{
		Name:         req.Name,
		Email:        req.Email,
		IsAdmin:      true,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create admin")
		return
	}

	writeJSON(w, http.StatusCreated, admin)
}

// loadCaller resolves the authenticated caller from the request context.
// On failure it writes the error response and reports false.
func (h *UserHandler) loadCaller(w http.ResponseWriter, r *http.Request) (types.User, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return types.User{}, false
	}

	caller, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "not authorized")
			return types.User{}, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return types.User{}, false
	}
	return caller, true
}

func parseUserID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid user id")
	}
	return id, nil
}

type ProfileUpdateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
