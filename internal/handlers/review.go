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
)

const (
	minRating = 1
	maxRating = 5
)

// ReviewHandler provides HTTP handlers for reviews.
type ReviewHandler struct {
	reviewService *services.ReviewService
}

func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ReviewRouter registers review routes on the given router.
func ReviewRouter(
	r chi.Router,
	reviewService *services.ReviewService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewReviewHandler(reviewService)

	r.Get("/", handler.ListReviews)
	r.With(authMiddleware).Post("/", handler.CreateReview)
}

// ListReviews returns every review for the book named by the bookId
// query parameter.
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("bookId"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "bookId is required")
		return
	}
	bookID, err := strconv.Atoi(raw)
	if err != nil || bookID < 1 {
		writeError(w, http.StatusBadRequest, "invalid bookId")
		return
	}

	reviews, err := h.reviewService.ListByBook(r.Context(), bookID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}

	writeJSON(w, http.StatusOK, reviews)
}

// CreateReview persists a review by the authenticated user and triggers
// the parent book's rating recomputation.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	var req ReviewCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Comment = strings.TrimSpace(req.Comment)
	if req.BookID == 0 || req.Rating == 0 || req.Comment == "" {
		writeError(w, http.StatusBadRequest, "all fields are required")
		return
	}
	if req.Rating < minRating || req.Rating > maxRating {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	review, err := h.reviewService.Create(r.Context(), req.BookID, userID, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateReview):
			writeError(w, http.StatusConflict, "you already reviewed this book")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "book not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create review")
		}
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

type ReviewCreateRequest struct {
	BookID  int    `json:"bookId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
