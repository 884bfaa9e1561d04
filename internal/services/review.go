package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/readshelf/apiserver/internal/mq"
	"github.com/readshelf/apiserver/internal/store"
	"github.com/readshelf/apiserver/types"
	"github.com/rs/zerolog"
)

// ReviewCreatedChannel is the mq channel carrying review creation events.
const ReviewCreatedChannel = "reviews.created"

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	ListByBook(ctx context.Context, bookID int) ([]types.Review, error)
	GetByBookAndUser(ctx context.Context, bookID, userID int) (types.Review, error)
	Create(ctx context.Context, review types.Review) (types.Review, error)
}

// ErrDuplicateReview is returned when a user reviews the same book twice.
var ErrDuplicateReview = errors.New("book already reviewed by user")

// ReviewCreatedEvent is the payload published on ReviewCreatedChannel.
type ReviewCreatedEvent struct {
	ReviewID int `json:"review_id"`
	BookID   int `json:"book_id"`
	UserID   int `json:"user_id"`
	Rating   int `json:"rating"`
}

// ReviewService encapsulates review use-cases, including the denormalized
// rating recomputation on the parent book.
type ReviewService struct {
	repo   ReviewRepository
	books  BookRepository
	queue  *mq.MQ
	logger zerolog.Logger
}

func NewReviewService(repo ReviewRepository, books BookRepository, queue *mq.MQ, logger zerolog.Logger) *ReviewService {
	return &ReviewService{
		repo:   repo,
		books:  books,
		queue:  queue,
		logger: logger,
	}
}

// ListByBook returns every review for a book, each carrying the author's
// display name.
func (s *ReviewService) ListByBook(ctx context.Context, bookID int) ([]types.Review, error) {
	return s.repo.ListByBook(ctx, bookID)
}

// Create persists a review and synchronously recomputes the parent book's
// rating summary. A user may review a given book at most once: a prior
// review yields ErrDuplicateReview and leaves the book's summary untouched.
func (s *ReviewService) Create(ctx context.Context, bookID, userID, rating int, comment string) (types.Review, error) {
	if _, err := s.books.Get(ctx, bookID); err != nil {
		return types.Review{}, err
	}

	if _, err := s.repo.GetByBookAndUser(ctx, bookID, userID); err == nil {
		return types.Review{}, ErrDuplicateReview
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Review{}, err
	}

	review, err := s.repo.Create(ctx, types.Review{
		BookID:  bookID,
		UserID:  userID,
		Rating:  rating,
		Comment: comment,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			// A concurrent submit won the race past the read above.
			return types.Review{}, ErrDuplicateReview
		}
		return types.Review{}, err
	}

	if err := s.recomputeRating(ctx, bookID); err != nil {
		return types.Review{}, err
	}

	s.publishCreated(ctx, review)
	return review, nil
}

// recomputeRating reads the full review set for a book and writes back the
// mean rating and review count. Reading everything each time makes a lost
// concurrent update self-healing on the next write.
func (s *ReviewService) recomputeRating(ctx context.Context, bookID int) error {
	reviews, err := s.repo.ListByBook(ctx, bookID)
	if err != nil {
		return err
	}

	var rating float64
	if len(reviews) > 0 {
		sum := 0
		for _, review := range reviews {
			sum += review.Rating
		}
		rating = float64(sum) / float64(len(reviews))
	}

	return s.books.SetRating(ctx, bookID, rating, len(reviews))
}

// publishCreated emits a review creation event. Publishing is best-effort:
// a broker failure is logged and never fails the request.
func (s *ReviewService) publishCreated(ctx context.Context, review types.Review) {
	if s.queue == nil {
		return
	}

	payload, err := json.Marshal(ReviewCreatedEvent{
		ReviewID: review.ID,
		BookID:   review.BookID,
		UserID:   review.UserID,
		Rating:   review.Rating,
	})
	if err != nil {
		return
	}

	attrs := map[string]string{"book_id": strconv.Itoa(review.BookID)}
	if _, err := s.queue.Publish(ctx, ReviewCreatedChannel, payload, attrs); err != nil {
		s.logger.Warn().Err(err).Int("review_id", review.ID).Msg("failed to publish review event")
	}
}
