package services

import (
	"context"
	"errors"
	"testing"

	"github.com/readshelf/apiserver/internal/store"
	"github.com/readshelf/apiserver/types"
	"github.com/rs/zerolog"
)

type stubReviewRepo struct {
	reviews   []types.Review
	createErr error
	nextID    int
}

func (s *stubReviewRepo) ListByBook(ctx context.Context, bookID int) ([]types.Review, error) {
	reviews := make([]types.Review, 0)
	for _, review := range s.reviews {
		if review.BookID == bookID {
			reviews = append(reviews, review)
		}
	}
	return reviews, nil
}

func (s *stubReviewRepo) GetByBookAndUser(ctx context.Context, bookID, userID int) (types.Review, error) {
	for _, review := range s.reviews {
		if review.BookID == bookID && review.UserID == userID {
			return review, nil
		}
	}
	return types.Review{}, store.ErrNotFound
}

func (s *stubReviewRepo) Create(ctx context.Context, review types.Review) (types.Review, error) {
	if s.createErr != nil {
		return types.Review{}, s.createErr
	}
	s.nextID++
	review.ID = s.nextID
	s.reviews = append(s.reviews, review)
	return review, nil
}

func newReviewFixture(books ...types.Book) (*ReviewService, *stubReviewRepo, *stubBookRepo) {
	reviewRepo := &stubReviewRepo{}
	bookRepo := &stubBookRepo{books: books}
	service := NewReviewService(reviewRepo, bookRepo, nil, zerolog.Nop())
	return service, reviewRepo, bookRepo
}

func TestCreateReviewRecomputesMean(t *testing.T) {
	service, _, bookRepo := newReviewFixture(types.Book{ID: 1, Title: "Dune"})

	if _, err := service.Create(context.Background(), 1, 10, 4, "loved it"); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if _, err := service.Create(context.Background(), 1, 11, 2, "meh"); err != nil {
		t.Fatalf("second review: %v", err)
	}

	book, _ := bookRepo.Get(context.Background(), 1)
	if book.Rating != 3.0 {
		t.Fatalf("expected rating 3.0, got %v", book.Rating)
	}
	if book.NumReviews != 2 {
		t.Fatalf("expected 2 reviews, got %d", book.NumReviews)
	}
}

func TestCreateReviewFractionalMean(t *testing.T) {
	service, _, bookRepo := newReviewFixture(types.Book{ID: 1})

	ratings := []int{5, 4}
	for i, rating := range ratings {
		if _, err := service.Create(context.Background(), 1, 10+i, rating, "ok"); err != nil {
			t.Fatalf("review %d: %v", i, err)
		}
	}

	book, _ := bookRepo.Get(context.Background(), 1)
	if book.Rating != 4.5 {
		t.Fatalf("expected rating 4.5, got %v", book.Rating)
	}
}

func TestCreateReviewDuplicate(t *testing.T) {
	service, reviewRepo, bookRepo := newReviewFixture(types.Book{ID: 1})

	if _, err := service.Create(context.Background(), 1, 10, 4, "first"); err != nil {
		t.Fatalf("first review: %v", err)
	}

	_, err := service.Create(context.Background(), 1, 10, 1, "second")
	if !errors.Is(err, ErrDuplicateReview) {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}

	if len(reviewRepo.reviews) != 1 {
		t.Fatalf("duplicate was persisted")
	}
	book, _ := bookRepo.Get(context.Background(), 1)
	if book.Rating != 4.0 || book.NumReviews != 1 {
		t.Fatalf("book summary changed by rejected duplicate: %v / %d", book.Rating, book.NumReviews)
	}
}

func TestCreateReviewConcurrentConflict(t *testing.T) {
	// A concurrent insert can slip between the duplicate check and the
	// write; the store reports the uniqueness violation as ErrConflict.
	service, reviewRepo, _ := newReviewFixture(types.Book{ID: 1})
	reviewRepo.createErr = store.ErrConflict

	_, err := service.Create(context.Background(), 1, 10, 4, "racing")
	if !errors.Is(err, ErrDuplicateReview) {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}
}

func TestCreateReviewUnknownBook(t *testing.T) {
	service, _, _ := newReviewFixture()

	_, err := service.Create(context.Background(), 7, 10, 4, "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
