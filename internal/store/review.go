package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/readshelf/apiserver/types"
)

// ReviewRepository handles persistence for reviews.
type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// ListByBook returns every review for a book in storage order, each
// carrying the display name of its authoring user.
func (r *ReviewRepository) ListByBook(ctx context.Context, bookID int) ([]types.Review, error) {
	const query = `
		SELECT r.id, r.book_id, r.user_id, u.name, r.rating, r.comment, r.created_at, r.updated_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.book_id = $1
		ORDER BY r.id`
	rows, err := r.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]types.Review, 0)
	for rows.Next() {
		var review types.Review
		if err := rows.Scan(
			&review.ID,
			&review.BookID,
			&review.UserID,
			&review.UserName,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
			&review.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// GetByBookAndUser returns the review a user left on a book, or ErrNotFound.
func (r *ReviewRepository) GetByBookAndUser(ctx context.Context, bookID, userID int) (types.Review, error) {
	const query = `
		SELECT id, book_id, user_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE book_id = $1 AND user_id = $2`
	var review types.Review
	err := r.db.QueryRowContext(ctx, query, bookID, userID).Scan(
		&review.ID,
		&review.BookID,
		&review.UserID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Review{}, ErrNotFound
		}
		return types.Review{}, err
	}
	return review, nil
}

// Create inserts a review. A second review by the same user on the same
// book trips the (book_id, user_id) uniqueness index and is reported as
// ErrConflict, which closes the check-then-insert race between concurrent
// submissions.
func (r *ReviewRepository) Create(ctx context.Context, review types.Review) (types.Review, error) {
	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	const query = `
		INSERT INTO reviews (book_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		review.BookID,
		review.UserID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	).Scan(&review.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Review{}, ErrConflict
		}
		return types.Review{}, err
	}
	return review, nil
}
