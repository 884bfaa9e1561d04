package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/readshelf/apiserver/types"
)

// BookRepository handles persistence for books.
type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

const bookColumns = `id, title, author, genres, description, cover_image, rating, num_reviews, created_at, updated_at`

// List returns one page of books matching the search term, together with
// the total match count. An empty search matches every book; a non-empty
// search matches case-insensitive substrings of title or author.
func (r *BookRepository) List(ctx context.Context, search string, offset, limit int) ([]types.Book, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	pattern := "%" + search + "%"

	const countQuery = `
		SELECT COUNT(1) FROM books
		WHERE title ILIKE $1 OR author ILIKE $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + bookColumns + `
		FROM books
		WHERE title ILIKE $1 OR author ILIKE $1
		ORDER BY id
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, pattern, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	books, err := scanBooks(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// ListAll returns every book in storage order. The featured aggregation
// is computed from this in a single pass.
func (r *BookRepository) ListAll(ctx context.Context) ([]types.Book, error) {
	const query = `
		SELECT ` + bookColumns + `
		FROM books
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBooks(rows, 0)
}

func (r *BookRepository) Get(ctx context.Context, id int) (types.Book, error) {
	const query = `
		SELECT ` + bookColumns + `
		FROM books
		WHERE id = $1`
	var book types.Book
	var genresJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&genresJSON,
		&book.Description,
		&book.CoverImage,
		&book.Rating,
		&book.NumReviews,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Book{}, ErrNotFound
		}
		return types.Book{}, err
	}

	_ = json.Unmarshal(genresJSON, &book.Genres)
	return book, nil
}

func (r *BookRepository) Create(ctx context.Context, book types.Book) (types.Book, error) {
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now

	genresJSON, err := json.Marshal(book.Genres)
	if err != nil {
		return types.Book{}, err
	}

	const query = `
		INSERT INTO books (title, author, genres, description, cover_image, rating, num_reviews, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		book.Title,
		book.Author,
		genresJSON,
		book.Description,
		book.CoverImage,
		book.Rating,
		book.NumReviews,
		book.CreatedAt,
		book.UpdatedAt,
	).Scan(&book.ID); err != nil {
		return types.Book{}, err
	}

	return book, nil
}

// SetRating persists the recomputed denormalized rating summary onto a book.
func (r *BookRepository) SetRating(ctx context.Context, id int, rating float64, numReviews int) error {
	const query = `
		UPDATE books
		SET rating = $1,
			num_reviews = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, rating, numReviews, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCoverImage records the object-storage key of a book's uploaded cover.
func (r *BookRepository) SetCoverImage(ctx context.Context, id int, key string) error {
	const query = `
		UPDATE books
		SET cover_image = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, key, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBooks(rows *sql.Rows, capacity int) ([]types.Book, error) {
	books := make([]types.Book, 0, capacity)
	for rows.Next() {
		var book types.Book
		var genresJSON []byte
		if err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Author,
			&genresJSON,
			&book.Description,
			&book.CoverImage,
			&book.Rating,
			&book.NumReviews,
			&book.CreatedAt,
			&book.UpdatedAt,
		); err != nil {
			return nil, err
		}

		_ = json.Unmarshal(genresJSON, &book.Genres)
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}
