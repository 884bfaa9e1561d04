package types

import "time"

// Book represents a catalog entry in the readshelf system.
// It carries a denormalized rating summary that is recomputed
// whenever a review is created for the book.
type Book struct {
	// ID is the unique identifier of the book.
	ID int `json:"id" db:"id"`

	// Title is the book's title. It is the only required field
	// when creating a book.
	Title string `json:"title" db:"title"`

	// Author is the book's author.
	Author string `json:"author" db:"author"`

	// Genres are free-form genre tags associated with the book,
	// used for categorization and the featured groupings.
	Genres []string `json:"genre" db:"genres"`

	// Description contains the book's synopsis or blurb.
	Description string `json:"description" db:"description"`

	// CoverImage references the book's cover. It is either an
	// external URL or an object-storage key written by the cover
	// upload endpoint.
	CoverImage string `json:"coverImage" db:"cover_image"`

	// Rating is the arithmetic mean of all review ratings for this
	// book, or 0 when the book has no reviews. It is derived state:
	// recomputed on every review creation, never edited directly.
	Rating float64 `json:"rating" db:"rating"`

	// NumReviews is the number of reviews referencing this book.
	// Derived state, maintained together with Rating.
	NumReviews int `json:"numReviews" db:"num_reviews"`

	// CreatedAt is the timestamp at which the book was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the book.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FeaturedBooks is the on-demand aggregate view served by the
// featured endpoint.
type FeaturedBooks struct {
	// TopRated holds the five highest-rated books overall, ties
	// broken by storage order.
	TopRated []Book `json:"topRated"`

	// GenreBooks maps each of the first five genres discovered in
	// storage order to the five highest-rated books carrying that
	// genre.
	GenreBooks map[string][]Book `json:"genreBooks"`
}
