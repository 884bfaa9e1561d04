package types

import "time"

// Review represents a single user's rating and comment for one book.
// At most one review exists per (book, user) pair; the constraint is
// enforced both at creation time and by a database uniqueness index.
type Review struct {
	// ID is the unique identifier of the review.
	ID int `json:"id" db:"id"`

	// BookID is the identifier of the book this review rates.
	BookID int `json:"bookId" db:"book_id"`

	// UserID is the identifier of the user who authored the review.
	UserID int `json:"userId" db:"user_id"`

	// UserName is the display name of the authoring user. It is
	// populated from the users table when reviews are listed and is
	// not stored on the review row itself.
	UserName string `json:"userName,omitempty" db:"-"`

	// Rating is the review's score, an integer from 1 to 5.
	Rating int `json:"rating" db:"rating"`

	// Comment is the review's free-form text.
	Comment string `json:"comment" db:"comment"`

	// CreatedAt is the timestamp at which the review was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the review.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
