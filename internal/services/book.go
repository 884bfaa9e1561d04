package services

import (
	"context"
	"sort"

	"github.com/readshelf/apiserver/types"
)

const (
	featuredBookCount  = 5
	featuredGenreCount = 5
)

// BookRepository defines persistence operations for books.
type BookRepository interface {
	List(ctx context.Context, search string, offset, limit int) ([]types.Book, int, error)
	ListAll(ctx context.Context) ([]types.Book, error)
	Get(ctx context.Context, id int) (types.Book, error)
	Create(ctx context.Context, book types.Book) (types.Book, error)
	SetRating(ctx context.Context, id int, rating float64, numReviews int) error
	SetCoverImage(ctx context.Context, id int, key string) error
}

// BookService encapsulates book catalog use-cases.
type BookService struct {
	repo BookRepository
}

func NewBookService(repo BookRepository) *BookService {
	return &BookService{repo: repo}
}

// List returns one page of books matching the search term plus the total
// match count.
func (s *BookService) List(ctx context.Context, search string, offset, limit int) ([]types.Book, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, search, offset, limit)
}

func (s *BookService) Get(ctx context.Context, id int) (types.Book, error) {
	return s.repo.Get(ctx, id)
}

func (s *BookService) Create(ctx context.Context, book types.Book) (types.Book, error) {
	return s.repo.Create(ctx, book)
}

// SetCoverImage records the object-storage key of a book's cover.
func (s *BookService) SetCoverImage(ctx context.Context, id int, key string) error {
	return s.repo.SetCoverImage(ctx, id, key)
}

// Featured computes the featured groupings in one pass over the catalog:
// the five highest-rated books overall, and for each of the first five
// distinct genres in storage discovery order, the five highest-rated
// books carrying that genre. Rating ties keep storage order.
func (s *BookService) Featured(ctx context.Context) (types.FeaturedBooks, error) {
	books, err := s.repo.ListAll(ctx)
	if err != nil {
		return types.FeaturedBooks{}, err
	}

	featured := types.FeaturedBooks{
		TopRated:   topRated(books, featuredBookCount),
		GenreBooks: make(map[string][]types.Book),
	}

	for _, genre := range discoverGenres(books, featuredGenreCount) {
		withGenre := make([]types.Book, 0)
		for _, book := range books {
			if hasGenre(book, genre) {
				withGenre = append(withGenre, book)
			}
		}
		featured.GenreBooks[genre] = topRated(withGenre, featuredBookCount)
	}

	return featured, nil
}

func topRated(books []types.Book, n int) []types.Book {
	sorted := make([]types.Book, len(books))
	copy(sorted, books)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rating > sorted[j].Rating
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// discoverGenres returns up to n distinct genres in the order they first
// appear across the catalog.
func discoverGenres(books []types.Book, n int) []string {
	seen := make(map[string]struct{})
	genres := make([]string, 0, n)
	for _, book := range books {
		for _, genre := range book.Genres {
			if _, ok := seen[genre]; ok {
				continue
			}
			seen[genre] = struct{}{}
			genres = append(genres, genre)
			if len(genres) == n {
				return genres
			}
		}
	}
	return genres
}

func hasGenre(book types.Book, genre string) bool {
	for _, g := range book.Genres {
		if g == genre {
			return true
		}
	}
	return false
}
