package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/readshelf/apiserver/internal/handlers"
	"github.com/readshelf/apiserver/internal/services"
	"github.com/readshelf/apiserver/internal/store"
	"github.com/readshelf/apiserver/types"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type fakeUserRepo struct {
	users  []types.User
	nextID int
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, err := f.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, store.ErrConflict
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users = append(f.users, user)
	return user, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	for i := range f.users {
		if f.users[i].ID != user.ID && f.users[i].Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	for i := range f.users {
		if f.users[i].ID == user.ID {
			user.UpdatedAt = time.Now()
			f.users[i] = user
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

type fakeBookRepo struct {
	books  []types.Book
	nextID int
}

func (f *fakeBookRepo) List(ctx context.Context, search string, offset, limit int) ([]types.Book, int, error) {
	matched := make([]types.Book, 0)
	needle := strings.ToLower(search)
	for _, book := range f.books {
		if needle == "" ||
			strings.Contains(strings.ToLower(book.Title), needle) ||
			strings.Contains(strings.ToLower(book.Author), needle) {
			matched = append(matched, book)
		}
	}

	total := len(matched)
	if offset >= total {
		return []types.Book{}, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (f *fakeBookRepo) ListAll(ctx context.Context) ([]types.Book, error) {
	books := make([]types.Book, len(f.books))
	copy(books, f.books)
	return books, nil
}

func (f *fakeBookRepo) Get(ctx context.Context, id int) (types.Book, error) {
	for _, book := range f.books {
		if book.ID == id {
			return book, nil
		}
	}
	return types.Book{}, store.ErrNotFound
}

func (f *fakeBookRepo) Create(ctx context.Context, book types.Book) (types.Book, error) {
	f.nextID++
	book.ID = f.nextID
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	f.books = append(f.books, book)
	return book, nil
}

func (f *fakeBookRepo) SetRating(ctx context.Context, id int, rating float64, numReviews int) error {
	for i := range f.books {
		if f.books[i].ID == id {
			f.books[i].Rating = rating
			f.books[i].NumReviews = numReviews
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeBookRepo) SetCoverImage(ctx context.Context, id int, key string) error {
	for i := range f.books {
		if f.books[i].ID == id {
			f.books[i].CoverImage = key
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeReviewRepo struct {
	reviews []types.Review
	users   *fakeUserRepo
	nextID  int
}

func (f *fakeReviewRepo) ListByBook(ctx context.Context, bookID int) ([]types.Review, error) {
	reviews := make([]types.Review, 0)
	for _, review := range f.reviews {
		if review.BookID != bookID {
			continue
		}
		if f.users != nil {
			if user, err := f.users.GetByID(ctx, review.UserID); err == nil {
				review.UserName = user.Name
			}
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

func (f *fakeReviewRepo) GetByBookAndUser(ctx context.Context, bookID, userID int) (types.Review, error) {
	for _, review := range f.reviews {
		if review.BookID == bookID && review.UserID == userID {
			return review, nil
		}
	}
	return types.Review{}, store.ErrNotFound
}

func (f *fakeReviewRepo) Create(ctx context.Context, review types.Review) (types.Review, error) {
	if _, err := f.GetByBookAndUser(ctx, review.BookID, review.UserID); err == nil {
		return types.Review{}, store.ErrConflict
	}
	f.nextID++
	review.ID = f.nextID
	review.CreatedAt = time.Now()
	review.UpdatedAt = review.CreatedAt
	f.reviews = append(f.reviews, review)
	return review, nil
}

type testAPI struct {
	router  *chi.Mux
	users   *fakeUserRepo
	books   *fakeBookRepo
	reviews *fakeReviewRepo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	users := &fakeUserRepo{}
	books := &fakeBookRepo{}
	reviews := &fakeReviewRepo{users: users}

	userService := services.NewUserService(users)
	bookService := services.NewBookService(books)
	reviewService := services.NewReviewService(reviews, books, nil, zerolog.Nop())

	authMiddleware := handlers.RequireAuth(testSecret)

	router := chi.NewRouter()
	router.Get("/healthz", handlers.Healthz)
	router.Route("/books", func(r chi.Router) {
		handlers.BookRouter(r, bookService, userService, nil, authMiddleware)
	})
	router.Route("/reviews", func(r chi.Router) {
		handlers.ReviewRouter(r, reviewService, authMiddleware)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, testSecret)
	})

	return &testAPI{
		router:  router,
		users:   users,
		books:   books,
		reviews: reviews,
	}
}

// seedUser inserts a user directly into the fake store and returns it.
func (api *testAPI) seedUser(t *testing.T, name, email, password string, admin bool) types.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := api.users.Create(context.Background(), types.User{
		Name:         name,
		Email:        email,
		IsAdmin:      admin,
		PasswordHash: string(hashed),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (api *testAPI) seedBook(t *testing.T, title, author string, genres []string) types.Book {
	t.Helper()

	book, err := api.books.Create(context.Background(), types.Book{
		Title:  title,
		Author: author,
		Genres: genres,
	})
	if err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return book
}

// token mints a signed JWT for the given user id.
func token(t *testing.T, userID int) string {
	t.Helper()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// doJSON performs a request with an optional JSON body and bearer token.
func (api *testAPI) doJSON(t *testing.T, method, target, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var value T
	if err := json.NewDecoder(recorder.Body).Decode(&value); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return value
}

func requireStatus(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()

	if recorder.Code != want {
		t.Fatalf("unexpected status: got %d, want %d (body %s)", recorder.Code, want, recorder.Body.String())
	}
}
