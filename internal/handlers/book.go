package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/readshelf/apiserver/internal/services"
	"github.com/readshelf/apiserver/internal/storage"
	"github.com/readshelf/apiserver/internal/store"
	"github.com/readshelf/apiserver/types"
)

const (
	defaultPage        = 1
	defaultLimit       = 10
	maxLimit           = 100
	maxMultipartMemory = 32 << 20
	maxCoverBytes      = 10 << 20
	formFieldCover     = "cover"
)

// BookHandler provides HTTP handlers for the book catalog.
type BookHandler struct {
	bookService *services.BookService
	userService *services.UserService
	covers      *storage.Storage
}

// NewBookHandler constructs a handler with the provided services. The
// covers storage may be nil when no object storage backend is configured.
func NewBookHandler(bookService *services.BookService, userService *services.UserService, covers *storage.Storage) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		userService: userService,
		covers:      covers,
	}
}

// BookRouter registers book routes on the given router.
func BookRouter(
	r chi.Router,
	bookService *services.BookService,
	userService *services.UserService,
	covers *storage.Storage,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewBookHandler(bookService, userService, covers)

	r.Get("/", handler.ListBooks)
	r.Get("/featured", handler.FeaturedBooks)
	r.With(authMiddleware, handler.requireAdmin).Post("/", handler.CreateBook)
	r.Route("/{bookID}", func(r chi.Router) {
		r.Get("/", handler.GetBook)
		r.Get("/cover", handler.GetCover)
		r.With(authMiddleware, handler.requireAdmin).Post("/cover", handler.UploadCover)
	})
}

func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := parsePagination(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	books, total, err := h.bookService.List(r.Context(), search, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list books")
		return
	}

	resp := BookListResponse{
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
		TotalBooks: total,
		Books:      books,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseBookID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.bookService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch book")
		return
	}

	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req BookCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	book := types.Book{
		Title:       req.Title,
		Author:      strings.TrimSpace(req.Author),
		Genres:      parseGenres(req.Genre),
		Description: req.Description,
		CoverImage:  strings.TrimSpace(req.CoverImage),
	}

	created, err := h.bookService.Create(r.Context(), book)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create book")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *BookHandler) FeaturedBooks(w http.ResponseWriter, r *http.Request) {
	featured, err := h.bookService.Featured(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load featured books")
		return
	}

	writeJSON(w, http.StatusOK, featured)
}

// UploadCover stores a book's cover image in object storage and records
// the object key on the book.
func (h *BookHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseBookID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.covers == nil {
		writeError(w, http.StatusServiceUnavailable, "cover storage is not configured")
		return
	}

	if _, err := h.bookService.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch book")
		return
	}

	cover, err := parseCoverFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := fmt.Sprintf("covers/%d/%s", id, cover.Filename)

	contentType := http.DetectContentType(cover.Data)
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "cover must be an image")
		return
	}

	if err := h.covers.Put(r.Context(), key, bytes.NewReader(cover.Data), int64(len(cover.Data)), contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store cover")
		return
	}

	if err := h.bookService.SetCoverImage(r.Context(), id, key); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update book")
		return
	}

	writeJSON(w, http.StatusOK, CoverResponse{CoverImage: key})
}

// GetCover streams a book's cover image from object storage.
func (h *BookHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseBookID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.bookService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch book")
		return
	}

	if book.CoverImage == "" || h.covers == nil {
		writeError(w, http.StatusNotFound, "cover not found")
		return
	}

	object, err := h.covers.Get(r.Context(), book.CoverImage)
	if err != nil {
		writeError(w, http.StatusNotFound, "cover not found")
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", coverContentType(book.CoverImage))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, object)
}

// BookCreateRequest is the create payload. Genre is a comma-separated
// string split into individual tags.
type BookCreateRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	CoverImage  string `json:"coverImage"`
}

// BookListResponse is the paginated list response payload.
type BookListResponse struct {
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
	TotalBooks int          `json:"totalBooks"`
	Books      []types.Book `json:"books"`
}

// CoverResponse reports the stored cover's object key.
type CoverResponse struct {
	CoverImage string `json:"coverImage"`
}

// CoverFile represents an uploaded cover image.
type CoverFile struct {
	Filename string
	Data     []byte
}

// parsePagination reads page and limit from the query string. Absent or
// non-numeric values fall back to the defaults; limit is capped.
func parsePagination(r *http.Request) (page, limit, offset int) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 1 {
			page = parsed
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 1 {
			limit = parsed
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset
}

func parseBookID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "bookID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid book id")
	}
	return id, nil
}

// parseGenres splits a comma-separated genre string into trimmed tags,
// dropping empty segments.
func parseGenres(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	genres := make([]string, 0, len(parts))
	for _, part := range parts {
		genre := strings.TrimSpace(part)
		if genre != "" {
			genres = append(genres, genre)
		}
	}
	return genres
}

func parseCoverFile(r *http.Request) (CoverFile, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return CoverFile{}, errors.New("invalid multipart form")
	}
	return coverFromForm(r.MultipartForm)
}

func coverFromForm(form *multipart.Form) (CoverFile, error) {
	if form == nil {
		return CoverFile{}, errors.New("missing form data")
	}

	files := form.File[formFieldCover]
	if len(files) == 0 {
		return CoverFile{}, errors.New("cover file is required")
	}
	if len(files) > 1 {
		return CoverFile{}, errors.New("only one cover file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return CoverFile{}, fmt.Errorf("failed to read cover file: %w", err)
	}

	data, err := readFileLimited(file, maxCoverBytes)
	_ = file.Close()
	if err != nil {
		return CoverFile{}, err
	}

	return CoverFile{
		Filename: path.Base(fileHeader.Filename),
		Data:     data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

func coverContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// requireAdmin allows only admin-flagged users through.
func (h *BookHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authorized")
			return
		}

		user, err := h.userService.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "not authorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}

		if !user.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
