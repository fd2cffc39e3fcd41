package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/Duke0404/readersync/internal/domain"
	"github.com/Duke0404/readersync/internal/errors"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns every book in the library without the PDF payload",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "importBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Import a PDF",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Books"},
	}, s.handleImportBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProgress",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/progress",
		Summary:     "Update reading progress",
		Tags:        []string{"Books"},
	}, s.handleUpdateProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateMetadata",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update title and author",
		Tags:        []string{"Books"},
	}, s.handleUpdateMetadata)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/settings",
		Summary:     "Replace reader settings",
		Tags:        []string{"Books"},
	}, s.handleUpdateSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "setCover",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/cover",
		Summary:     "Set cover image",
		Tags:        []string{"Books"},
	}, s.handleSetCover)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete book",
		DefaultStatus: http.StatusNoContent,
		Tags:          []string{"Books"},
	}, s.handleDeleteBook)

	// Raw binary endpoints live on chi directly; huma is JSON-first.
	s.router.Get("/api/v1/books/{id}/file", s.handleBookFile)
	s.router.Get("/api/v1/books/{id}/cover", s.handleBookCover)
}

// === DTOs ===

// BookResponse is a book without its PDF payload.
type BookResponse struct {
	ID           int64                 `json:"id" doc:"Book ID"`
	Title        string                `json:"title" doc:"Title"`
	Author       *string               `json:"author,omitempty" doc:"Author"`
	TotalPages   int                   `json:"totalPages" doc:"Total pages"`
	CurrentPage  int                   `json:"currentPage" doc:"Current reading position"`
	LastReadPage int                   `json:"lastReadPage" doc:"Furthest page reached"`
	AddTime      int64                 `json:"addTime" doc:"Import time, ms since epoch"`
	LastReadTime int64                 `json:"lastReadTime" doc:"Last activity time, ms since epoch"`
	HasCover     bool                  `json:"hasCover" doc:"Whether a cover image is stored"`
	CoverHash    string                `json:"coverHash,omitempty" doc:"BlurHash placeholder for the cover"`
	SizeBytes    int                   `json:"sizeBytes" doc:"PDF payload size"`
	Settings     domain.ReaderSettings `json:"settings" doc:"Reader settings"`
}

func toBookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:           b.ID,
		Title:        b.Title,
		Author:       b.Author,
		TotalPages:   b.TotalPages,
		CurrentPage:  b.CurrentPage,
		LastReadPage: b.LastReadPage,
		AddTime:      b.AddTime,
		LastReadTime: b.LastReadTime,
		HasCover:     b.HasCover(),
		CoverHash:    b.CoverHash,
		SizeBytes:    len(b.Data),
		Settings:     b.Settings,
	}
}

// ListBooksOutput wraps the book list response for Huma.
type ListBooksOutput struct {
	Body struct {
		Books []BookResponse `json:"books" doc:"Books ordered by ID"`
	}
}

// BookIDInput identifies a book by path parameter.
type BookIDInput struct {
	ID int64 `path:"id" doc:"Book ID"`
}

// BookOutput wraps a single book response for Huma.
type BookOutput struct {
	Body BookResponse
}

// ImportBookInput carries an uploaded PDF.
type ImportBookInput struct {
	Body struct {
		Filename string `json:"filename" minLength:"1" doc:"Original file name, used to derive the title"`
		Data     []byte `json:"data" doc:"PDF payload, base64-encoded"`
	}
}

// UpdateProgressInput moves the reading position.
type UpdateProgressInput struct {
	ID   int64 `path:"id" doc:"Book ID"`
	Body struct {
		Page int `json:"page" minimum:"1" doc:"Page to move to"`
	}
}

// UpdateMetadataInput changes title and author.
type UpdateMetadataInput struct {
	ID   int64 `path:"id" doc:"Book ID"`
	Body struct {
		Title  string  `json:"title" minLength:"1" doc:"New title"`
		Author *string `json:"author" doc:"New author, null clears it"`
	}
}

// UpdateSettingsInput replaces reader settings.
type UpdateSettingsInput struct {
	ID   int64 `path:"id" doc:"Book ID"`
	Body domain.ReaderSettings
}

// SetCoverInput carries a cover image.
type SetCoverInput struct {
	ID   int64 `path:"id" doc:"Book ID"`
	Body struct {
		Image []byte `json:"image" doc:"Cover image, base64-encoded"`
	}
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*ListBooksOutput, error) {
	books, err := s.services.Library.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListBooksOutput{}
	out.Body.Books = make([]BookResponse, 0, len(books))
	for i := range books {
		out.Body.Books = append(out.Body.Books, toBookResponse(&books[i]))
	}
	return out, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Library.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleImportBook(ctx context.Context, input *ImportBookInput) (*BookOutput, error) {
	book, err := s.services.Library.ImportPDF(ctx, input.Body.Filename, input.Body.Data)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, input *UpdateProgressInput) (*BookOutput, error) {
	book, err := s.services.Library.UpdateProgress(ctx, input.ID, input.Body.Page)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleUpdateMetadata(ctx context.Context, input *UpdateMetadataInput) (*BookOutput, error) {
	book, err := s.services.Library.UpdateMetadata(ctx, input.ID, input.Body.Title, input.Body.Author)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*BookOutput, error) {
	book, err := s.services.Library.UpdateSettings(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleSetCover(ctx context.Context, input *SetCoverInput) (*BookOutput, error) {
	book, err := s.services.Library.SetCover(ctx, input.ID, input.Body.Image)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*struct{}, error) {
	if err := s.services.Library.DeleteBook(ctx, input.ID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

// handleBookFile streams the raw PDF payload.
func (s *Server) handleBookFile(w http.ResponseWriter, r *http.Request) {
	book, ok := s.bookFromURL(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(book.Data)))
	_, _ = w.Write(book.Data)
}

// handleBookCover streams the stored cover thumbnail.
func (s *Server) handleBookCover(w http.ResponseWriter, r *http.Request) {
	book, ok := s.bookFromURL(w, r)
	if !ok {
		return
	}
	if !book.HasCover() {
		http.Error(w, "book has no cover", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(book.Cover)))
	_, _ = w.Write(book.Cover)
}

func (s *Server) bookFromURL(w http.ResponseWriter, r *http.Request) (*domain.Book, bool) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid book id", http.StatusBadRequest)
		return nil, false
	}

	book, err := s.services.Library.GetBook(r.Context(), bookID)
	if err != nil {
		if errors.CodeOf(err) == errors.CodeNotFound {
			http.Error(w, "book not found", http.StatusNotFound)
		} else {
			s.logger.Error("failed to load book", "book_id", bookID, "error", err)
			http.Error(w, "failed to load book", http.StatusInternalServerError)
		}
		return nil, false
	}
	return book, true
}
