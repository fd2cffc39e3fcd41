package service

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/Duke0404/readersync/internal/domain"
	"github.com/Duke0404/readersync/internal/errors"
	"github.com/Duke0404/readersync/internal/media/covers"
	"github.com/Duke0404/readersync/internal/store"
	"github.com/Duke0404/readersync/internal/validation"
)

// Notifier receives a signal after every local library mutation.
// The scheduler uses it to debounce mutations into a forced push.
type Notifier interface {
	NotifyMutation()
}

// NoopNotifier discards mutation signals.
type NoopNotifier struct{}

func (NoopNotifier) NotifyMutation() {}

// LibraryService manages the local book collection. Every mutation goes
// through here so the scheduler always hears about it.
type LibraryService struct {
	store     *store.Store
	validator *validation.Validator
	notifier  Notifier
	logger    *slog.Logger
}

// NewLibraryService creates a library service over the given store.
func NewLibraryService(st *store.Store, v *validation.Validator, notifier Notifier, logger *slog.Logger) *LibraryService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LibraryService{store: st, validator: v, notifier: notifier, logger: logger}
}

// ListBooks returns every book in the library ordered by ID.
func (s *LibraryService) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return s.store.ListBooks(ctx)
}

// GetBook returns one book by ID.
func (s *LibraryService) GetBook(ctx context.Context, bookID int64) (*domain.Book, error) {
	return s.store.GetBook(ctx, bookID)
}

// ImportPDF adds a PDF to the library. The title is derived from the file
// name; reading position starts at page one with default reader settings.
func (s *LibraryService) ImportPDF(ctx context.Context, filename string, data []byte) (*domain.Book, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, errors.Validationf("%s is not a PDF document", filename)
	}

	book := &domain.Book{
		Title:        TitleFromFilename(filename),
		Data:         data,
		TotalPages:   countPDFPages(data),
		CurrentPage:  1,
		LastReadPage: 1,
		Settings:     domain.DefaultSettings(),
	}
	book.InitTimestamps()

	if err := s.validator.Validate(book); err != nil {
		return nil, err
	}
	if err := s.store.PutBook(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info("book imported",
		"book_id", book.ID,
		"title", book.Title,
		"pages", book.TotalPages,
		"bytes", len(data),
	)
	s.notifier.NotifyMutation()
	return book, nil
}

// UpdateProgress moves the reading position of a book.
func (s *LibraryService) UpdateProgress(ctx context.Context, bookID int64, page int) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	book.RecordProgress(page)
	if err := s.store.PutBook(ctx, book); err != nil {
		return nil, err
	}

	s.notifier.NotifyMutation()
	return book, nil
}

// UpdateMetadata changes a book's title and author. A nil author clears it.
func (s *LibraryService) UpdateMetadata(ctx context.Context, bookID int64, title string, author *string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	book.Title = strings.TrimSpace(title)
	book.Author = author
	book.Touch()

	if err := s.validator.Validate(book); err != nil {
		return nil, err
	}
	if err := s.store.PutBook(ctx, book); err != nil {
		return nil, err
	}

	s.notifier.NotifyMutation()
	return book, nil
}

// UpdateSettings replaces a book's reader settings.
func (s *LibraryService) UpdateSettings(ctx context.Context, bookID int64, settings domain.ReaderSettings) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	book.Settings = settings
	book.Touch()

	if err := s.validator.Validate(book); err != nil {
		return nil, err
	}
	if err := s.store.PutBook(ctx, book); err != nil {
		return nil, err
	}

	s.notifier.NotifyMutation()
	return book, nil
}

// SetCover attaches a cover image to a book. The stored bytes are a
// bounded JPEG thumbnail and the BlurHash placeholder is recomputed.
func (s *LibraryService) SetCover(ctx context.Context, bookID int64, image []byte) (*domain.Book, error) {
	if _, err := covers.Validate(image); err != nil {
		return nil, err
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	thumb, err := covers.Thumbnail(image)
	if err != nil {
		return nil, err
	}
	hash, err := covers.Hash(thumb)
	if err != nil {
		return nil, err
	}

	book.Cover = thumb
	book.CoverHash = hash
	book.Touch()

	if err := s.store.PutBook(ctx, book); err != nil {
		return nil, err
	}

	s.notifier.NotifyMutation()
	return book, nil
}

// DeleteBook removes a book from the library.
func (s *LibraryService) DeleteBook(ctx context.Context, bookID int64) error {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return err
	}
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return err
	}

	s.logger.Info("book deleted", "book_id", bookID)
	s.notifier.NotifyMutation()
	return nil
}

// TitleFromFilename turns a file name into a presentable book title:
// Unicode-normalized, separators collapsed to spaces, title-cased.
func TitleFromFilename(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name = norm.NFC.String(name)
	name = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "Untitled"
	}
	return cases.Title(language.English, cases.NoLower).String(name)
}

// pdfPagePattern matches page object markers in a PDF body. The trailing
// guard keeps /Pages (the page tree node) from counting as a page.
var pdfPagePattern = regexp.MustCompile(`/Type\s*/Page([^s]|$)`)

// countPDFPages estimates the page count by counting page object markers.
// Compressed object streams hide their markers; a floor of one page keeps
// progress tracking usable for those files.
func countPDFPages(data []byte) int {
	n := len(pdfPagePattern.FindAll(data, -1))
	if n < 1 {
		return 1
	}
	return n
}
