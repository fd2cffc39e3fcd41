package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duke0404/readersync/internal/domain"
	"github.com/Duke0404/readersync/internal/errors"
	"github.com/Duke0404/readersync/internal/validation"
)

func validBook() domain.Book {
	book := domain.Book{
		ID:           1,
		Title:        "Consider Phlebas",
		Data:         []byte("%PDF-1.4"),
		TotalPages:   471,
		CurrentPage:  1,
		LastReadPage: 1,
		Settings:     domain.DefaultSettings(),
	}
	book.InitTimestamps()
	return book
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	book := validBook()
	assert.NoError(t, v.Validate(book))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name   string
		mutate func(*domain.Book)
		field  string
	}{
		{
			name:   "missing title",
			mutate: func(b *domain.Book) { b.Title = "" },
			field:  "title",
		},
		{
			name:   "negative page",
			mutate: func(b *domain.Book) { b.CurrentPage = -1 },
			field:  "currentPage",
		},
		{
			name:   "bad reading direction",
			mutate: func(b *domain.Book) { b.Settings.Direction = "diagonal" },
			field:  "readingDirection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := validBook()
			tt.mutate(&book)

			err := v.Validate(book)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	book := domain.Book{ID: 1, Settings: domain.DefaultSettings()}

	err := v.Validate(book)
	require.Error(t, err)

	// Field names in messages come from JSON tags, not Go identifiers.
	assert.Contains(t, err.Error(), "title")
	assert.NotContains(t, err.Error(), "Title")
}
