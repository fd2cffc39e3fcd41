// Package domain contains the core business entities for the ReaderSync library.
package domain

import (
	"time"
)

// Book represents a PDF document in the local library.
//
// ID is assigned locally by the store and is stable across sync: the engine
// never rewrites identity, it either uploads the set as-is or replaces it
// wholesale with the downloaded set. Data is the PDF payload and is never
// empty for a persisted book. JSON field names follow the wire contract of
// the existing backend, which is camelCase.
type Book struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title" validate:"required"`
	Author       *string        `json:"author"`
	Data         []byte         `json:"data" validate:"required"`
	Cover        []byte         `json:"cover,omitempty"`
	CoverHash    string         `json:"coverHash,omitempty"` // BlurHash placeholder, local only
	TotalPages   int            `json:"totalPages" validate:"gt=0"`
	CurrentPage  int            `json:"currentPage" validate:"gte=1"`
	LastReadPage int            `json:"lastReadPage" validate:"gte=1"`
	AddTime      int64          `json:"addTime"`
	LastReadTime int64          `json:"lastReadTime"`
	Settings     ReaderSettings `json:"settings"`
}

// NowMillis returns the current wall-clock time in milliseconds since epoch,
// the unit used for all book timestamps.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// InitTimestamps sets AddTime and LastReadTime to now.
// Call this when importing a new book.
func (b *Book) InitTimestamps() {
	now := NowMillis()
	b.AddTime = now
	b.LastReadTime = now
}

// Touch updates LastReadTime to the current time.
// Call this whenever the book is read or edited.
func (b *Book) Touch() {
	b.LastReadTime = NowMillis()
}

// RecordProgress moves the reading position to page and touches LastReadTime.
// LastReadPage is monotonically non-decreasing within a device's own edits;
// jumping back in the document never loses the high-water mark.
func (b *Book) RecordProgress(page int) {
	if page < 1 {
		page = 1
	}
	if page > b.TotalPages && b.TotalPages > 0 {
		page = b.TotalPages
	}
	b.CurrentPage = page
	if page > b.LastReadPage {
		b.LastReadPage = page
	}
	b.Touch()
}

// HasCover reports whether the book carries a cover image.
func (b *Book) HasCover() bool {
	return len(b.Cover) > 0
}
