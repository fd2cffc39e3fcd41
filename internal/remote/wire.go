package remote

import (
	"fmt"

	"github.com/Duke0404/readersync/internal/codec"
	"github.com/Duke0404/readersync/internal/domain"
)

// WireBook is the transport representation of a Book: identical fields,
// except the binary payloads travel as text-safe data-URI strings.
// A nil data or cover means the payload is absent.
type WireBook struct {
	ID           int64                 `json:"id"`
	Title        string                `json:"title"`
	Author       *string               `json:"author"`
	Data         *string               `json:"data"`
	Cover        *string               `json:"cover"`
	TotalPages   int                   `json:"totalPages"`
	CurrentPage  int                   `json:"currentPage"`
	LastReadPage int                   `json:"lastReadPage"`
	AddTime      int64                 `json:"addTime"`
	LastReadTime int64                 `json:"lastReadTime"`
	Settings     domain.ReaderSettings `json:"settings"`
}

// ToWire converts a Book to its transport form, encoding both payloads.
// All other fields are carried verbatim.
func ToWire(b *domain.Book) WireBook {
	return WireBook{
		ID:           b.ID,
		Title:        b.Title,
		Author:       b.Author,
		Data:         codec.Encode(b.Data),
		Cover:        codec.Encode(b.Cover),
		TotalPages:   b.TotalPages,
		CurrentPage:  b.CurrentPage,
		LastReadPage: b.LastReadPage,
		AddTime:      b.AddTime,
		LastReadTime: b.LastReadTime,
		Settings:     b.Settings,
	}
}

// FromWire reconstructs a Book from its transport form.
// A decode failure on either payload surfaces as a codec error naming the
// offending file; the caller decides whether to skip the book or fail.
func FromWire(w *WireBook) (*domain.Book, error) {
	data, err := codec.Decode(w.Data, fmt.Sprintf("%s.pdf", w.Title))
	if err != nil {
		return nil, err
	}

	cover, err := codec.Decode(w.Cover, fmt.Sprintf("cover-%d.jpg", w.ID))
	if err != nil {
		return nil, err
	}

	return &domain.Book{
		ID:           w.ID,
		Title:        w.Title,
		Author:       w.Author,
		Data:         data,
		Cover:        cover,
		TotalPages:   w.TotalPages,
		CurrentPage:  w.CurrentPage,
		LastReadPage: w.LastReadPage,
		AddTime:      w.AddTime,
		LastReadTime: w.LastReadTime,
		Settings:     w.Settings,
	}, nil
}
