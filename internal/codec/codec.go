// Package codec converts binary payloads to and from the text-safe wire
// representation used by the sync protocol.
//
// The wire form is a base64 data URI ("data:application/pdf;base64,...")
// because that is what browser clients of the same backend produce when they
// serialize File objects. Encode and Decode are exact inverses for every byte
// sequence, including the empty one, and both map nil to nil so optional
// payloads (covers) pass through untouched.
package codec

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/Duke0404/readersync/internal/errors"
)

const base64Marker = ";base64,"

// Encode converts binary content to its data-URI wire form.
// The MIME type is sniffed from the payload. Returns nil for nil input.
func Encode(data []byte) *string {
	if data == nil {
		return nil
	}

	var sb strings.Builder
	sb.Grow(len("data:") + 64 + base64.StdEncoding.EncodedLen(len(data)))
	sb.WriteString("data:")
	sb.WriteString(http.DetectContentType(data))
	sb.WriteString(base64Marker)
	sb.WriteString(base64.StdEncoding.EncodeToString(data))

	s := sb.String()
	return &s
}

// Decode reconstructs a binary payload from its data-URI wire form.
// hint names the payload in error messages (typically a filename).
// Returns (nil, nil) for nil input; malformed input yields a CODEC-coded
// domain error rather than a bare base64 or parse failure.
func Decode(wire *string, hint string) ([]byte, error) {
	if wire == nil {
		return nil, nil
	}

	s := *wire
	if !strings.HasPrefix(s, "data:") {
		return nil, errors.Codecf("%s: not a data URI", hint)
	}

	idx := strings.Index(s, base64Marker)
	if idx < 0 {
		return nil, errors.Codecf("%s: missing base64 marker", hint)
	}

	payload := s[idx+len(base64Marker):]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeCodec, "%s: invalid base64 payload", hint)
	}

	return data, nil
}

// ContentType extracts the MIME type recorded in a data URI, or empty if the
// input is nil or carries none.
func ContentType(wire *string) string {
	if wire == nil {
		return ""
	}
	s := *wire
	if !strings.HasPrefix(s, "data:") {
		return ""
	}
	rest := s[len("data:"):]
	if idx := strings.Index(rest, base64Marker); idx >= 0 {
		return rest[:idx]
	}
	return ""
}
