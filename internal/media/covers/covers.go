// Package covers validates cover images and computes their BlurHash
// placeholders. Covers travel through sync as raw bytes; the hash is a
// local-only derivative the UI can paint before the image decodes.
package covers

import (
	"bytes"
	"image"
	_ "image/gif"  // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"github.com/bbrks/go-blurhash"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/Duke0404/readersync/internal/errors"
)

const (
	// MaxCoverSize caps accepted cover images to prevent a single book
	// from dominating the store.
	MaxCoverSize = 10 * 1024 * 1024

	// blurHashSize is the thumbnail edge used for BlurHash computation.
	// BlurHash is a low-resolution placeholder; 64px is indistinguishable
	// from full resolution and orders of magnitude faster.
	blurHashSize = 64

	// thumbnailSize is the longest edge of stored cover thumbnails.
	thumbnailSize = 480
)

// Validate checks that data is a decodable image within the size cap.
// Returns the detected format on success.
func Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.Validation("cover image is empty")
	}
	if len(data) > MaxCoverSize {
		return "", errors.Validationf("cover image exceeds %d bytes", MaxCoverSize)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeValidation, "undecodable cover image")
	}
	return format, nil
}

// Hash computes the BlurHash placeholder for a cover image.
// Uses 4x3 components, a good balance of size and detail for book covers.
func Hash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeValidation, "undecodable cover image")
	}

	hash, err := blurhash.Encode(4, 3, resize(img, blurHashSize))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "blurhash encoding failed")
	}
	return hash, nil
}

// Thumbnail re-encodes a cover as a JPEG bounded by thumbnailSize on its
// longest edge. Images already within bounds are still re-encoded so the
// stored bytes are always JPEG.
func Thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "undecodable cover image")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resize(img, thumbnailSize), &jpeg.Options{Quality: 85}); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "thumbnail encoding failed")
	}
	return buf.Bytes(), nil
}

// resize scales img so its longest edge is at most maxEdge, preserving
// aspect ratio. Nearest-neighbor sampling is fast and sufficient for both
// BlurHash input and modest thumbnails.
func resize(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	if srcWidth <= maxEdge && srcHeight <= maxEdge {
		return img
	}

	var dstWidth, dstHeight int
	if srcWidth > srcHeight {
		dstWidth = maxEdge
		dstHeight = max((srcHeight*maxEdge)/srcWidth, 1)
	} else {
		dstHeight = maxEdge
		dstWidth = max((srcWidth*maxEdge)/srcHeight, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	xRatio := float64(srcWidth) / float64(dstWidth)
	yRatio := float64(srcHeight) / float64(dstHeight)

	for y := range dstHeight {
		for x := range dstWidth {
			srcX := int(float64(x) * xRatio)
			srcY := int(float64(y) * yRatio)
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}

	return dst
}
