package covers

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duke0404/readersync/internal/errors"
)

func testImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	format, err := Validate(testImage(t, 100, 150))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
		{"truncated png", testImage(t, 10, 10)[:8]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
		})
	}
}

func TestHash(t *testing.T) {
	data := testImage(t, 320, 480)

	hash, err := Hash(data)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	// Same input must hash identically.
	again, err := Hash(data)
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	// A different image should produce a different placeholder.
	other, err := Hash(testImage(t, 480, 320))
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)
}

func TestHash_UndecodableInput(t *testing.T) {
	_, err := Hash([]byte("nope"))
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestThumbnail_BoundsLongestEdge(t *testing.T) {
	data := testImage(t, 2000, 3000)

	out, err := Thumbnail(data)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, cfg.Width, 480)
	assert.LessOrEqual(t, cfg.Height, 480)
	// Aspect ratio survives the resize.
	assert.InDelta(t, 2.0/3.0, float64(cfg.Width)/float64(cfg.Height), 0.02)
}

func TestThumbnail_SmallImagesReencodedAsJPEG(t *testing.T) {
	out, err := Thumbnail(testImage(t, 50, 50))
	require.NoError(t, err)

	_, err = jpeg.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
}
