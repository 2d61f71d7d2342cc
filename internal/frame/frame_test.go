package frame

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtReportsRGB(t *testing.T) {
	f := Fill(2, 2, 255, 0, 0) // pure blue in BGR

	c := f.At(1, 1).(color.RGBA)
	assert.Equal(t, color.RGBA{R: 0, G: 0, B: 255, A: 255}, c)
	assert.Equal(t, color.RGBA{}, f.At(5, 5))
}

func TestFromImageStoresBGR(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}

	f := FromImage(img)
	require.Equal(t, 3, f.Width)
	require.Equal(t, 2, f.Height)
	b, g, r := f.BGR(2, 1)
	assert.Equal(t, [3]uint8{30, 20, 10}, [3]uint8{b, g, r})

	rgba := image.NewRGBA(image.Rect(0, 0, 1, 1))
	rgba.Set(0, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	b, g, r = FromImage(rgba).BGR(0, 0)
	assert.Equal(t, [3]uint8{50, 100, 200}, [3]uint8{b, g, r})
}

func TestDecodeAndLoad(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 2, color.NRGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "red.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	b, g, r := f.BGR(1, 2)
	assert.Equal(t, [3]uint8{0, 0, 255}, [3]uint8{b, g, r})

	_, err = Decode(bytes.NewReader([]byte("not an image")))
	assert.True(t, errors.Is(err, ErrDecode))

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestFromRaw(t *testing.T) {
	// 2x1 rgb8 with one byte of row padding
	data := []byte{1, 2, 3, 4, 5, 6, 0}
	f, err := FromRaw(2, 1, 7, "rgb8", data)
	require.NoError(t, err)
	b, g, r := f.BGR(1, 0)
	assert.Equal(t, [3]uint8{6, 5, 4}, [3]uint8{b, g, r})

	f, err = FromRaw(1, 1, 0, "bgra8", []byte{9, 8, 7, 255})
	require.NoError(t, err)
	b, g, r = f.BGR(0, 0)
	assert.Equal(t, [3]uint8{9, 8, 7}, [3]uint8{b, g, r})

	_, err = FromRaw(1, 1, 0, "mono16", []byte{0, 0})
	assert.True(t, errors.Is(err, ErrUnsupportedEncoding))

	_, err = FromRaw(2, 2, 0, "bgr8", make([]byte, 6))
	assert.True(t, errors.Is(err, ErrShortBuffer))
}

func TestEmpty(t *testing.T) {
	var nilFrame *Frame
	assert.True(t, nilFrame.Empty())
	assert.True(t, New(0, 10).Empty())
	assert.False(t, New(1, 1).Empty())
}
