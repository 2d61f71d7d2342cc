package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyedDaiam9101/tl-detector/internal/classifier"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{G: 180, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestClassifyCommand(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, classifier.SampleImage), 800, 600)
	input := filepath.Join(dir, "frame.png")
	writePNG(t, input, 800, 600)

	var out bytes.Buffer
	err := newApp(&out).Run([]string{"tlctl", "classify", "--mock", "--models", dir, input})
	require.NoError(t, err)

	assert.Equal(t, input+"\tGREEN\t2\n", out.String())
}

func TestClassifyCommandRealVehicle(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, classifier.SampleImage), 64, 48)
	input := filepath.Join(dir, "frame.png")
	writePNG(t, input, 64, 48)

	var out bytes.Buffer
	err := newApp(&out).Run([]string{"tlctl", "classify", "--mock", "--backend", "real-vehicle", "--models", dir, input})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(out.String(), "\tGREEN\t2\n"), out.String())
}

func TestClassifyCommandErrors(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, classifier.SampleImage), 800, 600)

	var out bytes.Buffer
	err := newApp(&out).Run([]string{"tlctl", "classify", "--mock", "--models", dir})
	assert.Error(t, err, "no files")

	err = newApp(&out).Run([]string{"tlctl", "classify", "--mock", "--backend", "carla", "--models", dir, "x.png"})
	assert.ErrorIs(t, err, classifier.ErrUnknownBackend)

	small := filepath.Join(dir, "small.png")
	writePNG(t, small, 320, 240)
	err = newApp(&out).Run([]string{"tlctl", "classify", "--mock", "--models", dir, small})
	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestBagCommandArgs(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run([]string{"tlctl", "bag", "--mock"})
	assert.Error(t, err)

	err = newApp(&out).Run([]string{"tlctl", "bag", "--mock", filepath.Join(t.TempDir(), "missing.bag")})
	assert.Error(t, err)
}
