// Package frame holds camera frames as raw BGR pixel buffers.
//
// A Frame is what the classifier consumes: 3 bytes per pixel in blue, green, red
// order, rows packed without padding. Frame implements image.Image so the imaging
// libraries can read it directly; At reports true RGB colors.
package frame

import (
	"image"
	"image/color"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Channels is the number of bytes per pixel in a Frame.
const Channels = 3

var (
	// ErrDecode is returned when an encoded image cannot be decoded.
	ErrDecode = errors.New("cannot decode image")
	// ErrUnsupportedEncoding is returned for raw encodings other than bgr8, rgb8, bgra8 and rgba8.
	ErrUnsupportedEncoding = errors.New("unsupported pixel encoding")
	// ErrShortBuffer is returned when raw pixel data does not cover the declared geometry.
	ErrShortBuffer = errors.New("pixel buffer too short")
)

// Frame is a BGR image.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a black frame of the given size.
func New(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*Channels),
	}
}

// Fill sets every pixel to the given BGR triple.
func Fill(width, height int, b, g, r uint8) *Frame {
	f := New(width, height)
	for i := 0; i < len(f.Pix); i += Channels {
		f.Pix[i] = b
		f.Pix[i+1] = g
		f.Pix[i+2] = r
	}
	return f
}

// Offset returns the index of the first byte of pixel (x, y).
func (f *Frame) Offset(x, y int) int {
	return (y*f.Width + x) * Channels
}

// BGR returns the raw channel values of pixel (x, y).
func (f *Frame) BGR(x, y int) (b, g, r uint8) {
	i := f.Offset(x, y)
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetBGR writes the raw channel values of pixel (x, y).
func (f *Frame) SetBGR(x, y int, b, g, r uint8) {
	i := f.Offset(x, y)
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
}

// Empty reports whether the frame has no pixels.
func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Pix) < f.Width*f.Height*Channels
}

func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

func (f *Frame) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(f.Bounds())) {
		return color.RGBA{}
	}
	b, g, r := f.BGR(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// FromImage converts any image into a BGR frame. Alpha is dropped.
func FromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	f := New(bounds.Dx(), bounds.Dy())

	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < f.Height; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			for x := 0; x < f.Width; x++ {
				p := row[x*4 : x*4+4]
				f.SetBGR(x, y, p[2], p[1], p[0])
			}
		}
		return f
	}

	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			f.SetBGR(x, y, c.B, c.G, c.R)
		}
	}
	return f
}

// Decode reads a JPEG or PNG image into a frame.
func Decode(r io.Reader) (*Frame, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "%v", err)
	}
	return FromImage(img), nil
}

// Load reads an image file into a frame.
func Load(path string) (*Frame, error) {
	//nolint:gosec
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open image %s", path)
	}
	defer file.Close()

	f, err := Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "image %s", path)
	}
	return f, nil
}

// FromRaw builds a frame from an uncompressed sensor_msgs/Image payload.
func FromRaw(width, height, step int, encoding string, data []byte) (*Frame, error) {
	var bpp int
	var swap bool
	switch strings.ToLower(encoding) {
	case "bgr8":
		bpp = 3
	case "rgb8":
		bpp, swap = 3, true
	case "bgra8":
		bpp = 4
	case "rgba8":
		bpp, swap = 4, true
	default:
		return nil, errors.Wrapf(ErrUnsupportedEncoding, "%q", encoding)
	}

	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrShortBuffer, "invalid geometry %dx%d", width, height)
	}
	if step == 0 {
		step = width * bpp
	}
	if step < width*bpp || len(data) < (height-1)*step+width*bpp {
		return nil, errors.Wrapf(ErrShortBuffer, "%dx%d %s with step %d needs more than %d bytes",
			width, height, encoding, step, len(data))
	}

	f := New(width, height)
	for y := 0; y < height; y++ {
		row := data[y*step:]
		for x := 0; x < width; x++ {
			p := row[x*bpp:]
			if swap {
				f.SetBGR(x, y, p[2], p[1], p[0])
			} else {
				f.SetBGR(x, y, p[0], p[1], p[2])
			}
		}
	}
	return f, nil
}
