// Package preprocess turns camera frames into the input batches each backend expects.
package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/SyedDaiam9101/tl-detector/internal/frame"
	"github.com/SyedDaiam9101/tl-detector/internal/inference"
)

// InputSize is the side length of the simulator model's square input.
const InputSize = 224

// SimulatorCrop is the region of the simulator camera frame that contains traffic lights:
// rows 0 to 600 and columns 100 to 700.
var SimulatorCrop = image.Rect(100, 0, 700, 600)

var (
	// ErrFrameTooSmall is returned when a frame does not contain the whole crop region.
	ErrFrameTooSmall = errors.New("frame smaller than simulator crop region")
	// ErrEmptyFrame is returned for frames without pixels.
	ErrEmptyFrame = errors.New("empty frame")
)

// Simulator crops the fixed simulator region, resizes it to 224x224 and returns a
// [1, 224, 224, 3] float32 batch in BGR order with raw 0-255 values.
// The resize blends the two nearest source pixels per axis around half-pixel
// centres, the same sampling as OpenCV's INTER_LINEAR.
func Simulator(f *frame.Frame) (inference.Batch[float32], error) {
	if f.Empty() {
		return inference.Batch[float32]{}, ErrEmptyFrame
	}
	if !SimulatorCrop.In(f.Bounds()) {
		return inference.Batch[float32]{}, errors.Wrapf(ErrFrameTooSmall,
			"got %dx%d, need at least %dx%d", f.Width, f.Height, SimulatorCrop.Max.X, SimulatorCrop.Max.Y)
	}

	cropped := imaging.Crop(f, SimulatorCrop)
	resized := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.ApproxBiLinear.Scale(resized, resized.Bounds(), cropped, cropped.Bounds(), draw.Src, nil)

	// frames are opaque, so RGBA holds unpremultiplied values
	data := make([]float32, InputSize*InputSize*frame.Channels)
	for p, i := 0, 0; p < len(resized.Pix); p, i = p+4, i+frame.Channels {
		data[i] = float32(resized.Pix[p+2])
		data[i+1] = float32(resized.Pix[p+1])
		data[i+2] = float32(resized.Pix[p])
	}

	return inference.Batch[float32]{
		Shape: []int64{1, InputSize, InputSize, frame.Channels},
		Data:  data,
	}, nil
}

// RealVehicle converts the frame from BGR to RGB at native resolution and returns a
// [1, H, W, 3] uint8 batch.
func RealVehicle(f *frame.Frame) (inference.Batch[uint8], error) {
	if f.Empty() {
		return inference.Batch[uint8]{}, ErrEmptyFrame
	}

	n := f.Width * f.Height * frame.Channels
	data := make([]uint8, n)
	for i := 0; i < n; i += frame.Channels {
		data[i] = f.Pix[i+2]
		data[i+1] = f.Pix[i+1]
		data[i+2] = f.Pix[i]
	}

	return inference.Batch[uint8]{
		Shape: []int64{1, int64(f.Height), int64(f.Width), frame.Channels},
		Data:  data,
	}, nil
}
