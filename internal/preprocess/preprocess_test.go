package preprocess

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyedDaiam9101/tl-detector/internal/frame"
)

func TestSimulatorShape(t *testing.T) {
	for _, size := range [][2]int{{700, 600}, {800, 600}, {1368, 1096}} {
		batch, err := Simulator(frame.Fill(size[0], size[1], 10, 20, 30))
		require.NoError(t, err)

		assert.Equal(t, []int64{1, InputSize, InputSize, 3}, batch.Shape)
		assert.Len(t, batch.Data, InputSize*InputSize*3)
		require.NoError(t, batch.Validate())

		// channel order preserved: B, G, R
		for i := 0; i < len(batch.Data); i += 3 {
			assert.InDelta(t, 10, batch.Data[i], 1)
			assert.InDelta(t, 20, batch.Data[i+1], 1)
			assert.InDelta(t, 30, batch.Data[i+2], 1)
		}
	}
}

func TestSimulatorCropsFixedRegion(t *testing.T) {
	f := frame.New(800, 700)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			switch {
			case x < 100, y >= 600:
				f.SetBGR(x, y, 0, 0, 255) // red outside the crop
			case x >= 700:
				f.SetBGR(x, y, 255, 0, 0) // blue outside the crop
			default:
				f.SetBGR(x, y, 0, 255, 0)
			}
		}
	}

	batch, err := Simulator(f)
	require.NoError(t, err)
	for i := 0; i < len(batch.Data); i += 3 {
		if batch.Data[i] != 0 || batch.Data[i+1] != 255 || batch.Data[i+2] != 0 {
			t.Fatalf("pixel %d = %v, expected pure green", i/3, batch.Data[i:i+3])
		}
	}
}

func TestSimulatorRejectsSmallFrames(t *testing.T) {
	for _, size := range [][2]int{{699, 600}, {700, 599}, {320, 240}} {
		_, err := Simulator(frame.New(size[0], size[1]))
		assert.True(t, errors.Is(err, ErrFrameTooSmall), "size %v: %v", size, err)
	}

	_, err := Simulator(nil)
	assert.True(t, errors.Is(err, ErrEmptyFrame))
}

// linearReference samples a 1-D line the way OpenCV's INTER_LINEAR does:
// half-pixel centres, two taps, clamped at the edges.
func linearReference(src func(int) float64, srcLen, dstLen, d int) float64 {
	sx := (float64(d)+0.5)*float64(srcLen)/float64(dstLen) - 0.5
	x0 := int(math.Floor(sx))
	frac := sx - float64(x0)
	if x0 < 0 {
		x0, frac = 0, 0
	}
	if x0 >= srcLen-1 {
		x0, frac = srcLen-1, 0
	}
	x1 := x0 + 1
	if x1 > srcLen-1 {
		x1 = srcLen - 1
	}
	return src(x0)*(1-frac) + src(x1)*frac
}

func TestSimulatorResizeMatchesLinearInterpolation(t *testing.T) {
	stripe := func(i int) float64 {
		if i%2 == 1 {
			return 255
		}
		return 0
	}
	cropW, cropH := SimulatorCrop.Dx(), SimulatorCrop.Dy()

	// alternating columns; the crop starts at column 100 so crop column c is frame column c+100
	cols := frame.New(800, 600)
	for y := 0; y < cols.Height; y++ {
		for x := 0; x < cols.Width; x++ {
			v := uint8(stripe(x - SimulatorCrop.Min.X))
			cols.SetBGR(x, y, v, v, 255-v)
		}
	}
	batch, err := Simulator(cols)
	require.NoError(t, err)
	for _, y := range []int{0, 112, InputSize - 1} {
		for x := 0; x < InputSize; x++ {
			want := linearReference(stripe, cropW, InputSize, x)
			i := (y*InputSize + x) * 3
			assert.InDelta(t, want, batch.Data[i], 1.5, "column stripes: B at (%d,%d)", x, y)
			assert.InDelta(t, want, batch.Data[i+1], 1.5, "column stripes: G at (%d,%d)", x, y)
			assert.InDelta(t, 255-want, batch.Data[i+2], 1.5, "column stripes: R at (%d,%d)", x, y)
		}
	}

	// alternating rows
	rows := frame.New(800, 600)
	for y := 0; y < rows.Height; y++ {
		v := uint8(stripe(y))
		for x := 0; x < rows.Width; x++ {
			rows.SetBGR(x, y, v, 0, 0)
		}
	}
	batch, err = Simulator(rows)
	require.NoError(t, err)
	for y := 0; y < InputSize; y++ {
		want := linearReference(stripe, cropH, InputSize, y)
		i := (y*InputSize + 50) * 3
		assert.InDelta(t, want, batch.Data[i], 1.5, "row stripes: B at row %d", y)
	}
}

func TestRealVehicleSwapsToRGB(t *testing.T) {
	// pure blue in BGR
	batch, err := RealVehicle(frame.Fill(4, 3, 255, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3, 4, 3}, batch.Shape)
	require.Len(t, batch.Data, 4*3*3)
	for i := 0; i < len(batch.Data); i += 3 {
		assert.Equal(t, []uint8{0, 0, 255}, batch.Data[i:i+3])
	}
}

func TestRealVehicleKeepsResolution(t *testing.T) {
	f := frame.New(1368, 1096)
	f.SetBGR(5, 7, 1, 2, 3)

	batch, err := RealVehicle(f)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1096, 1368, 3}, batch.Shape)

	i := f.Offset(5, 7)
	assert.Equal(t, []uint8{3, 2, 1}, batch.Data[i:i+3])

	// input untouched
	b, g, r := f.BGR(5, 7)
	assert.Equal(t, [3]uint8{1, 2, 3}, [3]uint8{b, g, r})

	_, err = RealVehicle(frame.New(0, 0))
	assert.True(t, errors.Is(err, ErrEmptyFrame))
}
