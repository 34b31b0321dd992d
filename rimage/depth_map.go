package rimage

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// MaxDepthMapDimension bounds each side of a depth map read from an untrusted source.
const MaxDepthMapDimension = 100000

// DepthMap is a dense per-pixel distance map in meters, stored row-major. A sample that is zero,
// negative or not finite means the sensor had no reading there.
type DepthMap struct {
	width  int
	height int

	data []float32
}

// NewEmptyDepthMap returns a depth map of the given size with every sample invalid.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]float32, width*height),
	}
}

// NewDepthMapFromData wraps a row-major buffer of meters without copying it. The buffer must hold
// exactly width*height samples.
func NewDepthMapFromData(width, height int, data []float32) (*DepthMap, error) {
	dm := &DepthMap{width: width, height: height, data: data}
	if err := dm.CheckValid(); err != nil {
		return nil, err
	}
	return dm, nil
}

// CheckValid reports whether the declared dimensions agree with the backing buffer.
func (dm *DepthMap) CheckValid() error {
	if dm == nil {
		return errors.New("depth map is nil")
	}
	if dm.width < 1 || dm.height < 1 {
		return errors.Errorf("depth map dimensions must be at least 1x1, got %dx%d", dm.width, dm.height)
	}
	// Divide rather than multiply so huge dimensions cannot wrap around to the buffer length.
	if len(dm.data)%dm.width != 0 || len(dm.data)/dm.width != dm.height {
		return errors.Errorf("depth map buffer has %d samples, expected %dx%d", len(dm.data), dm.width, dm.height)
	}
	return nil
}

// Width returns the number of columns.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the number of rows.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle covering every pixel of the map.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// Contains returns whether (x, y) addresses a pixel in the map.
func (dm *DepthMap) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// Data returns the row-major backing buffer. It is not a copy.
func (dm *DepthMap) Data() []float32 {
	return dm.data
}

// At returns the depth in meters at (x, y).
func (dm *DepthMap) At(x, y int) float32 {
	return dm.data[y*dm.width+x]
}

// Set stores a depth in meters at (x, y).
func (dm *DepthMap) Set(x, y int, meters float32) {
	dm.data[y*dm.width+x] = meters
}

// Fill sets every sample to the same distance.
func (dm *DepthMap) Fill(meters float32) {
	for i := range dm.data {
		dm.data[i] = meters
	}
}

// IsValidDepth returns whether a sample is a usable sensor reading.
func IsValidDepth(meters float32) bool {
	f := float64(meters)
	return f > 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}
