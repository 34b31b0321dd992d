package segmentation

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Background is the class id reserved for pixels that belong to no object.
const Background = 0

// Mask is a dense per-pixel map of class ids produced by a semantic classifier, stored row-major.
type Mask struct {
	width  int
	height int

	ids []int
}

// NewEmptyMask returns a mask of the given size with every pixel set to Background.
func NewEmptyMask(width, height int) *Mask {
	return &Mask{width: width, height: height, ids: make([]int, width*height)}
}

// NewMask wraps a row-major buffer of class ids without copying it. The buffer must hold exactly
// width*height ids.
func NewMask(width, height int, ids []int) (*Mask, error) {
	m := &Mask{width: width, height: height, ids: ids}
	if err := m.CheckValid(); err != nil {
		return nil, err
	}
	return m, nil
}

// CheckValid reports whether the declared dimensions agree with the backing buffer.
func (m *Mask) CheckValid() error {
	if m == nil {
		return errors.New("segmentation mask is nil")
	}
	if m.width < 1 || m.height < 1 {
		return errors.Errorf("segmentation mask dimensions must be at least 1x1, got %dx%d", m.width, m.height)
	}
	if len(m.ids)%m.width != 0 || len(m.ids)/m.width != m.height {
		return errors.Errorf("segmentation mask buffer has %d ids, expected %dx%d", len(m.ids), m.width, m.height)
	}
	return nil
}

// Width returns the number of columns.
func (m *Mask) Width() int {
	return m.width
}

// Height returns the number of rows.
func (m *Mask) Height() int {
	return m.height
}

// Data returns the row-major backing buffer. It is not a copy.
func (m *Mask) Data() []int {
	return m.ids
}

// At returns the class id at (x, y).
func (m *Mask) At(x, y int) int {
	return m.ids[y*m.width+x]
}

// Set stores a class id at (x, y).
func (m *Mask) Set(x, y, classID int) {
	m.ids[y*m.width+x] = classID
}

// FillRect sets every pixel of r that lies inside the mask to classID.
func (m *Mask) FillRect(r image.Rectangle, classID int) {
	r = r.Intersect(image.Rect(0, 0, m.width, m.height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Set(x, y, classID)
		}
	}
}

// MaskFromImage reads class ids out of a label image. Paletted images use the palette index,
// 8 and 16-bit grayscale images use the gray value, and anything else goes through the Gray16
// color model.
func MaskFromImage(img image.Image) (*Mask, error) {
	bounds := img.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return nil, errors.Errorf("label image must be at least 1x1, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	m := NewEmptyMask(bounds.Dx(), bounds.Dy())
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			px, py := bounds.Min.X+x, bounds.Min.Y+y
			switch src := img.(type) {
			case *image.Paletted:
				m.Set(x, y, int(src.ColorIndexAt(px, py)))
			case *image.Gray:
				m.Set(x, y, int(src.GrayAt(px, py).Y))
			case *image.Gray16:
				m.Set(x, y, int(src.Gray16At(px, py).Y))
			default:
				//nolint:forcetypeassert
				m.Set(x, y, int(color.Gray16Model.Convert(img.At(px, py)).(color.Gray16).Y))
			}
		}
	}
	return m, nil
}

// MaskFromTensor builds a mask from a classifier output tensor that already holds integer class
// ids. Accepted shapes are [H, W], [1, H, W] and [1, H, W, 1]. Probability tensors are rejected;
// picking a class per pixel is the classifier's job.
func MaskFromTensor(t *tensor.Dense) (*Mask, error) {
	if t == nil {
		return nil, errors.New("mask tensor is nil")
	}
	height, width, err := maskTensorDims(t.Shape())
	if err != nil {
		return nil, err
	}
	if t.IsView() {
		materialized, ok := t.Materialize().(*tensor.Dense)
		if !ok {
			return nil, errors.New("cannot materialize mask tensor view")
		}
		t = materialized
	}

	ids := make([]int, 0, width*height)
	switch data := t.Data().(type) {
	case []int:
		ids = append(ids, data...)
	case []int64:
		for _, v := range data {
			ids = append(ids, int(v))
		}
	case []int32:
		for _, v := range data {
			ids = append(ids, int(v))
		}
	case []int16:
		for _, v := range data {
			ids = append(ids, int(v))
		}
	case []int8:
		for _, v := range data {
			ids = append(ids, int(v))
		}
	case []uint8:
		for _, v := range data {
			ids = append(ids, int(v))
		}
	case []uint16:
		for _, v := range data {
			ids = append(ids, int(v))
		}
	default:
		return nil, errors.Errorf("mask tensor must hold integer class ids, got %v", t.Dtype())
	}
	return NewMask(width, height, ids)
}

func maskTensorDims(shape tensor.Shape) (height, width int, err error) {
	switch {
	case len(shape) == 2:
		return shape[0], shape[1], nil
	case len(shape) == 3 && shape[0] == 1:
		return shape[1], shape[2], nil
	case len(shape) == 4 && shape[0] == 1 && shape[3] == 1:
		return shape[1], shape[2], nil
	}
	return 0, 0, errors.Errorf("mask tensor shape must be [H W], [1 H W] or [1 H W 1], got %v", shape)
}
