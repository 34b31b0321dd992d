package segmentation_test

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"

	"go.viam.com/obstaclealert/vision/segmentation"
)

func TestNewMask(t *testing.T) {
	m, err := segmentation.NewMask(2, 3, []int{0, 1, 2, 3, 4, 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Width(), test.ShouldEqual, 2)
	test.That(t, m.Height(), test.ShouldEqual, 3)
	test.That(t, m.At(1, 2), test.ShouldEqual, 5)
	test.That(t, m.At(0, 1), test.ShouldEqual, 2)

	m.Set(0, 0, 15)
	test.That(t, m.Data()[0], test.ShouldEqual, 15)

	_, err = segmentation.NewMask(2, 3, []int{0, 1})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "has 2 ids, expected 2x3")

	_, err = segmentation.NewMask(1<<32, 1<<32, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "has 0 ids")
	test.That(t, segmentation.NewEmptyMask(1<<32, 1<<32).CheckValid(), test.ShouldNotBeNil)

	_, err = segmentation.NewMask(2, -1, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least 1x1")
}

func TestFillRect(t *testing.T) {
	m := segmentation.NewEmptyMask(4, 4)
	m.FillRect(image.Rect(2, 2, 10, 10), 7)
	test.That(t, m.At(1, 1), test.ShouldEqual, segmentation.Background)
	test.That(t, m.At(2, 2), test.ShouldEqual, 7)
	test.That(t, m.At(3, 3), test.ShouldEqual, 7)
}

func TestMaskFromImage(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 2))
	gray.SetGray(2, 1, color.Gray{Y: 15})
	m, err := segmentation.MaskFromImage(gray)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.At(2, 1), test.ShouldEqual, 15)
	test.That(t, m.At(0, 0), test.ShouldEqual, segmentation.Background)

	palette := color.Palette{color.Black, color.White, color.RGBA{R: 255, A: 255}}
	paletted := image.NewPaletted(image.Rect(0, 0, 2, 2), palette)
	paletted.SetColorIndex(1, 0, 2)
	m, err = segmentation.MaskFromImage(paletted)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.At(1, 0), test.ShouldEqual, 2)

	gray16 := image.NewGray16(image.Rect(0, 0, 1, 1))
	gray16.SetGray16(0, 0, color.Gray16{Y: 300})
	m, err = segmentation.MaskFromImage(gray16)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.At(0, 0), test.ShouldEqual, 300)

	_, err = segmentation.MaskFromImage(image.NewGray(image.Rectangle{}))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMaskFromTensor(t *testing.T) {
	ids := []int32{0, 0, 15, 0, 3, 0}
	m, err := segmentation.MaskFromTensor(tensor.New(tensor.WithShape(2, 3), tensor.WithBacking(ids)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Width(), test.ShouldEqual, 3)
	test.That(t, m.Height(), test.ShouldEqual, 2)
	test.That(t, m.At(2, 0), test.ShouldEqual, 15)
	test.That(t, m.At(1, 1), test.ShouldEqual, 3)

	batched := tensor.New(tensor.WithShape(1, 2, 2), tensor.WithBacking([]uint8{1, 2, 3, 4}))
	m, err = segmentation.MaskFromTensor(batched)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.At(1, 1), test.ShouldEqual, 4)

	channel := tensor.New(tensor.WithShape(1, 1, 2, 1), tensor.WithBacking([]int64{9, 8}))
	m, err = segmentation.MaskFromTensor(channel)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.At(0, 0), test.ShouldEqual, 9)

	probs := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float32{0.1, 0.9, 0.5, 0.5}))
	_, err = segmentation.MaskFromTensor(probs)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "integer class ids")

	badShape := tensor.New(tensor.WithShape(2, 2, 2), tensor.WithBacking(make([]int32, 8)))
	_, err = segmentation.MaskFromTensor(badShape)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "shape")

	_, err = segmentation.MaskFromTensor(nil)
	test.That(t, err, test.ShouldNotBeNil)
}
