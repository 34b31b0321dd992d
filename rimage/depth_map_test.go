package rimage

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestNewDepthMapFromData(t *testing.T) {
	dm, err := NewDepthMapFromData(3, 2, []float32{1, 2, 3, 4, 5, 6})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.Width(), test.ShouldEqual, 3)
	test.That(t, dm.Height(), test.ShouldEqual, 2)
	test.That(t, dm.At(0, 1), test.ShouldEqual, float32(4))
	test.That(t, dm.At(2, 0), test.ShouldEqual, float32(3))
	test.That(t, dm.Bounds(), test.ShouldResemble, image.Rect(0, 0, 3, 2))

	dm.Set(1, 1, 9)
	test.That(t, dm.Data()[4], test.ShouldEqual, float32(9))
	test.That(t, dm.Contains(2, 1), test.ShouldBeTrue)
	test.That(t, dm.Contains(3, 1), test.ShouldBeFalse)
	test.That(t, dm.Contains(-1, 0), test.ShouldBeFalse)

	_, err = NewDepthMapFromData(3, 2, []float32{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "has 3 samples, expected 3x2")

	_, err = NewDepthMapFromData(0, 2, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least 1x1")

	// 1<<32 squared wraps to zero in an int.
	_, err = NewDepthMapFromData(1<<32, 1<<32, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "has 0 samples")
	_, err = NewDepthMapFromData(1<<33, 1<<31, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, NewEmptyDepthMap(1<<32, 1<<32).CheckValid(), test.ShouldNotBeNil)

	var nilMap *DepthMap
	test.That(t, nilMap.CheckValid(), test.ShouldNotBeNil)
}

func TestIsValidDepth(t *testing.T) {
	test.That(t, IsValidDepth(1.5), test.ShouldBeTrue)
	test.That(t, IsValidDepth(0), test.ShouldBeFalse)
	test.That(t, IsValidDepth(-1), test.ShouldBeFalse)
	test.That(t, IsValidDepth(float32(math.NaN())), test.ShouldBeFalse)
	test.That(t, IsValidDepth(float32(math.Inf(1))), test.ShouldBeFalse)
}

func TestRawRoundTrip(t *testing.T) {
	dm := NewEmptyDepthMap(4, 3)
	dm.Fill(2.5)
	dm.Set(3, 2, 0.75)

	var buf bytes.Buffer
	n, err := dm.WriteTo(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, int64(16+4*12))

	read, err := ReadDepthMap(bufio.NewReader(&buf))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.Width(), test.ShouldEqual, 4)
	test.That(t, read.Height(), test.ShouldEqual, 3)
	test.That(t, read.Data(), test.ShouldResemble, dm.Data())
}

func TestReadDepthMapBadHeader(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, binary.Write(&buf, binary.LittleEndian, [2]int64{0, 10}), test.ShouldBeNil)
	_, err := ReadDepthMap(bufio.NewReader(&buf))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad width or height")

	buf.Reset()
	test.That(t, binary.Write(&buf, binary.LittleEndian, [2]int64{2, 2}), test.ShouldBeNil)
	test.That(t, binary.Write(&buf, binary.LittleEndian, []float32{1, 2}), test.ShouldBeNil)
	_, err = ReadDepthMap(bufio.NewReader(&buf))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot read 2x2 depth samples")
}

func TestDepthMapFromImage(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 2))
	img.SetGray16(0, 0, color.Gray16{Y: 1200})
	img.SetGray16(1, 1, color.Gray16{Y: 65535})

	dm, err := DepthMapFromImage(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.At(0, 0), test.ShouldAlmostEqual, 1.2, 1e-6)
	test.That(t, dm.At(1, 0), test.ShouldEqual, float32(0))
	test.That(t, dm.At(1, 1), test.ShouldAlmostEqual, 65.535, 1e-4)

	back := dm.ToGray16()
	test.That(t, back.Gray16At(0, 0).Y, test.ShouldEqual, uint16(1200))
	test.That(t, back.Gray16At(1, 0).Y, test.ShouldEqual, uint16(0))

	// A sub-image keeps its own origin.
	sub := img.SubImage(image.Rect(1, 1, 2, 2))
	dm, err = DepthMapFromImage(sub)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.Width(), test.ShouldEqual, 1)
	test.That(t, dm.At(0, 0), test.ShouldAlmostEqual, 65.535, 1e-4)

	_, err = DepthMapFromImage(image.NewGray16(image.Rect(0, 0, 0, 0)))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseDepthMap(t *testing.T) {
	dir := t.TempDir()
	dm := NewEmptyDepthMap(3, 3)
	dm.Fill(3)
	dm.Set(1, 1, 1.2)

	pngPath := filepath.Join(dir, "depth_000.png")
	f, err := os.Create(pngPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, dm.ToGray16()), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	parsed, err := ParseDepthMap(pngPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed.At(1, 1), test.ShouldAlmostEqual, 1.2, 1e-6)
	test.That(t, parsed.At(0, 0), test.ShouldAlmostEqual, 3, 1e-6)

	gzPath := filepath.Join(dir, "depth_001.dat.gz")
	f, err = os.Create(gzPath)
	test.That(t, err, test.ShouldBeNil)
	gz := gzip.NewWriter(f)
	_, err = dm.WriteTo(gz)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gz.Close(), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	parsed, err = ParseDepthMap(gzPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed.Data(), test.ShouldResemble, dm.Data())

	_, err = ParseDepthMap(filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}
