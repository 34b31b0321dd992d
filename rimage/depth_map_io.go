package rimage

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// millimetersPerMeter is the scale of 16-bit depth images, which store whole millimeters.
const millimetersPerMeter = 1000

// ParseDepthMap reads a depth map from disk. Files ending in .png are 16-bit grayscale images in
// millimeters; anything else is the raw binary format read by ReadDepthMap. A trailing .gz is
// decompressed first.
func ParseDepthMap(fn string) (dm *DepthMap, err error) {
	//nolint:gosec
	f, err := os.Open(filepath.Clean(fn))
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	var r io.Reader = f
	name := fn
	if filepath.Ext(name) == ".gz" {
		gz, gzErr := gzip.NewReader(f)
		if gzErr != nil {
			return nil, errors.Wrapf(gzErr, "cannot decompress depth map %q", fn)
		}
		defer func() {
			err = multierr.Combine(err, gz.Close())
		}()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	if strings.EqualFold(filepath.Ext(name), ".png") {
		img, err := png.Decode(r)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot decode depth image %q", fn)
		}
		return DepthMapFromImage(img)
	}
	return ReadDepthMap(bufio.NewReader(r))
}

// ReadDepthMap reads the raw binary format: little-endian int64 width, int64 height, then
// width*height little-endian float32 samples in meters, row-major.
func ReadDepthMap(r *bufio.Reader) (*DepthMap, error) {
	var header [2]int64
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrap(err, "cannot read depth map header")
	}
	width, height := header[0], header[1]
	if width <= 0 || width >= MaxDepthMapDimension || height <= 0 || height >= MaxDepthMapDimension {
		return nil, errors.Errorf("bad width or height for depth map %v %v", width, height)
	}

	dm := NewEmptyDepthMap(int(width), int(height))
	if err := binary.Read(r, binary.LittleEndian, dm.data); err != nil {
		return nil, errors.Wrapf(err, "cannot read %dx%d depth samples", width, height)
	}
	return dm, nil
}

// WriteTo writes the map in the raw binary format understood by ReadDepthMap.
func (dm *DepthMap) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	header := [2]int64{int64(dm.width), int64(dm.height)}
	if err := binary.Write(cw, binary.LittleEndian, header); err != nil {
		return cw.n, err
	}
	err := binary.Write(cw, binary.LittleEndian, dm.data)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// DepthMapFromImage converts a 16-bit grayscale image in millimeters into a depth map in meters.
// A zero pixel stays zero, which marks it invalid. Other image types are converted through the
// Gray16 color model.
func DepthMapFromImage(img image.Image) (*DepthMap, error) {
	bounds := img.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return nil, errors.Errorf("depth image must be at least 1x1, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())
	gray16, isGray16 := img.(*image.Gray16)
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			var mm uint16
			if isGray16 {
				mm = gray16.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
			} else {
				//nolint:forcetypeassert
				mm = color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16).Y
			}
			dm.Set(x, y, float32(mm)/millimetersPerMeter)
		}
	}
	return dm, nil
}

// ToGray16 renders the map as a 16-bit grayscale image in millimeters. Invalid samples become
// zero and distances beyond the 16-bit range saturate.
func (dm *DepthMap) ToGray16() *image.Gray16 {
	img := image.NewGray16(dm.Bounds())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			d := dm.At(x, y)
			if !IsValidDepth(d) {
				continue
			}
			mm := math.Round(float64(d) * millimetersPerMeter)
			if mm > math.MaxUint16 {
				mm = math.MaxUint16
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(mm)})
		}
	}
	return img
}
