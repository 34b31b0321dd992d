// Package fusion combines a depth map with a semantic segmentation mask of the same camera frame to
// decide whether the nearest obstacle ahead is close enough to warn about, and what it is.
//
// Fusion runs in three stages that are exported so they can be exercised on their own:
// NearestInROI finds the closest valid depth sample in the region of interest, RemapPoint carries
// that pixel into the mask's resolution, and Classify reads and names the class there.
package fusion

import (
	"image"
	"math"

	"go.viam.com/obstaclealert/rimage"
	"go.viam.com/obstaclealert/vision/classification"
	"go.viam.com/obstaclealert/vision/segmentation"
)

// Engine fuses frame pairs under a fixed config and class table. It holds no per-frame state and
// is safe for concurrent use.
type Engine struct {
	cfg   Config
	table *classification.ClassTable
}

// NewEngine validates cfg and returns an Engine. A nil table names every class UnknownLabel.
func NewEngine(cfg Config, table *classification.ClassTable) (*Engine, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, table: table}, nil
}

// Config returns the engine's config.
func (e *Engine) Config() Config {
	return e.cfg
}

// ClassTable returns the engine's class table.
func (e *Engine) ClassTable() *classification.ClassTable {
	return e.table
}

// Fuse runs the fusion routine on one frame pair. See the package level Fuse.
func (e *Engine) Fuse(depth *rimage.DepthMap, mask *segmentation.Mask) (Result, error) {
	return fuse(depth, mask, e.table, e.cfg)
}

// Fuse finds the nearest obstacle in the region of interest of depth and, when it is closer than
// the danger threshold, labels it from mask. The only error is ErrInvalidInput, for buffers that
// disagree with their dimensions or an invalid cfg. The mask is not read unless the obstacle is
// dangerous.
func Fuse(
	depth *rimage.DepthMap,
	mask *segmentation.Mask,
	table *classification.ClassTable,
	cfg Config,
) (Result, error) {
	if err := cfg.CheckValid(); err != nil {
		return Result{}, invalidInput(err, "config")
	}
	return fuse(depth, mask, table, cfg)
}

func fuse(
	depth *rimage.DepthMap,
	mask *segmentation.Mask,
	table *classification.ClassTable,
	cfg Config,
) (Result, error) {
	if err := depth.CheckValid(); err != nil {
		return Result{}, invalidInput(err, "depth")
	}
	if err := mask.CheckValid(); err != nil {
		return Result{}, invalidInput(err, "mask")
	}

	roi := cfg.ROI(depth.Width(), depth.Height())
	point, best, found := NearestInROI(depth, roi, cfg.MinValidDistanceM)
	if !found {
		return clearResult(), nil
	}

	result := clearResult()
	result.Found = true
	result.DistanceMeters = best
	result.DepthPoint = point
	if best >= float32(cfg.DangerThresholdM) {
		return result, nil
	}

	maskPoint := RemapPoint(point, depth.Width(), depth.Height(), mask.Width(), mask.Height())
	result.ClassID, result.Label = Classify(mask, maskPoint, table)
	result.Danger = true
	return result, nil
}

// NearestInROI scans roi in row-major order for the smallest finite distance strictly greater than
// minValid. Ties keep the first sample found. found is false when roi is empty or holds no such
// sample; there is no fallback point.
//
// Thresholds are compared at the depth map's float32 precision, so a sample of float32(0.1) is
// at, not above, a minValid of 0.1.
func NearestInROI(depth *rimage.DepthMap, roi image.Rectangle, minValid float64) (point image.Point, best float32, found bool) {
	roi = roi.Intersect(depth.Bounds())
	floor := float32(minValid)
	best = float32(math.Inf(1))
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			d := depth.At(x, y)
			if !rimage.IsValidDepth(d) || d <= floor || d >= best {
				continue
			}
			best = d
			point = image.Point{X: x, Y: y}
			found = true
		}
	}
	if !found {
		return image.Point{}, 0, false
	}
	return point, best, true
}

// RemapPoint scales a depth-map pixel into mask coordinates independently per axis,
// floor(x * maskW / depthW) and likewise for y, clamped to the mask. Equal resolutions map every
// pixel to itself.
func RemapPoint(p image.Point, depthW, depthH, maskW, maskH int) image.Point {
	return image.Point{
		X: clamp(remapAxis(p.X, depthW, maskW), 0, maskW-1),
		Y: clamp(remapAxis(p.Y, depthH, maskH), 0, maskH-1),
	}
}

// remapAxis floors v/from*to. Integer arithmetic keeps it exact where the float form would round.
func remapAxis(v, from, to int) int {
	scaled := v * to
	if scaled < 0 {
		// Floor, not truncation, for points left of or above the frame.
		return -((-scaled + from - 1) / from)
	}
	return scaled / from
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// Classify reads the class id at p in mask and names it from table, falling back to
// classification.UnknownLabel.
func Classify(mask *segmentation.Mask, p image.Point, table *classification.ClassTable) (int, string) {
	classID := mask.At(p.X, p.Y)
	return classID, table.Label(classID)
}
