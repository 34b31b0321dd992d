package fusion

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	// DefaultROIMinFraction is where the region of interest starts on each axis.
	DefaultROIMinFraction = 1.0 / 3
	// DefaultROIMaxFraction is where the region of interest ends (exclusive) on each axis.
	DefaultROIMaxFraction = 2.0 / 3
	// DefaultMinValidDistanceM is the distance at or below which samples are treated as noise.
	DefaultMinValidDistanceM = 0.1
	// DefaultDangerThresholdM is the distance below which an obstacle raises an alert.
	DefaultDangerThresholdM = 2.0

	// roiEpsilon absorbs the rounding of fractions such as 1/3 that have no exact float form, so
	// that the default fractions land on w/3 and 2w/3 exactly.
	roiEpsilon = 1e-9
)

// Config holds the tunables of the fusion routine. The defaults are empirical, not derived from
// sensor calibration.
type Config struct {
	ROIMinFraction    float64 `json:"roi_min_fraction"`
	ROIMaxFraction    float64 `json:"roi_max_fraction"`
	MinValidDistanceM float64 `json:"min_valid_distance_m"`
	DangerThresholdM  float64 `json:"danger_threshold_m"`
}

// DefaultConfig scans the central third of the frame and alerts on anything closer than 2m.
func DefaultConfig() Config {
	return Config{
		ROIMinFraction:    DefaultROIMinFraction,
		ROIMaxFraction:    DefaultROIMaxFraction,
		MinValidDistanceM: DefaultMinValidDistanceM,
		DangerThresholdM:  DefaultDangerThresholdM,
	}
}

// CheckValid returns every problem with the config at once.
func (cfg Config) CheckValid() error {
	var errs error
	if !inUnitInterval(cfg.ROIMinFraction) {
		errs = multierr.Append(errs, errors.Errorf("roi_min_fraction must be between 0 and 1, got %v", cfg.ROIMinFraction))
	}
	if !inUnitInterval(cfg.ROIMaxFraction) {
		errs = multierr.Append(errs, errors.Errorf("roi_max_fraction must be between 0 and 1, got %v", cfg.ROIMaxFraction))
	}
	if cfg.ROIMinFraction >= cfg.ROIMaxFraction {
		errs = multierr.Append(errs, errors.Errorf("roi_min_fraction (%v) must be less than roi_max_fraction (%v)",
			cfg.ROIMinFraction, cfg.ROIMaxFraction))
	}
	if cfg.MinValidDistanceM < 0 || math.IsNaN(cfg.MinValidDistanceM) {
		errs = multierr.Append(errs, errors.Errorf("min_valid_distance_m cannot be negative, got %v", cfg.MinValidDistanceM))
	}
	if !(cfg.DangerThresholdM > cfg.MinValidDistanceM) {
		errs = multierr.Append(errs, errors.Errorf("danger_threshold_m (%v) must be greater than min_valid_distance_m (%v)",
			cfg.DangerThresholdM, cfg.MinValidDistanceM))
	}
	return errs
}

func inUnitInterval(f float64) bool {
	return f >= 0 && f <= 1
}

// ROI returns the half-open box [w*min, w*max) x [h*min, h*max), each bound floored. With the
// default fractions this is exactly [w/3, 2w/3) x [h/3, 2h/3) in integer division. The result
// may be empty for tiny frames.
func (cfg Config) ROI(width, height int) image.Rectangle {
	return image.Rectangle{
		Min: image.Point{X: scaleFloor(width, cfg.ROIMinFraction), Y: scaleFloor(height, cfg.ROIMinFraction)},
		Max: image.Point{X: scaleFloor(width, cfg.ROIMaxFraction), Y: scaleFloor(height, cfg.ROIMaxFraction)},
	}
}

func scaleFloor(n int, fraction float64) int {
	return int(math.Floor(float64(n)*fraction + roiEpsilon))
}
