package fusion

import (
	"fmt"
	"image"
)

const (
	// NoClass is the class id of a result that did not consult the segmentation mask.
	NoClass = -1
	// ClearLabel is the label of every result without danger.
	ClearLabel = "clear"
)

// Result is the outcome of fusing one depth/segmentation pair.
type Result struct {
	// DistanceMeters is the nearest valid distance in the region of interest. It is zero when
	// Found is false.
	DistanceMeters float32 `json:"distance_m"`
	ClassID        int     `json:"class_id"`
	Label          string  `json:"label"`
	Danger         bool    `json:"danger"`

	// Found is whether any sample in the region of interest qualified as an obstacle.
	Found bool `json:"found"`
	// DepthPoint is the depth-map pixel of the nearest obstacle, valid when Found is true.
	DepthPoint image.Point `json:"depth_point"`
}

func clearResult() Result {
	return Result{ClassID: NoClass, Label: ClearLabel}
}

func (r Result) String() string {
	switch {
	case r.Danger:
		return fmt.Sprintf("DANGER %s (class %d) at %.2fm", r.Label, r.ClassID, r.DistanceMeters)
	case r.Found:
		return fmt.Sprintf("clear, nearest at %.2fm", r.DistanceMeters)
	default:
		return "clear, no obstacle in view"
	}
}
