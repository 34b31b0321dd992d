package pipeline

import (
	"context"
	"time"

	"go.viam.com/obstaclealert/fusion"
	"go.viam.com/obstaclealert/rimage"
	"go.viam.com/obstaclealert/vision/segmentation"
)

// FramePair is a depth map and segmentation mask of the same camera instant. The producer must not
// modify either buffer after submitting it.
type FramePair struct {
	Depth      *rimage.DepthMap
	Mask       *segmentation.Mask
	CapturedAt time.Time
}

// Event is one fused frame handed to a Sink.
type Event struct {
	// Seq is the 1-based position of the pair among everything submitted.
	Seq        uint64
	CapturedAt time.Time
	Result     fusion.Result
	Latency    time.Duration
}

// A Sink receives every fused frame. Deliver is called from a worker goroutine, one event at a
// time per worker; debouncing and display are the sink's concern.
type Sink interface {
	Deliver(ctx context.Context, event Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, event Event)

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, event Event) {
	f(ctx, event)
}

// Stats is a point-in-time summary of a Processor.
type Stats struct {
	Submitted uint64 `json:"submitted"`
	// Sampled pairs were picked by the cadence; the rest were skipped on arrival.
	Sampled uint64 `json:"sampled"`
	// Dropped pairs were sampled but replaced in the mailbox before a worker took them.
	Dropped   uint64 `json:"dropped"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Dangers   uint64 `json:"dangers"`

	LatencyMean time.Duration `json:"latency_mean"`
	LatencyP50  time.Duration `json:"latency_p50"`
	LatencyP95  time.Duration `json:"latency_p95"`
}
