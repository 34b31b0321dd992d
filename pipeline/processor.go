// Package pipeline decouples frame capture from fusion. Producers submit every captured frame pair
// without blocking; a fixed cadence picks which pairs are fused, a single-slot mailbox holds the
// newest picked pair, and worker goroutines fuse it and hand the result to a Sink.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"go.viam.com/obstaclealert/fusion"
	"go.viam.com/obstaclealert/logging"
	"go.viam.com/obstaclealert/utils"
)

type pendingPair struct {
	seq  uint64
	pair FramePair
}

// Processor fuses a sampled subset of submitted frame pairs on background workers.
type Processor struct {
	cfg    Config
	engine *fusion.Engine
	sink   Sink
	logger logging.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending *pendingPair
	closed  bool

	workers     utils.StoppableWorkers
	statsLogger utils.StoppableWorkers

	submitted atomic.Uint64
	sampled   atomic.Uint64
	dropped   atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
	dangers   atomic.Uint64

	latencyMu   sync.Mutex
	latencies   []float64
	latencyNext int
}

// NewProcessor starts cfg.Workers fusion workers. They run until Close is called or ctx is done.
func NewProcessor(
	ctx context.Context,
	cfg Config,
	engine *fusion.Engine,
	sink Sink,
	logger logging.Logger,
) (*Processor, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "invalid pipeline config")
	}
	if engine == nil {
		return nil, errors.New("pipeline needs a fusion engine")
	}
	if sink == nil {
		return nil, errors.New("pipeline needs a sink")
	}

	p := &Processor{
		cfg:       cfg,
		engine:    engine,
		sink:      sink,
		logger:    logger,
		latencies: make([]float64, 0, latencyWindow),
	}
	p.cond = sync.NewCond(&p.mu)

	p.workers = utils.NewStoppableWorkers(ctx, p.wakeOnDone)
	for i := 0; i < cfg.Workers; i++ {
		p.workers.Add(p.work)
	}
	if interval := cfg.StatsInterval(); interval > 0 {
		p.statsLogger = utils.NewStoppableWorkerWithTicker(ctx, interval, func(context.Context) {
			p.logStats()
		})
	}
	return p, nil
}

// Submit offers a frame pair and never blocks. It returns whether the pair was sampled for fusion.
// A sampled pair replaces any sampled pair no worker has taken yet.
func (p *Processor) Submit(pair FramePair) bool {
	seq := p.submitted.Inc()
	if (seq-1)%uint64(p.cfg.SampleEvery) != 0 {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.sampled.Inc()
	if p.pending != nil {
		p.dropped.Inc()
	}
	p.pending = &pendingPair{seq: seq, pair: pair}
	p.cond.Signal()
	return true
}

// next blocks until a pair is waiting or the processor is closed.
func (p *Processor) next() (*pendingPair, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.pending == nil && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return nil, false
	}
	next := p.pending
	p.pending = nil
	return next, true
}

func (p *Processor) wakeOnDone(ctx context.Context) {
	<-ctx.Done()
	p.mu.Lock()
	p.closed = true
	if p.pending != nil {
		p.dropped.Inc()
		p.pending = nil
	}
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *Processor) work(ctx context.Context) {
	for {
		next, ok := p.next()
		if !ok {
			return
		}
		p.process(ctx, next)
	}
}

func (p *Processor) process(ctx context.Context, next *pendingPair) {
	ctx, span := trace.StartSpan(ctx, "pipeline::Processor::process")
	defer span.End()

	start := time.Now()
	result, err := p.engine.Fuse(next.pair.Depth, next.pair.Mask)
	latency := time.Since(start)
	if err != nil {
		p.failed.Inc()
		span.SetStatus(trace.Status{Code: trace.StatusCodeInvalidArgument, Message: err.Error()})
		p.logger.Warnw("skipping frame", "seq", next.seq, "error", err)
		return
	}
	span.AddAttributes(
		trace.Int64Attribute("seq", int64(next.seq)),
		trace.BoolAttribute("danger", result.Danger),
	)

	p.recordLatency(latency)
	p.logger.CDebugw(ctx, "fused frame", "seq", next.seq, "result", result.String(), "latency", latency)

	p.sink.Deliver(ctx, Event{
		Seq:        next.seq,
		CapturedAt: next.pair.CapturedAt,
		Result:     result,
		Latency:    latency,
	})
	p.processed.Inc()
	if result.Danger {
		p.dangers.Inc()
	}
}

func (p *Processor) recordLatency(latency time.Duration) {
	p.latencyMu.Lock()
	defer p.latencyMu.Unlock()
	if len(p.latencies) < latencyWindow {
		p.latencies = append(p.latencies, float64(latency))
		return
	}
	p.latencies[p.latencyNext] = float64(latency)
	p.latencyNext = (p.latencyNext + 1) % latencyWindow
}

// Stats returns the processor's counters and a summary of recent fusion latencies.
func (p *Processor) Stats() Stats {
	s := Stats{
		Submitted: p.submitted.Load(),
		Sampled:   p.sampled.Load(),
		Dropped:   p.dropped.Load(),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Dangers:   p.dangers.Load(),
	}

	p.latencyMu.Lock()
	data := stats.Float64Data(append([]float64(nil), p.latencies...))
	p.latencyMu.Unlock()
	if data.Len() == 0 {
		return s
	}
	// The only error these return is for empty input, checked above.
	mean, _ := data.Mean()
	p50, _ := data.Percentile(50)
	p95, _ := data.Percentile(95)
	s.LatencyMean = time.Duration(mean)
	s.LatencyP50 = time.Duration(p50)
	s.LatencyP95 = time.Duration(p95)
	return s
}

func (p *Processor) logStats() {
	s := p.Stats()
	p.logger.Infow("pipeline stats",
		"submitted", s.Submitted,
		"sampled", s.Sampled,
		"dropped", s.Dropped,
		"processed", s.Processed,
		"failed", s.Failed,
		"dangers", s.Dangers,
		"latency_p50", s.LatencyP50,
		"latency_p95", s.LatencyP95,
	)
}

// Flush blocks until every sampled pair has been fused, failed or dropped, or ctx is done.
func (p *Processor) Flush(ctx context.Context) error {
	for {
		s := p.Stats()
		if s.Processed+s.Failed+s.Dropped >= s.Sampled {
			return nil
		}
		if !goutils.SelectContextOrWait(ctx, flushPollInterval) {
			return ctx.Err()
		}
	}
}

// Close stops the workers. A pair still waiting in the mailbox is counted as dropped.
func (p *Processor) Close() {
	if p.statsLogger != nil {
		p.statsLogger.Stop()
	}
	p.workers.Stop()
}
