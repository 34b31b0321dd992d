package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/obstaclealert/alert"
	"go.viam.com/obstaclealert/fusion"
	"go.viam.com/obstaclealert/logging"
	"go.viam.com/obstaclealert/pipeline"
	"go.viam.com/obstaclealert/rimage"
)

var (
	depthFileRegex = regexp.MustCompile(`^depth_(\d+)\.(png|dat|dat\.gz)$`)
	maskFileRegex  = regexp.MustCompile(`^mask_(\d+)\.png$`)
)

// recordedPair names the files of one recorded frame pair.
type recordedPair struct {
	index int
	depth string
	mask  string
}

// findRecordedPairs lists the frame pairs in dir in index order. Files missing their partner are
// returned separately.
func findRecordedPairs(dir string) (pairs []recordedPair, orphans []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	depths := map[int]string{}
	masks := map[int]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if m := depthFileRegex.FindStringSubmatch(name); m != nil {
			if idx, err := strconv.Atoi(m[1]); err == nil {
				depths[idx] = filepath.Join(dir, name)
			}
			continue
		}
		if m := maskFileRegex.FindStringSubmatch(name); m != nil {
			if idx, err := strconv.Atoi(m[1]); err == nil {
				masks[idx] = filepath.Join(dir, name)
			}
		}
	}

	for idx, depth := range depths {
		mask, ok := masks[idx]
		if !ok {
			orphans = append(orphans, depth)
			continue
		}
		pairs = append(pairs, recordedPair{index: idx, depth: depth, mask: mask})
	}
	for idx, mask := range masks {
		if _, ok := depths[idx]; !ok {
			orphans = append(orphans, mask)
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].index < pairs[j].index })
	sort.Strings(orphans)
	return pairs, orphans, nil
}

func (rp recordedPair) load() (pipeline.FramePair, error) {
	depth, err := rimage.ParseDepthMap(rp.depth)
	if err != nil {
		return pipeline.FramePair{}, err
	}
	mask, err := readMask(rp.mask)
	if err != nil {
		return pipeline.FramePair{}, err
	}
	return pipeline.FramePair{Depth: depth, Mask: mask, CapturedAt: time.Now()}, nil
}

// printSpeaker writes announcements to w. Workers may announce concurrently.
func printSpeaker(w io.Writer) alert.Speaker {
	var mu sync.Mutex
	return func(ctx context.Context, message string) {
		mu.Lock()
		defer mu.Unlock()
		printf(w, "%s %s", sayColor.Sprint("say:"), message)
	}
}

// ReplayAction pushes every recorded pair in a directory through the alert pipeline at a camera-like
// rate and prints the pipeline stats.
func ReplayAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	fps := c.Float64(replayFlagFPS)
	if fps < 0 {
		return errors.Errorf("--%s cannot be negative", replayFlagFPS)
	}
	dir := c.String(replayFlagDir)
	pairs, orphans, err := findRecordedPairs(dir)
	if err != nil {
		return err
	}
	for _, orphan := range orphans {
		warningf(c.App.ErrWriter, "%s has no matching depth or mask file", orphan)
	}
	if len(pairs) == 0 {
		return errors.Errorf("no frame pairs found in %q", dir)
	}

	classes, err := loadClassTable(c, s.logger)
	if err != nil {
		return err
	}
	engine, err := fusion.NewEngine(s.cfg.Fusion, classes)
	if err != nil {
		return err
	}

	speak := printSpeaker(c.App.Writer)
	if c.Bool(replayFlagQuiet) {
		speak = func(context.Context, string) {}
	}
	announcer, err := alert.NewAnnouncer(c.Context, s.cfg.Announcer, speak)
	if err != nil {
		return err
	}
	defer announcer.Close()

	sink := alert.MultiSink{alert.NewLogSink(s.logger.Sublogger("alerts")), announcer}
	proc, err := pipeline.NewProcessor(c.Context, s.cfg.Pipeline, engine, sink, s.logger.Sublogger("pipeline"))
	if err != nil {
		return err
	}

	err = replayPairs(c.Context, proc, pairs, fps, s.logger)
	if flushErr := proc.Flush(c.Context); err == nil {
		err = flushErr
	}
	proc.Close()
	printStats(c.App.Writer, proc.Stats())
	return err
}

func replayPairs(
	ctx context.Context,
	proc *pipeline.Processor,
	pairs []recordedPair,
	fps float64,
	logger logging.Logger,
) error {
	var tick <-chan time.Time
	if fps > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
		defer ticker.Stop()
		tick = ticker.C
	}
	for i, rp := range pairs {
		if i > 0 && tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		if contextDone(ctx) {
			return ctx.Err()
		}
		pair, err := rp.load()
		if err != nil {
			logger.Warnw("skipping unreadable frame pair", "index", rp.index, "error", err)
			continue
		}
		proc.Submit(pair)
	}
	return nil
}

func printStats(w io.Writer, s pipeline.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Stat", "Value"})
	t.AppendRows([]table.Row{
		{"submitted", s.Submitted},
		{"sampled", s.Sampled},
		{"dropped", s.Dropped},
		{"processed", s.Processed},
		{"failed", s.Failed},
		{"dangers", s.Dangers},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"latency mean", fmt.Sprint(s.LatencyMean)},
		{"latency p50", fmt.Sprint(s.LatencyP50)},
		{"latency p95", fmt.Sprint(s.LatencyP95)},
	})
	t.Render()
}
