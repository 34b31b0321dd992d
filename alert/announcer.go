package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"go.viam.com/obstaclealert/pipeline"
)

// ClearMessage is spoken once the path has stayed clear for the quiet period after a warning.
const ClearMessage = "path clear"

// AnnouncerConfig controls how often the announcer speaks.
type AnnouncerConfig struct {
	// MinIntervalSec is the shortest gap between any two warnings.
	MinIntervalSec float64 `json:"min_interval_sec"`
	// RepeatSec re-announces an unchanged warning after this long.
	RepeatSec float64 `json:"repeat_sec"`
	// ClearQuietSec is how long the path must stay clear before ClearMessage.
	ClearQuietSec float64 `json:"clear_quiet_sec"`
}

// DefaultAnnouncerConfig returns the announcer defaults.
func DefaultAnnouncerConfig() AnnouncerConfig {
	return AnnouncerConfig{
		MinIntervalSec: 1,
		RepeatSec:      3,
		ClearQuietSec:  1.5,
	}
}

// CheckValid returns every problem with the config at once.
func (cfg AnnouncerConfig) CheckValid() error {
	var errs error
	if cfg.MinIntervalSec < 0 {
		errs = multierr.Append(errs, errors.Errorf("min_interval_sec cannot be negative, got %v", cfg.MinIntervalSec))
	}
	if cfg.RepeatSec <= 0 {
		errs = multierr.Append(errs, errors.Errorf("repeat_sec must be positive, got %v", cfg.RepeatSec))
	}
	if cfg.ClearQuietSec <= 0 {
		errs = multierr.Append(errs, errors.Errorf("clear_quiet_sec must be positive, got %v", cfg.ClearQuietSec))
	}
	return errs
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// A Speaker says a message to the user, e.g. through text to speech.
type Speaker func(ctx context.Context, message string)

// Announcer is a pipeline.Sink that speaks a warning when danger starts or the obstacle changes,
// repeats it while it persists, and says ClearMessage once after danger ends. It is safe for
// concurrent use by several pipeline workers.
type Announcer struct {
	cfg   AnnouncerConfig
	speak Speaker
	now   func() time.Time

	// ctx outlives the frames; the delayed ClearMessage is spoken under it.
	ctx    context.Context
	cancel context.CancelFunc

	limiter       *rate.Limiter
	debounceClear func(func())

	mu            sync.Mutex
	inDanger      bool
	lastLabel     string
	lastAnnounced time.Time
	closed        bool
}

// NewAnnouncer returns an Announcer that speaks through speak. Warnings are spoken under the
// context of the frame that raised them; ClearMessage is spoken under ctx, after the frames that
// caused it are done. Cancelling ctx has the same effect as Close.
func NewAnnouncer(ctx context.Context, cfg AnnouncerConfig, speak Speaker) (*Announcer, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "invalid announcer config")
	}
	if speak == nil {
		return nil, errors.New("announcer needs a speaker")
	}
	limit := rate.Inf
	if cfg.MinIntervalSec > 0 {
		limit = rate.Every(seconds(cfg.MinIntervalSec))
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Announcer{
		cfg:           cfg,
		speak:         speak,
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
		limiter:       rate.NewLimiter(limit, 1),
		debounceClear: debounce.New(seconds(cfg.ClearQuietSec)),
	}, nil
}

// WarningMessage is what the announcer says for a dangerous result.
func WarningMessage(label string, meters float32) string {
	return fmt.Sprintf("%s ahead, %.1f meters", label, meters)
}

// Deliver implements pipeline.Sink.
func (a *Announcer) Deliver(ctx context.Context, event pipeline.Event) {
	res := event.Result
	a.mu.Lock()
	if a.closed || a.ctx.Err() != nil {
		a.mu.Unlock()
		return
	}

	if !res.Danger {
		wasDanger := a.inDanger
		a.inDanger = false
		a.mu.Unlock()
		if wasDanger {
			a.debounceClear(a.announceClear)
		}
		return
	}

	now := a.now()
	changed := !a.inDanger || res.Label != a.lastLabel
	stale := now.Sub(a.lastAnnounced) >= seconds(a.cfg.RepeatSec)
	a.inDanger = true
	if !(changed || stale) || !a.limiter.AllowN(now, 1) {
		a.mu.Unlock()
		return
	}
	a.lastLabel = res.Label
	a.lastAnnounced = now
	a.mu.Unlock()

	a.speak(ctx, WarningMessage(res.Label, res.DistanceMeters))
}

func (a *Announcer) announceClear() {
	a.mu.Lock()
	if a.closed || a.inDanger || a.ctx.Err() != nil {
		a.mu.Unlock()
		return
	}
	a.lastLabel = ""
	a.mu.Unlock()

	a.speak(a.ctx, ClearMessage)
}

// Close stops any further announcements, including a pending ClearMessage.
func (a *Announcer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.cancel()
}
