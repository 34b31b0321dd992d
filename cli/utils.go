package cli

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	// png is the only mask format written by the segmentation step.
	_ "image/png"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/obstaclealert/config"
	"go.viam.com/obstaclealert/logging"
	"go.viam.com/obstaclealert/vision/classification"
	"go.viam.com/obstaclealert/vision/segmentation"
)

var (
	dangerColor = color.New(color.FgRed, color.Bold)
	clearColor  = color.New(color.FgGreen)
	sayColor    = color.New(color.FgYellow)
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	if _, err := color.New(color.Bold, color.FgYellow).Fprint(w, "Warning: "); err != nil {
		return
	}
	printf(w, format, a...)
}

// session holds what every command needs: the process config and a logger built from it.
type session struct {
	cfg    *config.Config
	logger logging.Logger
	closer io.Closer
}

func newSession(c *cli.Context) (*session, error) {
	cfg := config.Default()
	if path := c.String(generalFlagConfig); path != "" {
		var err error
		if cfg, err = config.Read(c.Context, path, logging.Global().Sublogger("config")); err != nil {
			return nil, err
		}
	}
	logger, closer, err := cfg.Log.NewLogger("obstacle-alert")
	if err != nil {
		return nil, err
	}
	if c.Bool(generalFlagDebug) {
		logger.SetLevel(logging.DEBUG)
		c.Context = logging.WithDebugTag(c.Context, "")
	}
	logging.ReplaceGlobal(logger)
	return &session{cfg: cfg, logger: logger, closer: closer}, nil
}

func (s *session) Close() {
	goutils.UncheckedError(s.logger.Sync())
	goutils.UncheckedError(s.closer.Close())
}

// loadClassTable reads the labels file named by the labels flag, falling back to Pascal VOC.
func loadClassTable(c *cli.Context, logger logging.Logger) (*classification.ClassTable, error) {
	path := c.String(fuseFlagLabels)
	if path == "" {
		logger.CDebugw(c.Context, "no labels file given, using pascal voc labels")
		return classification.NewPascalVOCClassTable(), nil
	}
	return classification.LoadClassTable(path)
}

// readMask decodes a segmentation mask image whose pixel values are class ids.
func readMask(path string) (*segmentation.Mask, error) {
	//nolint:gosec
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode mask %q", path)
	}
	return segmentation.MaskFromImage(img)
}

func contextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
