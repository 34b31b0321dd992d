// Package cli contains the obstacle-alert command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	generalFlagConfig = "config"
	generalFlagDebug  = "debug"

	fuseFlagDepth  = "depth"
	fuseFlagMask   = "mask"
	fuseFlagLabels = "labels"
	fuseFlagJSON   = "json"

	replayFlagDir   = "dir"
	replayFlagFPS   = "fps"
	replayFlagQuiet = "quiet"

	// exitInvalidInput is the exit code when a frame pair cannot be fused.
	exitInvalidInput = 2
)

var labelsFlag = &cli.StringFlag{
	Name:  fuseFlagLabels,
	Usage: "class labels `FILE`, one label per line; Pascal VOC labels when omitted",
}

var app = &cli.App{
	Name:            "obstacle-alert",
	Usage:           "fuse depth and segmentation frames into obstacle warnings",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    generalFlagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "fuse",
			Usage:     "fuse a single depth map and segmentation mask",
			UsageText: "obstacle-alert [global options] fuse --depth FILE --mask FILE [--labels FILE]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     fuseFlagDepth,
					Required: true,
					Usage:    "depth `FILE`: 16-bit png in millimeters or raw .dat, optionally gzipped",
				},
				&cli.StringFlag{
					Name:     fuseFlagMask,
					Required: true,
					Usage:    "segmentation mask `FILE`: png whose pixel values are class ids",
				},
				labelsFlag,
				&cli.BoolFlag{
					Name:  fuseFlagJSON,
					Usage: "print the result as json",
				},
			},
			Action: FuseAction,
		},
		{
			Name:      "replay",
			Usage:     "replay a directory of recorded frame pairs through the alert pipeline",
			UsageText: "obstacle-alert [global options] replay --dir DIR [--labels FILE] [--fps N]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     replayFlagDir,
					Required: true,
					Usage:    "`DIR` holding depth_NNN.{png,dat,dat.gz} and mask_NNN.png pairs",
				},
				labelsFlag,
				&cli.Float64Flag{
					Name:  replayFlagFPS,
					Value: 30,
					Usage: "frames per second to submit; 0 submits as fast as possible",
				},
				&cli.BoolFlag{
					Name:  replayFlagQuiet,
					Usage: "do not print announcements",
				},
			},
			Action: ReplayAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
