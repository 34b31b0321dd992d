package cli

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/obstaclealert/fusion"
	"go.viam.com/obstaclealert/rimage"
)

// FuseAction fuses one depth map and mask from disk and prints the result.
func FuseAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	table, err := loadClassTable(c, s.logger)
	if err != nil {
		return err
	}
	depth, err := rimage.ParseDepthMap(c.String(fuseFlagDepth))
	if err != nil {
		return errors.Wrap(err, "cannot read depth map")
	}
	mask, err := readMask(c.String(fuseFlagMask))
	if err != nil {
		return errors.Wrap(err, "cannot read mask")
	}

	res, err := fusion.Fuse(depth, mask, table, s.cfg.Fusion)
	if err != nil {
		if fusion.IsInvalidInput(err) {
			return cli.Exit(err.Error(), exitInvalidInput)
		}
		return err
	}
	s.logger.CDebugw(c.Context, "fused",
		"depth_size", depth.Bounds().Size(),
		"mask_size", []int{mask.Width(), mask.Height()},
		"depth_point", res.DepthPoint,
	)

	if c.Bool(fuseFlagJSON) {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(c.App.Writer, res)
	return nil
}

func printResult(w io.Writer, res fusion.Result) {
	switch {
	case res.Danger:
		printf(w, "%s %s (class %d) at %.2f m", dangerColor.Sprint("DANGER"), res.Label, res.ClassID, res.DistanceMeters)
	case res.Found:
		printf(w, "%s nearest obstacle at %.2f m", clearColor.Sprint("CLEAR"), res.DistanceMeters)
	default:
		printf(w, "%s no obstacle in view", clearColor.Sprint("CLEAR"))
	}
}
