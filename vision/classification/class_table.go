package classification

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
)

// UnknownLabel is reported for class ids the table has no name for.
const UnknownLabel = "unknown obstacle"

// PascalVOCLabels are the 21 classes of the PASCAL VOC segmentation set, which is what most
// off-the-shelf mobile segmentation models (e.g. DeepLabV3) emit. Id 0 is background.
var PascalVOCLabels = []string{
	"background", "aeroplane", "bicycle", "bird", "boat", "bottle", "bus", "car", "cat", "chair",
	"cow", "dining table", "dog", "horse", "motorbike", "person", "potted plant", "sheep", "sofa",
	"train", "tv monitor",
}

// ClassTable maps small integer class ids to human readable labels. It is immutable once built
// and safe to share between goroutines.
type ClassTable struct {
	labels []string
}

// NewClassTable builds a table where labels[i] names class id i. An empty string leaves that id
// unnamed. The input slice is copied.
func NewClassTable(labels []string) *ClassTable {
	return &ClassTable{labels: append([]string(nil), labels...)}
}

// NewPascalVOCClassTable returns a table over PascalVOCLabels.
func NewPascalVOCClassTable() *ClassTable {
	return NewClassTable(PascalVOCLabels)
}

// Len returns the number of ids the table covers.
func (ct *ClassTable) Len() int {
	if ct == nil {
		return 0
	}
	return len(ct.labels)
}

// Lookup returns the label for classID and whether the table has one.
func (ct *ClassTable) Lookup(classID int) (string, bool) {
	if ct == nil || classID < 0 || classID >= len(ct.labels) || ct.labels[classID] == "" {
		return "", false
	}
	return ct.labels[classID], true
}

// Label returns the label for classID, or UnknownLabel when the table has none.
func (ct *ClassTable) Label(classID int) string {
	if label, ok := ct.Lookup(classID); ok {
		return label
	}
	return UnknownLabel
}

// Labels returns a copy of every label in id order.
func (ct *ClassTable) Labels() []string {
	if ct == nil {
		return nil
	}
	return append([]string(nil), ct.labels...)
}

// LoadClassTable reads a labels file from disk. See ReadLabels for the format.
func LoadClassTable(path string) (ct *ClassTable, err error) {
	//nolint:gosec
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, "cannot open labels file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	labels, err := ReadLabels(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read labels file %q", path)
	}
	return NewClassTable(labels), nil
}

// ReadLabels reads one label per line, where the line number is the class id. If the whole input
// is a single line, it is split on commas, or failing that on runs of whitespace. Blank lines and
// empty comma fields leave their id unnamed rather than shifting later ids down.
func ReadLabels(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(labels) == 1 {
		labels = lo.Map(strings.Split(labels[0], ","), func(label string, _ int) string {
			return strings.TrimSpace(label)
		})
	}
	if len(labels) == 1 {
		labels = strings.Fields(labels[0])
	}
	if len(lo.Compact(labels)) == 0 {
		return nil, errors.New("no labels found")
	}
	return labels, nil
}
