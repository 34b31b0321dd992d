package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"reflect"
	"sort"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/obstaclealert/logging"
)

// Read reads a config from the given file, substituting ${VAR} style environment variables
// first.
func Read(
	ctx context.Context,
	filePath string,
	logger logging.Logger,
) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", filePath)
	}

	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(
	ctx context.Context,
	originalPath string,
	r io.Reader,
	logger logging.Logger,
) (*Config, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}

	cfg := Default()
	cfg.ConfigFilePath = originalPath
	sections := map[string]interface{}{
		"fusion":    &cfg.Fusion,
		"pipeline":  &cfg.Pipeline,
		"announcer": &cfg.Announcer,
		"log":       &cfg.Log,
	}
	names := lo.Keys(raw)
	sort.Strings(names)
	for _, name := range names {
		out, ok := sections[name]
		if !ok {
			logger.Warnw("ignoring unknown config section", "section", name, "path", originalPath)
			continue
		}
		unused, err := decodeSection(raw[name], out)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding %q section", name)
		}
		for _, key := range unused {
			logger.Warnw("ignoring unknown config attribute", "section", name, "attribute", key)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %q", originalPath)
	}
	logger.CDebugw(ctx, "read config", "path", originalPath, "sections", len(raw))
	return cfg, nil
}

// decodeSection decodes a JSON object onto out, leaving fields it does not mention untouched.
func decodeSection(attributes, out interface{}) ([]string, error) {
	if attributes == nil {
		return nil, nil
	}
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     out,
		Metadata:   &md,
		DecodeHook: mapstructure.DecodeHookFuncType(rejectFractionalInts),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, err
	}
	sort.Strings(md.Unused)
	return md.Unused, nil
}

// rejectFractionalInts stops mapstructure from silently truncating a JSON number such as 1.5 into
// an integer field.
func rejectFractionalInts(from, to reflect.Type, data interface{}) (interface{}, error) {
	f, ok := data.(float64)
	if !ok || from.Kind() != reflect.Float64 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f != math.Trunc(f) {
			return nil, errors.Errorf("expected a whole number, got %v", f)
		}
	default:
	}
	return data, nil
}
