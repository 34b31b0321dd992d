package logging

import (
	"context"

	"go.viam.com/utils"
)

type debugTagKey struct{}

// debugTagField is the field name CDebugw adds to lines written because of a debug tag.
const debugTagField = "debug_tag"

// WithDebugTag marks ctx so that CDebugw writes regardless of the logger's level. Every such line
// carries tag in its debug_tag field; an empty tag is replaced with a random one so the lines of
// one run can be grepped together.
func WithDebugTag(ctx context.Context, tag string) context.Context {
	if tag == "" {
		tag = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugTagKey{}, tag)
}

// DebugTag returns the tag set by WithDebugTag, or "" when ctx has none.
func DebugTag(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	tag, _ := ctx.Value(debugTagKey{}).(string)
	return tag
}
