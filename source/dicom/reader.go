// Package dicom reads DICOM tag values for the attribute extractor.
package dicom

import (
	"context"
	"fmt"
	"strconv"

	"github.com/c360studio/semcat/source"
	"github.com/suyashkumar/dicom"
)

// Reader implements source.TagReader on top of the suyashkumar/dicom parser.
// Pixel data is never decoded.
type Reader struct{}

// NewReader returns a DICOM tag reader.
func NewReader() *Reader { return &Reader{} }

// ReadTags parses path and returns every scalar element as text. Sequences
// and binary values are skipped.
func (r *Reader) ReadTags(ctx context.Context, path string) (tags map[source.Tag][]string, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The parser panics on some truncated inputs.
	defer func() {
		if rec := recover(); rec != nil {
			tags, err = nil, fmt.Errorf("parse %s: %v", path, rec)
		}
	}()

	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	tags = make(map[source.Tag][]string, len(ds.Elements))
	for _, el := range ds.Elements {
		if el == nil || el.Value == nil {
			continue
		}
		values := textValues(el.Value.GetValue())
		if values == nil {
			continue
		}
		tags[source.Tag{Group: el.Tag.Group, Element: el.Tag.Element}] = values
	}
	return tags, nil
}

func textValues(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []int:
		out := make([]string, len(vals))
		for i, n := range vals {
			out[i] = strconv.Itoa(n)
		}
		return out
	case []float64:
		out := make([]string, len(vals))
		for i, f := range vals {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
		}
		return out
	default:
		return nil
	}
}

var _ source.TagReader = (*Reader)(nil)
