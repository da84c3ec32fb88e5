// SPDX-License-Identifier: Apache-2.0

package document

import (
	"context"

	"github.com/gemaraproj/entity-hierarchy/internal/extraction"
)

// EntityExtractor finds entities in a single text.
type EntityExtractor interface {
	Extract(text string) []extraction.Entity
}

// Annotation holds the entities of one segment. Entity offsets are relative
// to the whole document.
type Annotation struct {
	Segment  Segment             `json:"segment"`
	Entities []extraction.Entity `json:"entities"`
}

// Result is the output of Annotate.
type Result struct {
	Annotations []Annotation
	ParserUsed  string
	// EntityCount is the total number of entities over all segments.
	EntityCount int
}

// Annotate splits source and extracts entities per segment. Segments
// without entities are omitted.
func Annotate(ctx context.Context, splitter *Splitter, ex EntityExtractor, source Source) (Result, error) {
	segments, parser, err := splitter.Split(ctx, source)
	if err != nil {
		return Result{}, err
	}

	res := Result{ParserUsed: parser}
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		found := ex.Extract(seg.Text)
		if len(found) == 0 {
			continue
		}
		for i := range found {
			found[i].Start += seg.Offset
			found[i].End += seg.Offset
		}
		res.Annotations = append(res.Annotations, Annotation{Segment: seg, Entities: found})
		res.EntityCount += len(found)
	}
	return res, nil
}
