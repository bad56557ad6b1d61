// Package dataset loads the three documents a story is built from: the
// classified paragraphs, the curated narrative and the lexical trends.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"github.com/louisbranch/budgetstory/internal/platform/errors"
	"github.com/louisbranch/budgetstory/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Document file names inside the data directory.
const (
	VizFile    = "viz_data.json"
	StoryFile  = "curated_story.json"
	TrendsFile = "word_trends.json"
)

// Bundle is the loaded, validated input of one story.
type Bundle struct {
	Viz    VizData
	Story  Story
	Trends Trends
}

// Load reads and validates the three documents concurrently. Any failure
// fails the whole load.
func Load(ctx context.Context, fsys fs.FS) (*Bundle, error) {
	ctx, span := otel.Tracer("story/dataset").Start(ctx, "dataset.load")
	defer span.End()

	var bundle Bundle
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		data, err := readDocument(ctx, fsys, VizFile)
		if err != nil {
			return err
		}
		viz, err := parseViz(data)
		if err != nil {
			return err
		}
		bundle.Viz = viz
		return nil
	})
	group.Go(func() error {
		data, err := readDocument(ctx, fsys, StoryFile)
		if err != nil {
			return err
		}
		story, err := parseStory(data)
		if err != nil {
			return err
		}
		bundle.Story = story
		return nil
	})
	group.Go(func() error {
		data, err := readDocument(ctx, fsys, TrendsFile)
		if err != nil {
			return err
		}
		trends, err := ParseTrends(data)
		if err != nil {
			return err
		}
		bundle.Trends = trends
		return nil
	})
	if err := group.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("dataset.paragraphs", len(bundle.Viz.Paragraphs)),
		attribute.Int("dataset.sections", len(bundle.Story.Sections)),
	)
	return &bundle, nil
}

func readDocument(ctx context.Context, fsys fs.FS, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeLoadFailed, "load "+name, err)
	}
	data, err := fs.ReadFile(fsys, path.Clean(name))
	if err != nil {
		return nil, &errors.Error{
			Code:     errors.CodeLoadFailed,
			Message:  "read " + name,
			Metadata: map[string]string{"file": name},
			Cause:    err,
		}
	}
	return data, nil
}

func decodeDocument(name string, data []byte, target any) error {
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(target); err != nil {
		return &errors.Error{
			Code:     errors.CodeInvalidDocument,
			Message:  "decode " + name,
			Metadata: map[string]string{"file": name},
			Cause:    err,
		}
	}
	return nil
}

func invalid(name, format string, args ...any) error {
	return errors.WithMetadata(errors.CodeInvalidDocument, fmt.Sprintf(format, args...), map[string]string{"file": name})
}
