package main

import (
	"context"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observe"
	"github.com/kbukum/streamkit/stream"
)

// groupRecord is the JSON line written for every group.
type groupRecord struct {
	Seq   int      `json:"seq"`
	Lines []string `json:"lines"`
}

// chain composes same-typed stages left to right.
func chain[T any](stages ...stream.Transform[T, T]) stream.Transform[T, T] {
	return func(src stream.Iterator[T]) stream.Iterator[T] {
		it := src
		for _, stage := range stages {
			it = stage(it)
		}
		return it
	}
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// buildPipeline returns the transform
//
//	tap -> reject blank -> filter/reject match -> normalize -> batch -> write
//
// writing each group as one JSON line to out.
func buildPipeline(cfg PipelineConfig, obs *observe.Observer, out io.Writer) (stream.Transform[string, struct{}], error) {
	batch, err := stream.Batch[string](cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	log := logger.Get("pipeline")
	selection := []stream.Transform[string, string]{
		stream.Tap(func(ctx context.Context, line string) error {
			log.WithContext(ctx).Debug("line read", logger.Fields("bytes", len(line)))
			return nil
		}),
	}
	if !cfg.KeepBlank {
		selection = append(selection, stream.Reject(stream.Where(isBlank)))
	}
	if cfg.Match != "" {
		re, err := regexp.Compile(cfg.Match)
		if err != nil {
			return nil, err
		}
		matches := stream.Where(re.MatchString)
		if cfg.Invert {
			selection = append(selection, stream.Reject(matches))
		} else {
			selection = append(selection, stream.Filter(matches))
		}
	}

	normalize := stream.Map(func(_ context.Context, line string) (string, error) {
		line = strings.TrimRight(line, " \t")
		if cfg.Upper {
			line = strings.ToUpper(line)
		}
		return line, nil
	})

	// Encode runs to completion before EachP waits, so a cancelled run never
	// leaves a half-written line behind.
	enc := json.NewEncoder(out)
	write := stream.EachP(func(_ context.Context, g stream.Group[string]) stream.Pending {
		return stream.Done(enc.Encode(groupRecord{Seq: g.Seq, Lines: g.Items}))
	})

	return stream.Pipe(
		stream.Pipe(
			observe.Instrument(obs, "select", chain(selection...)),
			observe.Instrument(obs, "normalize", normalize),
		),
		stream.Pipe(
			observe.Instrument(obs, "batch", batch),
			observe.Instrument(obs, "write", write),
		),
	), nil
}
