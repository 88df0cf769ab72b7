package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/indexed"
	"github.com/Robogera/trackassign/pkg/rpath"

	"golang.org/x/sync/errgroup"
)

const max_line_size = 64 * 1024 * 1024

func openInput(path string) (io.ReadCloser, error) {
	if path == rpath.Std {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// One JSON array of detections per line, blank lines are skipped
func reader(
	ctx context.Context,
	parent_logger *slog.Logger,
	path string,
	out_chan chan<- indexed.Indexed[[]byte],
) error {
	logger := parent_logger.With("coroutine", "reader")
	defer close(out_chan)

	input, err := openInput(path)
	if err != nil {
		logger.Error("Can't open input", "path", path, "error", err)
		return fmt.Errorf("Can't open %s: %w. Error: %w", path, err, ERR_BAD_INPUT)
	}
	defer input.Close()

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), max_line_size)

	var id uint64
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			logger.Debug("Reader cancelled by context")
			return ERR_CANCELLED_BY_CONTEXT
		case out_chan <- indexed.NewIndexed(id, bytes.Clone(line)):
			id++
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("Input broken", "frames read", id, "error", err)
		return fmt.Errorf("Can't read frame %d: %w. Error: %w", id, err, ERR_BAD_INPUT)
	}
	logger.Info("Input ended", "frames read", id)
	return nil
}

// Parses frames on workers goroutines, output order is not preserved
func parsers(
	ctx context.Context,
	parent_logger *slog.Logger,
	workers int,
	in_chan <-chan indexed.Indexed[[]byte],
	out_chan chan<- indexed.Indexed[[]detection.Detection],
) error {
	logger := parent_logger.With("coroutine", "parser")
	defer close(out_chan)

	eg, child_ctx := errgroup.WithContext(ctx)
	for range max(workers, 1) {
		eg.Go(func() error {
			for line := range in_chan {
				detections, err := detection.ParseFrame(line.Value())
				if err != nil {
					logger.Error("Bad frame", "frame", line.Id(), "error", err)
					return fmt.Errorf("Can't parse frame %d. Error: %w", line.Id(), err)
				}
				select {
				case <-child_ctx.Done():
					return ERR_CANCELLED_BY_CONTEXT
				case out_chan <- indexed.NewIndexed(line.Id(), detections):
				}
			}
			return nil
		})
	}
	return eg.Wait()
}
