package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Robogera/trackassign/pkg/rpath"
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func openOutput(path string) (io.WriteCloser, error) {
	if path == rpath.Std {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

// Writes every document of in_chan on its own line until in_chan is closed
func writer(
	ctx context.Context,
	parent_logger *slog.Logger,
	path string,
	in_chan <-chan []byte,
) error {
	logger := parent_logger.With("coroutine", "writer")

	output, err := openOutput(path)
	if err != nil {
		logger.Error("Can't open output", "path", path, "error", err)
		return fmt.Errorf("Can't open %s: %w. Error: %w", path, err, ERR_BAD_OUTPUT)
	}
	defer output.Close()
	buffered := bufio.NewWriter(output)

	var written uint
	for {
		select {
		case <-ctx.Done():
			buffered.Flush()
			logger.Debug("Writer cancelled by context")
			return ERR_CANCELLED_BY_CONTEXT
		case doc, ok := <-in_chan:
			if !ok {
				if err := buffered.Flush(); err != nil {
					return fmt.Errorf("Can't flush %s: %w. Error: %w", path, err, ERR_BAD_OUTPUT)
				}
				logger.Info("Output closed", "path", path, "documents", written)
				return nil
			}
			if _, err := buffered.Write(doc); err != nil {
				return fmt.Errorf("Can't write to %s: %w. Error: %w", path, err, ERR_BAD_OUTPUT)
			}
			if err := buffered.WriteByte('\n'); err != nil {
				return fmt.Errorf("Can't write to %s: %w. Error: %w", path, err, ERR_BAD_OUTPUT)
			}
			written++
		}
	}
}

func writeDocument(path string, doc []byte) error {
	output, err := openOutput(path)
	if err != nil {
		return fmt.Errorf("Can't open %s: %w. Error: %w", path, err, ERR_BAD_OUTPUT)
	}
	defer output.Close()
	if _, err := output.Write(append(doc, '\n')); err != nil {
		return fmt.Errorf("Can't write to %s: %w. Error: %w", path, err, ERR_BAD_OUTPUT)
	}
	return nil
}
