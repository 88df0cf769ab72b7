package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/export"
	"github.com/Robogera/trackassign/pkg/global"
	"github.com/Robogera/trackassign/pkg/indexed"
	"github.com/Robogera/trackassign/pkg/synapse"
	"github.com/Robogera/trackassign/pkg/track"
	"github.com/Robogera/trackassign/pkg/tracker"
)

// Destinations of the tracking results, nil channels and empty paths are skipped
type Outputs struct {
	Snapshots chan<- []byte
	Commands  chan<- *synapse.Command
	Sender    string
	Tracks    string
	Stats     chan<- Statistics
}

func (o Outputs) close() {
	if o.Snapshots != nil {
		close(o.Snapshots)
	}
	if o.Commands != nil {
		close(o.Commands)
	}
}

type session struct {
	tr         *tracker.Tracker
	out        *global.Output
	registry   *export.Registry
	outputs    Outputs
	message_id uint64
	logger     *slog.Logger
}

func (s *session) publish(ctx context.Context, command_type string, doc []byte) error {
	if s.outputs.Commands == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ERR_CANCELLED_BY_CONTEXT
	case s.outputs.Commands <- synapse.NewCommand(s.message_id, s.outputs.Sender, command_type, doc):
		s.message_id++
		return nil
	}
}

func (s *session) step(ctx context.Context, frame indexed.Indexed[[]detection.Detection]) error {
	start := time.Now()
	next, err := s.tr.OnlineTrack(s.out.Tracks, s.out.ActiveTrackIDs, frame.Value())
	if err != nil {
		s.logger.Error("Tracking failed", "frame", frame.Id(), "error", err)
		return fmt.Errorf("Can't track frame %d. Error: %w", frame.Id(), err)
	}
	s.out = next
	elapsed := time.Since(start)

	select {
	case s.outputs.Stats <- Statistics{
		Iteration: frame.Id(),
		Duration:  elapsed,
		Tracks:    len(next.Tracks),
		Active:    len(next.ActiveTrackIDs),
	}:
	default:
	}

	if s.outputs.Snapshots == nil && s.outputs.Commands == nil {
		return nil
	}
	doc, err := export.Snapshot(int(frame.Id()), next, s.registry)
	if err != nil {
		return fmt.Errorf("Can't export frame %d. Error: %w", frame.Id(), err)
	}
	if s.outputs.Snapshots != nil {
		select {
		case <-ctx.Done():
			return ERR_CANCELLED_BY_CONTEXT
		case s.outputs.Snapshots <- doc:
		}
	}
	return s.publish(ctx, synapse.TypeSnapshot, doc)
}

func (s *session) finish(ctx context.Context) error {
	final, err := s.tr.PostProcess(s.out)
	if err != nil {
		s.logger.Error("Post processing failed", "error", err)
		return fmt.Errorf("Can't post process tracks. Error: %w", err)
	}
	s.logger.Info("Tracking finished",
		"tracks", len(s.out.Tracks),
		"tracks after post processing", len(final.Tracks),
		"active", len(final.ActiveTrackIDs))
	if s.outputs.Tracks == "" && s.outputs.Commands == nil {
		return nil
	}
	// post processing reorders tracks, identities start over
	doc, err := export.Tracks(final, export.NewRegistry())
	if err != nil {
		return fmt.Errorf("Can't export tracks. Error: %w", err)
	}
	if s.outputs.Tracks != "" {
		if err := writeDocument(s.outputs.Tracks, doc); err != nil {
			return err
		}
	}
	return s.publish(ctx, synapse.TypeFinal, doc)
}

// Feeds frames to the tracker in index order, post processes once in_chan is closed
func tracking(
	ctx context.Context,
	parent_logger *slog.Logger,
	tr *tracker.Tracker,
	outputs Outputs,
	in_chan <-chan indexed.Indexed[[]detection.Detection],
) error {
	logger := parent_logger.With("coroutine", "tracking")
	defer outputs.close()

	s := &session{
		tr:       tr,
		out:      &global.Output{Tracks: make([]track.Track, 0), ActiveTrackIDs: make([]int, 0)},
		registry: export.NewRegistry(),
		outputs:  outputs,
		logger:   logger,
	}
	reorder := indexed.NewReorder[[]detection.Detection](0)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Tracking cancelled by context")
			return ERR_CANCELLED_BY_CONTEXT
		case frame, ok := <-in_chan:
			if !ok {
				if reorder.Pending() > 0 {
					return fmt.Errorf(
						"%d frames after missing frame %d. Error: %w",
						reorder.Pending(), reorder.Next(), errs.ERR_INVARIANT)
				}
				return s.finish(ctx)
			}
			reorder.Push(frame)
			for ready := range reorder.Ready() {
				if err := s.step(ctx, ready); err != nil {
					return err
				}
			}
		}
	}
}
