package main

import (
	"context"
	"log/slog"

	"github.com/Robogera/trackassign/pkg/config"
	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/indexed"
	"github.com/Robogera/trackassign/pkg/synapse"
	"github.com/Robogera/trackassign/pkg/tracker"

	"golang.org/x/sync/errgroup"
)

// Resolved input and output locations, empty disables an output
type Paths struct {
	Input     string
	Snapshots string
	Tracks    string
}

// reader -> parsers -> tracking -> (writer, mqttclient)
func pipeline(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.ConfigFile,
	paths Paths,
	tr *tracker.Tracker,
	stats_chan chan<- Statistics,
) error {
	eg, child_ctx := errgroup.WithContext(ctx)

	lines_chan := make(chan indexed.Indexed[[]byte], 64)
	frames_chan := make(chan indexed.Indexed[[]detection.Detection], 64)

	eg.Go(func() error {
		return reader(child_ctx, logger, paths.Input, lines_chan)
	})

	eg.Go(func() error {
		return parsers(child_ctx, logger, cfg.Tracker.Workers, lines_chan, frames_chan)
	})

	var snapshots_chan chan []byte
	if paths.Snapshots != "" {
		snapshots_chan = make(chan []byte, 64)
		eg.Go(func() error {
			return writer(child_ctx, logger, paths.Snapshots, snapshots_chan)
		})
	}

	var commands_chan chan *synapse.Command
	if cfg.Mqtt.Enabled {
		commands_chan = make(chan *synapse.Command, 64)
		eg.Go(func() error {
			return mqttclient(child_ctx, logger, cfg.Mqtt, commands_chan)
		})
	}

	eg.Go(func() error {
		return tracking(child_ctx, logger, tr, Outputs{
			Snapshots: snapshots_chan,
			Commands:  commands_chan,
			Sender:    cfg.Mqtt.Sender,
			Tracks:    paths.Tracks,
			Stats:     stats_chan,
		}, frames_chan)
	})

	return eg.Wait()
}
