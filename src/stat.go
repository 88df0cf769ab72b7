package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/Robogera/trackassign/pkg/gsma"
)

type Statistics struct {
	Iteration uint64
	Duration  time.Duration
	Tracks    int
	Active    int
}

// Logs throughput every stat_period_sec, 0 only drains stats
func stat(ctx context.Context, parent_logger *slog.Logger, stats <-chan Statistics, stat_period_sec uint) error {
	logger := parent_logger.With("coroutine", "stat")
	sma, err := gsma.NewSMA[time.Duration](64)
	if err != nil {
		return err
	}

	var tick <-chan time.Time
	if stat_period_sec > 0 {
		ticker := time.NewTicker(time.Second * time.Duration(stat_period_sec))
		defer ticker.Stop()
		tick = ticker.C
	}

	var frames uint = 0
	var frames_since_last_tick uint = 0
	var last Statistics
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Stat cancelled by context", "frames processed", frames)
			return context.Canceled
		case s := <-stats:
			frames++
			frames_since_last_tick++
			sma.Recalc(s.Duration)
			last = s
		case <-tick:
			logger.Info("Stats",
				"frames processed", frames,
				"frames per second", float64(frames_since_last_tick)/float64(stat_period_sec),
				"average iteration time", time.Duration(sma.Show()),
				"tracks", last.Tracks,
				"active tracks", last.Active)
			frames_since_last_tick = 0
		}
	}
}
