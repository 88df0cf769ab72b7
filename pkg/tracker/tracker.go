// Builds the whole tracking pipeline from configuration
package tracker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Robogera/trackassign/pkg/config"
	"github.com/Robogera/trackassign/pkg/dedup"
	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/distance"
	"github.com/Robogera/trackassign/pkg/enums"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/ghung"
	"github.com/Robogera/trackassign/pkg/global"
	"github.com/Robogera/trackassign/pkg/postprocess"
	"github.com/Robogera/trackassign/pkg/stage"
	"github.com/Robogera/trackassign/pkg/track"
)

type Tracker struct {
	global       *global.Global
	post_process postprocess.Chain
	get_time     track.TimeFunc
	logger       *slog.Logger
}

// Iteration index times time_step, the index itself when time_step is 0
func GetTime(time_step float64) track.TimeFunc {
	if time_step <= 0 {
		return track.Identity
	}
	return func(index int) float64 {
		return float64(index) * time_step
	}
}

func buildSortKey(cfg config.StageConfig, get_time track.TimeFunc) (stage.TrackSortKey, error) {
	if cfg.AgeMode == "" {
		return nil, nil
	}
	mode, err := enums.ParseAgeMode(cfg.AgeMode)
	if err != nil {
		return nil, err
	}
	key := stage.NewAgeSortKey(mode, get_time)
	key.MaxAge = cfg.MaxAge
	key.MinAge = cfg.MinAge
	key.DensityThreshold = cfg.DensityThreshold
	if cfg.ConfirmationCount > 0 {
		key.ConfirmationCount = cfg.ConfirmationCount
	}
	return key.TrackSortKey(), nil
}

func buildStages(cfg *config.TrackerConfig, distances distance.Set, get_time track.TimeFunc, logger *slog.Logger) ([]*stage.Stage, error) {
	kind, err := enums.ParseSolverKind(cfg.Solver)
	if err != nil {
		return nil, err
	}
	solver := ghung.New(kind)
	stages := make([]*stage.Stage, 0, len(cfg.Stages))
	for ind, stage_cfg := range cfg.Stages {
		sort_key, err := buildSortKey(stage_cfg, get_time)
		if err != nil {
			return nil, fmt.Errorf("Can't build stage %d. Error: %w", ind, err)
		}
		s, err := stage.New(stage.Options{
			Distances:    distances,
			Order:        stage_cfg.Order,
			Thresholds:   stage_cfg.Thresholds,
			Lambdas:      stage_cfg.Lambdas,
			TrackSortKey: sort_key,
			Solver:       solver,
			Logger:       logger.With("stage", ind),
			SlowDistance: time.Duration(cfg.SlowDistanceMs) * time.Millisecond,
			Workers:      cfg.Workers,
		})
		if err != nil {
			return nil, fmt.Errorf("Can't build stage %d. Error: %w", ind, err)
		}
		stages = append(stages, s)
	}
	return stages, nil
}

func buildPostProcess(cfg config.PostProcessConfig, g *global.Global, get_time track.TimeFunc, logger *slog.Logger) (postprocess.PostProcess, error) {
	switch cfg.Name {
	case config.PostProcessDensityFilter:
		return postprocess.NewDensityFilter(cfg.Threshold, get_time, logger)
	case config.PostProcessDedup:
		distances, err := distance.BuildSet(cfg.Distances, get_time)
		if err != nil {
			return nil, err
		}
		stages := make([]dedup.StageConfig, 0, len(cfg.Stages))
		for _, s := range cfg.Stages {
			stages = append(stages, dedup.StageConfig{Order: s.Order, Thresholds: s.Thresholds, Lambdas: s.Lambdas})
		}
		return dedup.New(dedup.Options{
			Iterator:   g,
			Distances:  distances,
			Stages:     stages,
			ForceMatch: cfg.ForceMatch,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("Unknown post process %q. Error: %w", cfg.Name, errs.ERR_CONFIGURATION)
	}
}

func New(cfg *config.TrackerConfig, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	get_time := GetTime(cfg.TimeStep)
	distances, err := distance.BuildSet(cfg.Distances, get_time)
	if err != nil {
		return nil, fmt.Errorf("Can't build distances. Error: %w", err)
	}
	stages, err := buildStages(cfg, distances, get_time, logger)
	if err != nil {
		return nil, err
	}
	var age *global.AgePolicy
	if cfg.Age != nil {
		age = &global.AgePolicy{
			Min:                 cfg.Age.Min,
			Max:                 cfg.Age.Max,
			MinCount:            cfg.Age.MinCount,
			DensityThreshold:    cfg.Age.DensityThreshold,
			GapDensityThreshold: cfg.Age.GapDensityThreshold,
		}
	}
	g, err := global.New(global.Options{
		Distances: distances,
		Stages:    stages,
		Age:       age,
		GetTime:   get_time,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	t := &Tracker{
		global:       g,
		post_process: make(postprocess.Chain, 0, len(cfg.PostProcesses)),
		get_time:     get_time,
		logger:       logger,
	}
	for ind, pp_cfg := range cfg.PostProcesses {
		pp, err := buildPostProcess(pp_cfg, g, get_time, logger.With("post_process", pp_cfg.Name))
		if err != nil {
			return nil, fmt.Errorf("Can't build post process %d. Error: %w", ind, err)
		}
		t.post_process = append(t.post_process, pp)
	}
	return t, nil
}

func (t *Tracker) Global() *global.Global {
	return t.global
}

func (t *Tracker) GetTime() track.TimeFunc {
	return t.get_time
}

func (t *Tracker) OnlineTrack(tracks []track.Track, active_ids []int, detections []detection.Detection) (*global.Output, error) {
	return t.global.OnlineTrack(tracks, active_ids, detections)
}

func (t *Tracker) Track(detections_by_iteration [][]detection.Detection, tracks []track.Track) (*global.Output, error) {
	return t.global.Track(detections_by_iteration, tracks)
}

func (t *Tracker) PostProcess(out *global.Output) (*global.Output, error) {
	return t.post_process.Run(out)
}

func (t *Tracker) TrackAndPostProcess(detections_by_iteration [][]detection.Detection, tracks []track.Track) (*global.Output, error) {
	out, err := t.Track(detections_by_iteration, tracks)
	if err != nil {
		return nil, err
	}
	return t.PostProcess(out)
}

func (t *Tracker) FrameInfo(tracks []track.Track, detections []detection.Detection) ([]global.StageInfo, error) {
	return t.global.FrameInfo(tracks, detections)
}
