package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Robogera/trackassign/pkg/distance"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	PostProcessDedup         = "dedup"
	PostProcessDensityFilter = "density-filter"
)

// Config file structure

type ConfigFile struct {
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Input   InputConfig   `toml:"input" yaml:"input"`
	Output  OutputConfig  `toml:"output" yaml:"output"`
	Mqtt    MqttConfig    `toml:"mqtt" yaml:"mqtt"`
	Tracker TrackerConfig `toml:"tracker" yaml:"tracker"`
}

type LoggingConfig struct {
	Level         string `toml:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	StatPeriodSec uint   `toml:"stat_period_sec" yaml:"stat_period_sec"`
}

// JSON lines, one array of detections per iteration. "-" is stdin
type InputConfig struct {
	Path string `toml:"path" yaml:"path" validate:"required"`
}

type OutputConfig struct {
	// one snapshot per iteration, "-" is stdout, empty disables
	SnapshotPath string `toml:"snapshot_path" yaml:"snapshot_path"`
	// tracks after post processing, empty disables
	TracksPath string `toml:"tracks_path" yaml:"tracks_path"`
}

type MqttConfig struct {
	Enabled      bool   `toml:"enabled" yaml:"enabled"`
	Address      string `toml:"address" yaml:"address" validate:"required_if=Enabled true"`
	ClientID     string `toml:"client_id" yaml:"client_id"`
	Topic        string `toml:"topic" yaml:"topic" validate:"required_if=Enabled true"`
	Sender       string `toml:"sender" yaml:"sender"`
	TimeoutSec   uint   `toml:"timeout_sec" yaml:"timeout_sec"`
	KeepAliveSec uint16 `toml:"keep_alive_sec" yaml:"keep_alive_sec"`
}

type TrackerConfig struct {
	Solver  string `toml:"solver" yaml:"solver" validate:"omitempty,oneof=hungarian munkres"`
	Workers int    `toml:"workers" yaml:"workers" validate:"gte=0"`
	// distances slower than this are logged at debug, 0 disables
	SlowDistanceMs uint `toml:"slow_distance_ms" yaml:"slow_distance_ms"`
	// seconds between iterations, 0 counts iterations
	TimeStep      float64                    `toml:"time_step" yaml:"time_step" validate:"gte=0"`
	Distances     map[string]distance.Config `toml:"distances" yaml:"distances" validate:"required,min=1,dive"`
	Stages        []StageConfig              `toml:"stages" yaml:"stages" validate:"required,min=1,dive"`
	Age           *AgeConfig                 `toml:"age,omitempty" yaml:"age,omitempty"`
	PostProcesses []PostProcessConfig        `toml:"post_processes" yaml:"post_processes" validate:"dive"`
}

type StageConfig struct {
	Order      []string           `toml:"order,omitempty" yaml:"order,omitempty"`
	Thresholds map[string]float64 `toml:"thresholds" yaml:"thresholds" validate:"required,min=1"`
	Lambdas    map[string]float64 `toml:"lambdas,omitempty" yaml:"lambdas,omitempty"`
	// empty keeps a single stratum
	AgeMode           string   `toml:"age_mode,omitempty" yaml:"age_mode,omitempty" validate:"omitempty,oneof=ascendant all confirmed-ascendant confirmed-all"`
	MaxAge            *int     `toml:"max_age,omitempty" yaml:"max_age,omitempty"`
	MinAge            *int     `toml:"min_age,omitempty" yaml:"min_age,omitempty"`
	DensityThreshold  *float64 `toml:"density_threshold,omitempty" yaml:"density_threshold,omitempty"`
	ConfirmationCount int      `toml:"confirmation_count,omitempty" yaml:"confirmation_count,omitempty" validate:"gte=0"`
}

type AgeConfig struct {
	// no lower limit when unset
	Min                 *float64 `toml:"min,omitempty" yaml:"min,omitempty" validate:"omitempty,gte=0"`
	Max                 *float64 `toml:"max,omitempty" yaml:"max,omitempty"`
	MinCount            int      `toml:"min_count,omitempty" yaml:"min_count,omitempty" validate:"gte=0"`
	DensityThreshold    *float64 `toml:"density_threshold,omitempty" yaml:"density_threshold,omitempty"`
	GapDensityThreshold *float64 `toml:"gap_density_threshold,omitempty" yaml:"gap_density_threshold,omitempty"`
}

type DedupStageConfig struct {
	Order      []string           `toml:"order,omitempty" yaml:"order,omitempty"`
	Thresholds map[string]float64 `toml:"thresholds" yaml:"thresholds" validate:"required,min=1"`
	Lambdas    map[string]float64 `toml:"lambdas,omitempty" yaml:"lambdas,omitempty"`
}

type PostProcessConfig struct {
	Name string `toml:"name" yaml:"name" validate:"required,oneof=dedup density-filter"`
	// density-filter
	Threshold float64 `toml:"threshold,omitempty" yaml:"threshold,omitempty" validate:"required_if=Name density-filter,gte=0"`
	// dedup, track to track distances
	Distances  map[string]distance.Config `toml:"distances,omitempty" yaml:"distances,omitempty" validate:"required_if=Name dedup,dive"`
	Stages     []DedupStageConfig         `toml:"stages,omitempty" yaml:"stages,omitempty" validate:"required_if=Name dedup,dive"`
	ForceMatch bool                       `toml:"force_match,omitempty" yaml:"force_match,omitempty"`
}

func isYaml(file_path string) bool {
	ext := strings.ToLower(filepath.Ext(file_path))
	return ext == ".yaml" || ext == ".yml"
}

// Reads a TOML config file, or a YAML one for .yaml and .yml files
func Unmarshal(file_path string) (*ConfigFile, error) {
	config_file := new(ConfigFile)
	data, err := os.ReadFile(file_path)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read %s", file_path)
	}
	if isYaml(file_path) {
		err = yaml.Unmarshal(data, config_file)
	} else {
		err = toml.Unmarshal(data, config_file)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to unmarshal %s", file_path)
	}
	if err := Validate(config_file); err != nil {
		return nil, errors.Wrapf(err, "Invalid config %s", file_path)
	}
	return config_file, nil
}

func Validate(config_file *ConfigFile) error {
	return validator.New().Struct(config_file)
}

func Marshal(config_file *ConfigFile, yaml_format bool) ([]byte, error) {
	if yaml_format {
		return yaml.Marshal(config_file)
	}
	return toml.Marshal(config_file)
}

func ptr[T any](v T) *T {
	return &v
}

// Tracks boxes with a constant velocity motion model first,
// then with box overlap only for what is left
func Default() *ConfigFile {
	return &ConfigFile{
		Logging: LoggingConfig{Level: "info", StatPeriodSec: 10},
		Input:   InputConfig{Path: "-"},
		Output:  OutputConfig{SnapshotPath: "-"},
		Mqtt: MqttConfig{
			Address:      "127.0.0.1:1883",
			ClientID:     "trackassign",
			Topic:        "tracks",
			Sender:       "trackassign",
			TimeoutSec:   5,
			KeepAliveSec: 30,
		},
		Tracker: TrackerConfig{
			Solver:         "munkres",
			Workers:        1,
			SlowDistanceMs: 50,
			TimeStep:       0,
			Distances: map[string]distance.Config{
				"iou": {Name: "iou", BoxKey: "box"},
				"mahalanobis": {
					Name:           "mahalanobis",
					ObservationKey: "box",
					Kalman: distance.KalmanConfig{
						Dynamic:             "constant-velocity",
						Dimension:           4,
						ProcessVariance:     1,
						MeasurementVariance: 10,
						InitVariance:        1e4,
					},
				},
			},
			Stages: []StageConfig{
				{
					Order:      []string{"iou", "mahalanobis"},
					Thresholds: map[string]float64{"iou": 0.7, "mahalanobis": 3.5},
					Lambdas:    map[string]float64{"iou": 1, "mahalanobis": 0.1},
					AgeMode:    "ascendant",
					MaxAge:     ptr(30),
				},
				{
					Thresholds: map[string]float64{"iou": 0.5},
					AgeMode:    "all",
					MaxAge:     ptr(3),
				},
			},
			Age: &AgeConfig{Min: ptr(3.0), Max: ptr(30.0), MinCount: 1},
			PostProcesses: []PostProcessConfig{
				{Name: PostProcessDensityFilter, Threshold: 0.2},
			},
		},
	}
}

// Writes the default config to file_path, TOML unless the extension says YAML
func CreateDefault(file_path string) error {
	data, err := Marshal(Default(), isYaml(file_path))
	if err != nil {
		return errors.Wrap(err, "Can't marshal default config")
	}
	if err := os.WriteFile(file_path, data, 0o644); err != nil {
		return errors.Wrapf(err, "Can't write %s", file_path)
	}
	return nil
}
