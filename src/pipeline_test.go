package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Robogera/trackassign/pkg/config"
	"github.com/Robogera/trackassign/pkg/distance"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testConfig() *config.ConfigFile {
	min_age := 5.0
	cfg := config.Default()
	cfg.Tracker = config.TrackerConfig{
		Workers:   3,
		Distances: map[string]distance.Config{"iou": {Name: "iou"}},
		Stages: []config.StageConfig{
			{Thresholds: map[string]float64{"iou": 0.5}, AgeMode: "ascendant"},
		},
		Age: &config.AgeConfig{Min: &min_age},
	}
	return cfg
}

func run(t *testing.T, input string) (Paths, error) {
	dir := t.TempDir()
	paths := Paths{
		Input:     filepath.Join(dir, "in.jsonl"),
		Snapshots: filepath.Join(dir, "snapshots.jsonl"),
		Tracks:    filepath.Join(dir, "tracks.json"),
	}
	require.NoError(t, os.WriteFile(paths.Input, []byte(input), 0o644))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	tr, err := tracker.New(&cfg.Tracker, logger)
	require.NoError(t, err)
	return paths, pipeline(context.Background(), logger, cfg, paths, tr, make(chan Statistics, 100))
}

func TestPipeline(t *testing.T) {
	input := `[{"box":[0,0,100,100]},{"box":[1000,1000,100,100]}]
[{"box":[5,0,100,100]}]

[{"box":[10,0,100,100]}]
[]
`
	paths, err := run(t, input)
	require.NoError(t, err)

	snapshots, err := os.ReadFile(paths.Snapshots)
	require.NoError(t, err)
	lines := make([]gjson.Result, 0)
	scanner := bufio.NewScanner(bytes.NewReader(snapshots))
	for scanner.Scan() {
		lines = append(lines, gjson.ParseBytes(scanner.Bytes()))
	}
	require.Len(t, lines, 4)
	for i, line := range lines {
		assert.Equal(t, int64(i), line.Get("iteration").Int())
	}
	assert.Equal(t, int64(2), lines[0].Get("tracks.#").Int())
	first_id := lines[0].Get("tracks.0.id").String()
	assert.Equal(t, first_id, lines[2].Get("tracks.0.id").String())
	assert.Equal(t, int64(10), lines[2].Get("tracks.0.detection.box.0").Int())

	tracks, err := os.ReadFile(paths.Tracks)
	require.NoError(t, err)
	parsed := gjson.ParseBytes(tracks)
	assert.Equal(t, int64(2), parsed.Get("tracks.#").Int())
	assert.Equal(t, int64(4), parsed.Get("tracks.0.items.#").Int())
}

func TestPipelineBadFrame(t *testing.T) {
	_, err := run(t, "[]\n{\"box\":1}\n")
	assert.True(t, errors.Is(err, errs.ERR_DATA), "got %v", err)
}

func TestPipelineMissingInput(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	tr, err := tracker.New(&cfg.Tracker, logger)
	require.NoError(t, err)
	err = pipeline(context.Background(), logger, cfg, Paths{Input: filepath.Join(t.TempDir(), "nope")}, tr, nil)
	assert.True(t, errors.Is(err, ERR_BAD_INPUT))
}
