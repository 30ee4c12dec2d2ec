package training

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/superres/internal/checkpoint"
	"github.com/born-ml/superres/internal/config"
	"github.com/born-ml/superres/internal/dataset"
	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/imaging"
	"github.com/born-ml/superres/internal/metriclog"
	"github.com/born-ml/superres/internal/rundir"
)

// testConfig lays out datasets and one benchmark under a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	paths := map[string]int{"train.srds": 4, "val.srds": 2, "eval.srds": 2}
	for name, n := range paths {
		require.NoError(t, dataset.Save(filepath.Join(root, name), samples(n, 16), nil))
	}
	hr := samples(1, 16)
	ims, err := hr.Slice(0, 1)
	require.NoError(t, err)
	require.NoError(t, imaging.SavePNG(filepath.Join(root, "bench", "Tiny", "HR", "img.png"), ims[0]))

	cfg := config.Default()
	cfg.Run.LogRoot = filepath.Join(root, "results")
	cfg.Run.Name = "e2e"
	cfg.Run.Epochs = 1
	cfg.Train.BatchSize = 2
	cfg.Train.LogFreq = 1
	cfg.Train.Scale = 2
	cfg.Train.ImageSize = 16
	cfg.Data.Train = filepath.Join(root, "train.srds")
	cfg.Data.Val = filepath.Join(root, "val.srds")
	cfg.Data.Eval = filepath.Join(root, "eval.srds")
	cfg.Benchmarks.Root = filepath.Join(root, "bench")
	cfg.Benchmarks.Names = []string{"Tiny"}
	cfg.Compute.GPU = ""
	cfg.Compute.Workers = 2
	cfg.Logging.ProgressInterval = 0
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestSessionTrainAndResume(t *testing.T) {
	cfg := testConfig(t)

	s, err := NewSession(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, s.Restored)
	loop, err := s.Prepare(context.Background(), []string{"superres", "--name", "e2e"})
	require.NoError(t, err)
	require.NoError(t, loop.Run(context.Background()))
	s.Close()

	dir := filepath.Join(cfg.Run.LogRoot, "e2e")
	for _, f := range []string{
		metriclog.FileName, metriclog.ValPlotFile, metriclog.EvalPlotFile,
		metriclog.ProgressionFileName, checkpoint.GraphFile,
		rundir.CommandFile, rundir.ConfigFile, "weights-0", "weights-1",
	} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
	assert.Equal(t, int64(2), loop.Iteration())

	// Resume from the directory: the latest checkpoint is weights-1, written
	// during epoch 0, so one more pass runs.
	cfg.Run.Name = ""
	cfg.Run.Load = dir
	s, err = NewSession(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, s.Restored)
	assert.Equal(t, int64(1), s.Restored.Iteration)

	loop, err = s.Prepare(context.Background(), []string{"superres", "--load", dir})
	require.NoError(t, err)
	assert.Len(t, loop.History(), 2)
	require.NoError(t, loop.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, metriclog.FileName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[2], "2, "))
	assert.Equal(t, int64(3), loop.Iteration())

	// The reused directory keeps its original command line.
	cmd, err := os.ReadFile(filepath.Join(dir, rundir.CommandFile))
	require.NoError(t, err)
	assert.Equal(t, "superres --name e2e\n", string(cmd))
}

func TestSessionLoadGenStartsAtZero(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewSession(cfg, nil)
	require.NoError(t, err)
	loop, err := s.Prepare(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, loop.Run(context.Background()))

	cfg.Run.LoadGen = checkpoint.PathFor(filepath.Join(cfg.Run.LogRoot, "e2e"), 1)
	cfg.Run.Name = "gen"
	s, err = NewSession(cfg, nil)
	require.NoError(t, err)
	loop, err = s.Prepare(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, loop.Iteration())
	assert.Equal(t, filepath.Join(cfg.Run.LogRoot, "gen"), loop.Snapshot().RunDir)
}

func TestSessionScoreBenchmarks(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewSession(cfg, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	results, err := s.ScoreBenchmarks(context.Background(), &out)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Regexp(t, `^ \[Tiny\] PSNR: \d+\.\d{2}, SSIM: -?\d\.\d{4}\n$`, out.String())

	// No run directory is created in this mode.
	_, err = os.Stat(cfg.Run.LogRoot)
	assert.True(t, os.IsNotExist(err))
}

func TestSessionScoreBenchmarksWritesIntoLoadedRun(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewSession(cfg, nil)
	require.NoError(t, err)
	loop, err := s.Prepare(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, loop.Run(context.Background()))
	s.Close()

	dir := filepath.Join(cfg.Run.LogRoot, "e2e")
	cfg.Run.Name = ""
	cfg.Run.Load = dir
	cfg.Run.IsVal = true
	s, err = NewSession(cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	var out bytes.Buffer
	_, err = s.ScoreBenchmarks(context.Background(), &out)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, ExamplesDir, "Tiny", "1", "img.png"))
}

func TestSessionValidateBenchmarks(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewSession(cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	// Not requested: the missing reference.yaml is not looked at.
	require.NoError(t, s.ValidateBenchmarks(context.Background()))

	cfg.Benchmarks.Validate = true
	err = s.ValidateBenchmarks(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrBenchmarkIntegrity)
	stage, ok := fault.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, fault.StageValidate, stage)
}

func TestSessionStartupErrors(t *testing.T) {
	t.Run("missing checkpoint", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Run.Load = filepath.Join(t.TempDir(), "weights-5")
		_, err := NewSession(cfg, nil)
		assert.ErrorIs(t, err, fault.ErrConfiguration)
		stage, _ := fault.StageOf(err)
		assert.Equal(t, fault.StageRestore, stage)
	})

	t.Run("missing dataset", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Data.Val = filepath.Join(t.TempDir(), "nope.srds")
		s, err := NewSession(cfg, nil)
		require.NoError(t, err)
		_, err = s.Prepare(context.Background(), nil)
		assert.ErrorIs(t, err, fault.ErrDataset)
		stage, _ := fault.StageOf(err)
		assert.Equal(t, fault.StageDatasetLoad, stage)
	})

	t.Run("benchmark validation", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Benchmarks.Validate = true
		s, err := NewSession(cfg, nil)
		require.NoError(t, err)
		_, err = s.Prepare(context.Background(), nil)
		assert.ErrorIs(t, err, fault.ErrBenchmarkIntegrity)
		// Validation runs before the run directory is allocated.
		_, statErr := os.Stat(cfg.Run.LogRoot)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("gan", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Train.UseGAN = true
		_, err := NewSession(cfg, nil)
		assert.ErrorIs(t, err, fault.ErrConfiguration)
	})
}
