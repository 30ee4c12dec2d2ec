package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/superres/internal/fault"
)

func TestValidateDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 16, cfg.Train.BatchSize)
	assert.Equal(t, int64(10000), cfg.Train.LogFreq)
	assert.Equal(t, []string{"Set5", "Set14", "BSD100"}, cfg.Benchmarks.Names)
}

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"zero batch", func(c *Config) { c.Train.BatchSize = 0 }, "train.batch_size"},
		{"zero log freq", func(c *Config) { c.Train.LogFreq = 0 }, "train.log_freq"},
		{"unknown loss", func(c *Config) { c.Train.ContentLoss = "vgg54" }, "train.content_loss"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"no val", func(c *Config) { c.Data.Val = "" }, "data.val"},
		{"no train source", func(c *Config) { c.Data.Train = "" }, "data.train"},
		{"influx without bucket", func(c *Config) { c.Influx.URL = "http://localhost:8086"; c.Influx.Org = "o" }, "influx.bucket"},
		{"bad status addr", func(c *Config) { c.Status.Addr = "nope" }, "status.addr"},
		{"empty benchmark name", func(c *Config) { c.Benchmarks.Names = []string{"Set5", ""} }, "benchmarks.names[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, fault.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateTrainDirReplacesContainer(t *testing.T) {
	cfg := Default()
	cfg.Data.Train = ""
	cfg.Data.TrainDir = "images"
	assert.NoError(t, cfg.Validate())
}

func TestValidateCrossField(t *testing.T) {
	cfg := Default()
	cfg.Run.Load = "results/a/weights-10"
	cfg.Run.LoadGen = "results/b/weights-10"
	cfg.Train.ImageSize = 97
	cfg.Train.BatchSize = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
	assert.Contains(t, err.Error(), "not a multiple")
	assert.Contains(t, err.Error(), "train.batch_size")
}

func TestLoad(t *testing.T) {
	t.Setenv("SUPERRES_TEST_ROOT", "/data/runs")
	path := filepath.Join(t.TempDir(), "superres.yaml")
	content := `
run:
  name: edge
  log_root: ${SUPERRES_TEST_ROOT}
train:
  batch_size: 8
  content_loss: edge_loss_L1
logging:
  progress_interval: 500ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "edge", cfg.Run.Name)
	assert.Equal(t, "/data/runs", cfg.Run.LogRoot)
	assert.Equal(t, 8, cfg.Train.BatchSize)
	assert.Equal(t, "edge_loss_L1", cfg.Train.ContentLoss)
	assert.Equal(t, 500*time.Millisecond, cfg.Logging.ProgressInterval)
	// Unset keys keep their defaults.
	assert.Equal(t, int64(10000), cfg.Train.LogFreq)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, fault.ErrConfiguration)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("train: [1, 2"), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, fault.ErrConfiguration)
}

func TestSubstituteEnvVarsKeepsUnset(t *testing.T) {
	t.Setenv("SUPERRES_SET", "x")
	out := substituteEnvVars([]byte("${SUPERRES_SET} ${SUPERRES_SURELY_UNSET_VAR}"))
	assert.Equal(t, "x ${SUPERRES_SURELY_UNSET_VAR}", string(out))
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Run.Name = "rt"
	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
