package fault

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageErrorMessage(t *testing.T) {
	err := At(StageCheckpointSave, "results/run/weights-10", errors.New("disk full"))
	assert.Equal(t, "checkpoint save: results/run/weights-10: disk full", err.Error())

	err = At(StageEvaluate, "", errors.New("boom"))
	assert.Equal(t, "evaluate: boom", err.Error())
}

func TestAtNil(t *testing.T) {
	assert.NoError(t, At(StageLogAppend, "loss.csv", nil))
}

func TestTaxonomyUnwraps(t *testing.T) {
	err := At(StageRestore, "weights-x", Configf("batch size %d", 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.NotErrorIs(t, err, ErrDataset)

	stage, ok := StageOf(err)
	require.True(t, ok)
	assert.Equal(t, StageRestore, stage)

	_, ok = StageOf(Datasetf("empty"))
	assert.False(t, ok)
	assert.ErrorIs(t, Datasetf("empty"), ErrDataset)
}
