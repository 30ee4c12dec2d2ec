package compute

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/superres/internal/fault"
)

func fakeHost() (HostInfo, error) {
	return HostInfo{LogicalCPUs: 8, CPUModel: "test", MemoryTotal: 16 << 30, MemoryAvailable: 8 << 30}, nil
}

func TestFor(t *testing.T) {
	for _, cfg := range []Config{DefaultConfig(), {Enabled: false}, {Enabled: true, NumWorkers: 3, MinChunkSize: 1}} {
		var counter int64
		seen := make([]int32, 100)
		For(100, func(i int) {
			atomic.AddInt64(&counter, 1)
			atomic.AddInt32(&seen[i], 1)
		}, cfg)
		assert.Equal(t, int64(100), counter)
		for i, n := range seen {
			assert.Equal(t, int32(1), n, "index %d", i)
		}
	}
}

func TestForBatch(t *testing.T) {
	batch, rows := 4, 8
	var hits [4][8]int32
	ForBatch(batch, rows, func(b, r int) {
		atomic.AddInt32(&hits[b][r], 1)
	}, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1})

	for b := range batch {
		for r := range rows {
			assert.Equal(t, int32(1), hits[b][r], "[%d][%d]", b, r)
		}
	}
}

func TestNew(t *testing.T) {
	c, err := New("0", 2, WithHostProbe(fakeHost))
	require.NoError(t, err)
	assert.Equal(t, DeviceCPU, c.Device)
	assert.Equal(t, "0", c.RequestedGPU)
	assert.Equal(t, 2, c.Parallel.NumWorkers)
	assert.True(t, c.Parallel.Enabled)
	assert.Equal(t, "test", c.Host.CPUModel)

	c, err = New("", 1, WithHostProbe(fakeHost))
	require.NoError(t, err)
	assert.False(t, c.Parallel.Enabled)
}

func TestNewProbeFailureIsNotFatal(t *testing.T) {
	c, err := New("0,1", 4, WithHostProbe(func() (HostInfo, error) {
		return HostInfo{}, errors.New("no /proc")
	}))
	require.NoError(t, err)
	assert.Equal(t, 4, c.Host.LogicalCPUs)
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New("gpu0", 0, WithHostProbe(fakeHost))
	assert.ErrorIs(t, err, fault.ErrConfiguration)

	_, err = New("0", -2, WithHostProbe(fakeHost))
	assert.ErrorIs(t, err, fault.ErrConfiguration)
}

func TestLogValue(t *testing.T) {
	c, err := New("0", 2, WithHostProbe(fakeHost))
	require.NoError(t, err)
	v := c.LogValue()
	assert.Equal(t, slog.KindGroup, v.Kind())
	assert.NotEmpty(t, v.Group())
}

func TestNilContextRunsSequentially(t *testing.T) {
	var c *Context
	var order []int
	c.For(4, func(i int) { order = append(order, i) })
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestContextForBatchCoversEveryRow(t *testing.T) {
	c, err := New("0", 3, WithHostProbe(fakeHost))
	require.NoError(t, err)

	var nilCtx *Context
	for _, ctx := range []*Context{c, nilCtx} {
		var hits [2][5]atomic.Int32
		ctx.ForBatch(2, 5, func(b, r int) { hits[b][r].Add(1) })
		for b := range hits {
			for r := range hits[b] {
				assert.Equal(t, int32(1), hits[b][r].Load())
			}
		}
	}
}
