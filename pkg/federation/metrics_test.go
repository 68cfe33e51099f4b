package federation

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncMetricsCreation(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewSyncMetrics(registry)

	require.NotNil(t, metrics.Exports)
	require.NotNil(t, metrics.ImportStates)
	require.NotNil(t, metrics.ArticlesMerged)

	metrics.observeExport(time.Now(), 3, nil)
	metrics.observeExport(time.Now(), 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Exports.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Exports.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ExportedItems))

	count, err := testutil.GatherAndCount(registry, "articlesync_operation_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSyncMetricsNilIsSafe(t *testing.T) {
	var metrics *SyncMetrics

	assert.NotPanics(t, func() {
		metrics.observeExport(time.Now(), 1, nil)
		metrics.observeState(StateMerged)
		metrics.observeImport(time.Now(), 2)
	})
}

func TestImportStateString(t *testing.T) {
	assert.Equal(t, "verification_failed", StateVerificationFailed.String())
	assert.Equal(t, "merged", StateMerged.String())
	assert.Equal(t, "unknown(42)", ImportState(42).String())
	assert.False(t, StateConverting.Terminal())
	assert.True(t, StateMergeFailed.Terminal())
}
