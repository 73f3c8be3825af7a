package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplegate/internal/batch"
	"github.com/roach88/triplegate/internal/op"
)

func TestObserveBatch(t *testing.T) {
	m, reg := NewRegistered()

	m.ObserveBatch(batch.KindSave, 3, op.OK(op.Counts{Inserted: 3}), 5*time.Millisecond)
	m.ObserveBatch(batch.KindSave, 2, op.Fail(op.CodeDirty, op.MessageDirty), time.Millisecond)
	m.ObserveBatch(batch.KindRead, 1, op.OK(true), time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("save", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("save", "dirty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues("read", "ok")))

	n, err := testutil.GatherAndCount(reg, "triplegate_batches_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one histogram per kind")
}

func TestObserveStatements(t *testing.T) {
	m := New()

	m.ObserveStatements(batch.KindSave, 1)
	m.ObserveStatements(batch.KindSave, 2)
	m.ObserveStatements(batch.KindDestroy, 2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.StatementsTotal.WithLabelValues("save")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StatementsTotal.WithLabelValues("destroy")))
}

func TestRunsAndQueueDepth(t *testing.T) {
	m := New()

	m.RecordRun("ok")
	m.RecordRun("ok")
	m.RecordRun("contract_error")
	m.RecordQueueDepth(7)
	m.RecordQueueDepth(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("contract_error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.QueueDepth))
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()

	require.NoError(t, m.Register(reg))
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, m.Register(reg), &already)
}
