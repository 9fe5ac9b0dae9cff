package notify

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgbackup/internal/models"
	"pgbackup/internal/state"
)

type mockBroker struct {
	published [][]byte
	publishFn func(message []byte) error
}

func (m *mockBroker) Publish(message []byte) error {
	m.published = append(m.published, message)
	if m.publishFn != nil {
		return m.publishFn(message)
	}
	return nil
}

func (m *mockBroker) Close() error { return nil }

func TestNotifier_JobCompleted(t *testing.T) {
	broker := &mockBroker{}
	notifier := NewNotifier(broker)

	ranAt := time.Date(2025, time.June, 16, 2, 0, 0, 0, time.UTC)
	next := ranAt.Add(24 * time.Hour)

	job := models.BackupJob{ID: 7, ServerID: 3, Name: "nightly"}
	res := models.JobResult{
		JobID:   7,
		Status:  state.StatusSucceeded,
		RanAt:   ranAt,
		NextRun: &next,
	}

	notifier.JobCompleted(job, res)

	require.Len(t, broker.published, 1)

	var event Event
	require.NoError(t, json.Unmarshal(broker.published[0], &event))
	assert.Equal(t, int64(7), event.JobID)
	assert.Equal(t, int64(3), event.ServerID)
	assert.Equal(t, "nightly", event.Name)
	assert.Equal(t, state.StatusSucceeded, event.Status)
	assert.Empty(t, event.Error)
	assert.True(t, event.RanAt.Equal(ranAt))
	require.NotNil(t, event.NextRun)
	assert.True(t, event.NextRun.Equal(next))
}

func TestNotifier_JobCompleted_FailureCarriesError(t *testing.T) {
	broker := &mockBroker{}
	notifier := NewNotifier(broker)

	res := models.JobResult{
		JobID:  9,
		Err:    errors.New("pg_dump exited 1"),
		Status: state.StatusFailed,
		RanAt:  time.Now(),
	}

	notifier.JobCompleted(models.BackupJob{ID: 9}, res)

	require.Len(t, broker.published, 1)

	var event Event
	require.NoError(t, json.Unmarshal(broker.published[0], &event))
	assert.Equal(t, state.StatusFailed, event.Status)
	assert.Equal(t, "pg_dump exited 1", event.Error)
}

func TestNotifier_NilIsNoOp(t *testing.T) {
	var notifier *Notifier

	assert.NotPanics(t, func() {
		notifier.JobCompleted(models.BackupJob{ID: 1}, models.JobResult{})
	})
}

func TestNotifier_PublishErrorIsSwallowed(t *testing.T) {
	broker := &mockBroker{publishFn: func([]byte) error { return errors.New("channel closed") }}
	notifier := NewNotifier(broker)

	assert.NotPanics(t, func() {
		notifier.JobCompleted(models.BackupJob{ID: 2}, models.JobResult{Status: state.StatusSucceeded, RanAt: time.Now()})
	})
	assert.Len(t, broker.published, 1)
}
