package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/teachkit/internal/audit"
	"github.com/mcoot/teachkit/internal/audit/memory"
	"github.com/mcoot/teachkit/internal/dependencies/mocks"
	"github.com/mcoot/teachkit/internal/testutil"
)

type failingLog struct{}

func (failingLog) Record(ctx context.Context, ev audit.Event) error {
	return errors.New("disk full")
}

func (failingLog) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	return nil, nil
}

func TestRecorderStampsEvents(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	log := memory.New(10)
	r := audit.NewRecorder(log, mocks.NewMockClock(now), testutil.NopLogger())

	r.Record(context.Background(), audit.EventLogin, "alice", "")

	events, err := log.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, audit.EventLogin, events[0].Kind)
	assert.Equal(t, "alice", events[0].Username)
	assert.True(t, events[0].At.Equal(now))
}

// stallingLog blocks until the write context is done
type stallingLog struct{}

func (stallingLog) Record(ctx context.Context, ev audit.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stallingLog) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	return nil, nil
}

func TestRecorderBoundsSlowWrites(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	r := audit.NewRecorder(stallingLog{}, mocks.NewMockClock(time.Now()), logger).WithTimeout(20 * time.Millisecond)

	start := time.Now()
	r.Record(context.Background(), audit.EventLogin, "alice", "")

	assert.Less(t, time.Since(start), time.Second)
	assert.Contains(t, logs.String(), "failed to record audit event")
	assert.Contains(t, logs.String(), "deadline exceeded")
}

func TestRecorderSwallowsErrors(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	r := audit.NewRecorder(failingLog{}, mocks.NewMockClock(time.Now()), logger)

	r.Record(context.Background(), audit.EventLogout, "alice", "")

	assert.Contains(t, logs.String(), "failed to record audit event")
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *audit.Recorder
	r.Record(context.Background(), audit.EventLogin, "alice", "")
	assert.Nil(t, r.Log())
}
