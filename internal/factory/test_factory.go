package factory

import (
	"time"

	"github.com/mcoot/teachkit/internal/audit/memory"
	"github.com/mcoot/teachkit/internal/config"
	"github.com/mcoot/teachkit/internal/dependencies/mocks"
	"github.com/mcoot/teachkit/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	AuditMem  *memory.Log
}

// NewTestApp creates an App talking to the backend at baseURL, with a mock
// clock driving every delayed action
func NewTestApp(baseURL string) (*TestApp, error) {
	core := config.Default()
	core.Gateway.BaseURL = baseURL
	core.Gateway.Timeout = 5 * time.Second

	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	auditMem := memory.New(64)

	app, err := newWithDependencies(core, auditMem, mockClock, nil, testutil.NopLogger())
	if err != nil {
		return nil, err
	}

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		AuditMem:  auditMem,
	}, nil
}

// Settle advances the mock clock far enough for every pending flow delay to fire
func (t *TestApp) Settle() {
	t.MockClock.Advance(time.Minute)
}
