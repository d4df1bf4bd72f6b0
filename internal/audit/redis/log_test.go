package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teachkit/internal/audit"
)

type LogSuite struct {
	suite.Suite
	mini *miniredis.Miniredis
	log  *Log
	ctx  context.Context
}

func TestLogSuite(t *testing.T) {
	suite.Run(t, new(LogSuite))
}

func (s *LogSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.MaxEvents = 3
	cfg.TTL = time.Hour

	s.log = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *LogSuite) TearDownTest() {
	if s.log != nil {
		_ = s.log.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *LogSuite) record(n int) {
	for i := 0; i < n; i++ {
		s.Require().NoError(s.log.Record(s.ctx, audit.Event{
			ID:       fmt.Sprintf("ev-%d", i),
			Kind:     audit.EventLogin,
			Username: "alice",
			At:       time.Date(2026, 1, 1, 12, i, 0, 0, time.UTC),
		}))
	}
}

func (s *LogSuite) TestRecordAndRecent() {
	s.record(2)

	events, err := s.log.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("ev-1", events[0].ID)
	s.Equal("alice", events[0].Username)
	s.Equal(audit.EventLogin, events[0].Kind)
	s.True(events[1].At.Equal(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)))
}

func (s *LogSuite) TestListIsCapped() {
	s.record(5)

	events, err := s.log.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal("ev-4", events[0].ID)
	s.Equal("ev-2", events[2].ID)
}

func (s *LogSuite) TestRecentLimit() {
	s.record(3)

	events, err := s.log.Recent(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("ev-2", events[0].ID)
}

func (s *LogSuite) TestTTLApplied() {
	s.record(1)

	s.True(s.mini.Exists("teachkit:audit:events"))
	s.Equal(time.Hour, s.mini.TTL("teachkit:audit:events"))

	s.mini.FastForward(2 * time.Hour)
	events, err := s.log.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *LogSuite) TestCorruptEntry() {
	_, err := s.mini.Lpush("teachkit:audit:events", "{not json")
	s.Require().NoError(err)

	_, err = s.log.Recent(s.ctx, 0)
	s.Error(err)
}

func (s *LogSuite) TestNegativeLimit() {
	_, err := s.log.Recent(s.ctx, -2)
	s.ErrorIs(err, audit.ErrInvalidLimit)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(Config{URL: "://nope"})
	if err == nil {
		t.Fatal("expected error for malformed url")
	}
}
