package gatekeeper

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/policy"
	"gatekeeper/internal/privacy"
	"gatekeeper/internal/ratelimit/store/bucket"
	"gatekeeper/internal/session"
	"gatekeeper/internal/validator"

	ratelimit "gatekeeper/internal/ratelimit/service"
)

// countingExecutor records invocations and plays back a scripted outcome.
type countingExecutor struct {
	calls    atomic.Int64
	response string
	err      error
	panics   bool
}

func (e *countingExecutor) Execute(context.Context, string, string) (string, error) {
	e.calls.Add(1)
	if e.panics {
		panic("executor blew up")
	}
	return e.response, e.err
}

type PipelineSuite struct {
	suite.Suite
	ctx        context.Context
	exec       *countingExecutor
	auditStore *audit.InMemoryStore
	sessions   *session.Registry
	privacy    *privacy.Ledger
	service    *Service
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctx = context.Background()
	s.exec = &countingExecutor{response: "all good"}
	s.service = s.newService(5, s.exec)
}

// newService wires a full pipeline over in-memory stores.
func (s *PipelineSuite) newService(rateLimit int, exec *countingExecutor) *Service {
	limiter, err := ratelimit.New(bucket.NewInMemoryStore(), rateLimit, 60*time.Second, nil, nil)
	s.Require().NoError(err)

	s.sessions, err = session.NewRegistry(session.NewInMemoryStore(), 1800*time.Second, nil)
	s.Require().NoError(err)

	v, err := validator.New()
	s.Require().NoError(err)

	s.privacy, err = privacy.NewLedger(privacy.NewInMemoryStore(), 30, nil)
	s.Require().NoError(err)

	s.auditStore = audit.NewInMemoryStore()
	recorder, err := audit.NewRecorder(s.auditStore, nil)
	s.Require().NoError(err)

	service, err := New(Config{
		Limiter:         limiter,
		Sessions:        s.sessions,
		Validator:       v,
		Policy:          policy.New(nil),
		Privacy:         s.privacy,
		Recorder:        recorder,
		Executor:        exec,
		ExecutorTimeout: time.Second,
	})
	s.Require().NoError(err)
	return service
}

func (s *PipelineSuite) eventsOfType(eventType string) []audit.Event {
	events, err := s.auditStore.ListRecent(s.ctx, 0)
	s.Require().NoError(err)

	var matched []audit.Event
	for _, e := range events {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

func (s *PipelineSuite) TestAllowedQuery() {
	decision := s.service.ProcessQuery(s.ctx, Request{Query: "when is the next lecture", UserID: "alice"})

	s.True(decision.Allowed)
	s.True(decision.Success)
	s.Equal(LevelSecure, decision.SecurityLevel)
	s.Equal("all good", decision.Response)
	s.NotNil(decision.Analysis)
	s.Equal(int64(1), s.exec.calls.Load())

	events := s.eventsOfType(audit.EventSuccessfulQuery)
	s.Require().Len(events, 1)
	analysis, ok := events[0].Details["analysis"].(policy.Analysis)
	s.Require().True(ok, "quality analysis attached to the audit record")
	s.Contains(analysis.BiasIndicators, "all")
}

func (s *PipelineSuite) TestConsentCollectedOnFirstContact() {
	has, err := s.privacy.HasConsent(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(has)

	s.service.ProcessQuery(s.ctx, Request{Query: "hello there", UserID: "alice"})

	has, err = s.privacy.HasConsent(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(has)
	s.Len(s.eventsOfType(audit.EventConsentRecorded), 1)

	s.service.ProcessQuery(s.ctx, Request{Query: "hello again", UserID: "alice"})
	s.Len(s.eventsOfType(audit.EventConsentRecorded), 1)
}

func (s *PipelineSuite) TestInjectionBlockedBeforeDelegation() {
	decision := s.service.ProcessQuery(s.ctx, Request{Query: "please run eval(1+1)", UserID: "alice"})

	s.False(decision.Allowed)
	s.Equal(LevelBlocked, decision.SecurityLevel)
	s.Equal("unsafe content, please rephrase", decision.Response)
	s.Equal(int64(0), s.exec.calls.Load())

	events := s.eventsOfType(audit.EventUnsafeInput)
	s.Require().Len(events, 1)
	s.Equal(audit.SeverityHigh, events[0].Severity)
}

func (s *PipelineSuite) TestProhibitedTopicBlocked() {
	decision := s.service.ProcessQuery(s.ctx, Request{Query: "tell me about hate speech", UserID: "alice"})

	s.False(decision.Allowed)
	s.Equal("out of scope for this assistant", decision.Response)
	s.Equal(int64(0), s.exec.calls.Load())

	events := s.eventsOfType(audit.EventPolicyViolation)
	s.Require().Len(events, 1)
	s.Equal(audit.SeverityMedium, events[0].Severity)
}

func (s *PipelineSuite) TestRateLimitBlocks() {
	service := s.newService(2, s.exec)

	for range 2 {
		decision := service.ProcessQuery(s.ctx, Request{Query: "hello", UserID: "alice"})
		s.True(decision.Allowed)
	}

	decision := service.ProcessQuery(s.ctx, Request{Query: "hello", UserID: "alice"})
	s.False(decision.Allowed)
	s.Equal("rate limit exceeded", decision.Response)

	events := s.eventsOfType(audit.EventRateLimitExceeded)
	s.Require().Len(events, 1)
	s.Equal(audit.SeverityHigh, events[0].Severity)
}

func (s *PipelineSuite) TestSessionChecks() {
	s.Run("stale session blocked", func() {
		decision := s.service.ProcessQuery(s.ctx, Request{
			Query: "hello", UserID: "alice", SessionID: "no-such-session",
		})
		s.False(decision.Allowed)
		s.Equal("session expired", decision.Response)

		events := s.eventsOfType(audit.EventSessionExpired)
		s.Require().Len(events, 1)
		s.Equal(audit.SeverityMedium, events[0].Severity)
	})

	s.Run("valid session admitted", func() {
		sessionID, err := s.service.CreateSession(s.ctx, "alice", "", "10.0.0.1")
		s.Require().NoError(err)

		decision := s.service.ProcessQuery(s.ctx, Request{
			Query: "hello", UserID: "alice", SessionID: sessionID,
		})
		s.True(decision.Allowed)
	})

	s.Run("request without session skips the check", func() {
		decision := s.service.ProcessQuery(s.ctx, Request{Query: "hello", UserID: "bob"})
		s.True(decision.Allowed)
	})
}

func (s *PipelineSuite) TestExecutorFailure() {
	exec := &countingExecutor{err: errors.New("model exploded: stack trace here")}
	service := s.newService(5, exec)

	decision := service.ProcessQuery(s.ctx, Request{Query: "hello", UserID: "alice"})

	s.True(decision.Allowed)
	s.False(decision.Success)
	s.Equal(LevelError, decision.SecurityLevel)
	s.NotContains(decision.Response, "model exploded")
	s.NotContains(decision.Response, "stack trace")
	s.Len(s.eventsOfType(audit.EventQueryProcessingError), 1)
}

func (s *PipelineSuite) TestFailedDelegationStillConsumesQuota() {
	exec := &countingExecutor{err: errors.New("down")}
	service := s.newService(1, exec)

	decision := service.ProcessQuery(s.ctx, Request{Query: "hello", UserID: "alice"})
	s.False(decision.Success)

	decision = service.ProcessQuery(s.ctx, Request{Query: "hello", UserID: "alice"})
	s.Equal("rate limit exceeded", decision.Response)
}

func (s *PipelineSuite) TestPanicRecovered() {
	exec := &countingExecutor{panics: true}
	service := s.newService(5, exec)

	var decision Decision
	s.NotPanics(func() {
		decision = service.ProcessQuery(s.ctx, Request{Query: "hello", UserID: "alice"})
	})

	s.False(decision.Success)
	s.Equal(LevelError, decision.SecurityLevel)
	s.NotContains(decision.Response, "executor blew up")

	events := s.eventsOfType(audit.EventPipelineFailure)
	s.Require().Len(events, 1)
	s.Equal(audit.SeverityCritical, events[0].Severity)
}

func (s *PipelineSuite) TestResponsePostProcessing() {
	s.Run("pii redacted from responses", func() {
		exec := &countingExecutor{response: "contact the tutor at tutor@school.edu"}
		service := s.newService(5, exec)

		decision := service.ProcessQuery(s.ctx, Request{Query: "who do I ask", UserID: "alice"})
		s.True(decision.Success)
		s.NotContains(decision.Response, "tutor@school.edu")
		s.Contains(decision.Response, "[EMAIL]")
	})

	s.Run("long responses carry the transparency notice", func() {
		exec := &countingExecutor{response: strings.Repeat("useful detail. ", 20)}
		service := s.newService(5, exec)

		decision := service.ProcessQuery(s.ctx, Request{Query: "explain", UserID: "alice"})
		s.True(decision.Success)
		s.Contains(decision.Response, "AI Transparency Notice")
	})

	s.Run("short responses do not", func() {
		decision := s.service.ProcessQuery(s.ctx, Request{Query: "hi", UserID: "alice"})
		s.True(decision.Success)
		s.NotContains(decision.Response, "AI Transparency Notice")
	})
}

func (s *PipelineSuite) TestAdminOperations() {
	s.Run("invalidate session", func() {
		sessionID, err := s.service.CreateSession(s.ctx, "alice", "", "")
		s.Require().NoError(err)
		s.Require().NoError(s.service.InvalidateSession(s.ctx, sessionID, ""))

		decision := s.service.ProcessQuery(s.ctx, Request{
			Query: "hello", UserID: "alice", SessionID: sessionID,
		})
		s.False(decision.Allowed)
	})

	s.Run("delete user data", func() {
		s.service.ProcessQuery(s.ctx, Request{Query: "hello", UserID: "carol"})

		has, err := s.privacy.HasConsent(s.ctx, "carol")
		s.Require().NoError(err)
		s.Require().True(has)

		s.True(s.service.DeleteUserData(s.ctx, "carol", ""))

		has, err = s.privacy.HasConsent(s.ctx, "carol")
		s.Require().NoError(err)
		s.False(has)
		s.Len(s.eventsOfType(audit.EventUserDataDeleted), 1)
	})

	s.Run("erasure keeps the audit trail", func() {
		s.service.ProcessQuery(s.ctx, Request{Query: "hello", UserID: "dave"})
		before := len(s.eventsOfType(audit.EventSuccessfulQuery))

		s.True(s.service.DeleteUserData(s.ctx, "dave", ""))
		s.Equal(before, len(s.eventsOfType(audit.EventSuccessfulQuery)))
	})

	s.Run("security status", func() {
		_, err := s.service.CreateSession(s.ctx, "erin", "", "")
		s.Require().NoError(err)
		s.service.ProcessQuery(s.ctx, Request{Query: "hello", UserID: "erin"})

		status := s.service.SecurityStatus(s.ctx)
		s.Equal(StatusOperational, status.Status)
		s.GreaterOrEqual(status.ActiveSessions, 1)
		s.GreaterOrEqual(status.TrackedRateKeys, 1)
		s.GreaterOrEqual(status.ConsentRecords, 1)
		s.GreaterOrEqual(status.EventsLast24h, 1)
	})

	s.Run("security report", func() {
		s.service.ProcessQuery(s.ctx, Request{Query: "hello", UserID: "frank"})

		report, err := s.service.SecurityReport(s.ctx, 5)
		s.Require().NoError(err)
		s.Greater(report.TotalEvents, 0)
		s.NotEmpty(report.RecentEvents)
	})
}
