package flow

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teachkit/internal/audit"
	auditmem "github.com/mcoot/teachkit/internal/audit/memory"
	"github.com/mcoot/teachkit/internal/dependencies/mocks"
	"github.com/mcoot/teachkit/internal/gateway"
	"github.com/mcoot/teachkit/internal/metrics"
	"github.com/mcoot/teachkit/internal/model"
	"github.com/mcoot/teachkit/internal/session"
	"github.com/mcoot/teachkit/internal/testutil"
)

type SignInSuite struct {
	suite.Suite
	clock    *mocks.MockClock
	backend  *fakeBackend
	store    *session.Store
	auditLog *auditmem.Log
	metrics  *metrics.Metrics
	flow     *SignInFlow
	ctx      context.Context
}

func TestSignInSuite(t *testing.T) {
	suite.Run(t, new(SignInSuite))
}

func testOptions(clk *mocks.MockClock, log audit.Log, m *metrics.Metrics) Options {
	logger := testutil.NopLogger()
	return Options{
		Config:    DefaultConfig(),
		Scheduler: clk,
		Recorder:  audit.NewRecorder(log, clk, logger),
		Metrics:   m,
		Logger:    logger,
	}
}

func (s *SignInSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	s.backend = newFakeBackend()
	s.store = session.New(testutil.NopLogger())
	s.auditLog = auditmem.New(10)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.flow = NewSignInFlow(s.backend, s.store, testOptions(s.clock, s.auditLog, s.metrics))
	s.ctx = context.Background()
}

func (s *SignInSuite) auditKinds() []audit.EventKind {
	events, err := s.auditLog.Recent(s.ctx, 0)
	s.Require().NoError(err)
	kinds := make([]audit.EventKind, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

// Tabs

func (s *SignInSuite) TestStartsClosed() {
	s.Equal(TabClosed, s.flow.State().Tab)
	s.False(s.flow.State().SubmitControl().Enabled)
}

func (s *SignInSuite) TestSwitchTabRequiresOpenFlow() {
	s.ErrorIs(s.flow.SwitchTab(TabRegister), ErrFlowClosed)

	s.Require().NoError(s.flow.Open(TabLogin))
	s.Require().NoError(s.flow.SwitchTab(TabRegister))
	s.Equal(TabRegister, s.flow.State().Tab)
	s.ErrorIs(s.flow.SwitchTab(TabClosed), ErrInvalidTransition)
}

func (s *SignInSuite) TestSwitchTabClearsMessages() {
	s.Require().NoError(s.flow.Open(TabLogin))
	_ = s.flow.SubmitLogin(s.ctx, "", "")
	s.NotEmpty(s.flow.State().Error)

	s.Require().NoError(s.flow.SwitchTab(TabRegister))
	s.Empty(s.flow.State().Error)
	s.Empty(s.flow.State().Success)
}

func (s *SignInSuite) TestSubmitOnWrongTab() {
	s.ErrorIs(s.flow.SubmitLogin(s.ctx, "alice", "password1"), ErrFlowClosed)

	s.Require().NoError(s.flow.Open(TabRegister))
	s.ErrorIs(s.flow.SubmitLogin(s.ctx, "alice", "password1"), ErrInvalidTransition)
	s.Empty(s.backend.Calls())
}

// Login

func (s *SignInSuite) TestEmptyPasswordNeverCallsBackend() {
	s.Require().NoError(s.flow.Open(TabLogin))

	err := s.flow.SubmitLogin(s.ctx, "alice", "")

	s.ErrorIs(err, model.ErrLoginFieldsRequired)
	s.Empty(s.backend.Calls())
	st := s.flow.State()
	s.Equal(TabLogin, st.Tab)
	s.Equal(model.ErrLoginFieldsRequired.Message, st.Error)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.FlowRejections.WithLabelValues("signin", "login_required")))
}

func (s *SignInSuite) TestLoginWrongPasswordShowsFailure() {
	s.backend.loginErr = &gateway.Failure{Kind: gateway.KindUnauthorized, Message: "Login fehlgeschlagen", Status: 401}
	s.Require().NoError(s.flow.Open(TabLogin))

	err := s.flow.SubmitLogin(s.ctx, "alice", "wrongpass")

	s.ErrorIs(err, gateway.ErrUnauthorized)
	s.Nil(s.store.GetSession())
	st := s.flow.State()
	s.Equal(TabLogin, st.Tab)
	s.Equal("Login fehlgeschlagen", st.Error)
	s.False(st.Submitting)
	s.Equal(SubmitControl{Label: "Anmelden", Enabled: true}, st.SubmitControl())
	s.Equal([]audit.EventKind{audit.EventLoginFailed}, s.auditKinds())
}

func (s *SignInSuite) TestErrorAutoDismisses() {
	s.Require().NoError(s.flow.Open(TabLogin))
	_ = s.flow.SubmitLogin(s.ctx, "", "")

	s.clock.Advance(4 * time.Second)
	s.NotEmpty(s.flow.State().Error)

	s.clock.Advance(time.Second)
	s.Empty(s.flow.State().Error)
}

func (s *SignInSuite) TestNewerErrorIsNotDismissedByOlderTimer() {
	s.Require().NoError(s.flow.Open(TabLogin))
	_ = s.flow.SubmitLogin(s.ctx, "", "")
	s.clock.Advance(3 * time.Second)
	_ = s.flow.SubmitLogin(s.ctx, "alice", "")

	s.clock.Advance(2 * time.Second)
	s.NotEmpty(s.flow.State().Error)

	s.clock.Advance(3 * time.Second)
	s.Empty(s.flow.State().Error)
}

func (s *SignInSuite) TestLoginSuccessSetsSessionAndCloses() {
	s.backend.loginSession = &model.Session{UserID: "1", Username: "alice", Email: "a@b.de", Role: model.RoleTeacher}
	s.Require().NoError(s.flow.Open(TabLogin))

	var seen []SignInState
	unsubscribe := s.flow.OnChange(func(st SignInState) { seen = append(seen, st) })
	defer unsubscribe()

	s.Require().NoError(s.flow.SubmitLogin(s.ctx, "alice", "password1"))

	s.Equal(model.RoleTeacher, s.store.GetRole())
	s.Equal(MsgLoginSuccess, s.flow.State().Success)
	s.Require().GreaterOrEqual(len(seen), 2)
	s.True(seen[0].Submitting)
	s.Equal(SubmitControl{Label: "Anmelden..."}, seen[0].SubmitControl())

	s.clock.Advance(DefaultConfig().LoginCloseDelay)
	s.Equal(TabClosed, s.flow.State().Tab)
	s.Equal([]audit.EventKind{audit.EventLogin}, s.auditKinds())
}

func (s *SignInSuite) TestAuditRecordedAfterSubmitReleased() {
	var submittingAtRecord []bool
	log := hookLog{onRecord: func(audit.Event) {
		submittingAtRecord = append(submittingAtRecord, s.flow.State().Submitting)
	}}
	s.flow = NewSignInFlow(s.backend, s.store, testOptions(s.clock, log, s.metrics))
	s.backend.loginSession = &model.Session{UserID: "1", Username: "alice", Email: "a@b.de", Role: model.RoleTeacher}
	s.Require().NoError(s.flow.Open(TabLogin))

	s.Require().NoError(s.flow.SubmitLogin(s.ctx, "alice", "password1"))

	s.Equal([]bool{false}, submittingAtRecord)
}

func (s *SignInSuite) TestReentrantSubmitRejected() {
	s.backend.block = make(chan struct{})
	s.backend.loginSession = &model.Session{UserID: "1", Username: "alice", Email: "a@b.de", Role: model.RoleGuest}
	s.Require().NoError(s.flow.Open(TabLogin))

	done := make(chan error, 1)
	go func() { done <- s.flow.SubmitLogin(s.ctx, "alice", "password1") }()

	s.Eventually(func() bool { return s.flow.State().Submitting }, time.Second, time.Millisecond)
	s.ErrorIs(s.flow.SubmitLogin(s.ctx, "alice", "password1"), ErrSubmitInFlight)
	s.False(s.flow.State().SubmitControl().Enabled)

	close(s.backend.block)
	s.NoError(<-done)
	s.Equal([]string{"login"}, s.backend.Calls())
}

func (s *SignInSuite) TestClosingDuringFlightDropsLateResult() {
	s.backend.block = make(chan struct{})
	s.backend.loginErr = &gateway.Failure{Kind: gateway.KindUnauthorized, Message: "Login fehlgeschlagen"}
	s.Require().NoError(s.flow.Open(TabLogin))

	done := make(chan error, 1)
	go func() { done <- s.flow.SubmitLogin(s.ctx, "alice", "wrongpass") }()
	s.Eventually(func() bool { return s.flow.State().Submitting }, time.Second, time.Millisecond)

	s.flow.Close()
	close(s.backend.block)
	<-done

	s.Equal(SignInState{Tab: TabClosed}, s.flow.State())
}

// Registration

func validRegistration() RegisterFields {
	return RegisterFields{Username: "bob", Email: "bob@schule.de", Password: "password1", PasswordConfirm: "password1"}
}

func (s *SignInSuite) TestRegisterShortPasswordRejectedLocally() {
	s.Require().NoError(s.flow.Open(TabRegister))
	fields := validRegistration()
	fields.Password, fields.PasswordConfirm = "abc1234", "abc1234"

	err := s.flow.SubmitRegister(s.ctx, fields)

	s.ErrorIs(err, model.ErrPasswordTooShort)
	s.Contains(s.flow.State().Error, "mindestens 8 Zeichen")
	s.Empty(s.backend.Calls())
}

func (s *SignInSuite) TestRegisterValidCallsBackend() {
	s.backend.registerRes = &gateway.RegistrationResult{}
	s.Require().NoError(s.flow.Open(TabRegister))

	s.Require().NoError(s.flow.SubmitRegister(s.ctx, validRegistration()))
	s.Equal([]string{"register"}, s.backend.Calls())
	s.Equal("password1", s.backend.lastReg.PasswordConfirm)
}

func (s *SignInSuite) TestRegisterRequiresVerification() {
	s.backend.registerRes = &gateway.RegistrationResult{RequiresVerification: true}
	s.Require().NoError(s.flow.Open(TabRegister))

	s.Require().NoError(s.flow.SubmitRegister(s.ctx, validRegistration()))

	st := s.flow.State()
	s.Equal(TabRegister, st.Tab)
	s.Contains(st.Success, "bob@schule.de")
	s.Empty(st.RegisterUsername)
	s.Empty(st.RegisterEmail)

	s.clock.Advance(DefaultConfig().VerificationSwitchDelay)
	st = s.flow.State()
	s.Equal(TabLogin, st.Tab)
	s.Equal(MsgVerificationReminder, st.Success)
}

func (s *SignInSuite) TestRegisterActivePrefillsLogin() {
	s.backend.registerRes = &gateway.RegistrationResult{}
	s.Require().NoError(s.flow.Open(TabRegister))

	s.Require().NoError(s.flow.SubmitRegister(s.ctx, validRegistration()))
	s.Equal(MsgRegisterSuccess, s.flow.State().Success)

	s.clock.Advance(DefaultConfig().RegisterSwitchDelay)
	st := s.flow.State()
	s.Equal(TabLogin, st.Tab)
	s.Equal("bob", st.LoginUsername)
	s.Empty(st.Success)
}

func (s *SignInSuite) TestRegisterSwitchCancelledByManualTabChange() {
	s.backend.registerRes = &gateway.RegistrationResult{RequiresVerification: true}
	s.Require().NoError(s.flow.Open(TabRegister))
	s.Require().NoError(s.flow.SubmitRegister(s.ctx, validRegistration()))

	s.flow.Close()
	s.clock.Advance(DefaultConfig().VerificationSwitchDelay)

	s.Equal(TabClosed, s.flow.State().Tab)
}

func (s *SignInSuite) TestRegisterRejectedByBackend() {
	s.backend.registerErr = &gateway.Failure{Kind: gateway.KindRejected, Message: "Benutzername bereits vergeben"}
	s.Require().NoError(s.flow.Open(TabRegister))

	err := s.flow.SubmitRegister(s.ctx, validRegistration())

	s.ErrorIs(err, gateway.ErrRejected)
	s.Equal("Benutzername bereits vergeben", s.flow.State().Error)
	s.Equal(TabRegister, s.flow.State().Tab)
}

func (s *SignInSuite) TestNetworkFailureIsRecoveredLocally() {
	s.backend.loginErr = &gateway.Failure{Kind: gateway.KindNetworkUnavailable, Message: gateway.MsgNetworkUnavailable}
	s.Require().NoError(s.flow.Open(TabLogin))

	_ = s.flow.SubmitLogin(s.ctx, "alice", "password1")

	s.Equal(gateway.MsgNetworkUnavailable, s.flow.State().Error)
	s.True(s.flow.State().SubmitControl().Enabled)
}
