package flow

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
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

type ResetSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	backend *fakeBackend
	signIn  *SignInFlow
	flow    *ResetFlow
	ctx     context.Context
}

func TestResetSuite(t *testing.T) {
	suite.Run(t, new(ResetSuite))
}

func (s *ResetSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	s.backend = newFakeBackend()
	opts := testOptions(s.clock, auditmem.New(10), metrics.New(prometheus.NewRegistry()))
	s.signIn = NewSignInFlow(s.backend, session.New(testutil.NopLogger()), opts)
	s.flow = NewResetFlow(s.backend, s.signIn, opts)
	s.ctx = context.Background()
}

func (s *ResetSuite) advance() {
	s.clock.Advance(DefaultConfig().StepAdvanceDelay)
}

// reachSetPassword walks the flow through the first two steps
func (s *ResetSuite) reachSetPassword() {
	s.flow.Open()
	s.Require().NoError(s.flow.RequestCode(s.ctx, "a@b.de"))
	s.advance()
	s.Require().NoError(s.flow.VerifyCode(s.ctx, "123456"))
	s.advance()
	s.Require().Equal(StepSetPassword, s.flow.State().Step)
}

func (s *ResetSuite) TestFullReset() {
	s.backend.resetRes[gateway.ResetActionReset] = &gateway.ResetResult{Username: "alice"}

	s.flow.Open()
	s.Equal(StepRequestCode, s.flow.State().Step)

	s.Require().NoError(s.flow.RequestCode(s.ctx, "a@b.de"))
	s.Equal(StepRequestCode, s.flow.State().Step)
	s.Equal(MsgCodeSent, s.flow.State().Success)
	s.advance()
	st := s.flow.State()
	s.Equal(StepVerifyCode, st.Step)
	s.Equal("a@b.de", st.Email)
	s.Empty(st.Success)

	s.Require().NoError(s.flow.VerifyCode(s.ctx, "123456"))
	s.advance()
	st = s.flow.State()
	s.Equal(StepSetPassword, st.Step)
	s.True(st.CodeVerified)

	s.Require().NoError(s.flow.SetNewPassword(s.ctx, "newpass1", "newpass1"))
	s.Equal([]string{"a@b.de", "123456", "newpass1", "newpass1"}, s.backend.lastReset)

	s.clock.Advance(DefaultConfig().HandoffDelay)
	s.Equal(StepClosed, s.flow.State().Step)
	in := s.signIn.State()
	s.Equal(TabLogin, in.Tab)
	s.Equal("alice", in.LoginUsername)
}

func (s *ResetSuite) TestAuditRecordedAfterSubmitReleased() {
	var submittingAtRecord []bool
	log := hookLog{onRecord: func(ev audit.Event) {
		s.Equal(audit.EventPasswordReset, ev.Kind)
		submittingAtRecord = append(submittingAtRecord, s.flow.State().Submitting)
	}}
	opts := testOptions(s.clock, log, metrics.New(prometheus.NewRegistry()))
	s.signIn = NewSignInFlow(s.backend, session.New(testutil.NopLogger()), opts)
	s.flow = NewResetFlow(s.backend, s.signIn, opts)
	s.backend.resetRes[gateway.ResetActionReset] = &gateway.ResetResult{Username: "alice"}
	s.reachSetPassword()

	s.Require().NoError(s.flow.SetNewPassword(s.ctx, "newpass1", "newpass1"))

	s.Equal([]bool{false}, submittingAtRecord)
}

func (s *ResetSuite) TestCannotSkipSteps() {
	s.ErrorIs(s.flow.VerifyCode(s.ctx, "123456"), ErrFlowClosed)

	s.flow.Open()
	s.ErrorIs(s.flow.VerifyCode(s.ctx, "123456"), ErrInvalidTransition)
	s.ErrorIs(s.flow.SetNewPassword(s.ctx, "newpass1", "newpass1"), ErrInvalidTransition)

	s.Require().NoError(s.flow.RequestCode(s.ctx, "a@b.de"))
	s.ErrorIs(s.flow.SetNewPassword(s.ctx, "newpass1", "newpass1"), ErrInvalidTransition, "advance has not fired yet")

	s.advance()
	s.ErrorIs(s.flow.SetNewPassword(s.ctx, "newpass1", "newpass1"), ErrInvalidTransition)
	s.Equal([]string{"reset:request"}, s.backend.Calls())
}

func (s *ResetSuite) TestFailedVerificationStaysOnStep() {
	s.backend.resetErr[gateway.ResetActionVerify] = &gateway.Failure{Kind: gateway.KindRejected, Message: "Ungültiger Code"}
	s.flow.Open()
	s.Require().NoError(s.flow.RequestCode(s.ctx, "a@b.de"))
	s.advance()

	err := s.flow.VerifyCode(s.ctx, "000000")
	s.ErrorIs(err, gateway.ErrRejected)
	s.advance()

	st := s.flow.State()
	s.Equal(StepVerifyCode, st.Step)
	s.Equal("Ungültiger Code", st.Error)
	s.True(st.SubmitControl().Enabled)
}

func (s *ResetSuite) TestRequestCodeValidation() {
	s.flow.Open()
	s.ErrorIs(s.flow.RequestCode(s.ctx, "  "), model.ErrEmailRequired)
	s.Empty(s.backend.Calls())
	s.Equal(model.ErrEmailRequired.Message, s.flow.State().Error)
}

func (s *ResetSuite) TestCodeMustBeSixCharacters() {
	s.flow.Open()
	s.Require().NoError(s.flow.RequestCode(s.ctx, "a@b.de"))
	s.advance()

	s.ErrorIs(s.flow.VerifyCode(s.ctx, "12345"), model.ErrCodeLength)
	s.ErrorIs(s.flow.VerifyCode(s.ctx, "1234567"), model.ErrCodeLength)
	s.Equal([]string{"reset:request"}, s.backend.Calls())
}

func (s *ResetSuite) TestNewPasswordValidation() {
	s.reachSetPassword()

	s.ErrorIs(s.flow.SetNewPassword(s.ctx, "", "newpass1"), model.ErrPasswordFieldsRequired)
	s.ErrorIs(s.flow.SetNewPassword(s.ctx, "newpass1", "newpass2"), model.ErrPasswordMismatch)
	s.ErrorIs(s.flow.SetNewPassword(s.ctx, "short1", "short1"), model.ErrPasswordTooShort)
	s.NotContains(s.backend.Calls(), "reset:reset")
}

func (s *ResetSuite) TestBackOnlyFromVerifyCode() {
	s.ErrorIs(s.flow.Back(), ErrInvalidTransition)

	s.flow.Open()
	s.ErrorIs(s.flow.Back(), ErrInvalidTransition)

	s.Require().NoError(s.flow.RequestCode(s.ctx, "a@b.de"))
	s.advance()
	s.Require().NoError(s.flow.Back())

	st := s.flow.State()
	s.Equal(StepRequestCode, st.Step)
	s.Equal("a@b.de", st.Email)
}

func (s *ResetSuite) TestBackFromSetPasswordNotAllowed() {
	s.reachSetPassword()
	s.ErrorIs(s.flow.Back(), ErrInvalidTransition)
}

func (s *ResetSuite) TestCloseCancelsPendingAdvance() {
	s.flow.Open()
	s.Require().NoError(s.flow.RequestCode(s.ctx, "a@b.de"))
	s.flow.Close()
	s.advance()

	s.Equal(StepClosed, s.flow.State().Step)
}

func (s *ResetSuite) TestResubmitDuringAdvanceAppliesOnce() {
	s.flow.Open()
	s.Require().NoError(s.flow.RequestCode(s.ctx, "a@b.de"))
	s.clock.Advance(DefaultConfig().StepAdvanceDelay / 2)
	s.Require().NoError(s.flow.RequestCode(s.ctx, "a@b.de"))

	var steps []Step
	unsubscribe := s.flow.OnChange(func(st ResetState) { steps = append(steps, st.Step) })
	defer unsubscribe()

	s.clock.Advance(DefaultConfig().StepAdvanceDelay)
	s.Equal([]Step{StepVerifyCode}, steps)
}

func (s *ResetSuite) TestSubmitControlLabels() {
	s.Equal(SubmitControl{}, s.flow.State().SubmitControl())
	s.flow.Open()
	s.Equal(SubmitControl{Label: "Code senden", Enabled: true}, s.flow.State().SubmitControl())
	s.Equal(SubmitControl{Label: "Wird geprüft..."}, ResetState{Step: StepVerifyCode, Submitting: true}.SubmitControl())
}
