package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/mcoot/teachkit/internal/audit"
	"github.com/mcoot/teachkit/internal/model"
)

// Step is the active step of the password reset flow
type Step string

const (
	StepClosed      Step = "closed"
	StepRequestCode Step = "request_code"
	StepVerifyCode  Step = "verify_code"
	StepSetPassword Step = "set_password"
)

// Messages shown by the password reset flow
const (
	MsgCodeSent        = "Ein Code wurde an deine E-Mail-Adresse gesendet."
	MsgCodeVerified    = "Code bestätigt. Bitte neues Passwort festlegen."
	MsgPasswordChanged = "Passwort wurde geändert. Du kannst dich jetzt anmelden."
)

const resetFlowName = "reset"

// stage is the tagged variant holding what each step has established.
// A setPasswordStage can only be built from a successful verification.
type stage interface {
	step() Step
}

type requestStage struct {
	email string
}

type verifyStage struct {
	email string
}

type setPasswordStage struct {
	email string
	code  string
}

func (requestStage) step() Step     { return StepRequestCode }
func (verifyStage) step() Step      { return StepVerifyCode }
func (setPasswordStage) step() Step { return StepSetPassword }

// ResetState is a snapshot of the reset flow
type ResetState struct {
	Step         Step
	Email        string
	CodeVerified bool
	Error        string
	Success      string
	Submitting   bool
}

// SubmitControl returns how the active step's submit button should render
func (s ResetState) SubmitControl() SubmitControl {
	var idle, busy string
	switch s.Step {
	case StepRequestCode:
		idle, busy = "Code senden", "Wird gesendet..."
	case StepVerifyCode:
		idle, busy = "Code prüfen", "Wird geprüft..."
	case StepSetPassword:
		idle, busy = "Passwort ändern", "Wird gespeichert..."
	default:
		return SubmitControl{}
	}
	if s.Submitting {
		return SubmitControl{Label: busy}
	}
	return SubmitControl{Label: idle, Enabled: true}
}

// LoginOpener receives the handoff once a password has been reset
type LoginOpener interface {
	OpenLogin(username string)
}

// ResetFlow is the three-step password reset state machine.
// Backward navigation is only allowed from VerifyCode to RequestCode.
type ResetFlow struct {
	mu         sync.Mutex
	stage      stage // nil when closed
	errMsg     string
	successMsg string
	submitting bool
	epoch      uint64
	msgGen     uint64

	backend   ResetBackend
	signIn    LoginOpener
	opts      Options
	logger    *slog.Logger
	listeners observers[ResetState]
}

// NewResetFlow creates a closed reset flow that hands off to signIn when done
func NewResetFlow(backend ResetBackend, signIn LoginOpener, opts Options) *ResetFlow {
	opts = opts.withDefaults()
	return &ResetFlow{
		backend: backend,
		signIn:  signIn,
		opts:    opts,
		logger:  opts.Logger.With(slog.String("component", "reset-flow")),
	}
}

// State returns the current snapshot
func (f *ResetFlow) State() ResetState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// OnChange registers a listener called after every state change
func (f *ResetFlow) OnChange(fn func(ResetState)) func() {
	return f.listeners.add(fn)
}

// Open starts the flow at RequestCode
func (f *ResetFlow) Open() {
	f.mutate(func() { f.transitionLocked(requestStage{}) })
}

// Close discards the flow
func (f *ResetFlow) Close() {
	f.mutate(func() { f.transitionLocked(nil) })
}

// Back returns from VerifyCode to RequestCode, keeping the email
func (f *ResetFlow) Back() error {
	f.mu.Lock()
	st, ok := f.stage.(verifyStage)
	if !ok {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	f.transitionLocked(requestStage{email: st.email})
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.listeners.notify(snap)
	return nil
}

// RequestCode asks the backend to mail a reset code and advances to VerifyCode
func (f *ResetFlow) RequestCode(ctx context.Context, email string) error {
	f.mu.Lock()
	if _, err := f.activeLocked(StepRequestCode); err != nil {
		f.mu.Unlock()
		return err
	}
	if err := validateEmail(email); err != nil {
		return f.rejectLocked(err)
	}
	epoch := f.beginSubmitLocked()

	email = strings.TrimSpace(email)
	res, err := f.backend.RequestResetCode(ctx, email)

	f.finishSubmit(epoch, func() {
		if err != nil {
			f.setErrorLocked(err)
			return
		}
		f.stage = requestStage{email: email}
		f.successMsg = messageOr(res.Message, MsgCodeSent)
		f.advanceLocked(verifyStage{email: email})
	})
	return err
}

// VerifyCode checks the mailed code and advances to SetPassword
func (f *ResetFlow) VerifyCode(ctx context.Context, code string) error {
	f.mu.Lock()
	cur, err := f.activeLocked(StepVerifyCode)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	email := cur.(verifyStage).email
	if err := validateCode(code); err != nil {
		return f.rejectLocked(err)
	}
	epoch := f.beginSubmitLocked()

	code = strings.TrimSpace(code)
	res, err := f.backend.VerifyResetCode(ctx, email, code)

	f.finishSubmit(epoch, func() {
		if err != nil {
			f.setErrorLocked(err)
			return
		}
		f.successMsg = messageOr(res.Message, MsgCodeVerified)
		f.advanceLocked(setPasswordStage{email: email, code: code})
	})
	return err
}

// SetNewPassword sets the new password with the verified code. On success the
// flow closes and the sign-in flow opens with the username prefilled.
func (f *ResetFlow) SetNewPassword(ctx context.Context, password, confirm string) error {
	f.mu.Lock()
	cur, err := f.activeLocked(StepSetPassword)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	verified := cur.(setPasswordStage)
	if err := validateNewPassword(password, confirm); err != nil {
		return f.rejectLocked(err)
	}
	epoch := f.beginSubmitLocked()

	res, err := f.backend.ResetPassword(ctx, verified.email, verified.code, password, confirm)
	if err == nil {
		f.logger.Info("password reset", slog.String("username", res.Username))
	}

	f.finishSubmit(epoch, func() {
		if err != nil {
			f.setErrorLocked(err)
			return
		}
		f.successMsg = messageOr(res.Message, MsgPasswordChanged)
		f.handoffLocked(res.Username)
	})

	if err == nil {
		f.opts.Recorder.Record(ctx, audit.EventPasswordReset, res.Username, "")
	}
	return err
}

// activeLocked returns the current stage if it is at step want
func (f *ResetFlow) activeLocked(want Step) (stage, error) {
	switch {
	case f.stage == nil:
		return nil, ErrFlowClosed
	case f.stage.step() != want:
		return nil, ErrInvalidTransition
	case f.submitting:
		return nil, ErrSubmitInFlight
	}
	return f.stage, nil
}

func (f *ResetFlow) snapshotLocked() ResetState {
	if f.stage == nil {
		return ResetState{Step: StepClosed}
	}
	st := ResetState{
		Step:       f.stage.step(),
		Error:      f.errMsg,
		Success:    f.successMsg,
		Submitting: f.submitting,
	}
	switch s := f.stage.(type) {
	case requestStage:
		st.Email = s.email
	case verifyStage:
		st.Email = s.email
	case setPasswordStage:
		st.Email = s.email
		st.CodeVerified = true
	}
	return st
}

func (f *ResetFlow) mutate(fn func()) {
	f.mu.Lock()
	fn()
	snap := f.snapshotLocked()
	f.mu.Unlock()
	f.listeners.notify(snap)
}

func (f *ResetFlow) transitionLocked(next stage) {
	f.epoch++
	f.msgGen++
	f.stage = next
	f.errMsg = ""
	f.successMsg = ""
	f.submitting = false

	to := StepClosed
	if next != nil {
		to = next.step()
	}
	f.opts.Metrics.Transition(resetFlowName, string(to))
	f.logger.Debug("reset flow transition", slog.String("step", string(to)))
}

func (f *ResetFlow) rejectLocked(err error) error {
	f.setErrorLocked(err)
	snap := f.snapshotLocked()
	f.mu.Unlock()

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		f.opts.Metrics.Rejected(resetFlowName, ve.Rule)
	}
	f.listeners.notify(snap)
	return err
}

func (f *ResetFlow) beginSubmitLocked() uint64 {
	f.submitting = true
	f.errMsg = ""
	f.successMsg = ""
	f.msgGen++
	epoch := f.epoch
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.listeners.notify(snap)
	return epoch
}

func (f *ResetFlow) finishSubmit(epoch uint64, apply func()) {
	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return
	}
	f.submitting = false
	apply()
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.listeners.notify(snap)
}

func (f *ResetFlow) setErrorLocked(err error) {
	f.msgGen++
	gen := f.msgGen
	f.errMsg = userMessage(err)
	f.successMsg = ""

	f.opts.Scheduler.AfterFunc(f.opts.Config.ErrorDismiss, func() {
		f.mu.Lock()
		if f.msgGen != gen {
			f.mu.Unlock()
			return
		}
		f.errMsg = ""
		snap := f.snapshotLocked()
		f.mu.Unlock()
		f.listeners.notify(snap)
	})
}

// advanceLocked moves to next after the step delay unless superseded.
// A resubmission during the delay schedules another advance; only the first to fire applies.
func (f *ResetFlow) advanceLocked(next stage) {
	epoch := f.epoch
	f.opts.Scheduler.AfterFunc(f.opts.Config.StepAdvanceDelay, func() {
		f.mu.Lock()
		if f.epoch != epoch {
			f.mu.Unlock()
			return
		}
		f.transitionLocked(next)
		snap := f.snapshotLocked()
		f.mu.Unlock()
		f.listeners.notify(snap)
	})
}

// handoffLocked closes the flow after the handoff delay and opens the login tab
func (f *ResetFlow) handoffLocked(username string) {
	epoch := f.epoch
	f.opts.Scheduler.AfterFunc(f.opts.Config.HandoffDelay, func() {
		f.mu.Lock()
		if f.epoch != epoch {
			f.mu.Unlock()
			return
		}
		f.transitionLocked(nil)
		snap := f.snapshotLocked()
		f.mu.Unlock()
		f.listeners.notify(snap)

		if f.signIn != nil {
			f.signIn.OpenLogin(username)
		}
	})
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
