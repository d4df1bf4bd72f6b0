package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/teachkit/internal/audit"
	"github.com/mcoot/teachkit/internal/gateway"
	"github.com/mcoot/teachkit/internal/model"
)

// Tab is the active view of the sign-in flow
type Tab string

const (
	TabClosed   Tab = "closed"
	TabLogin    Tab = "login"
	TabRegister Tab = "register"
)

// Messages shown by the sign-in flow
const (
	MsgLoginSuccess         = "Anmeldung erfolgreich"
	MsgRegisterSuccess      = "Registrierung erfolgreich! Du kannst dich jetzt anmelden."
	MsgVerificationPending  = "Registrierung erfolgreich! Wir haben eine Bestätigungs-E-Mail an %s gesendet. Bitte klicke auf den Link in der E-Mail."
	MsgVerificationReminder = "Bitte bestätige zuerst deine E-Mail-Adresse, bevor du dich anmeldest."
)

const (
	signInFlowName = "signin"

	labelLogin        = "Anmelden"
	labelLoginBusy    = "Anmelden..."
	labelRegister     = "Registrieren"
	labelRegisterBusy = "Registrieren..."
)

// SignInState is a snapshot of the sign-in flow. Passwords are never part of it.
type SignInState struct {
	Tab              Tab
	LoginUsername    string
	RegisterUsername string
	RegisterEmail    string
	Error            string
	Success          string
	Submitting       bool
}

// SubmitControl returns how the active tab's submit button should render
func (s SignInState) SubmitControl() SubmitControl {
	switch s.Tab {
	case TabLogin:
		if s.Submitting {
			return SubmitControl{Label: labelLoginBusy}
		}
		return SubmitControl{Label: labelLogin, Enabled: true}
	case TabRegister:
		if s.Submitting {
			return SubmitControl{Label: labelRegisterBusy}
		}
		return SubmitControl{Label: labelRegister, Enabled: true}
	}
	return SubmitControl{}
}

// SignInFlow is the login/registration state machine: Closed, Login, Register
type SignInFlow struct {
	mu    sync.Mutex
	state SignInState
	// epoch is bumped by every transition; delayed actions from an older epoch are dropped
	epoch uint64
	// msgGen is bumped whenever a message is set or cleared by a transition
	msgGen uint64

	backend   SignInBackend
	store     SessionWriter
	opts      Options
	logger    *slog.Logger
	listeners observers[SignInState]
}

// NewSignInFlow creates a closed sign-in flow
func NewSignInFlow(backend SignInBackend, store SessionWriter, opts Options) *SignInFlow {
	opts = opts.withDefaults()
	return &SignInFlow{
		state:   SignInState{Tab: TabClosed},
		backend: backend,
		store:   store,
		opts:    opts,
		logger:  opts.Logger.With(slog.String("component", "signin-flow")),
	}
}

// State returns the current snapshot
func (f *SignInFlow) State() SignInState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// OnChange registers a listener called after every state change
func (f *SignInFlow) OnChange(fn func(SignInState)) func() {
	return f.listeners.add(fn)
}

// Open shows the flow on the given tab
func (f *SignInFlow) Open(tab Tab) error {
	if tab != TabLogin && tab != TabRegister {
		return ErrInvalidTransition
	}
	f.mutate(func() { f.transitionLocked(tab) })
	return nil
}

// OpenLogin shows the login tab with the username prefilled
func (f *SignInFlow) OpenLogin(username string) {
	f.mutate(func() {
		f.transitionLocked(TabLogin)
		f.state.LoginUsername = username
	})
}

// SwitchTab moves between Login and Register while the flow is open
func (f *SignInFlow) SwitchTab(tab Tab) error {
	if tab != TabLogin && tab != TabRegister {
		return ErrInvalidTransition
	}

	f.mu.Lock()
	if f.state.Tab == TabClosed {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	if f.state.Tab == tab {
		f.mu.Unlock()
		return nil
	}
	f.transitionLocked(tab)
	st := f.state
	f.mu.Unlock()

	f.listeners.notify(st)
	return nil
}

// Close hides the flow and discards its state
func (f *SignInFlow) Close() {
	f.mutate(func() { f.transitionLocked(TabClosed) })
}

// SubmitLogin validates the fields and, if they pass, logs in.
// The returned error is also reflected in State().Error.
func (f *SignInFlow) SubmitLogin(ctx context.Context, username, password string) error {
	f.mu.Lock()
	if err := f.checkSubmittableLocked(TabLogin); err != nil {
		f.mu.Unlock()
		return err
	}
	f.state.LoginUsername = username
	if err := validateLogin(username, password); err != nil {
		return f.rejectLocked(err)
	}
	epoch := f.beginSubmitLocked()

	username = strings.TrimSpace(username)
	sess, err := f.backend.Login(ctx, username, password)
	if err != nil {
		f.logger.Debug("login failed", slog.String("username", username), slog.Any("error", err))
	} else {
		f.store.SetSession(sess)
		f.logger.Info("logged in", slog.String("username", sess.Username), slog.String("role", string(sess.Role)))
	}

	f.finishSubmit(epoch, func() {
		if err != nil {
			f.setErrorLocked(err)
			return
		}
		f.state.Success = MsgLoginSuccess
		f.afterLocked(f.opts.Config.LoginCloseDelay, func() { f.transitionLocked(TabClosed) })
	})

	// Audit writes happen once the submit control is released
	if err != nil {
		f.opts.Recorder.Record(ctx, audit.EventLoginFailed, username, string(failureKind(err)))
	} else {
		f.opts.Recorder.Record(ctx, audit.EventLogin, sess.Username, string(sess.Role))
	}
	return err
}

// SubmitRegister validates the registration fields in order and, if they
// pass, registers the account. On success the flow moves to the login tab
// after a delay.
func (f *SignInFlow) SubmitRegister(ctx context.Context, fields RegisterFields) error {
	f.mu.Lock()
	if err := f.checkSubmittableLocked(TabRegister); err != nil {
		f.mu.Unlock()
		return err
	}
	f.state.RegisterUsername = fields.Username
	f.state.RegisterEmail = fields.Email
	if err := validateRegister(fields); err != nil {
		return f.rejectLocked(err)
	}
	epoch := f.beginSubmitLocked()

	username := strings.TrimSpace(fields.Username)
	email := strings.TrimSpace(fields.Email)
	res, err := f.backend.Register(ctx, gateway.Registration{
		Username:        username,
		Email:           email,
		Password:        fields.Password,
		PasswordConfirm: fields.PasswordConfirm,
	})
	if err == nil {
		f.logger.Info("registered", slog.String("username", username), slog.Bool("requires_verification", res.RequiresVerification))
	}

	f.finishSubmit(epoch, func() {
		if err != nil {
			f.setErrorLocked(err)
			return
		}

		f.state.RegisterUsername = ""
		f.state.RegisterEmail = ""

		if res.RequiresVerification {
			f.state.Success = fmt.Sprintf(MsgVerificationPending, email)
			f.afterLocked(f.opts.Config.VerificationSwitchDelay, func() {
				f.transitionLocked(TabLogin)
				f.state.Success = MsgVerificationReminder
			})
			return
		}

		f.state.Success = res.Message
		if f.state.Success == "" {
			f.state.Success = MsgRegisterSuccess
		}
		f.state.LoginUsername = username
		f.afterLocked(f.opts.Config.RegisterSwitchDelay, func() { f.transitionLocked(TabLogin) })
	})

	if err == nil {
		detail := ""
		if res.RequiresVerification {
			detail = "verification_pending"
		}
		f.opts.Recorder.Record(ctx, audit.EventRegister, username, detail)
	}
	return err
}

// mutate applies fn under the lock and notifies listeners
func (f *SignInFlow) mutate(fn func()) {
	f.mu.Lock()
	fn()
	st := f.state
	f.mu.Unlock()
	f.listeners.notify(st)
}

func (f *SignInFlow) checkSubmittableLocked(tab Tab) error {
	switch {
	case f.state.Tab == TabClosed:
		return ErrFlowClosed
	case f.state.Tab != tab:
		return ErrInvalidTransition
	case f.state.Submitting:
		return ErrSubmitInFlight
	}
	return nil
}

// rejectLocked records a validation failure, unlocks and notifies
func (f *SignInFlow) rejectLocked(err error) error {
	f.setErrorLocked(err)
	st := f.state
	f.mu.Unlock()

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		f.opts.Metrics.Rejected(signInFlowName, ve.Rule)
	}
	f.listeners.notify(st)
	return err
}

// beginSubmitLocked marks the active tab busy, unlocks and notifies
func (f *SignInFlow) beginSubmitLocked() uint64 {
	f.state.Submitting = true
	f.state.Error = ""
	f.state.Success = ""
	f.msgGen++
	epoch := f.epoch
	st := f.state
	f.mu.Unlock()

	f.listeners.notify(st)
	return epoch
}

// finishSubmit applies the outcome of a submission unless a transition happened meanwhile
func (f *SignInFlow) finishSubmit(epoch uint64, apply func()) {
	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return
	}
	f.state.Submitting = false
	apply()
	st := f.state
	f.mu.Unlock()

	f.listeners.notify(st)
}

func (f *SignInFlow) transitionLocked(tab Tab) {
	f.epoch++
	f.msgGen++
	if tab == TabClosed {
		f.state = SignInState{Tab: TabClosed}
	} else {
		f.state.Tab = tab
		f.state.Error = ""
		f.state.Success = ""
		f.state.Submitting = false
	}
	f.opts.Metrics.Transition(signInFlowName, string(tab))
	f.logger.Debug("sign-in flow transition", slog.String("tab", string(tab)))
}

// setErrorLocked shows err and schedules its dismissal
func (f *SignInFlow) setErrorLocked(err error) {
	f.msgGen++
	gen := f.msgGen
	f.state.Error = userMessage(err)
	f.state.Success = ""

	f.opts.Scheduler.AfterFunc(f.opts.Config.ErrorDismiss, func() {
		f.mu.Lock()
		if f.msgGen != gen {
			f.mu.Unlock()
			return
		}
		f.state.Error = ""
		st := f.state
		f.mu.Unlock()
		f.listeners.notify(st)
	})
}

// afterLocked runs fn under the lock after d unless a transition supersedes it
func (f *SignInFlow) afterLocked(d time.Duration, fn func()) {
	epoch := f.epoch
	f.opts.Scheduler.AfterFunc(d, func() {
		f.mu.Lock()
		if f.epoch != epoch {
			f.mu.Unlock()
			return
		}
		fn()
		st := f.state
		f.mu.Unlock()
		f.listeners.notify(st)
	})
}

func failureKind(err error) gateway.Kind {
	if fl, ok := gateway.AsFailure(err); ok {
		return fl.Kind
	}
	return ""
}
