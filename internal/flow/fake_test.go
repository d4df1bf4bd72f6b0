package flow

import (
	"context"
	"sync"

	"github.com/mcoot/teachkit/internal/audit"
	"github.com/mcoot/teachkit/internal/gateway"
	"github.com/mcoot/teachkit/internal/model"
)

// fakeBackend records calls and returns canned results
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	loginSession *model.Session
	loginErr     error
	registerRes  *gateway.RegistrationResult
	registerErr  error
	lastReg      gateway.Registration
	resetRes     map[string]*gateway.ResetResult
	resetErr     map[string]error
	lastReset    []string
	checkSession *model.Session
	checkErr     error
	logoutErr    error

	// block, when set, holds Login until it is closed
	block chan struct{}
}

var _ Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		resetRes: map[string]*gateway.ResetResult{},
		resetErr: map[string]error{},
	}
}

func (b *fakeBackend) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) Login(ctx context.Context, username, password string) (*model.Session, error) {
	b.record("login")
	if b.block != nil {
		<-b.block
	}
	return b.loginSession, b.loginErr
}

func (b *fakeBackend) Register(ctx context.Context, reg gateway.Registration) (*gateway.RegistrationResult, error) {
	b.record("register")
	b.mu.Lock()
	b.lastReg = reg
	b.mu.Unlock()
	return b.registerRes, b.registerErr
}

func (b *fakeBackend) reset(action string, args ...string) (*gateway.ResetResult, error) {
	b.record("reset:" + action)
	b.mu.Lock()
	b.lastReset = args
	b.mu.Unlock()
	if err := b.resetErr[action]; err != nil {
		return nil, err
	}
	if res := b.resetRes[action]; res != nil {
		return res, nil
	}
	return &gateway.ResetResult{}, nil
}

func (b *fakeBackend) RequestResetCode(ctx context.Context, email string) (*gateway.ResetResult, error) {
	return b.reset(gateway.ResetActionRequest, email)
}

func (b *fakeBackend) VerifyResetCode(ctx context.Context, email, code string) (*gateway.ResetResult, error) {
	return b.reset(gateway.ResetActionVerify, email, code)
}

func (b *fakeBackend) ResetPassword(ctx context.Context, email, code, newPassword, confirm string) (*gateway.ResetResult, error) {
	return b.reset(gateway.ResetActionReset, email, code, newPassword, confirm)
}

func (b *fakeBackend) CheckSession(ctx context.Context) (*model.Session, error) {
	b.record("check")
	return b.checkSession, b.checkErr
}

func (b *fakeBackend) Logout(ctx context.Context) error {
	b.record("logout")
	return b.logoutErr
}

// hookLog hands every recorded event to onRecord and keeps nothing
type hookLog struct {
	onRecord func(audit.Event)
}

func (l hookLog) Record(ctx context.Context, ev audit.Event) error {
	l.onRecord(ev)
	return nil
}

func (l hookLog) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	return nil, nil
}
