// Package devserver is a stand-in for the teaching-tools session backend.
// It serves the session-check, login, register, logout and password-reset
// endpoints with in-memory accounts so the core can be exercised locally and
// in end-to-end tests.
package devserver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/teachkit/internal/dependencies/clock"
	"github.com/mcoot/teachkit/internal/dependencies/random"
	"github.com/mcoot/teachkit/internal/model"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCode        = errors.New("invalid or expired reset code")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrAccountNotFound    = errors.New("account not found")
)

const resetCodeLength = 6

// Account is a registered user of the stand-in backend
type Account struct {
	ID           int64
	Username     string
	Email        string
	Role         model.Role
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
}

type resetCode struct {
	code      string
	expiresAt time.Time
	verified  bool
}

type devSession struct {
	accountID int64
	expiresAt time.Time
}

// AccountsConfig holds configuration for the account service
type AccountsConfig struct {
	// RequireVerification makes new accounts wait for email verification
	RequireVerification bool
	SessionDuration     time.Duration
	ResetCodeTTL        time.Duration
	// BcryptCost is lowered in tests
	BcryptCost int
}

// DefaultAccountsConfig returns default account configuration
func DefaultAccountsConfig() AccountsConfig {
	return AccountsConfig{
		RequireVerification: false,
		SessionDuration:     24 * time.Hour,
		ResetCodeTTL:        15 * time.Minute,
		BcryptCost:          bcrypt.DefaultCost,
	}
}

// Accounts handles accounts, sessions and reset codes
type Accounts struct {
	mu         sync.RWMutex
	accounts   map[int64]*Account
	byUsername map[string]int64
	byEmail    map[string]int64
	sessions   map[string]devSession
	resets     map[string]*resetCode
	nextID     int64

	clock  clock.Clock
	random random.Random
	cfg    AccountsConfig
}

// NewAccounts creates an empty account service
func NewAccounts(clk clock.Clock, rnd random.Random, cfg AccountsConfig) *Accounts {
	d := DefaultAccountsConfig()
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = d.SessionDuration
	}
	if cfg.ResetCodeTTL == 0 {
		cfg.ResetCodeTTL = d.ResetCodeTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = d.BcryptCost
	}
	return &Accounts{
		accounts:   make(map[int64]*Account),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
		sessions:   make(map[string]devSession),
		resets:     make(map[string]*resetCode),
		nextID:     1,
		clock:      clk,
		random:     rnd,
		cfg:        cfg,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Seed creates a verified account with the given role, bypassing verification
func (a *Accounts) Seed(username, email, password string, role model.Role) (*Account, error) {
	return a.create(username, email, password, role, true)
}

// Register creates a Guest account. It is active immediately unless the
// service requires email verification.
func (a *Accounts) Register(ctx context.Context, username, email, password string) (*Account, error) {
	if len([]rune(strings.TrimSpace(username))) < 3 || len([]rune(password)) < 8 || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	return a.create(username, email, password, model.RoleGuest, !a.cfg.RequireVerification)
}

func (a *Accounts) create(username, email, password string, role model.Role, verified bool) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byUsername[normalize(username)]; ok {
		return nil, ErrUsernameExists
	}
	if _, ok := a.byEmail[normalize(email)]; ok {
		return nil, ErrEmailExists
	}

	acc := &Account{
		ID:           a.nextID,
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		Role:         role,
		PasswordHash: string(hash),
		Verified:     verified,
		CreatedAt:    a.clock.Now(),
	}
	a.nextID++
	a.accounts[acc.ID] = acc
	a.byUsername[normalize(username)] = acc.ID
	a.byEmail[normalize(email)] = acc.ID

	return acc, nil
}

// Verify marks an account's email as confirmed
func (a *Accounts) Verify(username string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.byUsername[normalize(username)]
	if !ok {
		return ErrAccountNotFound
	}
	a.accounts[id].Verified = true
	return nil
}

// SetRole changes an account's role
func (a *Accounts) SetRole(username string, role model.Role) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.byUsername[normalize(username)]
	if !ok {
		return ErrAccountNotFound
	}
	a.accounts[id].Role = role
	return nil
}

// Login checks credentials and opens a session, returning its token
func (a *Accounts) Login(ctx context.Context, username, password string) (*Account, string, error) {
	a.mu.RLock()
	id, ok := a.byUsername[normalize(username)]
	var acc Account
	if ok {
		acc = *a.accounts[id]
	}
	a.mu.RUnlock()

	if !ok {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !acc.Verified {
		return nil, "", ErrNotVerified
	}

	token := a.random.Token()
	a.mu.Lock()
	a.sessions[token] = devSession{accountID: acc.ID, expiresAt: a.clock.Now().Add(a.cfg.SessionDuration)}
	a.mu.Unlock()

	return &acc, token, nil
}

// Lookup returns the account behind a session token
func (a *Accounts) Lookup(token string) (*Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, ok := a.sessions[token]
	if !ok {
		return nil, ErrInvalidSession
	}
	if a.clock.Now().After(sess.expiresAt) {
		delete(a.sessions, token)
		return nil, ErrInvalidSession
	}

	acc, ok := a.accounts[sess.accountID]
	if !ok {
		delete(a.sessions, token)
		return nil, ErrInvalidSession
	}
	cp := *acc
	return &cp, nil
}

// Logout ends a session; unknown tokens are ignored
func (a *Accounts) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// RequestReset issues a 6-digit code for email. Unknown addresses get no
// code but no error either, so callers cannot probe for accounts.
func (a *Accounts) RequestReset(ctx context.Context, email string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byEmail[normalize(email)]; !ok {
		return "", false
	}

	code := a.random.Code(resetCodeLength)
	a.resets[normalize(email)] = &resetCode{
		code:      code,
		expiresAt: a.clock.Now().Add(a.cfg.ResetCodeTTL),
	}
	return code, true
}

// VerifyReset checks a reset code
func (a *Accounts) VerifyReset(ctx context.Context, email, code string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rc, err := a.validCodeLocked(email, code)
	if err != nil {
		return err
	}
	rc.verified = true
	return nil
}

// ResetPassword replaces the password using a verified code and returns the username
func (a *Accounts) ResetPassword(ctx context.Context, email, code, password string) (string, error) {
	if len([]rune(password)) < 8 {
		return "", ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cfg.BcryptCost)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rc, err := a.validCodeLocked(email, code)
	if err != nil {
		return "", err
	}
	if !rc.verified {
		return "", ErrInvalidCode
	}

	id := a.byEmail[normalize(email)]
	acc := a.accounts[id]
	acc.PasswordHash = string(hash)
	delete(a.resets, normalize(email))

	// Existing sessions end with the old password
	for token, s := range a.sessions {
		if s.accountID == id {
			delete(a.sessions, token)
		}
	}
	return acc.Username, nil
}

func (a *Accounts) validCodeLocked(email, code string) (*resetCode, error) {
	rc, ok := a.resets[normalize(email)]
	if !ok || rc.code == "" || rc.code != strings.TrimSpace(code) {
		return nil, ErrInvalidCode
	}
	if a.clock.Now().After(rc.expiresAt) {
		delete(a.resets, normalize(email))
		return nil, ErrInvalidCode
	}
	return rc, nil
}
