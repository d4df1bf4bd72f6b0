// Package gateway performs the session RPCs against the teaching-tools backend
// and normalises every transport and protocol problem into a *Failure.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/teachkit/internal/metrics"
	"github.com/mcoot/teachkit/internal/model"
)

// Gateway is the sole seam between the core and the remote identity backend
type Gateway struct {
	client    *Client
	endpoints Endpoints
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a Gateway
func New(cfg Config, m *metrics.Metrics, logger *slog.Logger) (*Gateway, error) {
	cfg = cfg.withDefaults()
	logger = logger.With(slog.String("component", "gateway"))

	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		client:    client,
		endpoints: cfg.Endpoints,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Client exposes the underlying HTTP client (cookie import/export)
func (g *Gateway) Client() *Client {
	return g.client
}

// CheckSession asks the backend whether a session exists.
// It returns (nil, nil) when the user is not logged in.
func (g *Gateway) CheckSession(ctx context.Context) (sess *model.Session, err error) {
	start := time.Now()
	defer func() { g.observe("session_check", start, sess == nil, err) }()

	var resp sessionCheckResponse
	status, err := g.client.Get(ctx, g.endpoints.SessionCheck, &resp)
	if err != nil {
		return nil, err
	}

	if !resp.LoggedIn {
		return nil, nil
	}

	s, ok := resp.User.toSession()
	if !ok {
		return nil, newProtocolFailure(status, "logged_in without complete user", nil)
	}
	return s, nil
}

// Login authenticates with username and password
func (g *Gateway) Login(ctx context.Context, username, password string) (sess *model.Session, err error) {
	start := time.Now()
	defer func() { g.observe("login", start, false, err) }()

	var resp loginResponse
	status, err := g.client.Post(ctx, g.endpoints.Login, loginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, rejection(KindUnauthorized, status, resp.Message, MsgLoginFailed)
	}

	s, ok := resp.User.toSession()
	if !ok {
		return nil, newProtocolFailure(status, "login success without complete user", nil)
	}
	return s, nil
}

// Register creates an account. The result tells whether email verification is
// required before the first login.
func (g *Gateway) Register(ctx context.Context, reg Registration) (result *RegistrationResult, err error) {
	start := time.Now()
	defer func() { g.observe("register", start, false, err) }()

	var resp registerResponse
	status, err := g.client.Post(ctx, g.endpoints.Register, reg, &resp)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, rejection(KindRejected, status, resp.Message, MsgRegisterFailed)
	}

	return &RegistrationResult{
		RequiresVerification: resp.RequiresVerification,
		Message:              resp.Message,
	}, nil
}

// Logout ends the backend session. The returned error is informational only;
// callers clear local state regardless.
func (g *Gateway) Logout(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { g.observe("logout", start, false, err) }()
	defer g.client.ClearCookies()

	_, err = g.client.Do(ctx, http.MethodGet, g.endpoints.Logout, nil, nil)
	return err
}

// RequestResetCode asks the backend to mail a reset code to email
func (g *Gateway) RequestResetCode(ctx context.Context, email string) (*ResetResult, error) {
	return g.passwordReset(ctx, resetRequest{Action: ResetActionRequest, Email: email})
}

// VerifyResetCode checks a reset code for email
func (g *Gateway) VerifyResetCode(ctx context.Context, email, code string) (*ResetResult, error) {
	return g.passwordReset(ctx, resetRequest{Action: ResetActionVerify, Email: email, Code: code})
}

// ResetPassword sets a new password using a verified code
func (g *Gateway) ResetPassword(ctx context.Context, email, code, newPassword, confirm string) (*ResetResult, error) {
	return g.passwordReset(ctx, resetRequest{
		Action:          ResetActionReset,
		Email:           email,
		Code:            code,
		NewPassword:     newPassword,
		ConfirmPassword: confirm,
	})
}

func (g *Gateway) passwordReset(ctx context.Context, req resetRequest) (result *ResetResult, err error) {
	start := time.Now()
	defer func() { g.observe("password_reset_"+req.Action, start, false, err) }()

	var resp resetResponse
	status, err := g.client.Post(ctx, g.endpoints.PasswordReset, req, &resp)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, rejection(KindRejected, status, resp.Message, MsgRequestFailed)
	}

	return &ResetResult{Message: resp.Message, Username: resp.Username}, nil
}

func (g *Gateway) observe(operation string, start time.Time, absent bool, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		if f, ok := AsFailure(err); ok {
			outcome = string(f.Kind)
		} else {
			outcome = "error"
		}
	case absent:
		outcome = "absent"
	}
	g.metrics.ObserveGateway(operation, outcome, time.Since(start))
}
