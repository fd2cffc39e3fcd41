package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Duke0404/readersync/internal/errors"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Log in to the backend",
		Description: "Authenticates against the configured backend. The session cookie is held by the daemon.",
		Tags:        []string{"Auth"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/register",
		Summary:       "Register a backend account",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Auth"},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "validateAuth",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/validate",
		Summary:     "Check whether the backend session is valid",
		Tags:        []string{"Auth"},
	}, s.handleValidateAuth)
}

// CredentialsInput carries backend credentials.
type CredentialsInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" doc:"Backend username"`
		Password string `json:"password" minLength:"1" doc:"Backend password"`
	}
}

// AuthOutput acknowledges a successful auth operation.
type AuthOutput struct {
	Body struct {
		Backend string `json:"backend" doc:"Backend connectivity after the operation"`
	}
}

func (s *Server) handleLogin(ctx context.Context, input *CredentialsInput) (*AuthOutput, error) {
	if err := s.services.Remote.Login(ctx, input.Body.Username, input.Body.Password); err != nil {
		return nil, err
	}

	// A fresh session changes connectivity; re-probe without waiting for
	// the poll interval.
	s.services.Poller.Kick()

	out := &AuthOutput{}
	out.Body.Backend = s.services.Poller.Status().String()
	return out, nil
}

// ValidateAuthOutput reports session validity and backend connectivity.
type ValidateAuthOutput struct {
	Body struct {
		Valid   bool   `json:"valid" doc:"Whether the backend accepts the current session"`
		Backend string `json:"backend" doc:"Current backend connectivity"`
	}
}

func (s *Server) handleValidateAuth(ctx context.Context, _ *struct{}) (*ValidateAuthOutput, error) {
	out := &ValidateAuthOutput{}
	out.Body.Backend = s.services.Poller.Status().String()

	valid, err := s.services.Remote.ValidateAuth(ctx)
	if err != nil {
		// An unreachable or unconfigured backend is not a request error,
		// the session is simply not usable right now.
		switch errors.CodeOf(err) {
		case errors.CodeUnreachable, errors.CodeNotConfigured:
			return out, nil
		default:
			return nil, err
		}
	}

	out.Body.Valid = valid
	return out, nil
}

func (s *Server) handleRegister(ctx context.Context, input *CredentialsInput) (*AuthOutput, error) {
	if err := s.services.Remote.Register(ctx, input.Body.Username, input.Body.Password); err != nil {
		return nil, err
	}

	s.services.Poller.Kick()

	out := &AuthOutput{}
	out.Body.Backend = s.services.Poller.Status().String()
	return out, nil
}
