package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/bobinette/papershelf"
	"github.com/bobinette/papershelf/clients"
	"github.com/bobinette/papershelf/errors"
	"github.com/bobinette/papershelf/log"
)

type Client interface {
	Login(ctx context.Context, username, password string) (papershelf.Session, error)
	Register(ctx context.Context, r clients.RegisterRequest) (papershelf.Session, error)
	Profile(ctx context.Context, userID int) (papershelf.Session, error)
	UpdateProfile(ctx context.Context, userID int, u clients.ProfileUpdate) (papershelf.Session, error)
}

// Gateway verifies credentials against the backend. It never touches the
// session state: feeding the returned Session to the session manager is up
// to the caller. Failed attempts are not retried.
type Gateway struct {
	client Client
	logger log.Logger
}

func NewGateway(c Client, logger log.Logger) *Gateway {
	return &Gateway{
		client: c,
		logger: logger,
	}
}

func (g *Gateway) Login(ctx context.Context, username, password string) (papershelf.Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return papershelf.Session{}, errors.New("Username and password are required", errors.WithKind(errors.Validation), errors.BadRequest())
	}

	s, err := g.client.Login(ctx, username, password)
	if err != nil {
		g.logger.Errorf("login of %s failed: %v", username, err)
		return papershelf.Session{}, classify(err, errors.InvalidCredentials)
	}

	return checkSession(s)
}

func (g *Gateway) Register(ctx context.Context, r clients.RegisterRequest) (papershelf.Session, error) {
	if strings.TrimSpace(r.Username) == "" || strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return papershelf.Session{}, errors.New("Username, email, and password are required", errors.WithKind(errors.Validation), errors.BadRequest())
	}

	s, err := g.client.Register(ctx, r)
	if err != nil {
		g.logger.Errorf("registration of %s failed: %v", r.Username, err)
		return papershelf.Session{}, classify(err, errors.Validation)
	}

	return checkSession(s)
}

// Profile fetches the up to date user record of userID.
func (g *Gateway) Profile(ctx context.Context, userID int) (papershelf.Session, error) {
	s, err := g.client.Profile(ctx, userID)
	if err != nil {
		g.logger.Errorf("could not fetch profile %d: %v", userID, err)
		return papershelf.Session{}, classify(err, errors.Fetch)
	}

	return checkSession(s)
}

func (g *Gateway) UpdateProfile(ctx context.Context, userID int, u clients.ProfileUpdate) (papershelf.Session, error) {
	s, err := g.client.UpdateProfile(ctx, userID, u)
	if err != nil {
		g.logger.Errorf("could not update profile %d: %v", userID, err)
		return papershelf.Session{}, classify(err, errors.Validation)
	}

	return checkSession(s)
}

// classify keeps transport failures as they are and gives every other
// failure the kind of the operation. The backend message is kept.
func classify(err error, kind errors.Kind) error {
	if errors.Is(err, errors.Transport) {
		return err
	}
	return errors.WithKind(kind)(err)
}

func checkSession(s papershelf.Session) (papershelf.Session, error) {
	if !s.Valid() {
		return papershelf.Session{}, errors.New("invalid user returned by server", errors.WithCode(http.StatusBadGateway))
	}
	return s, nil
}
