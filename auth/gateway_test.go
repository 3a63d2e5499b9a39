package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobinette/papershelf/clients"
	"github.com/bobinette/papershelf/errors"
	"github.com/bobinette/papershelf/log"
	"github.com/bobinette/papershelf/mock"
)

func createGateway(t *testing.T) (*Gateway, *mock.Backend, func()) {
	backend := mock.NewBackend()
	srv := httptest.NewServer(backend)

	client, err := clients.NewClient(srv.Client(), srv.URL+"/api", log.NewNop())
	require.NoError(t, err)

	return NewGateway(client, log.NewNop()), backend, srv.Close
}

func TestGateway_Login(t *testing.T) {
	gateway, backend, f := createGateway(t)
	defer f()

	ada, err := backend.AddUser("ada", "ada@example.com", "engine")
	require.NoError(t, err)

	tts := map[string]struct {
		username string
		password string
		kind     errors.Kind
		message  string
		calls    int
	}{
		"success": {
			username: "ada",
			password: "engine",
			calls:    1,
		},
		"wrong password": {
			username: "ada",
			password: "difference",
			kind:     errors.InvalidCredentials,
			message:  "Invalid username or password",
			calls:    1,
		},
		"unknown user": {
			username: "charles",
			password: "engine",
			kind:     errors.InvalidCredentials,
			message:  "Invalid username or password",
			calls:    1,
		},
		"missing password": {
			username: "ada",
			password: "",
			kind:     errors.Validation,
			message:  "Username and password are required",
			calls:    0,
		},
	}

	for name, tt := range tts {
		before := backend.Calls()
		s, err := gateway.Login(context.Background(), tt.username, tt.password)
		assert.Equal(t, tt.calls, backend.Calls()-before, name)

		if tt.kind == errors.Unknown {
			require.NoError(t, err, name)
			assert.Equal(t, ada, s, name)
			continue
		}

		errors.AssertKind(t, err, tt.kind)
		assert.Equal(t, tt.message, errors.Message(err), name)
	}
}

func TestGateway_Register(t *testing.T) {
	gateway, backend, f := createGateway(t)
	defer f()

	_, err := backend.AddUser("ada", "ada@example.com", "engine")
	require.NoError(t, err)

	s, err := gateway.Register(context.Background(), clients.RegisterRequest{
		Username:    "grace",
		Email:       "grace@example.com",
		Password:    "cobol",
		Affiliation: "Navy",
	})
	require.NoError(t, err)
	assert.Equal(t, "grace", s.Username)
	assert.Equal(t, "grace (Navy)", s.DisplayName())

	tts := map[string]struct {
		req     clients.RegisterRequest
		message string
	}{
		"duplicate username": {
			req:     clients.RegisterRequest{Username: "ada", Email: "other@example.com", Password: "x"},
			message: "Username already exists",
		},
		"duplicate email": {
			req:     clients.RegisterRequest{Username: "lovelace", Email: "ada@example.com", Password: "x"},
			message: "Email already exists",
		},
		"missing email": {
			req:     clients.RegisterRequest{Username: "lovelace", Password: "x"},
			message: "Username, email, and password are required",
		},
	}

	for name, tt := range tts {
		_, err := gateway.Register(context.Background(), tt.req)
		errors.AssertKind(t, err, errors.Validation)
		assert.Equal(t, tt.message, errors.Message(err), name)
	}
}

func TestGateway_Profile(t *testing.T) {
	gateway, backend, f := createGateway(t)
	defer f()

	ada, err := backend.AddUser("ada", "ada@example.com", "engine")
	require.NoError(t, err)

	updated, err := gateway.UpdateProfile(context.Background(), ada.UserID, clients.ProfileUpdate{FieldOfStudy: "Poetical science"})
	require.NoError(t, err)
	assert.Equal(t, "Poetical science", updated.FieldOfStudy)

	profile, err := gateway.Profile(context.Background(), ada.UserID)
	require.NoError(t, err)
	assert.Equal(t, updated, profile)

	_, err = gateway.Profile(context.Background(), 404)
	errors.AssertKind(t, err, errors.Fetch)
}

func TestGateway_Transport(t *testing.T) {
	gateway, _, f := createGateway(t)
	f()

	_, err := gateway.Login(context.Background(), "ada", "engine")
	errors.AssertKind(t, err, errors.Transport)

	_, err = gateway.Register(context.Background(), clients.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "engine"})
	errors.AssertKind(t, err, errors.Transport)
}
