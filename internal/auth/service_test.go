package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/apperr"
	"relay/internal/auth"
	"relay/internal/testutil"
)

func TestRegisterLogin(t *testing.T) {
	svc := &auth.Service{DB: testutil.DB(t)}
	ctx := context.Background()

	u, err := svc.Register(ctx, auth.RegisterInput{Email: " Ana@Relay.test ", Password: "secret-password", Username: "ana"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ana@relay.test", u.Email)

	p, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", p.Username)

	got, err := svc.Login(ctx, "ana@relay.test", "secret-password")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Login(ctx, "ana@relay.test", "nope-nope")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@relay.test", "secret-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRegisterRejects(t *testing.T) {
	svc := &auth.Service{DB: testutil.DB(t)}
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterInput{Email: "a@relay.test", Password: "short", Username: "a"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = svc.Register(ctx, auth.RegisterInput{Email: "a@relay.test", Password: "secret-password"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "a@relay.test", Password: "secret-password", Username: "a"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, auth.RegisterInput{Email: "A@relay.test", Password: "secret-password", Username: "b"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestProfileNotFound(t *testing.T) {
	svc := &auth.Service{DB: testutil.DB(t)}
	_, err := svc.Profile(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
