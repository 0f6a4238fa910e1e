package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andrebq/backoffice/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newTestService(ctx context.Context, t *testing.T) (*Service, func()) {
	st, cleanup := testutil.AcquireStore(ctx, t, "auth")
	deny, err := InMemoryDenylist(time.Hour, nil)
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	return NewService(st, NewHasher(DefaultHashCost), NewTokens([]byte("jwt-secret"), time.Hour, nil), deny), cleanup
}

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	svc, cleanup := newTestService(ctx, t)
	defer cleanup()

	id, err := svc.Register(ctx, "alice", "s3cret", RoleUser)
	require.NoError(t, err)

	res, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.Equal(t, Identity{Username: "alice", Roles: []string{RoleUser}, UserID: id}, res.Claims.Identity())

	claims, err := svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, []string{RoleUser}, claims.Roles)
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	ctx := context.Background()
	svc, cleanup := newTestService(ctx, t)
	defer cleanup()
	_, err := svc.Register(ctx, "alice", "s3cret", RoleUser)
	require.NoError(t, err)

	_, unknown := svc.Login(ctx, "mallory", "s3cret")
	_, wrong := svc.Login(ctx, "alice", "wrong")
	require.True(t, errors.Is(unknown, ErrInvalidCredentials))
	require.True(t, errors.Is(wrong, ErrInvalidCredentials))
	require.Equal(t, unknown.Error(), wrong.Error())

	_, err = svc.Login(ctx, "", "s3cret")
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "Username and password are required", verr.Msg)
}

func TestLoginWithoutRolesLooksLikeUnknownUser(t *testing.T) {
	ctx := context.Background()
	st, db, cleanup := testutil.AcquireDB(ctx, t, "auth")
	defer cleanup()
	deny, err := InMemoryDenylist(time.Hour, nil)
	require.NoError(t, err)
	svc := NewService(st, NewHasher(DefaultHashCost), NewTokens([]byte("jwt-secret"), time.Hour, nil), deny)

	id, err := svc.Register(ctx, "alice", "s3cret", RoleUser)
	require.NoError(t, err)
	testutil.UnlinkRoles(ctx, t, db, id)

	_, roleless := svc.Login(ctx, "alice", "s3cret")
	_, unknown := svc.Login(ctx, "mallory", "s3cret")
	require.True(t, errors.Is(roleless, ErrInvalidCredentials), "got %v", roleless)
	require.Equal(t, unknown.Error(), roleless.Error())
}

func TestDecoyDigestIsReady(t *testing.T) {
	ctx := context.Background()
	svc, cleanup := newTestService(ctx, t)
	defer cleanup()
	require.NotEmpty(t, svc.decoy)
	require.True(t, svc.hasher.Verify(decoyPassword, svc.decoy))

	registerOnly := NewService(nil, NewHasher(DefaultHashCost), nil, nil)
	require.Empty(t, registerOnly.decoy)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, cleanup := newTestService(ctx, t)
	defer cleanup()

	_, err := svc.Register(ctx, "alice", "s3cret", "")
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "All fields are required", verr.Msg)

	_, err = svc.Register(ctx, "alice", "s3cret", RoleUser)
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice", "other", RoleAdmin)
	require.True(t, errors.Is(err, ErrUsernameTaken))

	_, err = svc.Register(ctx, "bob", "s3cret", "Root")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrUsernameTaken))
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc, cleanup := newTestService(ctx, t)
	defer cleanup()
	_, err := svc.Register(ctx, "alice", "s3cret", RoleUser)
	require.NoError(t, err)
	first, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, first.Token))
	_, err = svc.Verify(ctx, first.Token)
	require.True(t, errors.Is(err, ErrInvalidToken))

	_, err = svc.Verify(ctx, second.Token)
	require.NoError(t, err, "other sessions stay valid")

	require.NoError(t, svc.Logout(ctx, "garbage"))
	_, err = svc.Verify(ctx, "")
	require.True(t, errors.Is(err, ErrNoToken))
}
