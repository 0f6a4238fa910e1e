package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/andrebq/backoffice/internal/testutil"
	"github.com/andrebq/backoffice/store"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndCredentials(t *testing.T) {
	ctx := context.Background()
	st, cleanup := testutil.AcquireStore(ctx, t, "users")
	defer cleanup()

	id, err := st.RegisterUserAtomic(ctx, "alice", "digest", "User")
	require.NoError(t, err)
	require.NotZero(t, id)

	u, err := st.Credentials(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, store.User{ID: id, Username: "alice", PasswordHash: "digest", Roles: []string{"User"}}, u)

	_, err = st.Credentials(ctx, "Alice")
	require.True(t, errors.Is(err, store.ErrNotFound), "usernames are case sensitive")

	exists, err := st.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = st.UsernameExists(ctx, "bob")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	st, cleanup := testutil.AcquireStore(ctx, t, "users")
	defer cleanup()

	testutil.RegisterUser(ctx, t, st, "alice", "digest", "User")
	_, err := st.RegisterUserAtomic(ctx, "alice", "other", "Admin")
	require.True(t, errors.Is(err, store.ErrDuplicate), "got %v", err)

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "User", users[0].Role)
}

func TestConcurrentRegisterKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	st, cleanup := testutil.AcquireStore(ctx, t, "users")
	defer cleanup()

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.RegisterUserAtomic(ctx, "bob", "digest", "User")
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, store.ErrDuplicate):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, attempts-1, dup)

	n, err := st.CountUsersWithRole(ctx, "User")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRegisterUnknownRoleLeavesNoUser(t *testing.T) {
	ctx := context.Background()
	st, cleanup := testutil.AcquireStore(ctx, t, "users")
	defer cleanup()

	_, err := st.RegisterUserAtomic(ctx, "carol", "digest", "Root")
	var unknown store.UnknownRole
	require.True(t, errors.As(err, &unknown))

	exists, err := st.UsernameExists(ctx, "carol")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	st, cleanup := testutil.AcquireStore(ctx, t, "users")
	defer cleanup()

	id := testutil.RegisterUser(ctx, t, st, "alice", "digest", "User")
	testutil.RegisterUser(ctx, t, st, "bob", "digest", "User")

	require.NoError(t, st.UpdateUser(ctx, id, "alice2", "Admin"))
	u, err := st.Credentials(ctx, "alice2")
	require.NoError(t, err)
	require.Equal(t, []string{"Admin"}, u.Roles)

	err = st.UpdateUser(ctx, id, "bob", "Admin")
	require.True(t, errors.Is(err, store.ErrDuplicate), "got %v", err)

	err = st.UpdateUser(ctx, 9999, "nobody", "User")
	require.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	err = st.UpdateUser(ctx, id, "alice3", "Root")
	var unknown store.UnknownRole
	require.True(t, errors.As(err, &unknown))

	admins, err := st.CountUsersWithRole(ctx, "Admin")
	require.NoError(t, err)
	require.Equal(t, int64(1), admins)
	users, err := st.CountUsersWithRole(ctx, "User")
	require.NoError(t, err)
	require.Equal(t, int64(1), users)
}
