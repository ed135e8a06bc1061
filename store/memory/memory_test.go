package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julien-nc/integration-suitecrm/store/memory"
)

func TestUserValues(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	val, err := st.GetUserValue(ctx, "u1", "token", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", val)

	require.NoError(t, st.SetUserValue(ctx, "u1", "token", "abc"))

	val, err = st.GetUserValue(ctx, "u1", "token", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "abc", val)

	// values are scoped per user
	val, err = st.GetUserValue(ctx, "u2", "token", "")
	require.NoError(t, err)
	assert.Empty(t, val)

	// overwrite
	require.NoError(t, st.SetUserValue(ctx, "u1", "token", "def"))

	val, err = st.GetUserValue(ctx, "u1", "token", "")
	require.NoError(t, err)
	assert.Equal(t, "def", val)
}

func TestAppValues(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	val, err := st.GetAppValue(ctx, "client_id", "none")
	require.NoError(t, err)
	assert.Equal(t, "none", val)

	require.NoError(t, st.SetAppValue(ctx, "client_id", "cid"))

	val, err = st.GetAppValue(ctx, "client_id", "none")
	require.NoError(t, err)
	assert.Equal(t, "cid", val)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, st.SetUserValue(ctx, "zoe", "token", "z"))
	require.NoError(t, st.SetUserValue(ctx, "alice", "token", "a"))
	require.NoError(t, st.SetUserValue(ctx, "alice", "user_id", "1"))

	users, err = st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "zoe"}, users)
}

func TestClose(t *testing.T) {
	assert.NoError(t, memory.New().Close())
}
