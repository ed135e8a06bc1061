package suitecrm_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/julien-nc/integration-suitecrm/store"
	"github.com/julien-nc/integration-suitecrm/store/memory"
	"github.com/julien-nc/integration-suitecrm/suitecrm"
)

const testUser = "alice"

// seedStore returns a memory store holding a fully configured instance and a
// connected test user.
func seedStore(t *testing.T, instanceURL string) store.Store {
	t.Helper()

	ctx := context.Background()
	st := memory.New()

	require.NoError(t, st.SetAppValue(ctx, store.KeyOauthInstanceURL, instanceURL))
	require.NoError(t, st.SetAppValue(ctx, store.KeyClientID, "client-id"))
	require.NoError(t, st.SetAppValue(ctx, store.KeyClientSecret, "client-secret"))
	require.NoError(t, st.SetUserValue(ctx, testUser, store.KeyToken, "old-token"))
	require.NoError(t, st.SetUserValue(ctx, testUser, store.KeyRefreshToken, "old-refresh"))
	require.NoError(t, st.SetUserValue(ctx, testUser, store.KeyUserID, "crm-1"))

	return st
}

func newClient(t *testing.T, st store.Store, opts ...suitecrm.Option) *suitecrm.Client {
	t.Helper()

	return suitecrm.NewClient(st, zap.NewNop(), opts...)
}

func TestRequestRefreshAndRetry(t *testing.T) {
	var exchanges int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Api/access_token" {
			atomic.AddInt32(&exchanges, 1)

			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
			assert.Equal(t, "client-id", r.PostForm.Get("client_id"))

			fmt.Fprint(w, `{"access_token":"new-token","refresh_token":"new-refresh"}`)

			return
		}

		assert.Equal(t, "Nextcloud SuiteCRM integration", r.Header.Get("User-Agent"))

		if r.Header.Get("Authorization") != "Bearer new-token" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	st := seedStore(t, srv.URL)
	client := newClient(t, st)

	body, err := client.Request(ctx, testUser, "module/Contacts", nil, http.MethodGet)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges))

	// the fresh pair replaced the old one
	token, err := st.GetUserValue(ctx, testUser, store.KeyToken, "")
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)

	refresh, err := st.GetUserValue(ctx, testUser, store.KeyRefreshToken, "")
	require.NoError(t, err)
	assert.Equal(t, "new-refresh", refresh)
}

func TestRequestSecondUnauthorizedIsAuthError(t *testing.T) {
	var exchanges int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Api/access_token" {
			atomic.AddInt32(&exchanges, 1)

			fmt.Fprint(w, `{"access_token":"new-token","refresh_token":"new-refresh"}`)

			return
		}

		// the instance rejects even the refreshed token
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newClient(t, seedStore(t, srv.URL))

	_, err := client.Request(context.Background(), testUser, "module/Contacts", nil, http.MethodGet)
	require.Error(t, err)
	assert.True(t, suitecrm.IsAuthError(err))

	// exactly one refresh attempt, no retry loop
	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges))
}

func TestRequestConcurrentRefreshSingleExchange(t *testing.T) {
	var exchanges int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Api/access_token" {
			atomic.AddInt32(&exchanges, 1)

			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

			fmt.Fprint(w, `{"access_token":"new-token","refresh_token":"new-refresh"}`)

			return
		}

		if r.Header.Get("Authorization") != "Bearer new-token" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	client := newClient(t, seedStore(t, srv.URL))

	const callers = 8

	var wg sync.WaitGroup

	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			_, errs[i] = client.Request(context.Background(), testUser, "module/Contacts", nil, http.MethodGet)
		}(i)
	}

	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}

	// the stored refresh token was consumed only once
	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges))
}

func TestRequestErrors(t *testing.T) {
	t.Run("no instance configured", func(t *testing.T) {
		client := newClient(t, memory.New())

		_, err := client.Request(context.Background(), testUser, "module/Contacts", nil, http.MethodGet)
		require.Error(t, err)
		assert.Equal(t, suitecrm.ErrConfig, suitecrm.ErrorKindOf(err))
	})

	t.Run("user not connected", func(t *testing.T) {
		st := seedStore(t, "http://crm.example.org")
		require.NoError(t, st.SetUserValue(context.Background(), testUser, store.KeyToken, ""))

		client := newClient(t, st)

		_, err := client.Request(context.Background(), testUser, "module/Contacts", nil, http.MethodGet)
		require.Error(t, err)
		assert.True(t, suitecrm.IsAuthError(err))
	})

	t.Run("upstream failure carries body snippet", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "database is on fire")
		}))
		defer srv.Close()

		client := newClient(t, seedStore(t, srv.URL))

		_, err := client.Request(context.Background(), testUser, "module/Contacts", nil, http.MethodGet)
		require.Error(t, err)
		assert.Equal(t, suitecrm.ErrUpstream, suitecrm.ErrorKindOf(err))
		assert.Contains(t, err.Error(), "database is on fire")
	})

	t.Run("non JSON body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "<html>login page</html>")
		}))
		defer srv.Close()

		client := newClient(t, seedStore(t, srv.URL))

		_, err := client.Request(context.Background(), testUser, "module/Contacts", nil, http.MethodGet)
		require.Error(t, err)
		assert.Equal(t, suitecrm.ErrDecode, suitecrm.ErrorKindOf(err))
	})

	t.Run("unreachable instance", func(t *testing.T) {
		client := newClient(t, seedStore(t, "http://127.0.0.1:1"))

		_, err := client.Request(context.Background(), testUser, "module/Contacts", nil, http.MethodGet)
		require.Error(t, err)
		assert.Equal(t, suitecrm.ErrTransport, suitecrm.ErrorKindOf(err))
	})
}
