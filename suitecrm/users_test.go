package suitecrm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julien-nc/integration-suitecrm/store"
	"github.com/julien-nc/integration-suitecrm/suitecrm"
)

func TestGetAvatar(t *testing.T) {
	avatar := []byte{0x89, 'P', 'N', 'G'}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/index.php", r.URL.Path)
		assert.Equal(t, "download", r.URL.Query().Get("entryPoint"))
		assert.Equal(t, "crm-7_photo", r.URL.Query().Get("id"))
		assert.Equal(t, "Users", r.URL.Query().Get("type"))
		assert.Equal(t, "Bearer old-token", r.Header.Get("Authorization"))

		_, _ = w.Write(avatar)
	}))
	defer srv.Close()

	client := newClient(t, seedStore(t, srv.URL))

	got, err := client.GetAvatar(context.Background(), testUser, "crm-7")
	require.NoError(t, err)
	assert.Equal(t, avatar, got)
}

func TestGetAvatarErrors(t *testing.T) {
	t.Run("missing photo", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := newClient(t, seedStore(t, srv.URL))

		_, err := client.GetAvatar(context.Background(), testUser, "crm-7")
		require.Error(t, err)
		assert.Equal(t, suitecrm.ErrUpstream, suitecrm.ErrorKindOf(err))
	})

	t.Run("not connected", func(t *testing.T) {
		st := seedStore(t, "http://crm.example.org")
		require.NoError(t, st.SetUserValue(context.Background(), testUser, store.KeyToken, ""))

		client := newClient(t, st)

		_, err := client.GetAvatar(context.Background(), testUser, "crm-7")
		require.Error(t, err)
		assert.True(t, suitecrm.IsAuthError(err))
	})
}
