package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtrail/sigtrail/internal/server"
	"github.com/sigtrail/sigtrail/pkg/history"
	"github.com/sigtrail/sigtrail/pkg/session"
)

func startBackend(t *testing.T, token string) (*httptest.Server, *server.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := server.NewStore()
	srv := httptest.NewServer(server.New(store, "history-signals", token).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestHistoryRoundTrip(t *testing.T) {
	srv, _ := startBackend(t, "secret")
	auth := session.NewMemoryContext(srv.URL, "secret")
	c := New[history.Snapshot, history.Snapshot](srv.URL+"/history-signals", auth, WithTrustedHost())

	ctx := context.Background()
	first := history.NewSnapshot(
		history.Field{Name: "id", Value: 5.0},
		history.Field{Name: "status", Value: "active"},
	)
	require.True(t, c.Submit(ctx, first))
	stored := c.SubmitWithToken(ctx, first.With("status", "closed"), "secret")
	require.NotNil(t, stored)
	assert.Equal(t, "5", stored.ID())

	res := c.Fetch(ctx, 5)
	require.NoError(t, res.Err)
	require.Len(t, res.Entities, 2)

	entries := history.BuildChangelog(res.Entities)
	require.Len(t, entries, 2)
	status, _ := entries[0].Newer.Get("status")
	assert.Equal(t, "closed", status)
	assert.True(t, entries[0].Changes.Has("status"))
	assert.Empty(t, entries[1].Changes)

	all := c.FetchAll(ctx)
	require.NoError(t, all.Err)
	assert.Len(t, all.Entities, 1)
}

func TestExpiredTokenAgainstBackend(t *testing.T) {
	srv, _ := startBackend(t, "fresh")
	auth := session.NewMemoryContext(srv.URL, "stale")
	reloaded := false
	c := New[history.Snapshot, history.Snapshot](srv.URL+"/history-signals", auth,
		WithExpiredHandler(ExpiredFunc(func(context.Context) { reloaded = true })))

	res := c.Fetch(context.Background(), 1)
	require.Error(t, res.Err)
	assert.True(t, IsUnauthorized(res.Err))
	assert.True(t, reloaded)
	assert.Equal(t, "", auth.Token())
	assert.Equal(t, "", auth.Address())
	assert.False(t, c.Loading())
}

func TestMissingSessionToken(t *testing.T) {
	srv, store := startBackend(t, "")
	auth := session.NewMemoryContext(srv.URL, "")
	c := New[history.Snapshot, history.Snapshot](srv.URL+"/history-signals", auth)

	res := c.FetchAll(context.Background())
	assert.Equal(t, KindTransport, KindOf(res.Err))

	open := New[history.Snapshot, history.Snapshot](srv.URL+"/history-signals", auth, WithoutToken())
	require.True(t, open.Submit(context.Background(), history.NewSnapshot(history.Field{Name: "id", Value: "x"})))
	assert.Equal(t, 1, store.Len())
}
