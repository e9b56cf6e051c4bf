package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtrail/sigtrail/pkg/webservice"
)

type call struct {
	cfg    webservice.Config
	method string
	body   string
}

type respondFunc func(ctx context.Context, c call) (*webservice.Response, error)

type fakeTransport struct {
	mu      sync.Mutex
	calls   []call
	respond respondFunc
}

func (f *fakeTransport) factory(cfg webservice.Config) Transport {
	return &boundTransport{f: f, cfg: cfg}
}

func (f *fakeTransport) do(ctx context.Context, c call) (*webservice.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	return f.respond(ctx, c)
}

func (f *fakeTransport) lastCall(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

type boundTransport struct {
	f   *fakeTransport
	cfg webservice.Config
}

func (b *boundTransport) Get(ctx context.Context) (*webservice.Response, error) {
	return b.f.do(ctx, call{cfg: b.cfg, method: http.MethodGet})
}

func (b *boundTransport) Post(ctx context.Context, body string) (*webservice.Response, error) {
	return b.f.do(ctx, call{cfg: b.cfg, method: http.MethodPost, body: body})
}

func okBody(body string) respondFunc {
	return func(context.Context, call) (*webservice.Response, error) {
		return &webservice.Response{StatusCode: http.StatusOK, Status: "200 OK", Body: []byte(body)}, nil
	}
}

func statusBody(code int, body string) respondFunc {
	return func(context.Context, call) (*webservice.Response, error) {
		return nil, &webservice.StatusError{StatusCode: code, Status: http.StatusText(code), Header: http.Header{}, Body: []byte(body)}
	}
}

// recordingAuth records every call the client makes on the session.
type recordingAuth struct {
	mu      sync.Mutex
	token   string
	address string
	calls   []string
}

func (a *recordingAuth) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

func (a *recordingAuth) Address() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.address
}

func (a *recordingAuth) RemoveToken() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "removeToken")
	a.token = ""
	return nil
}

func (a *recordingAuth) RemoveAddress() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "removeAddress")
	a.address = ""
	return nil
}

type item struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

func newTestClient(t *testing.T, respond respondFunc, opts ...Option) (*Client[item, item], *fakeTransport, *recordingAuth, *int) {
	t.Helper()
	ft := &fakeTransport{respond: respond}
	auth := &recordingAuth{token: "session-token", address: "https://api.example.org"}
	reloads := new(int)
	opts = append([]Option{
		WithTransport(ft.factory),
		WithExpiredHandler(ExpiredFunc(func(context.Context) { *reloads++ })),
	}, opts...)
	return New[item, item]("https://api.example.org/items/", auth, opts...), ft, auth, reloads
}

func TestFetchAllReplacesEntities(t *testing.T) {
	c, ft, _, _ := newTestClient(t, okBody(`[{"id":1,"status":"a"},{"id":2,"status":"b"}]`))

	res := c.FetchAll(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, []item{{1, "a"}, {2, "b"}}, res.Entities)

	got := ft.lastCall(t)
	assert.Equal(t, "https://api.example.org/items", got.cfg.TargetPath)
	assert.Equal(t, "session-token", got.cfg.Token)
	assert.True(t, got.cfg.TokenRequired)
	assert.Equal(t, http.MethodGet, got.method)

	state := c.State()
	assert.Equal(t, res.Entities, state.Entities)
	assert.JSONEq(t, `[{"id":1,"status":"a"},{"id":2,"status":"b"}]`, string(state.Data))
	assert.False(t, state.Loading)
}

func TestFetchAllPreservesEntity(t *testing.T) {
	c, ft, _, _ := newTestClient(t, okBody(`{"id":9,"status":"created"}`))
	require.True(t, c.Submit(context.Background(), item{Status: "created"}))

	ft.respond = okBody(`[{"id":1,"status":"a"}]`)
	require.NoError(t, c.FetchAll(context.Background()).Err)

	state := c.State()
	require.NotNil(t, state.Entity)
	assert.Equal(t, item{9, "created"}, *state.Entity)
	assert.Equal(t, []item{{1, "a"}}, state.Entities)
}

func TestFetchAddressesSingleResource(t *testing.T) {
	c, ft, _, _ := newTestClient(t, okBody(`{"id":42,"status":"x"}`))

	res := c.Fetch(context.Background(), 42)
	require.NoError(t, res.Err)
	assert.Equal(t, "https://api.example.org/items/42", ft.lastCall(t).cfg.TargetPath)
	require.NotNil(t, res.Entity)
	assert.Equal(t, []item{{42, "x"}}, res.Entities)
	assert.Nil(t, c.State().Entity, "aggregate entity is only set by writes")

	c.Fetch(context.Background(), "a b/c")
	assert.Equal(t, "https://api.example.org/items/a%20b%2Fc", ft.lastCall(t).cfg.TargetPath)
}

func TestFetchEmptyAndNullBodies(t *testing.T) {
	for _, body := range []string{"", "null", "[]"} {
		c, _, _, _ := newTestClient(t, okBody(body))
		res := c.Fetch(context.Background(), 1)
		require.NoError(t, res.Err, body)
		assert.NotNil(t, res.Entities, body)
		assert.Empty(t, res.Entities, body)
	}
}

func TestFetchUnauthorizedRunsExpiryProtocol(t *testing.T) {
	c, _, auth, reloads := newTestClient(t, statusBody(http.StatusUnauthorized, `{"message":"token expired"}`))

	res := c.Fetch(context.Background(), 7)
	require.Error(t, res.Err)
	assert.True(t, IsUnauthorized(res.Err))

	assert.Equal(t, []string{"removeAddress", "removeToken"}, auth.calls)
	assert.Equal(t, 1, *reloads)
	assert.Equal(t, "", auth.Token())
	assert.Equal(t, "", auth.Address())

	state := c.State()
	assert.Equal(t, res.Err, state.Err)
	assert.False(t, state.Loading)
}

func TestFetchAllUnauthorizedRunsExpiryProtocol(t *testing.T) {
	c, _, auth, reloads := newTestClient(t, statusBody(http.StatusUnauthorized, ``))

	res := c.FetchAll(context.Background())
	assert.True(t, IsUnauthorized(res.Err))
	assert.Equal(t, []string{"removeAddress", "removeToken"}, auth.calls)
	assert.Equal(t, 1, *reloads)
}

func TestFetchOtherFailureOnlyRecordsError(t *testing.T) {
	c, _, auth, reloads := newTestClient(t, statusBody(http.StatusNotFound, `{"error":"no such signal"}`))

	res := c.Fetch(context.Background(), 3)
	var he *HTTPError
	require.True(t, errors.As(res.Err, &he))
	assert.Equal(t, http.StatusNotFound, he.Status)
	assert.Equal(t, "no such signal", he.Message)
	assert.Equal(t, KindHTTP, KindOf(res.Err))

	assert.Empty(t, auth.calls)
	assert.Equal(t, 0, *reloads)
	assert.Equal(t, res.Err, c.State().Err)
}

func TestFetchFailureKeepsPreviousEntities(t *testing.T) {
	c, ft, _, _ := newTestClient(t, okBody(`[{"id":1,"status":"a"}]`))
	require.NoError(t, c.FetchAll(context.Background()).Err)

	ft.respond = statusBody(http.StatusInternalServerError, ``)
	require.Error(t, c.FetchAll(context.Background()).Err)

	state := c.State()
	assert.Equal(t, []item{{1, "a"}}, state.Entities)
	assert.Error(t, state.Err)
}

func TestFetchDecodeFailureIsTransportError(t *testing.T) {
	c, _, _, _ := newTestClient(t, okBody(`{"id":"not a number"}`))

	res := c.Fetch(context.Background(), 1)
	var te *TransportError
	require.True(t, errors.As(res.Err, &te))
	assert.Equal(t, "decode", te.Op)
	assert.False(t, c.Loading())
}

func TestSubmitSendsJSONWithSessionToken(t *testing.T) {
	c, ft, _, _ := newTestClient(t, okBody(`{"id":5,"status":"active"}`))

	ok := c.Submit(context.Background(), item{ID: 5, Status: "active"})
	require.True(t, ok)

	got := ft.lastCall(t)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "https://api.example.org/items", got.cfg.TargetPath)
	assert.Equal(t, "session-token", got.cfg.Token)
	assert.JSONEq(t, `{"id":5,"status":"active"}`, got.body)

	state := c.State()
	require.NotNil(t, state.Entity)
	assert.Equal(t, item{5, "active"}, *state.Entity)
	assert.NoError(t, state.Err)
	assert.Equal(t, http.StatusOK, state.Status)
}

func TestSubmitClearsPriorError(t *testing.T) {
	c, ft, _, _ := newTestClient(t, statusBody(http.StatusBadRequest, ``))
	require.False(t, c.Submit(context.Background(), item{}))
	require.Error(t, c.State().Err)

	ft.respond = okBody(`{"id":1}`)
	require.True(t, c.Submit(context.Background(), item{}))
	assert.NoError(t, c.State().Err)
}

func TestSubmitWithTokenUsesOverride(t *testing.T) {
	c, ft, _, _ := newTestClient(t, okBody(`{"id":8,"status":"ok"}`))

	got := c.SubmitWithToken(context.Background(), item{Status: "ok"}, "override")
	require.NotNil(t, got)
	assert.Equal(t, item{8, "ok"}, *got)
	assert.Equal(t, "override", ft.lastCall(t).cfg.Token)

	c.SubmitWithToken(context.Background(), item{}, "")
	assert.Equal(t, "session-token", ft.lastCall(t).cfg.Token)
}

func TestWithoutTokenSendsEmptyToken(t *testing.T) {
	c, ft, _, _ := newTestClient(t, okBody(`{"id":1}`), WithoutToken())

	c.SubmitWithToken(context.Background(), item{}, "override")
	got := ft.lastCall(t)
	assert.Equal(t, "", got.cfg.Token)
	assert.False(t, got.cfg.TokenRequired)
}

func TestSubmitWithTokenUnauthorized(t *testing.T) {
	c, _, auth, reloads := newTestClient(t, statusBody(http.StatusUnauthorized, ``))

	got := c.SubmitWithToken(context.Background(), item{}, "stale")
	assert.Nil(t, got)
	assert.Equal(t, []string{"removeAddress", "removeToken"}, auth.calls)
	assert.Equal(t, 1, *reloads)
	assert.False(t, c.Loading())
}

func TestSubmitEncodeFailure(t *testing.T) {
	ft := &fakeTransport{respond: okBody(`{}`)}
	auth := &recordingAuth{token: "t"}
	c := New[map[string]any, map[string]any]("https://api.example.org/items", auth, WithTransport(ft.factory))

	bad := map[string]any{"callback": func() {}}
	assert.False(t, c.Submit(context.Background(), bad))
	assert.False(t, c.Loading())

	assert.Nil(t, c.SubmitWithToken(context.Background(), bad, "tok"))
	assert.False(t, c.Loading())

	var te *TransportError
	require.True(t, errors.As(c.State().Err, &te))
	assert.Equal(t, "encode", te.Op)
	assert.Empty(t, ft.calls, "nothing must be sent when encoding fails")
}

func TestTimeoutIsTransportError(t *testing.T) {
	block := func(ctx context.Context, _ call) (*webservice.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	c, _, _, _ := newTestClient(t, block, WithTimeout(20*time.Millisecond))

	res := c.Fetch(context.Background(), 1)
	var te *TransportError
	require.True(t, errors.As(res.Err, &te))
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.False(t, c.Loading())
}

func TestLoadingWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	wait := func(ctx context.Context, _ call) (*webservice.Response, error) {
		close(started)
		<-release
		return &webservice.Response{StatusCode: http.StatusOK, Body: []byte(`[]`)}, nil
	}
	c, _, _, _ := newTestClient(t, wait)

	ch := c.FetchAsync(context.Background(), 1)
	<-started
	assert.True(t, c.Loading())
	assert.True(t, c.State().Loading)

	close(release)
	res := <-ch
	require.NoError(t, res.Err)
	assert.False(t, c.Loading())
}

func TestResultsAreKeyedByRequest(t *testing.T) {
	c, ft, _, _ := newTestClient(t, okBody(`[{"id":1,"status":"first"}]`))
	first := c.Fetch(context.Background(), 1)

	ft.respond = okBody(`[{"id":2,"status":"second"}]`)
	second := c.Fetch(context.Background(), 2)

	assert.NotEqual(t, first.RequestID, second.RequestID)

	got, ok := c.Result(first.RequestID)
	require.True(t, ok)
	assert.Equal(t, []item{{1, "first"}}, got.Entities)
	assert.Equal(t, []item{{2, "second"}}, c.State().Entities)
	assert.False(t, got.FinishedAt.Before(got.StartedAt))
}

func TestResultHistoryIsBounded(t *testing.T) {
	c, _, _, _ := newTestClient(t, okBody(`[]`))
	first := c.FetchAll(context.Background())
	for i := 0; i < maxResults; i++ {
		c.FetchAll(context.Background())
	}
	_, ok := c.Result(first.RequestID)
	assert.False(t, ok)
}

func TestTrustedHostPassesSessionAddress(t *testing.T) {
	c, ft, _, _ := newTestClient(t, okBody(`[]`), WithTrustedHost())
	c.FetchAll(context.Background())
	assert.Equal(t, "https://api.example.org", ft.lastCall(t).cfg.TrustedHost)
}

func TestSubmitOutcomeFollowsStatus(t *testing.T) {
	c, ft, _, _ := newTestClient(t, statusBody(http.StatusUnprocessableEntity, `{"id":3,"status":"rejected"}`))
	assert.False(t, c.Submit(context.Background(), item{ID: 3}))
	assert.Nil(t, c.SubmitWithToken(context.Background(), item{ID: 3}, "tok"))
	assert.Nil(t, c.State().Entity)

	ft.respond = okBody("")
	assert.True(t, c.Submit(context.Background(), item{ID: 3}))
	state := c.State()
	assert.NoError(t, state.Err)
	assert.Nil(t, state.Entity)
	assert.Nil(t, c.SubmitWithToken(context.Background(), item{ID: 3}, "tok"))
	assert.False(t, c.Loading())
}
