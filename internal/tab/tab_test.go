package tab_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/student-portal/internal/events"
	"github.com/magabrotheeeer/student-portal/internal/metrics"
	"github.com/magabrotheeeer/student-portal/internal/models"
	"github.com/magabrotheeeer/student-portal/internal/session"
	"github.com/magabrotheeeer/student-portal/internal/tab"
	"github.com/magabrotheeeer/student-portal/internal/transport"
	"github.com/magabrotheeeer/student-portal/internal/view"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type recordingNav struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNav) Replace(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

// backend фейковый бэкенд портала, ответы задаются по пути.
type backend struct {
	mu        sync.Mutex
	responses map[string]response
	calls     map[string]int
}

type response struct {
	status int
	body   string
}

func newBackend(t *testing.T, responses map[string]response) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{responses: responses, calls: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.URL.Path]++
		resp, ok := b.responses[r.URL.Path]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func newTab(t *testing.T, srv *httptest.Server, pub events.Publisher, m *metrics.Metrics) *tab.Tab {
	t.Helper()
	return tab.New("tab-1", tab.Deps{
		Transport: transport.New(srv.URL, srv.Client(), nil, newNoopLogger(), m),
		Backend:   session.NewMemoryBackend(),
		Events:    pub,
		Metrics:   m,
		Log:       newNoopLogger(),
	})
}

func waitView[T any](t *testing.T, v *view.View[T]) view.State[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	st, err := v.Wait(ctx)
	require.NoError(t, err)
	return st
}

func TestTab_LoginStoresTokens(t *testing.T) {
	_, srv := newBackend(t, map[string]response{
		"/auth/login": {http.StatusOK, `{"access_token":"A","refresh_token":"R","user_id":"u1"}`},
	})
	pub := &recordingPublisher{}
	tb := newTab(t, srv, pub, metrics.Nop())

	res, err := tb.Login(context.Background(), "alice", "x")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.UserID)

	token, err := tb.Store().AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", token)
	assert.Equal(t, []events.Type{events.TypeLogin}, pub.Types())
}

func TestTab_ProfileUnauthorizedClearsSessionAndRedirects(t *testing.T) {
	_, srv := newBackend(t, map[string]response{
		"/auth/login":    {http.StatusOK, `{"access_token":"A","refresh_token":"R"}`},
		"/users/profile": {http.StatusUnauthorized, `{"detail":"Unauthorized"}`},
	})
	pub := &recordingPublisher{}
	m := metrics.Nop()
	tb := newTab(t, srv, pub, m)
	ctx := context.Background()

	_, err := tb.Login(ctx, "alice", "x")
	require.NoError(t, err)

	nav := &recordingNav{}
	v := tb.NewProfileView(nav)
	v.Mount(ctx)
	st := waitView(t, v)

	assert.Equal(t, view.StatusRedirecting, st.Status)
	assert.Equal(t, []string{"/login"}, nav.routes)

	sess, err := tb.Store().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Session{}, sess)

	assert.Equal(t, []events.Type{events.TypeLogin, events.TypeSessionExpired}, pub.Types())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Redirects.WithLabelValues(view.NameProfile)))
}

func TestTab_ProfileViewSendsBearerAndCaches(t *testing.T) {
	var gotAuth string
	var gotBody models.TokenPair
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_, _ = w.Write([]byte(`{"access_token":"A","refresh_token":"R"}`))
		case "/users/profile":
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			_, _ = w.Write([]byte(`{"user_id":"u1","name":"Ann","surname":"Lee"}`))
		}
	}))
	defer srv.Close()

	tb := newTab(t, srv, nil, nil)
	ctx := context.Background()
	_, err := tb.Login(ctx, "alice", "x")
	require.NoError(t, err)

	v := tb.NewProfileView(&recordingNav{})
	v.Mount(ctx)
	st := waitView(t, v)

	require.Equal(t, view.StatusReady, st.Status)
	assert.Equal(t, "Ann Lee", st.Data.FullName())
	assert.Equal(t, "Bearer A", gotAuth)
	assert.Equal(t, models.TokenPair{AccessToken: "A", RefreshToken: "R"}, gotBody)

	cached, ok := tb.Profile().Cached()
	assert.True(t, ok)
	assert.Equal(t, "u1", cached.UserID)
}

func TestTab_GroupsViewReady(t *testing.T) {
	_, srv := newBackend(t, map[string]response{
		"/auth/login":    {http.StatusOK, `{"access_token":"A","refresh_token":"R"}`},
		"/users/profile": {http.StatusOK, `{"user_id":"u1"}`},
		"/group/my":      {http.StatusOK, `{"data":[{"id":1,"name":"G1"}]}`},
	})
	tb := newTab(t, srv, nil, nil)
	ctx := context.Background()

	_, err := tb.Login(ctx, "alice", "x")
	require.NoError(t, err)
	_, err = tb.Profile().FetchOnce(ctx, false)
	require.NoError(t, err)

	v := tb.NewGroupsView(&recordingNav{})
	v.Mount(ctx)
	st := waitView(t, v)

	require.Equal(t, view.StatusReady, st.Status)
	assert.Equal(t, []models.Group{{ID: "1", Name: "G1"}}, st.Data)
}

func TestTab_LogoutClearsEvenWhenBackendFails(t *testing.T) {
	b, srv := newBackend(t, map[string]response{
		"/auth/login":  {http.StatusOK, `{"access_token":"A","refresh_token":"R"}`},
		"/auth/logout": {http.StatusInternalServerError, `{"detail":"Ошибка"}`},
	})
	pub := &recordingPublisher{}
	tb := newTab(t, srv, pub, nil)
	ctx := context.Background()

	_, err := tb.Login(ctx, "alice", "x")
	require.NoError(t, err)

	_, err = tb.Logout(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, b.Calls("/auth/logout"))

	sess, err := tb.Store().Get(ctx)
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
	assert.Equal(t, []events.Type{events.TypeLogin, events.TypeLogout}, pub.Types())
}

func TestTab_LoginDropsPreviousProfile(t *testing.T) {
	b, srv := newBackend(t, map[string]response{
		"/auth/login":    {http.StatusOK, `{"access_token":"A","refresh_token":"R"}`},
		"/users/profile": {http.StatusOK, `{"user_id":"u1"}`},
	})
	tb := newTab(t, srv, nil, nil)
	ctx := context.Background()

	_, err := tb.Login(ctx, "alice", "x")
	require.NoError(t, err)
	_, err = tb.Profile().FetchOnce(ctx, false)
	require.NoError(t, err)

	_, err = tb.Login(ctx, "bob", "y")
	require.NoError(t, err)
	_, ok := tb.Profile().Cached()
	assert.False(t, ok)

	_, err = tb.Profile().FetchOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Calls("/users/profile"))
}
