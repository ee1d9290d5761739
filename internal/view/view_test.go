package view_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/student-portal/internal/apierr"
	"github.com/magabrotheeeer/student-portal/internal/models"
	"github.com/magabrotheeeer/student-portal/internal/view"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
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

func (n *recordingNav) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

type recordingExpirer struct {
	mu    sync.Mutex
	views []string
}

func (e *recordingExpirer) ExpireSession(_ context.Context, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.views = append(e.views, name)
}

func (e *recordingExpirer) Views() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.views...)
}

type profileFunc func(ctx context.Context, force bool) (models.Identity, error)

func (f profileFunc) FetchOnce(ctx context.Context, force bool) (models.Identity, error) {
	return f(ctx, force)
}

type groupsFunc func(ctx context.Context) ([]models.Group, error)

func (f groupsFunc) ListMine(ctx context.Context) ([]models.Group, error) {
	return f(ctx)
}

func waitState[T any](t *testing.T, v *view.View[T]) view.State[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	st, err := v.Wait(ctx)
	require.NoError(t, err)
	return st
}

func TestProfileView_Ready(t *testing.T) {
	nav, exp := &recordingNav{}, &recordingExpirer{}
	v := view.NewProfileView(profileFunc(func(context.Context, bool) (models.Identity, error) {
		return models.Identity{UserID: "u1", Name: "Ann"}, nil
	}), nav, exp, newNoopLogger())

	assert.Equal(t, view.StatusLoading, v.State().Status)

	v.Mount(context.Background())
	st := waitState(t, v)

	assert.Equal(t, view.StatusReady, st.Status)
	assert.Equal(t, "Ann", st.Data.Name)
	assert.Empty(t, nav.Routes())
	assert.Empty(t, exp.Views())
}

func TestProfileView_UnauthorizedRedirects(t *testing.T) {
	nav, exp := &recordingNav{}, &recordingExpirer{}
	v := view.NewProfileView(profileFunc(func(context.Context, bool) (models.Identity, error) {
		return models.Identity{}, apierr.New(http.StatusUnauthorized, "Unauthorized", "/users/profile")
	}), nav, exp, newNoopLogger())

	v.Mount(context.Background())
	st := waitState(t, v)

	assert.Equal(t, view.StatusRedirecting, st.Status)
	assert.Empty(t, st.Message)
	assert.Equal(t, []string{view.LoginRoute}, nav.Routes())
	assert.Equal(t, []string{view.NameProfile}, exp.Views())
}

func TestProfileView_FailureShowsMessage(t *testing.T) {
	nav, exp := &recordingNav{}, &recordingExpirer{}
	v := view.NewProfileView(profileFunc(func(context.Context, bool) (models.Identity, error) {
		return models.Identity{}, apierr.New(http.StatusInternalServerError, "Ошибка сервера", "/users/profile")
	}), nav, exp, newNoopLogger())

	v.Mount(context.Background())
	st := waitState(t, v)

	assert.Equal(t, view.StatusFailed, st.Status)
	assert.Equal(t, "Ошибка сервера", st.Message)
	assert.Empty(t, nav.Routes())
	assert.Empty(t, exp.Views())
}

func TestProfileView_RefetchForces(t *testing.T) {
	var mu sync.Mutex
	var forces []bool
	v := view.NewProfileView(profileFunc(func(_ context.Context, force bool) (models.Identity, error) {
		mu.Lock()
		defer mu.Unlock()
		forces = append(forces, force)
		if force {
			return models.Identity{Name: "New"}, nil
		}
		return models.Identity{Name: "Old"}, nil
	}), &recordingNav{}, &recordingExpirer{}, newNoopLogger())

	v.Mount(context.Background())
	assert.Equal(t, "Old", waitState(t, v).Data.Name)

	v.Refetch(context.Background())
	assert.Equal(t, "New", waitState(t, v).Data.Name)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false, true}, forces)
}

func TestProfileView_RefetchUnauthorizedRedirects(t *testing.T) {
	nav, exp := &recordingNav{}, &recordingExpirer{}
	v := view.NewProfileView(profileFunc(func(_ context.Context, force bool) (models.Identity, error) {
		if force {
			return models.Identity{}, apierr.New(http.StatusUnauthorized, "", "/users/profile")
		}
		return models.Identity{Name: "Ann"}, nil
	}), nav, exp, newNoopLogger())

	v.Mount(context.Background())
	require.Equal(t, view.StatusReady, waitState(t, v).Status)

	v.Refetch(context.Background())
	assert.Equal(t, view.StatusRedirecting, waitState(t, v).Status)
	assert.Equal(t, []string{view.LoginRoute}, nav.Routes())
}

func TestView_UnmountDropsLateResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	nav, exp := &recordingNav{}, &recordingExpirer{}
	v := view.NewProfileView(profileFunc(func(context.Context, bool) (models.Identity, error) {
		close(started)
		<-release
		return models.Identity{Name: "Late"}, nil
	}), nav, exp, newNoopLogger())

	var changes []view.Status
	var mu sync.Mutex
	v.OnChange(func(st view.State[models.Identity]) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, st.Status)
	})

	v.Mount(context.Background())
	<-started
	v.Unmount()

	select {
	case <-v.Done():
	default:
		t.Fatal("done must be closed after unmount")
	}

	close(release)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, view.StatusLoading, v.State().Status)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []view.Status{view.StatusLoading}, changes)
}

func TestView_UnmountedUnauthorizedExpiresWithoutRedirect(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	nav, exp := &recordingNav{}, &recordingExpirer{}
	v := view.NewGroupsView(groupsFunc(func(ctx context.Context) ([]models.Group, error) {
		close(started)
		<-release
		return nil, apierr.New(http.StatusUnauthorized, "", "/group/my")
	}), nav, exp, newNoopLogger())

	v.Mount(context.Background())
	<-started
	v.Unmount()
	close(release)

	require.Eventually(t, func() bool { return len(exp.Views()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, nav.Routes())
	assert.Equal(t, view.StatusLoading, v.State().Status)
}

func TestGroupsView_UnmountKeepsRequestRunning(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	errAfterUnmount := make(chan error, 1)
	nav, exp := &recordingNav{}, &recordingExpirer{}
	v := view.NewGroupsView(groupsFunc(func(ctx context.Context) ([]models.Group, error) {
		close(started)
		<-release
		errAfterUnmount <- ctx.Err()
		return nil, apierr.New(http.StatusUnauthorized, "", "/group/my")
	}), nav, exp, newNoopLogger())

	v.Mount(context.Background())
	<-started
	v.Unmount()
	close(release)

	assert.NoError(t, <-errAfterUnmount)
	require.Eventually(t, func() bool { return len(exp.Views()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, nav.Routes())
}

func TestView_RefetchIgnoredWhenUnmounted(t *testing.T) {
	calls := 0
	v := view.NewProfileView(profileFunc(func(context.Context, bool) (models.Identity, error) {
		calls++
		return models.Identity{}, nil
	}), &recordingNav{}, &recordingExpirer{}, newNoopLogger())

	v.Refetch(context.Background())
	assert.Equal(t, 0, calls)
}

func TestGroupsView(t *testing.T) {
	tests := []struct {
		name       string
		list       []models.Group
		err        error
		wantStatus view.Status
		wantMsg    string
		wantRoutes []string
	}{
		{
			name:       "ready",
			list:       []models.Group{{ID: "1", Name: "G1"}},
			wantStatus: view.StatusReady,
		},
		{
			name:       "unauthorized redirects like profile",
			err:        apierr.New(http.StatusUnauthorized, "Unauthorized", "/group/my"),
			wantStatus: view.StatusRedirecting,
			wantRoutes: []string{view.LoginRoute},
		},
		{
			name:       "network failure",
			err:        apierr.Network("/group/my", errors.New("connection refused")),
			wantStatus: view.StatusFailed,
			wantMsg:    "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav, exp := &recordingNav{}, &recordingExpirer{}
			v := view.NewGroupsView(groupsFunc(func(context.Context) ([]models.Group, error) {
				return tt.list, tt.err
			}), nav, exp, newNoopLogger())

			v.Mount(context.Background())
			st := waitState(t, v)

			assert.Equal(t, tt.wantStatus, st.Status)
			assert.Equal(t, tt.wantMsg, st.Message)
			if tt.wantStatus == view.StatusReady {
				assert.Equal(t, tt.list, st.Data)
			}
			if tt.wantRoutes == nil {
				assert.Empty(t, nav.Routes())
			} else {
				assert.Equal(t, tt.wantRoutes, nav.Routes())
				assert.Equal(t, []string{view.NameGroups}, exp.Views())
			}
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "loading", view.StatusLoading.String())
	assert.Equal(t, "redirecting", view.StatusRedirecting.String())
	assert.False(t, view.StatusLoading.Terminal())
	assert.True(t, view.StatusFailed.Terminal())
}
