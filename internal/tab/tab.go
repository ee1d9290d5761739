// Package tab собирает слой сессии для одного клиента портала.
//
// Tab владеет своим пространством имён в хранилище сессии, кешем профиля и
// сервисами, работающими от имени клиента. Registry хранит вкладки по
// идентификатору и выселяет неактивные.
package tab

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/student-portal/internal/events"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/metrics"
	"github.com/magabrotheeeer/student-portal/internal/models"
	"github.com/magabrotheeeer/student-portal/internal/services/auth"
	"github.com/magabrotheeeer/student-portal/internal/services/groups"
	"github.com/magabrotheeeer/student-portal/internal/services/profile"
	"github.com/magabrotheeeer/student-portal/internal/session"
	"github.com/magabrotheeeer/student-portal/internal/transport"
	"github.com/magabrotheeeer/student-portal/internal/view"
)

// Deps общие зависимости вкладок.
type Deps struct {
	Transport  *transport.Client
	Backend    session.Backend
	ProfileTTL time.Duration
	Events     events.Publisher
	Metrics    *metrics.Metrics
	Log        *slog.Logger
}

// Tab слой сессии одного клиента.
type Tab struct {
	id      string
	store   *session.Store
	auth    *auth.Service
	profile *profile.Cache
	groups  *groups.Service
	events  events.Publisher
	metrics *metrics.Metrics
	log     *slog.Logger

	mu       sync.Mutex
	lastSeen time.Time
}

// New создаёт вкладку id.
func New(id string, d Deps) *Tab {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop()
	}
	log := d.Log.With(slog.String("tab_id", id))

	store := session.NewStore(d.Backend, id)
	client := d.Transport.WithTokens(store)

	return &Tab{
		id:      id,
		store:   store,
		auth:    auth.NewService(client, store, log),
		profile: profile.NewCache(client, store, log, profile.WithTTL(d.ProfileTTL), profile.WithMetrics(d.Metrics)),
		groups:  groups.NewService(client, store, log),
		events:  d.Events,
		metrics: d.Metrics,
		log:     log,
	}
}

// ID возвращает идентификатор вкладки.
func (t *Tab) ID() string {
	return t.id
}

// Store возвращает хранилище сессии вкладки.
func (t *Tab) Store() *session.Store {
	return t.store
}

// Profile возвращает кеш профиля вкладки.
func (t *Tab) Profile() *profile.Cache {
	return t.profile
}

// Login входит под учётной записью и сбрасывает профиль предыдущего пользователя.
func (t *Tab) Login(ctx context.Context, tgUsername, password string) (*models.LoginResult, error) {
	res, err := t.auth.Login(ctx, tgUsername, password)
	if err != nil {
		return nil, err
	}
	t.profile.Invalidate()
	t.events.Publish(ctx, events.Event{
		Type:       events.TypeLogin,
		TabID:      t.id,
		UserID:     res.UserID,
		TgUsername: tgUsername,
	})
	return res, nil
}

// Register регистрирует пользователя. Сессия вкладки не меняется.
func (t *Tab) Register(ctx context.Context, tgUsername, password string) (*models.MessageResult, error) {
	res, err := t.auth.Register(ctx, tgUsername, password)
	if err != nil {
		return nil, err
	}
	t.events.Publish(ctx, events.Event{Type: events.TypeRegister, TabID: t.id, TgUsername: tgUsername})
	return res, nil
}

// Logout сообщает бэкенду о выходе и в любом случае очищает локальную сессию.
// Ошибка бэкенда возвращается после очистки.
func (t *Tab) Logout(ctx context.Context) (*models.MessageResult, error) {
	const op = "tab.Logout"

	var userID string
	if id, ok := t.profile.Cached(); ok {
		userID = id.UserID
	}

	res, logoutErr := t.auth.Logout(ctx)
	if logoutErr != nil {
		t.log.Info("backend logout failed, clearing local session anyway", slog.String("op", op), sl.Err(logoutErr))
	}

	t.reset(ctx)
	t.events.Publish(ctx, events.Event{Type: events.TypeLogout, TabID: t.id, UserID: userID})
	return res, logoutErr
}

// Refresh обновляет access-токен.
func (t *Tab) Refresh(ctx context.Context) (*models.RefreshResult, error) {
	return t.auth.Refresh(ctx)
}

// ExpireSession сбрасывает сессию после ответа 401, полученного представлением.
func (t *Tab) ExpireSession(ctx context.Context, viewName string) {
	t.reset(ctx)
	t.metrics.Redirects.WithLabelValues(viewName).Inc()
	t.events.Publish(ctx, events.Event{Type: events.TypeSessionExpired, TabID: t.id, View: viewName})
}

// NewProfileView создаёт представление профиля вкладки.
func (t *Tab) NewProfileView(nav view.Navigator) *view.ProfileView {
	return view.NewProfileView(t.profile, nav, t, t.log)
}

// NewGroupsView создаёт представление групп вкладки.
func (t *Tab) NewGroupsView(nav view.Navigator) *view.GroupsView {
	return view.NewGroupsView(t.groups, nav, t, t.log)
}

func (t *Tab) reset(ctx context.Context) {
	t.profile.Invalidate()
	if err := t.store.Clear(ctx); err != nil {
		t.log.Error("failed to clear session", sl.Err(err))
	}
}

func (t *Tab) touch(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen = now
}

func (t *Tab) idleSince(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return now.Sub(t.lastSeen)
}
