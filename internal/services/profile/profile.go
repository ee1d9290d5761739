// Package profile кеширует профиль текущего пользователя.
//
// Одновременные запросы профиля объединяются: пока запрос к бэкенду в полёте,
// новые вызывающие ждут его результата, и в любой момент к /users/profile
// идёт не больше одного запроса. Успешный ответ кешируется до явного
// обновления (force), Invalidate или истечения TTL, если он задан.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/metrics"
	"github.com/magabrotheeeer/student-portal/internal/models"
	"github.com/magabrotheeeer/student-portal/internal/session"
	"github.com/magabrotheeeer/student-portal/internal/transport"
)

const pathProfile = "/users/profile"

// Transport описывает вызов бэкенда.
type Transport interface {
	Request(ctx context.Context, path string, opts transport.Options) (transport.Result, error)
}

// SessionStore источник токенов для тела запроса и место хранения JSON профиля.
type SessionStore interface {
	Get(ctx context.Context) (session.Session, error)
	SetIdentityFor(ctx context.Context, accessToken string, raw json.RawMessage) (bool, error)
}

// Cache кеш профиля с объединением одновременных запросов.
type Cache struct {
	transport Transport
	store     SessionStore
	ttl       time.Duration
	now       func() time.Time
	log       *slog.Logger
	metrics   *metrics.Metrics

	group singleflight.Group

	mu        sync.Mutex
	gen       uint64
	identity  *models.Identity
	fetchedAt time.Time
}

// Option настраивает Cache.
type Option func(*Cache)

// WithTTL задаёт время жизни закешированного профиля. Ноль отключает истечение.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// NewCache создает новый экземпляр Cache.
func NewCache(t Transport, store SessionStore, log *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		transport: t,
		store:     store,
		now:       time.Now,
		log:       log,
		metrics:   metrics.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchOnce возвращает профиль текущего пользователя.
//
// force сбрасывает кеш и запрос в полёте и всегда порождает ровно один новый
// запрос. Иначе возвращается закешированный профиль, а при его отсутствии
// результат текущего запроса в полёте или нового запроса.
//
// Отмена ctx прекращает только ожидание: сам запрос доводится до конца и его
// результат попадает в кеш.
func (c *Cache) FetchOnce(ctx context.Context, force bool) (models.Identity, error) {
	c.mu.Lock()
	if force {
		c.dropLocked()
	}
	if c.identity != nil && !c.expiredLocked() {
		id := *c.identity
		c.mu.Unlock()
		c.metrics.ProfileFetches.WithLabelValues(metrics.SourceCache).Inc()
		return id, nil
	}
	gen := c.gen
	c.mu.Unlock()

	ch := c.group.DoChan(flightKey(gen), func() (any, error) {
		// Предыдущий запрос этого поколения мог завершиться между проверкой
		// кеша и DoChan.
		if id, ok := c.cachedFor(gen); ok {
			c.metrics.ProfileFetches.WithLabelValues(metrics.SourceCache).Inc()
			return id, nil
		}
		return c.fetch(context.WithoutCancel(ctx), gen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return models.Identity{}, res.Err
		}
		return res.Val.(models.Identity), nil
	case <-ctx.Done():
		return models.Identity{}, ctx.Err()
	}
}

// Invalidate сбрасывает закешированный профиль. Запрос в полёте, начатый до
// вызова, свой результат в кеш уже не запишет.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
}

// Cached возвращает закешированный профиль без обращения к сети.
func (c *Cache) Cached() (models.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil || c.expiredLocked() {
		return models.Identity{}, false
	}
	return *c.identity, true
}

func (c *Cache) fetch(ctx context.Context, gen uint64) (models.Identity, error) {
	const op = "profile.fetch"
	log := c.log.With(slog.String("op", op))

	sess, err := c.store.Get(ctx)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	c.metrics.ProfileFetches.WithLabelValues(metrics.SourceNetwork).Inc()
	res, err := c.transport.Request(ctx, pathProfile, transport.Options{
		Method: http.MethodPost,
		Body:   models.TokenPair{AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken},
	})
	if err != nil {
		log.Debug("profile fetch failed", sl.Err(err))
		return models.Identity{}, err
	}

	var id models.Identity
	if err := res.Decode(&id); err != nil {
		return models.Identity{}, fmt.Errorf("%s: decode profile: %w", op, err)
	}

	c.mu.Lock()
	current := gen == c.gen
	c.mu.Unlock()
	if !current {
		log.Debug("discarding superseded profile result")
		return id, nil
	}

	saved, err := c.store.SetIdentityFor(ctx, sess.AccessToken, id.Raw)
	switch {
	case err != nil:
		log.Warn("failed to persist identity", sl.Err(err))
	case !saved:
		log.Debug("session replaced during profile fetch, discarding result")
		return id, nil
	}

	c.mu.Lock()
	if gen == c.gen {
		c.identity = &id
		c.fetchedAt = c.now()
	}
	c.mu.Unlock()
	return id, nil
}

func (c *Cache) cachedFor(gen uint64) (models.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.identity == nil || c.expiredLocked() {
		return models.Identity{}, false
	}
	return *c.identity, true
}

func (c *Cache) dropLocked() {
	c.gen++
	c.identity = nil
	c.fetchedAt = time.Time{}
}

func (c *Cache) expiredLocked() bool {
	return c.ttl > 0 && c.now().Sub(c.fetchedAt) >= c.ttl
}

func flightKey(gen uint64) string {
	return "profile:" + strconv.FormatUint(gen, 10)
}
