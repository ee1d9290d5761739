package tab

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry хранит вкладки по идентификатору.
//
// Вкладка создаётся при первом обращении. Неактивная дольше idleTTL вкладка
// выселяется из памяти; данные сессии при этом остаются в хранилище, и
// следующее обращение с тем же идентификатором их подхватит.
type Registry struct {
	deps    Deps
	idleTTL time.Duration
	now     func() time.Time

	mu   sync.Mutex
	tabs map[string]*Tab
}

// NewRegistry создает новый экземпляр Registry. idleTTL 0 отключает выселение.
func NewRegistry(d Deps, idleTTL time.Duration) *Registry {
	return &Registry{
		deps:    d,
		idleTTL: idleTTL,
		now:     time.Now,
		tabs:    make(map[string]*Tab),
	}
}

// Get возвращает вкладку id, создавая её при необходимости.
func (r *Registry) Get(id string) *Tab {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tabs[id]
	if !ok {
		t = New(id, r.deps)
		r.tabs[id] = t
	}
	t.touch(r.now())
	return t
}

// Len возвращает число вкладок в памяти.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}

// Sweep выселяет неактивные вкладки и возвращает их число.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, t := range r.tabs {
		if t.idleSince(now) >= r.idleTTL {
			delete(r.tabs, id)
			evicted++
		}
	}
	return evicted
}

// Run периодически вызывает Sweep до отмены ctx.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	const op = "tab.Registry.Run"
	log := r.deps.Log.With(slog.String("op", op))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("tab sweeper stopped")
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Debug("evicted idle tabs", slog.Int("count", n), slog.Int("left", r.Len()))
			}
		}
	}
}
