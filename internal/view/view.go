// Package view связывает загрузку данных с состоянием представления.
//
// Представление проходит состояния Loading → Ready | Failed | Redirecting.
// Ответ 401 обрабатывается одинаково для всех представлений: сессия
// сбрасывается, происходит переход на /login с заменой истории, и
// представление остаётся в Redirecting. После Unmount результаты загрузки
// не применяются.
package view

import (
	"context"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/student-portal/internal/apierr"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
)

// LoginRoute маршрут, на который уводит истёкшая сессия.
const LoginRoute = "/login"

// Status состояние представления.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusFailed
	StatusRedirecting
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	case StatusRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// Terminal сообщает, что загрузка завершилась.
func (s Status) Terminal() bool {
	return s != StatusLoading
}

// State снимок состояния представления.
type State[T any] struct {
	Status  Status
	Data    T
	Message string // текст ошибки в StatusFailed
	Err     error
}

// Navigator выполняет переходы между маршрутами.
type Navigator interface {
	// Replace переходит на route, заменяя текущую запись истории.
	Replace(route string)
}

// SessionExpirer сбрасывает сессию, ставшую недействительной.
type SessionExpirer interface {
	ExpireSession(ctx context.Context, view string)
}

// Loader загружает данные представления. force просит не использовать кеш.
type Loader[T any] func(ctx context.Context, force bool) (T, error)

// View представление, связанное с одним источником данных.
type View[T any] struct {
	name    string
	load    Loader[T]
	nav     Navigator
	expirer SessionExpirer
	log     *slog.Logger

	mu       sync.Mutex
	state    State[T]
	mounted  bool
	seq      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	onChange func(State[T])
}

// New создаёт представление с именем name, загружающее данные через load.
func New[T any](name string, load Loader[T], nav Navigator, expirer SessionExpirer, log *slog.Logger) *View[T] {
	return &View[T]{
		name:    name,
		load:    load,
		nav:     nav,
		expirer: expirer,
		log:     log.With(slog.String("view", name)),
		done:    make(chan struct{}),
	}
}

// Name возвращает имя представления.
func (v *View[T]) Name() string {
	return v.name
}

// OnChange задаёт обработчик смены состояния. Вызывается без удержания блокировки.
func (v *View[T]) OnChange(fn func(State[T])) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

// Mount подключает представление и запускает загрузку данных.
// Повторный Mount без Unmount ничего не делает.
func (v *View[T]) Mount(ctx context.Context) {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	v.mu.Unlock()

	v.start(ctx, false)
}

// Refetch заново загружает данные в обход кеша. Для отключённого
// представления ничего не делает.
func (v *View[T]) Refetch(ctx context.Context) {
	v.mu.Lock()
	mounted := v.mounted
	v.mu.Unlock()
	if !mounted {
		return
	}
	v.start(ctx, true)
}

// Unmount отключает представление. Загрузка, завершившаяся позже, состояние
// уже не меняет.
func (v *View[T]) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted {
		return
	}
	v.mounted = false
	v.seq++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	closeOnce(v.done)
}

// State возвращает текущее состояние.
func (v *View[T]) State() State[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Done возвращает канал, который закрывается, когда текущая загрузка
// завершилась или представление отключено.
func (v *View[T]) Done() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.done
}

// Wait ждёт завершения текущей загрузки и возвращает состояние.
func (v *View[T]) Wait(ctx context.Context) (State[T], error) {
	select {
	case <-v.Done():
		return v.State(), nil
	case <-ctx.Done():
		return v.State(), ctx.Err()
	}
}

func (v *View[T]) start(ctx context.Context, force bool) {
	v.mu.Lock()
	v.seq++
	seq := v.seq
	if v.cancel != nil {
		v.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	select {
	case <-v.done:
		v.done = make(chan struct{})
	default:
		// ожидающие текущей загрузки дождутся новой
	}
	prev := v.state
	v.state = State[T]{Status: StatusLoading, Data: prev.Data}
	st, fn := v.state, v.onChange
	v.mu.Unlock()

	notify(fn, st)

	go func() {
		defer cancel()
		data, err := v.load(loadCtx, force)
		v.settle(ctx, seq, data, err)
	}()
}

func (v *View[T]) settle(ctx context.Context, seq uint64, data T, err error) {
	if err != nil && apierr.IsUnauthorized(err) {
		v.expire(ctx, seq)
		return
	}

	v.mu.Lock()
	if !v.current(seq) {
		v.mu.Unlock()
		return
	}
	if err != nil {
		v.log.Info("load failed", sl.Err(err))
		v.state = State[T]{Status: StatusFailed, Data: v.state.Data, Message: message(err), Err: err}
	} else {
		v.state = State[T]{Status: StatusReady, Data: data}
	}
	st, fn, done := v.state, v.onChange, v.done
	v.mu.Unlock()

	notify(fn, st)
	v.finish(seq, done)
}

// expire сбрасывает сессию даже для отключённого представления: токены уже
// недействительны. Переход выполняется только для подключённого.
func (v *View[T]) expire(ctx context.Context, seq uint64) {
	v.log.Info("session expired, redirecting", slog.String("route", LoginRoute))
	v.expirer.ExpireSession(context.WithoutCancel(ctx), v.name)

	v.mu.Lock()
	if !v.current(seq) {
		v.mu.Unlock()
		return
	}
	v.state = State[T]{Status: StatusRedirecting}
	st, fn, done := v.state, v.onChange, v.done
	v.mu.Unlock()

	v.nav.Replace(LoginRoute)
	notify(fn, st)
	v.finish(seq, done)
}

// finish закрывает done после того, как переход и обработчики отработали.
// Если за это время началась новая загрузка, done закроет она.
func (v *View[T]) finish(seq uint64, done chan struct{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if seq == v.seq {
		closeOnce(done)
	}
}

func (v *View[T]) current(seq uint64) bool {
	return v.mounted && seq == v.seq
}

func message(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Произошла ошибка"
}

func notify[T any](fn func(State[T]), st State[T]) {
	if fn != nil {
		fn(st)
	}
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
