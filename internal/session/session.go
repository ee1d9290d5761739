// Package session хранит токены клиентской сессии портала.
//
// Пара access/refresh записывается и удаляется только целиком. Вместе с ней
// хранится закешированный профиль (identity), по которому восстанавливается
// идентификатор пользователя. Данные лежат в Backend под пространством имён
// вкладки, так что каждая вкладка изолирована от остальных.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyIdentity     = "identity"
)

// ErrEmptyAccessToken возвращается при попытке сохранить сессию без access-токена.
var ErrEmptyAccessToken = errors.New("session: empty access token")

// Session пара токенов текущей сессии.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// Authenticated сообщает, что в сессии есть access-токен.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Backend долговременное key-value хранилище с группировкой полей по пространству имён.
type Backend interface {
	// Load возвращает все поля пространства имён, пустую карту если их нет.
	Load(ctx context.Context, ns string) (map[string]string, error)
	// Save дописывает поля, не трогая остальные.
	Save(ctx context.Context, ns string, fields map[string]string) error
	// SaveIf дописывает поля, только если поле field равно want. Проверка и
	// запись выполняются атомарно.
	SaveIf(ctx context.Context, ns, field, want string, fields map[string]string) (bool, error)
	// Replace атомарно заменяет всё содержимое пространства имён.
	Replace(ctx context.Context, ns string, fields map[string]string) error
	// Delete удаляет пространство имён целиком.
	Delete(ctx context.Context, ns string) error
}

// Store хранилище сессии одной вкладки.
type Store struct {
	backend Backend
	ns      string
}

// NewStore создаёт хранилище сессии в пространстве имён ns.
func NewStore(backend Backend, ns string) *Store {
	return &Store{backend: backend, ns: ns}
}

// Namespace возвращает пространство имён хранилища.
func (s *Store) Namespace() string {
	return s.ns
}

// Set сохраняет новую сессию, удаляя предыдущие токены и закешированный профиль.
func (s *Store) Set(ctx context.Context, sess Session) error {
	const op = "session.Set"
	if !sess.Authenticated() {
		return fmt.Errorf("%s: %w", op, ErrEmptyAccessToken)
	}
	if err := s.backend.Replace(ctx, s.ns, tokenFields(sess)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Rotate заменяет токены, сохраняя закешированный профиль. Пустой refresh-токен
// оставляет прежний.
func (s *Store) Rotate(ctx context.Context, sess Session) error {
	const op = "session.Rotate"
	if !sess.Authenticated() {
		return fmt.Errorf("%s: %w", op, ErrEmptyAccessToken)
	}
	if err := s.backend.Save(ctx, s.ns, tokenFields(sess)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Clear удаляет токены и закешированный профиль.
func (s *Store) Clear(ctx context.Context) error {
	const op = "session.Clear"
	if err := s.backend.Delete(ctx, s.ns); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Get возвращает текущую сессию. Отсутствие сессии не является ошибкой.
func (s *Store) Get(ctx context.Context) (Session, error) {
	const op = "session.Get"
	fields, err := s.backend.Load(ctx, s.ns)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return Session{
		AccessToken:  fields[keyAccessToken],
		RefreshToken: fields[keyRefreshToken],
	}, nil
}

// AccessToken возвращает access-токен или пустую строку.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	sess, err := s.Get(ctx)
	return sess.AccessToken, err
}

// RefreshToken возвращает refresh-токен или пустую строку.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	sess, err := s.Get(ctx)
	return sess.RefreshToken, err
}

// SetIdentity сохраняет JSON профиля текущего пользователя.
func (s *Store) SetIdentity(ctx context.Context, raw json.RawMessage) error {
	const op = "session.SetIdentity"
	if !json.Valid(raw) {
		return fmt.Errorf("%s: invalid json", op)
	}
	if err := s.backend.Save(ctx, s.ns, map[string]string{keyIdentity: string(raw)}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetIdentityFor сохраняет JSON профиля, только если текущий access-токен всё
// ещё равен accessToken. Возвращает false, если сессия успела смениться.
func (s *Store) SetIdentityFor(ctx context.Context, accessToken string, raw json.RawMessage) (bool, error) {
	const op = "session.SetIdentityFor"
	if !json.Valid(raw) {
		return false, fmt.Errorf("%s: invalid json", op)
	}
	if accessToken == "" {
		return false, nil
	}
	saved, err := s.backend.SaveIf(ctx, s.ns, keyAccessToken, accessToken, map[string]string{keyIdentity: string(raw)})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

// Identity возвращает сохранённый JSON профиля и признак его наличия.
func (s *Store) Identity(ctx context.Context) (json.RawMessage, bool, error) {
	const op = "session.Identity"
	fields, err := s.backend.Load(ctx, s.ns)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	raw, ok := fields[keyIdentity]
	if !ok || raw == "" {
		return nil, false, nil
	}
	return json.RawMessage(raw), true, nil
}

func tokenFields(sess Session) map[string]string {
	fields := map[string]string{keyAccessToken: sess.AccessToken}
	if sess.RefreshToken != "" {
		fields[keyRefreshToken] = sess.RefreshToken
	}
	return fields
}
