// Package auth содержит операции входа, регистрации, выхода и обновления токена.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/models"
	"github.com/magabrotheeeer/student-portal/internal/session"
	"github.com/magabrotheeeer/student-portal/internal/transport"
)

const (
	pathLogin    = "/auth/login"
	pathRegister = "/auth/register"
	pathLogout   = "/auth/logout"
	pathRefresh  = "/auth/refresh"
)

// ErrNoRefreshToken возвращается Refresh, если в сессии нет refresh-токена.
var ErrNoRefreshToken = errors.New("auth: no refresh token in session")

// Transport описывает вызов бэкенда с декодированием ответа.
type Transport interface {
	RequestInto(ctx context.Context, path string, opts transport.Options, out any) error
}

// SessionStore описывает хранилище токенов, с которым работают операции.
type SessionStore interface {
	Set(ctx context.Context, sess session.Session) error
	Rotate(ctx context.Context, sess session.Session) error
	Get(ctx context.Context) (session.Session, error)
}

// Service выполняет операции авторизации. Каждая операция делает один запрос без повторов.
type Service struct {
	transport Transport
	store     SessionStore
	validate  *validator.Validate
	log       *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(t Transport, store SessionStore, log *slog.Logger) *Service {
	return &Service{
		transport: t,
		store:     store,
		validate:  validator.New(),
		log:       log,
	}
}

// Login входит по учётным данным и сохраняет полученную пару токенов в сессии.
func (s *Service) Login(ctx context.Context, tgUsername, password string) (*models.LoginResult, error) {
	const op = "auth.Login"
	log := s.log.With(slog.String("op", op), slog.String("tg_username", tgUsername))

	creds := models.Credentials{TgUsername: tgUsername, Password: password}
	if err := s.validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var res models.LoginResult
	err := s.transport.RequestInto(ctx, pathLogin, transport.Options{
		Method: http.MethodPost,
		Body:   creds,
		NoAuth: true,
	}, &res)
	if err != nil {
		log.Info("login rejected", sl.Err(err))
		return nil, err
	}

	if err := s.store.Set(ctx, session.Session{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}); err != nil {
		log.Error("failed to store session", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("login success")
	return &res, nil
}

// Register регистрирует пользователя. Сессию не меняет.
func (s *Service) Register(ctx context.Context, tgUsername, password string) (*models.MessageResult, error) {
	const op = "auth.Register"

	creds := models.Credentials{TgUsername: tgUsername, Password: password}
	if err := s.validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var res models.MessageResult
	err := s.transport.RequestInto(ctx, pathRegister, transport.Options{
		Method: http.MethodPost,
		Body:   creds,
		NoAuth: true,
	}, &res)
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", slog.String("op", op), slog.String("tg_username", tgUsername))
	return &res, nil
}

// Logout передаёт текущие токены бэкенду для инвалидации.
//
// Токены уходят в теле запроса, а не в заголовке. Локальную сессию Logout не
// очищает: это делает вызывающий вместе со сбросом кеша профиля.
func (s *Service) Logout(ctx context.Context) (*models.MessageResult, error) {
	const op = "auth.Logout"

	sess, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var res models.MessageResult
	err = s.transport.RequestInto(ctx, pathLogout, transport.Options{
		Method: http.MethodPost,
		Body:   models.TokenPair{AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken},
		NoAuth: true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Refresh получает новый access-токен по refresh-токену и заменяет его в сессии.
func (s *Service) Refresh(ctx context.Context) (*models.RefreshResult, error) {
	const op = "auth.Refresh"

	sess, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sess.RefreshToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	var res models.RefreshResult
	err = s.transport.RequestInto(ctx, pathRefresh, transport.Options{
		Method: http.MethodPost,
		Body:   models.RefreshRequest{RefreshToken: sess.RefreshToken},
		NoAuth: true,
	}, &res)
	if err != nil {
		return nil, err
	}

	if err := s.store.Rotate(ctx, session.Session{AccessToken: res.AccessToken, RefreshToken: sess.RefreshToken}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &res, nil
}
