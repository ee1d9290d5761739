// Package groups получает учебные группы текущего пользователя.
package groups

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/student-portal/internal/lib/jwt"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/models"
	"github.com/magabrotheeeer/student-portal/internal/session"
	"github.com/magabrotheeeer/student-portal/internal/transport"
)

const pathMyGroups = "/group/my"

// Transport описывает вызов бэкенда.
type Transport interface {
	Request(ctx context.Context, path string, opts transport.Options) (transport.Result, error)
}

// SessionStore источник токенов и сохранённого профиля.
type SessionStore interface {
	Get(ctx context.Context) (session.Session, error)
	Identity(ctx context.Context) (json.RawMessage, bool, error)
}

// Service читает группы пользователя. Результат не кешируется.
type Service struct {
	transport Transport
	store     SessionStore
	log       *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(t Transport, store SessionStore, log *slog.Logger) *Service {
	return &Service{
		transport: t,
		store:     store,
		log:       log,
	}
}

// ListMine возвращает группы, в которых состоит текущий пользователь.
//
// Идентификатор пользователя берётся из сохранённого профиля, а если его нет,
// из claims access-токена. Бэкенд может вернуть как {"data": [...]}, так и
// массив групп.
func (s *Service) ListMine(ctx context.Context) ([]models.Group, error) {
	const op = "groups.ListMine"
	log := s.log.With(slog.String("op", op))

	sess, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := s.userID(ctx, sess.AccessToken)
	if err != nil {
		// без идентификатора запрос всё равно уходит: решение принимает бэкенд
		log.Warn("user id is unknown", sl.Err(err))
	}

	res, err := s.transport.Request(ctx, pathMyGroups, transport.Options{
		Method: http.MethodPost,
		Body:   models.MyGroupsRequest{UserID: userID, AccessToken: sess.AccessToken},
	})
	if err != nil {
		return nil, err
	}

	groups, err := decodeGroups(res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Debug("groups loaded", slog.Int("count", len(groups)))
	return groups, nil
}

func (s *Service) userID(ctx context.Context, accessToken string) (string, error) {
	raw, ok, err := s.store.Identity(ctx)
	if err != nil {
		return "", err
	}
	if ok {
		var id models.Identity
		if err := json.Unmarshal(raw, &id); err == nil && id.UserID != "" {
			return id.UserID, nil
		}
	}
	if accessToken == "" {
		return "", errors.New("no access token")
	}
	return jwt.UserID(accessToken)
}

func decodeGroups(res transport.Result) ([]models.Group, error) {
	if res.IsNull() {
		return []models.Group{}, nil
	}

	var list []models.Group
	if err := res.Decode(&list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Data []models.Group `json:"data"`
	}
	if err := res.Decode(&wrapped); err != nil {
		return nil, fmt.Errorf("decode groups: %w", err)
	}
	if wrapped.Data == nil {
		return []models.Group{}, nil
	}
	return wrapped.Data, nil
}
