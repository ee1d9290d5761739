// Package jwt читает claims из access-токена портала без проверки подписи.
//
// Клиент не знает секрета бэкенда, поэтому подпись не проверяется: данные из
// токена используются только как подсказка (идентификатор пользователя, срок
// действия), окончательное решение о валидности принимает бэкенд.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoUserID возвращается, если в токене нет ни user_id, ни sub.
var ErrNoUserID = errors.New("jwt: token has no user id")

// Claims данные access-токена портала.
type Claims struct {
	UserID   string `json:"user_id,omitempty"`  // Идентификатор пользователя
	Username string `json:"username,omitempty"` // Telegram username, если бэкенд его кладёт
	jwt.RegisteredClaims
}

// Parse разбирает токен без проверки подписи.
func Parse(tokenStr string) (*Claims, error) {
	const op = "jwt.Parse"
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}

// UserID возвращает идентификатор пользователя из токена: user_id, иначе sub.
func UserID(tokenStr string) (string, error) {
	claims, err := Parse(tokenStr)
	if err != nil {
		return "", err
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", ErrNoUserID
}

// Expired сообщает, что срок действия токена истёк к моменту now.
// Токен без exp считается бессрочным.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}
