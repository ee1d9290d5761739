// Package models содержит модели данных бэкенда портала, которыми обменивается
// слой сессии: профиль пользователя, ответы авторизации и учебные группы.
package models

import (
	"encoding/json"
)

// Identity профиль текущего пользователя, как его отдаёт /users/profile.
//
// Набор полей определяется бэкендом; после получения значение не изменяется.
// Исходный JSON сохраняется в Raw, чтобы поля, неизвестные клиенту, не терялись.
type Identity struct {
	UserID             string  `json:"user_id,omitempty"`
	Name               string  `json:"name"`
	Surname            string  `json:"surname"`
	TgUsername         string  `json:"tg_username"`
	UserType           string  `json:"user_type,omitempty"`
	Status             string  `json:"status,omitempty"`
	Phone              *string `json:"phone,omitempty"`
	AvatarURL          *string `json:"avatar_url,omitempty"`
	Bio                *string `json:"bio,omitempty"`
	SubscriptionStatus *string `json:"subscription_status,omitempty"`
	LessonsRemaining   *int    `json:"lessons_remaining,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON разбирает профиль, принимая идентификатор как в user_id, так и в id.
func (i *Identity) UnmarshalJSON(data []byte) error {
	type plain Identity
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*i = Identity(aux.plain)
	if i.UserID == "" && len(aux.ID) > 0 {
		var id FlexibleID
		if err := json.Unmarshal(aux.ID, &id); err == nil {
			i.UserID = string(id)
		}
	}
	i.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON возвращает исходный JSON профиля, если он есть.
func (i Identity) MarshalJSON() ([]byte, error) {
	if len(i.Raw) > 0 {
		return i.Raw, nil
	}
	type plain Identity
	return json.Marshal(plain(i))
}

// FullName возвращает имя и фамилию через пробел.
func (i Identity) FullName() string {
	switch {
	case i.Name == "":
		return i.Surname
	case i.Surname == "":
		return i.Name
	}
	return i.Name + " " + i.Surname
}
