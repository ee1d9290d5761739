package models

// Credentials учётные данные для входа и регистрации.
//
// Длина username проверяется так же, как на бэкенде. Политику пароля
// клиент не дублирует: её знает только бэкенд.
type Credentials struct {
	TgUsername string `json:"tg_username" validate:"required,min=2,max=33"`
	Password   string `json:"password" validate:"required"`
}

// TokenPair тело запроса, в котором токены передаются полезной нагрузкой.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResult ответ /auth/login.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id,omitempty"`
}

// MessageResult подтверждение бэкенда для register и logout.
type MessageResult struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// RefreshRequest тело запроса /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResult ответ /auth/refresh.
type RefreshResult struct {
	AccessToken string `json:"access_token"`
}
