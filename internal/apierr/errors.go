// Package apierr описывает ошибки обращения к бэкенду портала.
//
// Любой неуспешный ответ или сбой транспорта приходит к вызывающему как
// *RequestError. Вид ошибки определяется по числовому HTTP-статусу,
// текст сообщения для классификации не используется.
package apierr

import (
	"errors"
	"net/http"
)

// Kind вид ошибки запроса.
type Kind int

const (
	// KindNetwork: запрос не дошёл до сервера или ответ не удалось прочитать.
	KindNetwork Kind = iota + 1
	// KindUnauthorized: сессия недействительна или истекла (401).
	KindUnauthorized
	// KindApplication: любой другой не-2xx ответ бэкенда.
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Сентинелы для errors.Is, сравниваются по виду ошибки.
var (
	ErrNetwork      = &RequestError{Kind: KindNetwork, Message: "network error"}
	ErrUnauthorized = &RequestError{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: "unauthorized"}
	ErrApplication  = &RequestError{Kind: KindApplication, Message: "application error"}
)

// RequestError ошибка обращения к бэкенду.
type RequestError struct {
	Kind    Kind
	Status  int    // HTTP-статус, 0 для сетевых ошибок
	Message string // человекочитаемое сообщение из detail/message или текста статуса
	Path    string
	Err     error
}

// New создаёт ошибку по HTTP-статусу неуспешного ответа.
func New(status int, msg, path string) *RequestError {
	kind := KindApplication
	if status == http.StatusUnauthorized {
		kind = KindUnauthorized
	}
	return &RequestError{Kind: kind, Status: status, Message: msg, Path: path}
}

// Network оборачивает ошибку транспорта.
func Network(path string, err error) *RequestError {
	return &RequestError{Kind: KindNetwork, Message: err.Error(), Path: path, Err: err}
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибки по виду, чтобы работали сентинелы пакета.
func (e *RequestError) Is(target error) bool {
	var t *RequestError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// IsUnauthorized сообщает, что err означает 401 от бэкенда.
func IsUnauthorized(err error) bool {
	var re *RequestError
	if !errors.As(err, &re) {
		return false
	}
	return re.Status == http.StatusUnauthorized
}

// StatusOf возвращает HTTP-статус из цепочки ошибок или 0.
func StatusOf(err error) int {
	var re *RequestError
	if !errors.As(err, &re) {
		return 0
	}
	return re.Status
}
