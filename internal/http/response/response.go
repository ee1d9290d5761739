// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON-ответов HTTP-обработчиков портала.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/student-portal/internal/apierr"
)

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKResponse успешный ответ.
type OKResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse ответ с ошибкой.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// OKWithData возвращает успешный ответ с переданными данными.
func OKWithData(data any) OKResponse {
	return OKResponse{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ответ с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует ответ со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко-читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters long", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters long", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Error(strings.Join(errsMsgs, ", "))
}

// BackendError возвращает код и тело ответа для ошибки операции.
// Сообщение бэкенда показывается клиенту, текст прочих ошибок нет.
func BackendError(err error) (int, ErrorResponse) {
	var re *apierr.RequestError
	if errors.As(err, &re) {
		return HTTPStatus(err), Error(re.Message)
	}
	return http.StatusInternalServerError, Error("internal error")
}

// HTTPStatus подбирает код ответа для ошибки обращения к бэкенду.
//
// Статусы 4xx бэкенда передаются клиенту как есть, сбои сети и 5xx
// превращаются в 502, всё остальное в 500.
func HTTPStatus(err error) int {
	var re *apierr.RequestError
	if !errors.As(err, &re) {
		return http.StatusInternalServerError
	}
	switch {
	case re.Kind == apierr.KindNetwork:
		return http.StatusBadGateway
	case re.Status >= 400 && re.Status < 500:
		return re.Status
	default:
		return http.StatusBadGateway
	}
}
