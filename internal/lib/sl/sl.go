// Package sl содержит вспомогательные функции для работы с логгером slog.
// Помогает единообразно формировать поля лога для ошибок и
// результатов обращений к бэкенду портала.
package sl

import (
	"log/slog"
	"time"
)

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to fetch profile", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Status возвращает атрибут с HTTP-статусом ответа бэкенда.
func Status(code int) slog.Attr {
	return slog.Int("status", code)
}

// Elapsed возвращает атрибут с длительностью, прошедшей с момента start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}
