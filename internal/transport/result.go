package transport

import (
	"encoding/json"
)

var null = json.RawMessage("null")

// Result тело ответа бэкенда в виде JSON-значения.
//
// Пустое тело представлено как null, тело, не являющееся JSON, как JSON-строка
// с исходным текстом.
type Result struct {
	raw json.RawMessage
}

// NewResult разбирает тело ответа так же, как это делает Client.
func NewResult(text []byte) Result {
	if len(text) == 0 {
		return Result{raw: null}
	}
	if json.Valid(text) {
		return Result{raw: json.RawMessage(text)}
	}
	quoted, err := json.Marshal(string(text))
	if err != nil {
		return Result{raw: null}
	}
	return Result{raw: quoted}
}

// Raw возвращает JSON-представление результата.
func (r Result) Raw() json.RawMessage {
	if r.raw == nil {
		return null
	}
	return r.raw
}

// IsNull сообщает, что тело ответа было пустым или равным null.
func (r Result) IsNull() bool {
	return r.raw == nil || string(r.raw) == "null"
}

// Decode декодирует результат в v.
func (r Result) Decode(v any) error {
	return json.Unmarshal(r.Raw(), v)
}

// Text возвращает строковое значение результата, если это JSON-строка.
func (r Result) Text() (string, bool) {
	if r.IsNull() {
		return "", false
	}
	var s string
	if err := json.Unmarshal(r.Raw(), &s); err != nil {
		return "", false
	}
	return s, true
}
