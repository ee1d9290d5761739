// Package transport выполняет HTTP-запросы к бэкенду портала с JSON-кодированием
// тела, подстановкой bearer-токена и единообразным разбором ошибок.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/student-portal/internal/apierr"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/metrics"
)

// TokenSource отдаёт текущий access-токен. Пустая строка означает отсутствие токена.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options параметры одного запроса. Нулевое значение означает GET с авторизацией.
type Options struct {
	Method  string
	Body    any
	Headers map[string]string
	// NoAuth отключает подстановку заголовка Authorization.
	NoAuth bool
}

// Client клиент бэкенда портала. Собственного состояния не хранит.
type Client struct {
	baseURL string
	http    httpClient
	tokens  TokenSource
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New создаёт клиент для baseURL. tokens может быть nil, тогда запросы уходят без токена.
func New(baseURL string, hc httpClient, tokens TokenSource, log *slog.Logger, m *metrics.Metrics) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Client{
		baseURL: baseURL,
		http:    hc,
		tokens:  tokens,
		log:     log,
		metrics: m,
	}
}

// WithTokens возвращает копию клиента, берущую токены из tokens.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	cp := *c
	cp.tokens = tokens
	return &cp
}

// Request выполняет запрос и возвращает разобранное тело ответа.
//
// Неуспешный статус возвращается как *apierr.RequestError, сбой соединения
// как *apierr.RequestError вида KindNetwork.
func (c *Client) Request(ctx context.Context, path string, opts Options) (Result, error) {
	const op = "transport.Request"

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return Result{}, fmt.Errorf("%s: encode body: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, JoinURL(c.baseURL, path), body)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	if !opts.NoAuth && c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("%s: read access token: %w", op, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := c.log.With(
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RequestDuration.WithLabelValues(path, "error").Observe(time.Since(start).Seconds())
		log.Warn("backend request failed", sl.Err(err), sl.Elapsed(start))
		return Result{}, apierr.Network(path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("failed to read response body", sl.Err(err), sl.Status(resp.StatusCode))
		return Result{}, apierr.Network(path, err)
	}

	c.metrics.RequestDuration.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	log.Debug("backend request done", sl.Status(resp.StatusCode), sl.Elapsed(start))

	res := NewResult(text)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, apierr.New(resp.StatusCode, errorMessage(res, resp), path)
	}
	return res, nil
}

// RequestInto выполняет запрос и декодирует тело ответа в out.
func (c *Client) RequestInto(ctx context.Context, path string, opts Options, out any) error {
	const op = "transport.RequestInto"

	res, err := c.Request(ctx, path, opts)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := res.Decode(out); err != nil {
		return fmt.Errorf("%s: %s: %w", op, path, err)
	}
	return nil
}

// JoinURL склеивает базовый адрес и путь ровно через один слэш.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func errorMessage(res Result, resp *http.Response) string {
	var fields struct {
		Detail  any `json:"detail"`
		Message any `json:"message"`
	}
	if err := json.Unmarshal(res.raw, &fields); err == nil {
		if s, ok := fields.Detail.(string); ok && s != "" {
			return s
		}
		if s, ok := fields.Message.(string); ok && s != "" {
			return s
		}
	}

	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
