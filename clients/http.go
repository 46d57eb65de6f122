package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrNoActiveEventYear = errors.New("no active event year found")
	ErrEventYearNotFound = errors.New("event year not found")
	ErrSportNotFound     = errors.New("sport not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrNotConfigured     = errors.New("collaborator base url is not configured")
)

// StatusError is returned when a collaborator answers with a non-2xx status.
type StatusError struct {
	Service    string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d: %s", e.Service, e.URL, e.StatusCode, e.Body)
}

type tokenContextKey struct{}

// WithBearerToken attaches the caller's token so every gateway call forwards it.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

func BearerToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// baseClient: общий JSON-клиент соседних сервисов.
type baseClient struct {
	service    string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func newBaseClient(service, baseURL string, timeout time.Duration, logger *slog.Logger) baseClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return baseClient{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *baseClient) do(ctx context.Context, method, path string, query url.Values, body any, dst any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%s: %w", c.service, ErrNotConfigured)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.service, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := BearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s %s: %w", c.service, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("collaborator call",
		slog.String("service", c.service),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Service: c.service, URL: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.service, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
