package training

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"trainhub/internal/config"
	"trainhub/internal/observe"
)

// upstream speaks the provider's REST dialect. One call, one attempt.
type upstream struct {
	baseURL string
	token   string
	http    *http.Client
	obs     *observe.Observer
}

func newUpstream(cfg config.Upstream, httpClient *http.Client, obs *observe.Observer) *upstream {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &upstream{
		baseURL: strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		token:   strings.TrimSpace(cfg.Token),
		http:    httpClient,
		obs:     obs,
	}
}

// do sends one request. Content-Type is set only when there is a body; GET
// and DELETE carry the Authorization header alone. A 2xx body is returned
// as-is, anything else becomes an *OperationError.
func (c *upstream) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	if c.token == "" {
		return nil, &ConfigurationError{Key: config.EnvToken}
	}

	ctx, span := c.obs.StartSpan(ctx, "training."+strings.ReplaceAll(op, " ", "_"),
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)
	defer span.End()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		err = fmt.Errorf("%s: %w", op, err)
		c.obs.Fail(span, op, err)
		return nil, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		opErr := &OperationError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		span.RecordError(opErr)
		span.SetStatus(codes.Error, opErr.Error())
		c.obs.Log().Warn().
			Str("op", op).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("upstream returned failure")
		return nil, opErr
	}

	c.obs.Log().Info().
		Str("op", op).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("duration_ms", int(time.Since(start).Milliseconds())).
		Msg("upstream request")
	return b, nil
}
