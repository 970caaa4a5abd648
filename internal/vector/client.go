package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mrctran/mnemo/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
	backoffInitial    = 1 * time.Second
	backoffMax        = 10 * time.Second
)

// Config holds the remote vector database coordinates.
type Config struct {
	Host       string
	Port       int
	Collection string
	VectorSize int
	Timeout    time.Duration
	MaxRetries int
}

// Client is an adapter to a Qdrant-compatible vector database. Every
// call carries a per-request timeout and retries transport failures
// with exponential backoff; HTTP status errors surface immediately.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Client{
		cfg:        cfg,
		baseURL:    fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// StatusError is a non-retryable HTTP error from the remote store.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vector store returned status %d: %s", e.StatusCode, e.Body)
}

// EnsureCollection creates the collection if missing (cosine distance,
// configured vector size) and declares keyword payload indices on the
// fields used for scope isolation. Index creation failures are logged
// but not fatal: the index may already exist.
func (c *Client) EnsureCollection(ctx context.Context) error {
	err := c.do(ctx, http.MethodGet, "/collections/"+c.cfg.Collection, nil, nil)
	if err == nil {
		c.ensureIndices(ctx)
		return nil
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		return err
	}

	create := map[string]any{
		"vectors": map[string]any{
			"size":     c.cfg.VectorSize,
			"distance": "Cosine",
		},
	}
	if err := c.do(ctx, http.MethodPut, "/collections/"+c.cfg.Collection, create, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", c.cfg.Collection, err)
	}
	c.logger.Info("created vector collection",
		zap.String("collection", c.cfg.Collection),
		zap.Int("vector_size", c.cfg.VectorSize))

	c.ensureIndices(ctx)
	return nil
}

func (c *Client) ensureIndices(ctx context.Context) {
	for _, field := range []string{
		domain.PayloadNamespace,
		domain.PayloadSourceAgent,
		domain.PayloadSourceType,
		domain.PayloadUserID,
	} {
		body := map[string]any{
			"field_name":   field,
			"field_schema": "keyword",
		}
		if err := c.do(ctx, http.MethodPut, "/collections/"+c.cfg.Collection+"/index", body, nil); err != nil {
			c.logger.Debug("payload index creation failed",
				zap.String("field", field), zap.Error(err))
		}
	}
}

// Upsert inserts or replaces points by id.
func (c *Client) Upsert(ctx context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	if err := c.do(ctx, http.MethodPut, "/collections/"+c.cfg.Collection+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search runs a filtered k-NN query and returns hits ordered by score.
func (c *Client) Search(ctx context.Context, vec []float32, limit int, filter *domain.Filter) ([]domain.ScoredPoint, error) {
	body := map[string]any{
		"vector":       vec,
		"limit":        limit,
		"with_payload": true,
	}
	if wire := wireFilter(filter); wire != nil {
		body["filter"] = wire
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.cfg.Collection+"/points/search", body, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]domain.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, domain.ScoredPoint{
			ID:      fmt.Sprintf("%v", r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

// DeleteByFilter removes every point matching the filter.
func (c *Client) DeleteByFilter(ctx context.Context, filter *domain.Filter) error {
	body := map[string]any{"filter": wireFilter(filter)}
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.cfg.Collection+"/points/delete?wait=true", body, nil); err != nil {
		return fmt.Errorf("delete by filter: %w", err)
	}
	return nil
}

// do executes one request with retry. Transport errors (refused
// connections, timeouts, aborts) are retried with exponential backoff
// capped at backoffMax; HTTP status errors are permanent.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	attempt := 0
	op := func() error {
		attempt++
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transport-level failure: retryable.
			if attempt < c.cfg.MaxRetries {
				c.logger.Debug("vector request failed, will retry",
					zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(&StatusError{StatusCode: resp.StatusCode, Body: string(respBody)})
		}
		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
			}
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = backoffInitial
	bo.Multiplier = 2
	bo.MaxInterval = backoffMax
	bo.RandomizationFactor = 0

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.MaxRetries-1)), ctx))
}

// wireFilter translates the backend-neutral filter into the remote
// match schema: {must:[{key,match:{value}}]}, with {should:[...]} for
// multi-value OR within one field.
func wireFilter(f *domain.Filter) map[string]any {
	if f == nil || len(f.Must) == 0 {
		return nil
	}
	must := make([]any, 0, len(f.Must))
	for _, cond := range f.Must {
		if len(cond.AnyOf) > 0 {
			should := make([]any, 0, len(cond.AnyOf))
			for _, v := range cond.AnyOf {
				should = append(should, map[string]any{
					"key":   cond.Key,
					"match": map[string]any{"value": v},
				})
			}
			must = append(must, map[string]any{"should": should})
			continue
		}
		must = append(must, map[string]any{
			"key":   cond.Key,
			"match": map[string]any{"value": cond.Value},
		})
	}
	return map[string]any{"must": must}
}
