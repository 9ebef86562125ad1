// Package client provides the HTTP client for the remote product service.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/microservices-lab/inventory-service/internal/config"
	inverrors "github.com/microservices-lab/inventory-service/internal/errors"
	"github.com/microservices-lab/inventory-service/internal/jsonapi"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// apiKeyHeader carries the key the product service authenticates with.
const apiKeyHeader = "X-API-Key"

// Product is the read-only metadata owned by the product service. A Product is
// held per request only and never persisted or cached.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"nombre"`
	Price decimal.Decimal `json:"precio"`
}

// ProductClient fetches product metadata from the product service.
// Failures are classified as ErrProductNotFound, ErrProductServiceUnavailable
// or ErrProductResponseMalformed.
type ProductClient interface {
	FetchProduct(ctx context.Context, productID int64) (*Product, error)
}

// HTTPClient implements ProductClient against the product service REST API.
// Transient failures (transport errors, non-404 error statuses) are retried
// with a fixed delay; 404 and decode failures are not.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   config.RetryConfig
	breaker *gobreaker.CircuitBreaker[*Product]
	logger  *slog.Logger
}

// NewHTTPClient creates a product service client from the given configuration.
// The retry policy and circuit breaker thresholds are taken from cfg rather
// than being baked in.
func NewHTTPClient(cfg config.ProductsConfig, logger *slog.Logger) *HTTPClient {
	settings := gobreaker.Settings{
		Name:        "productos-service-cb",
		MaxRequests: 3,
		Timeout:     cfg.CircuitBreaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.CircuitBreaker.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// A definitive 404 or a decode failure is an answer, not a system
			// failure; only transport-class errors count against the breaker.
			return errors.Is(err, inverrors.ErrProductNotFound) ||
				errors.Is(err, inverrors.ErrProductResponseMalformed)
		},
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		retry:   cfg.Retry,
		breaker: gobreaker.NewCircuitBreaker[*Product](settings),
		logger:  logger.With("component", "product_client"),
	}
}

// FetchProduct retrieves a product by its ID, retrying transient failures up
// to the configured number of attempts. After exhausting retries the last
// transient failure surfaces as ErrProductServiceUnavailable.
func (c *HTTPClient) FetchProduct(ctx context.Context, productID int64) (*Product, error) {
	operation := func() (*Product, error) {
		return c.breaker.Execute(func() (*Product, error) {
			return c.fetchOnce(ctx, productID)
		})
	}

	var maxRetries uint64
	if c.retry.MaxAttempts > 0 {
		maxRetries = c.retry.MaxAttempts - 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retry.Delay), maxRetries),
		ctx,
	)

	product, err := backoff.RetryNotifyWithData(operation, policy, func(err error, _ time.Duration) {
		c.logger.WarnContext(ctx, "Retrying product fetch", "producto_id", productID, "error", err)
	})
	if err != nil {
		if errors.Is(err, inverrors.ErrProductNotFound) ||
			errors.Is(err, inverrors.ErrProductResponseMalformed) ||
			errors.Is(err, inverrors.ErrProductServiceUnavailable) {
			return nil, err
		}
		// Transport errors and an open circuit breaker end up here.
		return nil, fmt.Errorf("product service call failed: %s: %w", err, inverrors.ErrProductServiceUnavailable)
	}
	c.logger.DebugContext(ctx, "Product fetched", "producto_id", product.ID, "nombre", product.Name)
	return product, nil
}

// fetchOnce performs a single request attempt. Non-retryable outcomes are
// wrapped in backoff.Permanent so the retry loop stops immediately.
func (c *HTTPClient) fetchOnce(ctx context.Context, productID int64) (*Product, error) {
	url := fmt.Sprintf("%s/api/productos/%d", c.baseURL, productID)
	c.logger.DebugContext(ctx, "Fetching product", "producto_id", productID, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build product request: %w", err))
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to product service failed: %s: %w", err, inverrors.ErrProductServiceUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("product %d: %w", productID, inverrors.ErrProductNotFound))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("product service returned status %d: %w", resp.StatusCode, inverrors.ErrProductServiceUnavailable)
	}

	product, err := decodeProduct(resp.Body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return product, nil
}

// productAttributes is the narrow schema expected inside the response
// envelope. Pointers distinguish a missing field from a zero value.
type productAttributes struct {
	Nombre *string          `json:"nombre"`
	Precio *decimal.Decimal `json:"precio"`
}

// decodeProduct decodes the JSON:API envelope into a Product. Anything short
// of a complete, parseable product is ErrProductResponseMalformed; no field is
// ever silently defaulted.
func decodeProduct(body io.Reader) (*Product, error) {
	var doc jsonapi.Document
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode product response: %s: %w", err, inverrors.ErrProductResponseMalformed)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("product response has no data: %w", inverrors.ErrProductResponseMalformed)
	}

	id, err := strconv.ParseInt(doc.Data.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("product id %q is not numeric: %w", doc.Data.ID, inverrors.ErrProductResponseMalformed)
	}

	var attrs productAttributes
	// decimal.Decimal accepts both numeric and string-encoded prices; any
	// other shape fails here.
	if err := json.Unmarshal(doc.Data.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode product attributes: %s: %w", err, inverrors.ErrProductResponseMalformed)
	}
	if attrs.Nombre == nil || *attrs.Nombre == "" {
		return nil, fmt.Errorf("product attributes missing nombre: %w", inverrors.ErrProductResponseMalformed)
	}
	if attrs.Precio == nil {
		return nil, fmt.Errorf("product attributes missing precio: %w", inverrors.ErrProductResponseMalformed)
	}

	return &Product{
		ID:    id,
		Name:  *attrs.Nombre,
		Price: *attrs.Precio,
	}, nil
}
