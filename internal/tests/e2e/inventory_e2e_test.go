// Package e2e provides end-to-end tests for the inventory service.
// The suite runs the real application handler in an httptest.Server, backed by
// the in-memory store and a stub product service, and drives it through the
// public HTTP API: creation, stock movements, availability checks, API-key
// authentication and product service failure handling.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/microservices-lab/inventory-service/internal/app"
	"github.com/microservices-lab/inventory-service/internal/config"
	"github.com/microservices-lab/inventory-service/internal/store"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// apiKey is the inbound key the suite authenticates with.
const apiKey = "e2e-api-key"

// productsAPIKey is the key the service presents to the stub product service.
const productsAPIKey = "products-api-key"

// inventoryURL is the base URL for the inventory API.
const inventoryURL = "/api/inventarios"

// InventoryE2ESuite drives the full HTTP stack against a stub product service.
type InventoryE2ESuite struct {
	suite.Suite
	server        *httptest.Server
	productServer *httptest.Server
	httpClient    *http.Client
	stockStore    store.StockStore
	logger        *slog.Logger
	ctx           context.Context

	// productsDown makes the stub product service answer 503 when set.
	productsDown atomic.Bool
}

func (s *InventoryE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// Stub product service: product 999 does not exist, 42 and 7 have fixed
	// metadata, everything else gets a generic product. Each suite test works
	// on its own product IDs because the in-memory store is shared.
	s.productServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != productsAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if s.productsDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		var id int64
		if _, err := fmt.Sscanf(r.URL.Path, "/api/productos/%d", &id); err != nil || id == 999 {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[{"status":"404","title":"Producto no encontrado"}]}`))
			return
		}
		switch id {
		case 42:
			_, _ = w.Write([]byte(`{"data":{"type":"productos","id":"42","attributes":{"nombre":"Laptop","precio":149.99}}}`))
		case 7:
			_, _ = w.Write([]byte(`{"data":{"type":"productos","id":"7","attributes":{"nombre":"Mouse","precio":"25.50"}}}`))
		default:
			_, _ = fmt.Fprintf(w, `{"data":{"type":"productos","id":"%d","attributes":{"nombre":"Producto %d","precio":10.00}}}`, id, id)
		}
	}))

	cfg := &config.Config{}
	cfg.API.Key = apiKey
	cfg.Products = config.ProductsConfig{
		BaseURL: s.productServer.URL,
		APIKey:  productsAPIKey,
		Timeout: 2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts: 3,
			Delay:       time.Millisecond,
		},
		CircuitBreaker: config.CircuitBreakerConfig{
			ConsecutiveFailures: 1000,
			OpenTimeout:         time.Second,
		},
	}

	s.stockStore = store.NewMemoryStore()
	deps := app.SetupDependenciesWithStore(s.stockStore, cfg, s.logger)
	s.server = httptest.NewServer(app.SetupHttpHandler(deps))
	s.httpClient = s.server.Client()
}

func (s *InventoryE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.productServer != nil {
		s.productServer.Close()
	}
}

func (s *InventoryE2ESuite) SetupTest() {
	s.productsDown.Store(false)
}

func TestInventoryE2E(t *testing.T) {
	suite.Run(t, new(InventoryE2ESuite))
}

// doRequest performs an authenticated request and decodes the JSON response body.
func (s *InventoryE2ESuite) doRequest(method, path string, body any) (*http.Response, map[string]any) {
	s.T().Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, reader)
	require.NoError(s.T(), err)
	req.Header.Set("X-API-Key", apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	decoded := make(map[string]any)
	if len(raw) > 0 {
		require.NoError(s.T(), json.Unmarshal(raw, &decoded), "body should be JSON: %s", raw)
	}
	return resp, decoded
}

func (s *InventoryE2ESuite) createInventory(productID int64, initial int32) {
	s.T().Helper()
	resp, body := s.doRequest(http.MethodPost, inventoryURL, map[string]any{
		"productoId":      productID,
		"cantidadInicial": initial,
	})
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode, "create should succeed: %v", body)
}

func (s *InventoryE2ESuite) TestStockLifecycle() {
	// Create with initial stock of 100
	s.createInventory(42, 100)

	// Reading it back returns the exact quantity, enriched with product data
	resp, body := s.doRequest(http.MethodGet, inventoryURL+"/42", nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.Equal(s.T(), float64(100), body["cantidad"])
	producto, ok := body["producto"].(map[string]any)
	require.True(s.T(), ok, "response should carry product metadata")
	require.Equal(s.T(), "Laptop", producto["nombre"])
	require.Equal(s.T(), "149.99", producto["precio"])

	// Decrement 30 units
	resp, body = s.doRequest(http.MethodPatch, inventoryURL+"/42/decrementar?cantidad=30", nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.Equal(s.T(), float64(70), body["cantidad"])

	// A decrement beyond the available stock fails and changes nothing
	resp, _ = s.doRequest(http.MethodPatch, inventoryURL+"/42/decrementar?cantidad=1000", nil)
	require.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)

	resp, body = s.doRequest(http.MethodGet, inventoryURL+"/42", nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.Equal(s.T(), float64(70), body["cantidad"])

	// Increment 5 units
	resp, body = s.doRequest(http.MethodPatch, inventoryURL+"/42/incrementar?cantidad=5", nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.Equal(s.T(), float64(75), body["cantidad"])

	// Availability at the exact boundary and one beyond it
	resp, body = s.doRequest(http.MethodGet, inventoryURL+"/42/disponibilidad?cantidadRequerida=75", nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.Equal(s.T(), true, body["disponible"])
	require.Equal(s.T(), "Laptop", body["productoNombre"])

	resp, body = s.doRequest(http.MethodGet, inventoryURL+"/42/disponibilidad?cantidadRequerida=76", nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.Equal(s.T(), false, body["disponible"])
}

func (s *InventoryE2ESuite) TestSetQuantity() {
	s.createInventory(7, 10)

	resp, body := s.doRequest(http.MethodPut, inventoryURL+"/7", map[string]any{"cantidad": 60})
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.Equal(s.T(), float64(60), body["cantidad"])

	producto, ok := body["producto"].(map[string]any)
	require.True(s.T(), ok)
	require.Equal(s.T(), "Mouse", producto["nombre"])
	require.Equal(s.T(), "25.5", producto["precio"])
}

func (s *InventoryE2ESuite) TestCreateForUnknownProduct() {
	resp, body := s.doRequest(http.MethodPost, inventoryURL, map[string]any{
		"productoId":      999,
		"cantidadInicial": 10,
	})
	require.Equal(s.T(), http.StatusNotFound, resp.StatusCode)
	require.Contains(s.T(), body, "errors")

	// Nothing was stored for the rejected product
	resp, _ = s.doRequest(http.MethodGet, inventoryURL+"/999", nil)
	require.Equal(s.T(), http.StatusNotFound, resp.StatusCode)
}

func (s *InventoryE2ESuite) TestDuplicateCreate() {
	s.createInventory(101, 100)

	resp, body := s.doRequest(http.MethodPost, inventoryURL, map[string]any{
		"productoId":      101,
		"cantidadInicial": 5,
	})
	require.Equal(s.T(), http.StatusConflict, resp.StatusCode)
	require.Contains(s.T(), body, "errors")
}

func (s *InventoryE2ESuite) TestProductServiceOutage() {
	s.createInventory(102, 100)

	// With the product service down, reads fail with 503
	s.productsDown.Store(true)
	resp, body := s.doRequest(http.MethodGet, inventoryURL+"/102", nil)
	require.Equal(s.T(), http.StatusServiceUnavailable, resp.StatusCode)
	require.Contains(s.T(), body, "errors")

	// Mutations still commit; the response degrades to a nil product
	resp, body = s.doRequest(http.MethodPatch, inventoryURL+"/102/decrementar?cantidad=10", nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.Equal(s.T(), float64(90), body["cantidad"])
	require.NotContains(s.T(), body, "producto")

	// After recovery the committed quantity is visible
	s.productsDown.Store(false)
	resp, body = s.doRequest(http.MethodGet, inventoryURL+"/102", nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.Equal(s.T(), float64(90), body["cantidad"])
}

func (s *InventoryE2ESuite) TestAuthentication() {
	testCases := []struct {
		name         string
		key          string
		expectedCode int
	}{
		{name: "missing api key", key: "", expectedCode: http.StatusUnauthorized},
		{name: "wrong api key", key: "wrong", expectedCode: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.server.URL+inventoryURL+"/42", nil)
			require.NoError(s.T(), err)
			if tc.key != "" {
				req.Header.Set("X-API-Key", tc.key)
			}

			resp, err := s.httpClient.Do(req)
			require.NoError(s.T(), err)
			_ = resp.Body.Close()
			require.Equal(s.T(), tc.expectedCode, resp.StatusCode)
		})
	}

	// The health check is reachable without a key
	resp, err := s.httpClient.Get(fmt.Sprintf("%s/healthz", s.server.URL))
	require.NoError(s.T(), err)
	_ = resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
}
