package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		var body CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(89910), body.Amount)
		assert.Equal(t, "INR", body.Currency)
		assert.Equal(t, "Asha Rao", body.Notes["name"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Order{
			ID:       "order_ABC",
			Entity:   "order",
			Amount:   body.Amount,
			Currency: body.Currency,
			Receipt:  body.Receipt,
			Status:   "created",
		})
	}))
	defer srv.Close()

	c := NewClient(Config{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL})
	order, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:         89910,
		Currency:       "INR",
		Receipt:        "ELMS-1700000000",
		Notes:          map[string]string{"name": "Asha Rao"},
		PaymentCapture: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, "order_ABC", order.ID)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, "rzp_test_key", c.KeyID())
}

func TestCreateOrderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be at least INR 1.00","field":"amount"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{KeyID: "k", KeySecret: "s", BaseURL: srv.URL})
	_, err := c.CreateOrder(context.Background(), CreateOrderRequest{Amount: 1, Currency: "INR"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
	assert.Equal(t, "amount", apiErr.Field)
}

func TestCreateOrderNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := NewClient(Config{KeyID: "k", KeySecret: "s", BaseURL: srv.URL})
	_, err := c.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: "INR"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "upstream down")
}

func TestCreateOrderTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{KeyID: "k", KeySecret: "s", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := c.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: "INR"})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, BaseURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}
