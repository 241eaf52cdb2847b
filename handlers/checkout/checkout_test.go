package checkout

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/services/razorpay"
	"github.com/sahilchouksey/elms-api/utils/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct{}

func (stubGateway) KeyID() string { return "rzp_test_key" }

func (stubGateway) CreateOrder(context.Context, razorpay.CreateOrderRequest) (*razorpay.Order, error) {
	return &razorpay.Order{ID: "order_stub"}, nil
}

func (stubGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	return razorpay.VerifySignature("secret", orderID, paymentID, signature)
}

// The signature is checked before any database access, so a nil db is fine here
func newVerifyApp() *fiber.App {
	h := NewCheckoutHandler(nil, services.NewPaymentService(nil, stubGateway{}, nil))
	app := fiber.New()
	app.Post("/payments/verify", h.VerifyPayment)
	return app
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	app := newVerifyApp()

	req := httptest.NewRequest("POST", "/payments/verify",
		strings.NewReader("razorpay_order_id=order_1&razorpay_payment_id=pay_1&razorpay_signature=deadbeef"))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body response.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "PAYMENT_FAILED", body.Error.Code)
	assert.Equal(t, "Payment verification failed", body.Error.Message)
}

func TestVerifyPaymentRequiresAllFields(t *testing.T) {
	app := newVerifyApp()

	req := httptest.NewRequest("POST", "/payments/verify",
		strings.NewReader(`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1"}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body response.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)
}
