package checkout

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/handlers/common"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/utils/response"
)

// CheckoutHandler covers enrollment, the gateway callback and course playback
type CheckoutHandler struct {
	checkout *services.CheckoutService
	payments *services.PaymentService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout *services.CheckoutService, payments *services.PaymentService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, payments: payments}
}

// Checkout handles POST /checkout/:slug. Free courses enroll immediately;
// paid ones need billing details in the body and return a gateway order.
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var billing *services.BillingDetails
	if len(c.Body()) > 0 {
		billing = &services.BillingDetails{}
		if err := c.BodyParser(billing); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	result, err := h.checkout.Checkout(c.UserContext(), p, c.Params("slug"), billing)
	if err != nil {
		return common.RespondError(c, err)
	}

	if result.Free {
		return response.SuccessWithMessage(c, "Enrolled successfully", result)
	}
	return response.Created(c, result)
}

// VerifyPayment handles the gateway callback POST /payments/verify, form or JSON.
// A bad signature is a failure outcome, never a server error.
func (h *CheckoutHandler) VerifyPayment(c *fiber.Ctx) error {
	var req services.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return response.BadRequest(c, "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}

	settlement, err := h.payments.VerifyPayment(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			return response.ErrorWithDetails(c, fiber.StatusBadRequest, "Payment verification failed", "PAYMENT_FAILED", err.Error())
		}
		return common.RespondError(c, err)
	}

	message := "Payment verified successfully"
	if settlement.Replayed {
		message = "Payment already verified"
	}
	return response.SuccessWithMessage(c, message, settlement)
}

// MyCourses handles GET /my-courses
func (h *CheckoutHandler) MyCourses(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	enrollments, err := h.checkout.MyCourses(c.UserContext(), p)
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, enrollments)
}

// Watch handles GET /courses/:slug/watch?lecture=
func (h *CheckoutHandler) Watch(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	result, err := h.checkout.WatchCourse(c.UserContext(), p, c.Params("slug"), common.QueryID(c, "lecture"))
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, result)
}
