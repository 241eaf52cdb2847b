package admin

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/handlers/common"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/utils/response"
)

// AdminHandler serves the admin dashboard, earnings and application review
type AdminHandler struct {
	earnings     *services.EarningsService
	payments     *services.PaymentService
	applications *services.ApplicationService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(earnings *services.EarningsService, payments *services.PaymentService, applications *services.ApplicationService) *AdminHandler {
	return &AdminHandler{earnings: earnings, payments: payments, applications: applications}
}

// Dashboard handles GET /admin/dashboard
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.earnings.AdminDashboard(c.UserContext())
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, stats)
}

// Earnings handles GET /admin/earnings?start_date=&end_date=
func (h *AdminHandler) Earnings(c *fiber.Ctx) error {
	report, err := h.earnings.AdminEarningsReport(c.UserContext(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, report)
}

// TeacherEarnings handles GET /admin/earnings/teachers?filter=all|paid|unpaid
func (h *AdminHandler) TeacherEarnings(c *fiber.Ctx) error {
	rows, err := h.earnings.TeacherEarningsSummary(c.UserContext(), c.Query("filter"))
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, rows)
}

// PayEarnings handles POST /admin/earnings/pay/:course_id
func (h *AdminHandler) PayEarnings(c *fiber.Ctx) error {
	courseID, ok := common.ParamID(c, "course_id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	payout, err := h.earnings.PayCourseEarnings(c.UserContext(), courseID)
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.SuccessWithMessage(c, "Teacher earnings marked as paid", payout)
}

// Payments handles GET /admin/payments?status=
func (h *AdminHandler) Payments(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	payments, total, err := h.payments.ListPayments(c.UserContext(), services.PaymentFilter{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Paginated(c, payments, response.CalculatePagination(page, limit, total))
}

// ListApplications handles GET /admin/applications?status=
func (h *AdminHandler) ListApplications(c *fiber.Ctx) error {
	list, err := h.applications.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, list)
}

// AcceptApplication handles POST /admin/applications/:id/accept
func (h *AdminHandler) AcceptApplication(c *fiber.Ctx) error {
	id, ok := common.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}

	result, err := h.applications.Accept(c.UserContext(), id)
	if err != nil {
		return common.RespondError(c, err)
	}

	message := "Application accepted"
	if !result.Changed {
		message = "Application was already accepted"
	}
	return response.SuccessWithMessage(c, message, result)
}

// RejectApplication handles POST /admin/applications/:id/reject
func (h *AdminHandler) RejectApplication(c *fiber.Ctx) error {
	id, ok := common.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid application ID")
	}

	result, err := h.applications.Reject(c.UserContext(), id)
	if err != nil {
		return common.RespondError(c, err)
	}

	message := "Application rejected"
	if !result.Changed {
		message = "Application was already rejected"
	}
	return response.SuccessWithMessage(c, message, result)
}
