package course

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/handlers/common"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/utils/response"
)

// CourseHandler serves the public catalog
type CourseHandler struct {
	catalog *services.CatalogService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(catalog *services.CatalogService) *CourseHandler {
	return &CourseHandler{catalog: catalog}
}

// ListTaxonomy handles GET /api/v1/taxonomy
func (h *CourseHandler) ListTaxonomy(c *fiber.Ctx) error {
	t, err := h.catalog.ListTaxonomy(c.UserContext())
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, t)
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	filter := services.CourseFilter{
		CategoryID: common.QueryID(c, "category"),
		LevelID:    common.QueryID(c, "level"),
		LanguageID: common.QueryID(c, "language"),
		Search:     c.Query("search"),
		Page:       page,
		Limit:      limit,
	}

	courses, total, err := h.catalog.ListCourses(c.UserContext(), filter)
	if err != nil {
		return common.RespondError(c, err)
	}

	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// GetCourse handles GET /api/v1/courses/:slug
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	detail, err := h.catalog.GetCourseBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, detail)
}
