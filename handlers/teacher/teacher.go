package teacher

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/elms-api/handlers/common"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/utils/response"
)

// TeacherHandler serves course authoring and the teacher dashboard
type TeacherHandler struct {
	courses  *services.CourseService
	earnings *services.EarningsService
}

// NewTeacherHandler creates a new teacher handler
func NewTeacherHandler(courses *services.CourseService, earnings *services.EarningsService) *TeacherHandler {
	return &TeacherHandler{courses: courses, earnings: earnings}
}

// optionalFile returns the named multipart file or nil when it was not sent
func optionalFile(c *fiber.Ctx, name string) *multipart.FileHeader {
	fh, err := c.FormFile(name)
	if err != nil {
		return nil
	}
	return fh
}

// Dashboard handles GET /teacher/dashboard
func (h *TeacherHandler) Dashboard(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	stats, err := h.earnings.TeacherDashboard(c.UserContext(), p)
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, stats)
}

// ListCourses handles GET /teacher/courses
func (h *TeacherHandler) ListCourses(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	courses, err := h.courses.ListTeacherCourses(c.UserContext(), p)
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, courses)
}

// CreateCourse handles POST /teacher/courses as JSON or multipart with an optional course_image
func (h *TeacherHandler) CreateCourse(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	course, err := h.courses.CreateCourse(c.UserContext(), p, req, optionalFile(c, "course_image"))
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Created(c, course)
}

// UpdateCourse handles PUT /teacher/courses/:id
func (h *TeacherHandler) UpdateCourse(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := common.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req services.CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	course, err := h.courses.UpdateCourse(c.UserContext(), p, id, req)
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.SuccessWithMessage(c, "Course updated successfully", course)
}

// SetCourseImage handles POST /teacher/courses/:id/image
func (h *TeacherHandler) SetCourseImage(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := common.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	image := optionalFile(c, "course_image")
	if image == nil {
		return response.BadRequest(c, "course_image is required")
	}

	course, err := h.courses.SetCourseImage(c.UserContext(), p, id, image)
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, course)
}

// CreateLesson handles POST /teacher/lessons
func (h *TeacherHandler) CreateLesson(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.LessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	lesson, err := h.courses.CreateLesson(c.UserContext(), p, req)
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Created(c, lesson)
}

// ListLessons handles GET /teacher/courses/:id/lessons for the dependent dropdown
func (h *TeacherHandler) ListLessons(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := common.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	lessons, err := h.courses.ListLessons(c.UserContext(), p, id)
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, lessons)
}

// NextSerial handles GET /teacher/lessons/:id/next-serial
func (h *TeacherHandler) NextSerial(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := common.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	next, err := h.courses.NextSerialNumber(c.UserContext(), p, id)
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, fiber.Map{"next_serial_number": next})
}

// AddVideo handles the multipart POST /teacher/videos
func (h *TeacherHandler) AddVideo(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.VideoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid form data")
	}

	video, err := h.courses.AddVideo(c.UserContext(), p, req, optionalFile(c, "thumbnail"), optionalFile(c, "video_file"))
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Created(c, video)
}

// Students handles GET /teacher/students?course=
func (h *TeacherHandler) Students(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	students, err := h.earnings.EnrolledStudents(c.UserContext(), p, common.QueryID(c, "course"))
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, students)
}

// Earnings handles GET /teacher/earnings?filter=all|received|pending
func (h *TeacherHandler) Earnings(c *fiber.Ctx) error {
	p, ok := common.Principal(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	view, err := h.earnings.TeacherEarnings(c.UserContext(), p, c.Query("filter", services.EarningsFilterAll))
	if err != nil {
		return common.RespondError(c, err)
	}
	return response.Success(c, view)
}
