package course

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classmate-ai/backend/model"
	"github.com/classmate-ai/backend/utils/middleware"
	"github.com/classmate-ai/backend/utils/response"
	"github.com/classmate-ai/backend/utils/validation"
)

// CourseHandler handles course-related requests
type CourseHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(db *gorm.DB) *CourseHandler {
	return &CourseHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// OwnedCourse loads a course and verifies it belongs to the authenticated
// user. Shared by every course-scoped handler.
func OwnedCourse(c *fiber.Ctx, db *gorm.DB, courseIDParam string) (*model.Course, error) {
	user, ok := middleware.GetUser(c)
	if !ok {
		return nil, response.Unauthorized(c, "")
	}

	courseID, err := uuid.Parse(courseIDParam)
	if err != nil {
		return nil, response.BadRequest(c, "Invalid course id")
	}

	var course model.Course
	if err := db.Where("id = ? AND user_id = ?", courseID, user.ID).First(&course).Error; err != nil {
		return nil, response.NotFound(c, "Course not found")
	}
	return &course, nil
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	search := c.Query("search", "")

	query := h.db.Model(&model.Course{}).Where("user_id = ?", user.ID)
	if search != "" {
		query = query.Where("name ILIKE ? OR description ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count courses")
	}

	var courses []model.Course
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course := model.Course{
		UserID:      user.ID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.db.Create(&course).Error; err != nil {
		return response.InternalServerError(c, "Failed to create course")
	}

	return response.Created(c, course)
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	course, err := OwnedCourse(c, h.db, c.Params("id"))
	if err != nil {
		return err
	}
	return response.Success(c, course)
}

// UpdateCourse handles PATCH /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	course, err := OwnedCourse(c, h.db, c.Params("id"))
	if err != nil {
		return err
	}

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.Description != nil {
		course.Description = *req.Description
	}

	if err := h.db.Save(course).Error; err != nil {
		return response.InternalServerError(c, "Failed to update course")
	}
	return response.Success(c, course)
}

// DeleteCourse handles DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	course, err := OwnedCourse(c, h.db, c.Params("id"))
	if err != nil {
		return err
	}

	if err := h.db.Delete(course).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete course")
	}
	return response.NoContent(c)
}
