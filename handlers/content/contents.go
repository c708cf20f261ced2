package content

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classmate-ai/backend/handlers/course"
	"github.com/classmate-ai/backend/model"
	"github.com/classmate-ai/backend/services"
	"github.com/classmate-ai/backend/services/digitalocean"
	"github.com/classmate-ai/backend/utils/response"
	"github.com/classmate-ai/backend/utils/validation"
)

const (
	uploadURLExpiry   = 15 * time.Minute
	downloadURLExpiry = 15 * time.Minute
)

// ContentHandler handles course content CRUD and ingestion scheduling
type ContentHandler struct {
	db        *gorm.DB
	spaces    *digitalocean.SpacesClient // nil when Spaces is not configured
	queue     *services.IngestQueue
	validator *validation.Validator
}

// NewContentHandler creates a new content handler
func NewContentHandler(db *gorm.DB, spaces *digitalocean.SpacesClient, queue *services.IngestQueue) *ContentHandler {
	return &ContentHandler{
		db:        db,
		spaces:    spaces,
		queue:     queue,
		validator: validation.NewValidator(),
	}
}

// ownedContent loads a content item after verifying course ownership
func (h *ContentHandler) ownedContent(c *fiber.Ctx) (*model.Course, *model.CourseContent, error) {
	owned, err := course.OwnedCourse(c, h.db, c.Params("courseId"))
	if err != nil {
		return nil, nil, err
	}

	contentID, parseErr := uuid.Parse(c.Params("contentId"))
	if parseErr != nil {
		return nil, nil, response.BadRequest(c, "Invalid content id")
	}

	var content model.CourseContent
	if err := h.db.Where("id = ? AND course_id = ?", contentID, owned.ID).First(&content).Error; err != nil {
		return nil, nil, response.NotFound(c, "Content not found")
	}
	return owned, &content, nil
}

// CreateContentRequest represents the request body for creating content
type CreateContentRequest struct {
	Category    string `json:"category" validate:"required"`
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// ListContents handles GET /api/v1/courses/:courseId/contents
func (h *ContentHandler) ListContents(c *fiber.Ctx) error {
	owned, err := course.OwnedCourse(c, h.db, c.Params("courseId"))
	if err != nil {
		return err
	}

	query := h.db.Where("course_id = ?", owned.ID)
	if category := c.Query("category"); category != "" {
		if !model.ValidCategory(category) {
			return response.BadRequest(c, "Unknown category")
		}
		query = query.Where("category = ?", category)
	}

	var contents []model.CourseContent
	if err := query.Order("created_at DESC").Find(&contents).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch contents")
	}
	return response.Success(c, contents)
}

// CreateContent handles POST /api/v1/courses/:courseId/contents
func (h *ContentHandler) CreateContent(c *fiber.Ctx) error {
	owned, err := course.OwnedCourse(c, h.db, c.Params("courseId"))
	if err != nil {
		return err
	}

	var req CreateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if !model.ValidCategory(req.Category) {
		return response.BadRequest(c, "Unknown category")
	}

	content := model.CourseContent{
		CourseID:        owned.ID,
		Category:        model.ContentCategory(req.Category),
		Title:           req.Title,
		Description:     req.Description,
		IngestionStatus: model.IngestionStatusNone,
	}
	if err := h.db.Create(&content).Error; err != nil {
		return response.InternalServerError(c, "Failed to create content")
	}
	return response.Created(c, content)
}

// GetContent handles GET /api/v1/courses/:courseId/contents/:contentId.
// Clients poll this for the ingestion status fields.
func (h *ContentHandler) GetContent(c *fiber.Ctx) error {
	_, content, err := h.ownedContent(c)
	if err != nil {
		return err
	}
	return response.Success(c, content)
}

// UploadURLRequest asks for a presigned PUT URL for a direct upload
type UploadURLRequest struct {
	Filename    string `json:"filename" validate:"required,min=1,max=255"`
	ContentType string `json:"content_type" validate:"required,min=1,max=255"`
}

// CreateUploadURL handles POST /api/v1/courses/:courseId/contents/:contentId/upload-url
func (h *ContentHandler) CreateUploadURL(c *fiber.Ctx) error {
	owned, content, err := h.ownedContent(c)
	if err != nil {
		return err
	}
	if h.spaces == nil {
		return response.NotImplemented(c, "File uploads are not configured")
	}

	var req UploadURLRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return response.ValidationError(c, err)
	}

	fileKey := fmt.Sprintf("courses/%s/contents/%s/%s", owned.ID, content.ID, req.Filename)
	uploadURL, err := h.spaces.PresignUpload(fileKey, req.ContentType, uploadURLExpiry)
	if err != nil {
		return response.InternalServerError(c, "Failed to create upload URL")
	}

	return response.Success(c, fiber.Map{
		"upload_url": uploadURL,
		"file_key":   fileKey,
		"expires_in": int(uploadURLExpiry.Seconds()),
	})
}

// CreateDownloadURL handles GET /api/v1/courses/:courseId/contents/:contentId/download-url.
// Returns a time-limited link to the stored object.
func (h *ContentHandler) CreateDownloadURL(c *fiber.Ctx) error {
	_, content, err := h.ownedContent(c)
	if err != nil {
		return err
	}
	if h.spaces == nil {
		return response.NotImplemented(c, "File downloads are not configured")
	}
	if content.FileKey == "" {
		return response.NotFound(c, "Content has no uploaded file")
	}

	downloadURL, err := h.spaces.PresignDownload(content.FileKey, downloadURLExpiry)
	if err != nil {
		return response.InternalServerError(c, "Failed to create download URL")
	}

	return response.Success(c, fiber.Map{
		"download_url": downloadURL,
		"file_key":     content.FileKey,
		"expires_in":   int(downloadURLExpiry.Seconds()),
	})
}

// FinalizeUploadRequest confirms a completed direct upload
type FinalizeUploadRequest struct {
	FileKey          string `json:"file_key" validate:"required,min=1,max=1024"`
	OriginalFilename string `json:"original_filename" validate:"required,min=1,max=255"`
	MimeType         string `json:"mime_type" validate:"omitempty,max=255"`
	SizeBytes        int64  `json:"size_bytes" validate:"omitempty,min=0"`
}

// FinalizeUpload handles POST /api/v1/courses/:courseId/contents/:contentId/finalize.
// Records the uploaded file on the content item and schedules ingestion for
// supported document types.
func (h *ContentHandler) FinalizeUpload(c *fiber.Ctx) error {
	_, content, err := h.ownedContent(c)
	if err != nil {
		return err
	}

	var req FinalizeUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return response.ValidationError(c, err)
	}

	content.FileKey = req.FileKey
	content.OriginalFilename = req.OriginalFilename
	content.MimeType = req.MimeType
	content.SizeBytes = req.SizeBytes
	if err := h.db.Save(content).Error; err != nil {
		return response.InternalServerError(c, "Failed to record upload")
	}

	// Only supported document types go through ingestion; everything else
	// stays downloadable but unindexed.
	if services.DetectSourceKind(content.MimeType, content.OriginalFilename) != services.SourceKindUnsupported {
		if err := h.queue.Enqueue(c.Context(), content.ID); err != nil {
			log.Printf("Content: failed to enqueue ingestion for %s: %v", content.ID, err)
			return response.InternalServerError(c, "Upload recorded but ingestion could not be scheduled")
		}
		content.IngestionStatus = model.IngestionStatusQueued
	}

	return response.Success(c, content)
}

// Reingest handles POST /api/v1/courses/:courseId/contents/:contentId/reingest
func (h *ContentHandler) Reingest(c *fiber.Ctx) error {
	_, content, err := h.ownedContent(c)
	if err != nil {
		return err
	}
	if content.FileKey == "" {
		return response.BadRequest(c, "Content has no uploaded file")
	}
	if services.DetectSourceKind(content.MimeType, content.OriginalFilename) == services.SourceKindUnsupported {
		return response.BadRequest(c, "File type is not supported for ingestion")
	}

	if err := h.queue.Enqueue(c.Context(), content.ID); err != nil {
		return response.InternalServerError(c, "Failed to schedule ingestion")
	}

	content.IngestionStatus = model.IngestionStatusQueued
	return response.Success(c, content)
}

// UpdateContentRequest represents a metadata update
type UpdateContentRequest struct {
	Category    *string `json:"category"`
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// UpdateContent handles PATCH /api/v1/courses/:courseId/contents/:contentId.
// A category change re-runs ingestion so chunk rows pick up the new category.
func (h *ContentHandler) UpdateContent(c *fiber.Ctx) error {
	_, content, err := h.ownedContent(c)
	if err != nil {
		return err
	}

	var req UpdateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return response.ValidationError(c, err)
	}

	categoryChanged := false
	if req.Category != nil {
		if !model.ValidCategory(*req.Category) {
			return response.BadRequest(c, "Unknown category")
		}
		categoryChanged = content.Category != model.ContentCategory(*req.Category)
		content.Category = model.ContentCategory(*req.Category)
	}
	if req.Title != nil {
		content.Title = *req.Title
	}
	if req.Description != nil {
		content.Description = *req.Description
	}

	if err := h.db.Save(content).Error; err != nil {
		return response.InternalServerError(c, "Failed to update content")
	}

	if categoryChanged && content.FileKey != "" &&
		services.DetectSourceKind(content.MimeType, content.OriginalFilename) != services.SourceKindUnsupported {
		if err := h.queue.Enqueue(c.Context(), content.ID); err != nil {
			log.Printf("Content: failed to re-enqueue %s after category change: %v", content.ID, err)
		}
	}

	return response.Success(c, content)
}

// DeleteContent handles DELETE /api/v1/courses/:courseId/contents/:contentId.
// Pages and chunks cascade; the stored object is removed best-effort.
func (h *ContentHandler) DeleteContent(c *fiber.Ctx) error {
	_, content, err := h.ownedContent(c)
	if err != nil {
		return err
	}

	if err := h.db.Select("Pages", "Chunks").Delete(content).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete content")
	}

	if h.spaces != nil && content.FileKey != "" {
		if err := h.spaces.DeleteObject(c.Context(), content.FileKey); err != nil {
			log.Printf("Content: failed to delete object %s: %v", content.FileKey, err)
		}
	}

	return response.NoContent(c)
}
