package video

import (
	"fmt"
	"io"
	"log"
	"strings"

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

// maxCaptionBytes caps caption uploads at 10 MiB
const maxCaptionBytes = 10 << 20

// VideoHandler handles video assets, chapters and caption ingestion
type VideoHandler struct {
	db          *gorm.DB
	transcripts *services.TranscriptService
	spaces      *digitalocean.SpacesClient // nil when Spaces is not configured
	validator   *validation.Validator
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(db *gorm.DB, transcripts *services.TranscriptService, spaces *digitalocean.SpacesClient) *VideoHandler {
	return &VideoHandler{
		db:          db,
		transcripts: transcripts,
		spaces:      spaces,
		validator:   validation.NewValidator(),
	}
}

func (h *VideoHandler) ownedVideo(c *fiber.Ctx) (*model.VideoAsset, error) {
	owned, err := course.OwnedCourse(c, h.db, c.Params("courseId"))
	if err != nil {
		return nil, err
	}

	videoID, parseErr := uuid.Parse(c.Params("videoId"))
	if parseErr != nil {
		return nil, response.BadRequest(c, "Invalid video id")
	}

	var asset model.VideoAsset
	if err := h.db.Where("id = ? AND course_id = ?", videoID, owned.ID).First(&asset).Error; err != nil {
		return nil, response.NotFound(c, "Video not found")
	}
	return &asset, nil
}

// CreateVideoRequest represents the request body for registering a video
type CreateVideoRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=255"`
	VideoGUID   string  `json:"video_guid" validate:"omitempty,max=100"`
	DurationSec float64 `json:"duration_sec" validate:"omitempty,min=0"`
	ContentID   string  `json:"content_id" validate:"omitempty,uuid4"`
}

// CreateVideo handles POST /api/v1/courses/:courseId/videos
func (h *VideoHandler) CreateVideo(c *fiber.Ctx) error {
	owned, err := course.OwnedCourse(c, h.db, c.Params("courseId"))
	if err != nil {
		return err
	}

	var req CreateVideoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return response.ValidationError(c, err)
	}

	asset := model.VideoAsset{
		CourseID:    owned.ID,
		Title:       req.Title,
		VideoGUID:   req.VideoGUID,
		DurationSec: req.DurationSec,
	}
	if req.ContentID != "" {
		contentID, parseErr := uuid.Parse(req.ContentID)
		if parseErr != nil {
			return response.BadRequest(c, "Invalid content_id")
		}
		var content model.CourseContent
		if err := h.db.Where("id = ? AND course_id = ?", contentID, owned.ID).First(&content).Error; err != nil {
			return response.NotFound(c, "Content not found")
		}
		asset.ContentID = &contentID
	}

	if err := h.db.Create(&asset).Error; err != nil {
		return response.InternalServerError(c, "Failed to create video")
	}
	return response.Created(c, asset)
}

// ListVideos handles GET /api/v1/courses/:courseId/videos
func (h *VideoHandler) ListVideos(c *fiber.Ctx) error {
	owned, err := course.OwnedCourse(c, h.db, c.Params("courseId"))
	if err != nil {
		return err
	}

	var assets []model.VideoAsset
	if err := h.db.
		Where("course_id = ?", owned.ID).
		Preload("Chapters").
		Order("created_at DESC").
		Find(&assets).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch videos")
	}
	return response.Success(c, assets)
}

// GetVideo handles GET /api/v1/courses/:courseId/videos/:videoId
func (h *VideoHandler) GetVideo(c *fiber.Ctx) error {
	asset, err := h.ownedVideo(c)
	if err != nil {
		return err
	}

	if err := h.db.Preload("Chapters").First(asset, "id = ?", asset.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to load video")
	}
	return response.Success(c, asset)
}

// DeleteVideo handles DELETE /api/v1/courses/:courseId/videos/:videoId
func (h *VideoHandler) DeleteVideo(c *fiber.Ctx) error {
	asset, err := h.ownedVideo(c)
	if err != nil {
		return err
	}

	if err := h.db.Select("Chapters", "Segments").Delete(asset).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete video")
	}
	return response.NoContent(c)
}

// ChapterInput is one chapter in a replace request
type ChapterInput struct {
	Title    string  `json:"title" validate:"required,min=1,max=255"`
	StartSec float64 `json:"start_sec" validate:"min=0"`
	EndSec   float64 `json:"end_sec" validate:"min=0"`
}

// ReplaceChaptersRequest replaces all chapters of a video
type ReplaceChaptersRequest struct {
	Chapters []ChapterInput `json:"chapters" validate:"required,dive"`
}

// ReplaceChapters handles PUT /api/v1/courses/:courseId/videos/:videoId/chapters
func (h *VideoHandler) ReplaceChapters(c *fiber.Ctx) error {
	asset, err := h.ownedVideo(c)
	if err != nil {
		return err
	}

	var req ReplaceChaptersRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return response.ValidationError(c, err)
	}
	for _, ch := range req.Chapters {
		if ch.EndSec < ch.StartSec {
			return response.BadRequest(c, "Chapter end_sec must be >= start_sec")
		}
	}

	chapters := make([]model.VideoChapter, 0, len(req.Chapters))
	for _, ch := range req.Chapters {
		chapters = append(chapters, model.VideoChapter{
			VideoAssetID: asset.ID,
			Title:        ch.Title,
			StartSec:     ch.StartSec,
			EndSec:       ch.EndSec,
		})
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_asset_id = ?", asset.ID).Delete(&model.VideoChapter{}).Error; err != nil {
			return err
		}
		if len(chapters) == 0 {
			return nil
		}
		return tx.Create(&chapters).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to replace chapters")
	}
	return response.Success(c, chapters)
}

// UploadCaptions handles POST /api/v1/courses/:courseId/videos/:videoId/captions.
// Accepts a WebVTT file as multipart form field "captions" or as the raw
// request body. Optional "language" form/query value, defaulting to "en".
func (h *VideoHandler) UploadCaptions(c *fiber.Ctx) error {
	asset, err := h.ownedVideo(c)
	if err != nil {
		return err
	}

	language := strings.ToLower(strings.TrimSpace(c.Query("language", c.FormValue("language", "en"))))
	if language == "" {
		language = "en"
	}

	var vttText string
	if fileHeader, fhErr := c.FormFile("captions"); fhErr == nil {
		if fileHeader.Size > maxCaptionBytes {
			return response.BadRequest(c, "Caption file too large")
		}
		f, openErr := fileHeader.Open()
		if openErr != nil {
			return response.BadRequest(c, "Failed to read caption file")
		}
		defer f.Close()
		data, readErr := io.ReadAll(io.LimitReader(f, maxCaptionBytes))
		if readErr != nil {
			return response.BadRequest(c, "Failed to read caption file")
		}
		vttText = string(data)
	} else {
		body := c.Body()
		if len(body) > maxCaptionBytes {
			return response.BadRequest(c, "Caption payload too large")
		}
		vttText = string(body)
	}

	if vttText == "" {
		return response.BadRequest(c, "Caption payload is empty")
	}

	count, err := h.transcripts.IngestCaptions(c.Context(), asset.ID, language, vttText)
	if err != nil {
		return response.InternalServerError(c, "Failed to ingest captions")
	}

	// Keep the raw file in Spaces so captions can be re-ingested later
	if h.spaces != nil {
		key := fmt.Sprintf("courses/%s/videos/%s/captions/%s.vtt", asset.CourseID, asset.ID, language)
		if err := h.spaces.PutObject(c.Context(), key, []byte(vttText), "text/vtt"); err != nil {
			log.Printf("Video: failed to archive captions for %s: %v", asset.ID, err)
		}
	}

	return response.Success(c, fiber.Map{
		"video_asset_id": asset.ID,
		"language":       language,
		"segments":       count,
	})
}

// ListSegments handles GET /api/v1/courses/:courseId/videos/:videoId/segments
func (h *VideoHandler) ListSegments(c *fiber.Ctx) error {
	asset, err := h.ownedVideo(c)
	if err != nil {
		return err
	}

	query := h.db.Where("video_asset_id = ?", asset.ID)
	if language := c.Query("language"); language != "" {
		query = query.Where("language_code = ?", language)
	}

	var segments []model.TranscriptSegment
	if err := query.Order("start_sec ASC").Find(&segments).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch segments")
	}
	return response.Success(c, segments)
}
