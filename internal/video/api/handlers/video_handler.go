package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"elearning_video_service/internal/video/app"
	"elearning_video_service/internal/video/domain"
	errprocess "elearning_video_service/pkg/err"
	"elearning_video_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// VideoHandler definition video lifecycle handler
type VideoHandler struct {
	UseCase       app.VideoUseCase
	MaxFileSizeMB int64
}

// UploadVideo receives the multipart upload for a lesson and queues the
// processing job. Responds 202: the asset is accepted, not ready.
func (h *VideoHandler) UploadVideo(c *fiber.Ctx) error {
	lessonID, err := paramUint(c, "lessonId")
	if err != nil {
		return respondError(c, errprocess.BadRequest("Invalid lesson id"))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, errprocess.BadRequest("Video file is required"))
	}
	if h.MaxFileSizeMB > 0 && fileHeader.Size > h.MaxFileSizeMB*1024*1024 {
		return respondError(c, errprocess.BadRequest("Video file exceeds the size limit"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, errprocess.BadRequest("Video file could not be read"))
	}
	defer file.Close()

	view, err := h.UseCase.EnqueueUpload(c.Context(), domain.UploadVideoReq{
		LessonID:         lessonID,
		Identity:         identityFromCtx(c),
		OriginalFileName: fileHeader.Filename,
		MimeType:         contentType(fileHeader),
		SizeBytes:        fileHeader.Size,
		File:             file,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(view)
}

// GetVideo returns one asset by id under the visibility policy
func (h *VideoHandler) GetVideo(c *fiber.Ctx) error {
	videoID, err := paramUint(c, "id")
	if err != nil {
		return respondError(c, errprocess.BadRequest("Invalid video id"))
	}

	view, err := h.UseCase.GetAsset(c.Context(), videoID, identityFromCtx(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// GetLessonVideo returns the lesson's current asset. Clients poll this
// endpoint while the status is still processing.
func (h *VideoHandler) GetLessonVideo(c *fiber.Ctx) error {
	lessonID, err := paramUint(c, "lessonId")
	if err != nil {
		return respondError(c, errprocess.BadRequest("Invalid lesson id"))
	}

	view, err := h.UseCase.GetLessonAsset(c.Context(), lessonID, identityFromCtx(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// UploadThumbnail attaches or replaces the asset's thumbnail
func (h *VideoHandler) UploadThumbnail(c *fiber.Ctx) error {
	videoID, err := paramUint(c, "id")
	if err != nil {
		return respondError(c, errprocess.BadRequest("Invalid video id"))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, errprocess.BadRequest("Thumbnail file is required"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, errprocess.BadRequest("Thumbnail file could not be read"))
	}
	defer file.Close()

	view, err := h.UseCase.AttachThumbnail(c.Context(), domain.UploadThumbnailReq{
		VideoID:   videoID,
		Identity:  identityFromCtx(c),
		MimeType:  contentType(fileHeader),
		SizeBytes: fileHeader.Size,
		File:      file,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// UploadLessonThumbnail thumbnail for the lesson's current asset
func (h *VideoHandler) UploadLessonThumbnail(c *fiber.Ctx) error {
	lessonID, err := paramUint(c, "lessonId")
	if err != nil {
		return respondError(c, errprocess.BadRequest("Invalid lesson id"))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, errprocess.BadRequest("Thumbnail file is required"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, errprocess.BadRequest("Thumbnail file could not be read"))
	}
	defer file.Close()

	view, err := h.UseCase.AttachLessonThumbnail(c.Context(), lessonID, domain.UploadThumbnailReq{
		Identity:  identityFromCtx(c),
		MimeType:  contentType(fileHeader),
		SizeBytes: fileHeader.Size,
		File:      file,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

func identityFromCtx(c *fiber.Ctx) domain.Identity {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	role, _ := c.Locals(middlewares.TokenRole).(string)
	return domain.Identity{UserID: userID, Role: role}
}

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

func contentType(fh *multipart.FileHeader) string {
	return fh.Header.Get("Content-Type")
}

// respondError maps a usecase error to its HTTP shape. Anything without an
// ApiError wrapping is an internal failure whose detail stays server side.
func respondError(c *fiber.Ctx, err error) error {
	if apiErr, ok := errprocess.AsApiError(err); ok {
		return c.Status(apiErr.StatusCode).JSON(fiber.Map{"error": apiErr.Message})
	}
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
