package router

import (
	"elearning_video_service/internal/video/api/handlers"
	"elearning_video_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes wires the video lifecycle routes. Renditions and
// thumbnails are served straight off the storage root under /storage.
func RegisterRoutes(app *fiber.App, videoHandler *handlers.VideoHandler, storageRoot string) {
	app.Static("/storage", storageRoot)

	api := app.Group("/api", middlewares.JWTMiddleware())
	api.Post("/lessons/:lessonId/video", videoHandler.UploadVideo)
	api.Get("/lessons/:lessonId/video", videoHandler.GetLessonVideo)
	api.Post("/lessons/:lessonId/thumbnail", videoHandler.UploadLessonThumbnail)
	api.Get("/videos/:id", videoHandler.GetVideo)
	api.Post("/videos/:id/thumbnail", videoHandler.UploadThumbnail)
}
