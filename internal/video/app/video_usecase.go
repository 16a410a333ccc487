package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"elearning_video_service/internal/video/domain"
	"elearning_video_service/internal/video/repository"
	errprocess "elearning_video_service/pkg/err"
	"elearning_video_service/pkg/logger"
	"elearning_video_service/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VideoUseCase the lifecycle surface the HTTP layer consumes. Everything
// else (worker, pipeline) talks to the repositories directly.
type VideoUseCase interface {
	EnqueueUpload(ctx context.Context, req domain.UploadVideoReq) (*domain.AssetView, error)
	GetAsset(ctx context.Context, videoID uint, ident domain.Identity) (*domain.AssetView, error)
	GetLessonAsset(ctx context.Context, lessonID uint, ident domain.Identity) (*domain.AssetView, error)
	AttachThumbnail(ctx context.Context, req domain.UploadThumbnailReq) (*domain.AssetView, error)
	AttachLessonThumbnail(ctx context.Context, lessonID uint, req domain.UploadThumbnailReq) (*domain.AssetView, error)
}

type videoUseCase struct {
	videoRepo  repository.VideoRepo
	lessonRepo repository.LessonRepo
	layout     *storage.Layout
	queue      JobQueue
}

// NewVideoUseCase create a new VideoUseCase
func NewVideoUseCase(videoRepo repository.VideoRepo,
	lessonRepo repository.LessonRepo,
	layout *storage.Layout,
	queue JobQueue,
) VideoUseCase {
	return &videoUseCase{
		videoRepo:  videoRepo,
		lessonRepo: lessonRepo,
		layout:     layout,
		queue:      queue,
	}
}

// EnqueueUpload stores the raw file, records the asset and queues the
// processing job. Bytes land on disk before the entity exists, and a broker
// refusal leaves the asset uploaded rather than failing the whole upload.
func (u *videoUseCase) EnqueueUpload(ctx context.Context, req domain.UploadVideoReq) (*domain.AssetView, error) {
	if req.File == nil {
		return nil, errprocess.BadRequest("Video file is required")
	}
	if !domain.AllowedVideoMimeType(req.MimeType) {
		return nil, errprocess.BadRequest("Unsupported video format")
	}

	if err := u.assertLessonOwnership(req.LessonID, req.Identity); err != nil {
		return nil, err
	}

	// Fresh storageKey per upload, never reused. A retried upload gets a
	// new key so in-flight writes of an older job cannot collide.
	storageKey := uuid.New().String()
	fileName := "original" + videoExtension(req.OriginalFileName)

	if _, err := u.layout.EnsureUploadFolder(storageKey); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("storageKey[%s] create upload folder failed : %v", storageKey, err))
	}

	originalPath := storage.RelativeUploadPath(storageKey, fileName)
	if err := u.writeFile(originalPath, req.File); err != nil {
		u.cleanupUploadFolder(storageKey)
		return nil, errprocess.Set(fmt.Sprintf("storageKey[%s] store original failed : %v", storageKey, err))
	}

	video := domain.VideoAsset{
		LessonID:         req.LessonID,
		UploadedBy:       req.Identity.UserID,
		OriginalFileName: req.OriginalFileName,
		MimeType:         req.MimeType,
		SizeBytes:        req.SizeBytes,
		StorageKey:       storageKey,
		OriginalPath:     originalPath,
		Status:           domain.VideoUploaded,
	}

	if err := u.videoRepo.Create(&video); err != nil {
		u.cleanupUploadFolder(storageKey)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errprocess.Conflict("Video asset already exists")
		}
		return nil, errprocess.Set(fmt.Sprintf("storageKey[%s] create asset failed : %v", storageKey, err))
	}

	if err := u.lessonRepo.SetCurrentVideo(req.LessonID, video.ID); err != nil {
		logger.Log.Errorf("set lesson current video failed :", err)
	}

	jobID, err := u.queue.Enqueue(video.ID)
	if err != nil {
		// asset stays uploaded for a manual retry
		logger.Log.Warn("enqueue failed, asset left uploaded",
			zap.Uint("video_id", video.ID),
			zap.Error(err),
		)
		return buildAssetView(&video, true), nil
	}

	if err := u.videoRepo.SetJobID(video.ID, jobID); err != nil {
		logger.Log.Errorf("persist job id failed :", err)
	}
	video.JobID = &jobID

	return buildAssetView(&video, true), nil
}

// GetAsset fetch one asset by id under the visibility policy
func (u *videoUseCase) GetAsset(ctx context.Context, videoID uint, ident domain.Identity) (*domain.AssetView, error) {
	video, err := u.videoRepo.GetByID(videoID)
	if err != nil {
		return nil, assetLoadError(videoID, err)
	}
	return u.viewFor(video, ident)
}

// GetLessonAsset fetch the lesson's current asset (newest by creation time)
func (u *videoUseCase) GetLessonAsset(ctx context.Context, lessonID uint, ident domain.Identity) (*domain.AssetView, error) {
	video, err := u.videoRepo.GetLatestByLesson(lessonID)
	if err != nil {
		return nil, assetLoadError(lessonID, err)
	}
	return u.viewFor(video, ident)
}

// assetLoadError a missing row is not found; a broken store must not
// masquerade as one.
func assetLoadError(id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errprocess.NotFound("Video not found")
	}
	return errprocess.Set(fmt.Sprintf("asset lookup [%d] failed : %v", id, err))
}

// AttachThumbnail replaces the asset's thumbnail. Same ownership rule as
// upload; the prior file is removed before the new one is written.
func (u *videoUseCase) AttachThumbnail(ctx context.Context, req domain.UploadThumbnailReq) (*domain.AssetView, error) {
	if req.File == nil {
		return nil, errprocess.BadRequest("Thumbnail file is required")
	}

	ext := domain.ThumbnailExtension(req.MimeType)
	if ext == "" {
		return nil, errprocess.BadRequest("Unsupported thumbnail format")
	}

	video, err := u.videoRepo.GetByID(req.VideoID)
	if err != nil {
		return nil, assetLoadError(req.VideoID, err)
	}

	if err := u.assertLessonOwnership(video.LessonID, req.Identity); err != nil {
		return nil, err
	}

	if video.ThumbnailPath != nil {
		if err := u.layout.RemoveFile(*video.ThumbnailPath); err != nil {
			logger.Log.Errorf("remove previous thumbnail failed :", err)
		}
	}

	if _, err := u.layout.EnsureThumbnailFolder(video.StorageKey); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("videoID[%d] create thumbnail folder failed : %v", video.ID, err))
	}

	fileName := "thumbnail" + ext
	relativePath := storage.RelativeThumbnailPath(video.StorageKey, fileName)
	if err := u.writeFile(relativePath, req.File); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("videoID[%d] store thumbnail failed : %v", video.ID, err))
	}

	publicURL := storage.PublicURL(relativePath)
	if err := u.videoRepo.UpdateThumbnail(video.ID, relativePath, publicURL, req.MimeType, req.SizeBytes); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("videoID[%d] update thumbnail failed : %v", video.ID, err))
	}

	updated, err := u.videoRepo.GetByID(video.ID)
	if err != nil {
		return nil, assetLoadError(video.ID, err)
	}
	return buildAssetView(updated, true), nil
}

// AttachLessonThumbnail lessonId-addressed convenience form: resolves the
// lesson's current asset first, then behaves like AttachThumbnail.
func (u *videoUseCase) AttachLessonThumbnail(ctx context.Context, lessonID uint, req domain.UploadThumbnailReq) (*domain.AssetView, error) {
	video, err := u.videoRepo.GetLatestByLesson(lessonID)
	if err != nil {
		return nil, assetLoadError(lessonID, err)
	}
	req.VideoID = video.ID
	return u.AttachThumbnail(ctx, req)
}

// assertLessonOwnership only the owning course's teacher may modify
func (u *videoUseCase) assertLessonOwnership(lessonID uint, ident domain.Identity) error {
	teacherID, err := u.lessonRepo.CourseTeacher(lessonID)
	if err != nil {
		if errors.Is(err, repository.ErrLessonNotFound) {
			return errprocess.NotFound("Lesson not found")
		}
		return errprocess.Set(fmt.Sprintf("lessonID[%d] ownership lookup failed : %v", lessonID, err))
	}
	if !ident.IsTeacher() || teacherID != ident.UserID {
		return errprocess.Forbidden("You do not have permission to modify this lesson")
	}
	return nil
}

// viewFor applies the visibility policy: an asset that is not ready does
// not exist for anyone but the owning teacher. Non-owners get a uniform
// not-found instead of a state leak.
func (u *videoUseCase) viewFor(video *domain.VideoAsset, ident domain.Identity) (*domain.AssetView, error) {
	isOwner := false
	if ident.IsTeacher() {
		teacherID, err := u.lessonRepo.CourseTeacher(video.LessonID)
		if err == nil && teacherID == ident.UserID {
			isOwner = true
		}
	}

	if video.Status != domain.VideoReady && !isOwner {
		return nil, errprocess.NotFound("Video is not available")
	}
	return buildAssetView(video, isOwner), nil
}

func buildAssetView(video *domain.VideoAsset, isOwner bool) *domain.AssetView {
	view := &domain.AssetView{
		ID:                    video.ID,
		Lesson:                video.LessonID,
		Status:                video.Status,
		HlsMasterPlaylistPath: video.HlsMasterPlaylistPath,
		ThumbnailURL:          video.ThumbnailURL,
		Variants:              video.Variants,
		Duration:              video.DurationSeconds,
		CreatedAt:             video.CreatedAt,
		UpdatedAt:             video.UpdatedAt,
	}
	if isOwner {
		view.FailureReason = video.FailureReason
	}
	return view
}

func (u *videoUseCase) writeFile(relativePath string, src io.Reader) error {
	dst, err := os.Create(u.layout.ToAbsolute(relativePath))
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Sync()
}

func (u *videoUseCase) cleanupUploadFolder(storageKey string) {
	if err := u.layout.RemoveUploadFolder(storageKey); err != nil {
		logger.Log.Errorf("cleanup upload folder failed :", err)
	}
}

// videoExtension stored original file extension, defaulting to .mp4
func videoExtension(originalFileName string) string {
	ext := strings.ToLower(filepath.Ext(originalFileName))
	if ext == "" {
		ext = ".mp4"
	}
	return ext
}
