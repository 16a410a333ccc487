package repository

import (
	"time"

	"elearning_video_service/internal/video/domain"

	"gorm.io/gorm"
)

// VideoRepo definition video asset store access
type VideoRepo interface {
	AutoMigrate() error
	Create(video *domain.VideoAsset) error
	GetByID(id uint) (*domain.VideoAsset, error)
	GetLatestByLesson(lessonID uint) (*domain.VideoAsset, error)
	SetJobID(videoID uint, jobID string) error
	MarkProcessing(videoID uint) (bool, error)
	MarkFailed(videoID uint, reason string) error
	Finalize(videoID uint, result domain.FinalizeResult) error
	UpdateThumbnail(videoID uint, relativePath, publicURL, mimeType string, size int64) error
}

type videoRepo struct {
	db *gorm.DB
}

// NewVideoRepo create VideoRepo
func NewVideoRepo(db *gorm.DB) VideoRepo {
	return &videoRepo{db: db}
}

func (r *videoRepo) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.VideoAsset{})
}

func (r *videoRepo) Create(video *domain.VideoAsset) error {
	return r.db.Create(video).Error
}

// GetByID get asset by id
func (r *videoRepo) GetByID(id uint) (*domain.VideoAsset, error) {
	var v domain.VideoAsset
	if err := r.db.First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// GetLatestByLesson most-recent-by-creation-time asset of a lesson. Older
// rows stay as history and never win this lookup.
func (r *videoRepo) GetLatestByLesson(lessonID uint) (*domain.VideoAsset, error) {
	var v domain.VideoAsset
	err := r.db.Where("lesson_id = ?", lessonID).
		Order("created_at DESC").
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *videoRepo) SetJobID(videoID uint, jobID string) error {
	return r.db.Model(&domain.VideoAsset{}).
		Where("id = ?", videoID).
		Update("job_id", jobID).Error
}

// MarkProcessing flips the asset into processing and clears any previous
// failure. Returns false when the asset is already ready (stale duplicate
// delivery) or missing; callers skip the job in that case.
func (r *videoRepo) MarkProcessing(videoID uint) (bool, error) {
	res := r.db.Model(&domain.VideoAsset{}).
		Where("id = ? AND status <> ?", videoID, domain.VideoReady).
		Updates(map[string]interface{}{
			"status":                domain.VideoProcessing,
			"processing_started_at": time.Now(),
			"failure_reason":        nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed records the failure. A no-op if the asset already reached
// ready; writing the same terminal state twice is also a no-op, not an error.
func (r *videoRepo) MarkFailed(videoID uint, reason string) error {
	return r.db.Model(&domain.VideoAsset{}).
		Where("id = ? AND status <> ?", videoID, domain.VideoReady).
		Updates(map[string]interface{}{
			"status":                  domain.VideoFailed,
			"failure_reason":          reason,
			"processing_completed_at": time.Now(),
		}).Error
}

// Finalize writes the full success result in one row update. The polling
// read path sees either the old state or the complete ready state, never a
// partially filled record.
func (r *videoRepo) Finalize(videoID uint, result domain.FinalizeResult) error {
	now := time.Now()
	updates := domain.VideoAsset{
		Status:                domain.VideoReady,
		HlsDirectory:          &result.HlsDirectory,
		HlsMasterPlaylistPath: &result.MasterPlaylistPath,
		Variants:              result.Variants,
		DurationSeconds:       result.DurationSeconds,
		FailureReason:         nil,
		ProcessingCompletedAt: &now,
	}
	// Struct update through Select so the variants JSON serializer applies
	// and nil fields are still written.
	return r.db.Model(&domain.VideoAsset{}).
		Where("id = ? AND status <> ?", videoID, domain.VideoReady).
		Select("status", "hls_directory", "hls_master_playlist_path", "variants",
			"duration_seconds", "failure_reason", "processing_completed_at").
		Updates(&updates).Error
}

func (r *videoRepo) UpdateThumbnail(videoID uint, relativePath, publicURL, mimeType string, size int64) error {
	return r.db.Model(&domain.VideoAsset{}).
		Where("id = ?", videoID).
		Updates(map[string]interface{}{
			"thumbnail_path":      relativePath,
			"thumbnail_url":       publicURL,
			"thumbnail_mime_type": mimeType,
			"thumbnail_size":      size,
		}).Error
}
