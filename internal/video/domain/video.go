package domain

import (
	"errors"
	"io"
	"time"
)

// VideoStatus definition video asset status
type VideoStatus string

const (
	//VideoUploaded raw file durably stored, waiting for a worker
	VideoUploaded VideoStatus = "uploaded"
	//VideoProcessing a worker is transcoding the asset
	VideoProcessing VideoStatus = "processing"
	//VideoReady all renditions and the master playlist exist
	VideoReady VideoStatus = "ready"
	//VideoFailed processing failed, FailureReason is set
	VideoFailed VideoStatus = "failed"
)

// CanTransition reports whether moving from one status to another is legal.
// The only way back out of failed is a fresh enqueue (manual retry); ready is
// terminal. No transition skips processing.
func CanTransition(from, to VideoStatus) bool {
	switch from {
	case VideoUploaded:
		return to == VideoProcessing
	case VideoProcessing:
		return to == VideoReady || to == VideoFailed
	case VideoFailed:
		return to == VideoProcessing
	default:
		return false
	}
}

// Pipeline-internal failures. TranscodeFailed and InputMissing fail the job,
// ProbeFailed is recovered locally (duration left null).
var (
	ErrInputMissing    = errors.New("input missing")
	ErrTranscodeFailed = errors.New("transcode failed")
	ErrProbeFailed     = errors.New("probe failed")
)

// Variant one finished rendition of an asset
type Variant struct {
	Resolution         string `json:"resolution"`
	ResolutionLabel    string `json:"resolutionLabel"`
	Bandwidth          int    `json:"bandwidth"`
	PlaylistPath       string `json:"playlistPath"`
	PublicPlaylistPath string `json:"publicPlaylistPath"`
}

// VideoAsset definition one uploaded video and everything derived from it.
// Variants are stored as a JSON column so finalize is a single row write;
// the polling path reads the same row concurrently.
type VideoAsset struct {
	ID         uint   `gorm:"primaryKey"`
	LessonID   uint   `gorm:"index:idx_video_lesson_status"`
	UploadedBy string `gorm:"index"`

	OriginalFileName string
	MimeType         string
	SizeBytes        int64

	// StorageKey scopes every derived artifact of this upload. Unique and
	// never reused, even after deletion, so in-flight filesystem writes of a
	// dead job can never collide with a newer upload.
	StorageKey   string `gorm:"uniqueIndex"`
	OriginalPath string

	HlsDirectory          *string
	HlsMasterPlaylistPath *string

	ThumbnailPath     *string
	ThumbnailURL      *string
	ThumbnailMimeType *string
	ThumbnailSize     *int64

	Variants        []Variant `gorm:"serializer:json"`
	DurationSeconds *int

	Status        VideoStatus `gorm:"index:idx_video_lesson_status"`
	FailureReason *string
	JobID         *string

	ProcessingStartedAt   *time.Time
	ProcessingCompletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keep the table name stable
func (VideoAsset) TableName() string {
	return "video_assets"
}

// Lesson owning lesson, only the fields this service reads. The lesson's
// VideoID points at the current asset; replaced uploads stay as history.
type Lesson struct {
	ID       uint `gorm:"primaryKey"`
	CourseID uint `gorm:"index"`
	VideoID  *uint
}

// Course owning course, carries the teacher who may manage its lessons
type Course struct {
	ID        uint   `gorm:"primaryKey"`
	TeacherID string `gorm:"index"`
}

// UploadVideoReq usecase upload request
type UploadVideoReq struct {
	LessonID         uint
	Identity         Identity
	OriginalFileName string
	MimeType         string
	SizeBytes        int64
	File             io.Reader
}

// UploadThumbnailReq usecase thumbnail request
type UploadThumbnailReq struct {
	VideoID   uint
	Identity  Identity
	MimeType  string
	SizeBytes int64
	File      io.Reader
}

// FinalizeResult everything the pipeline hands back on success
type FinalizeResult struct {
	Variants           []Variant
	HlsDirectory       string
	MasterPlaylistPath string
	DurationSeconds    *int
}

// AssetView client-facing shape of an asset. FailureReason is only filled
// for the owning teacher.
type AssetView struct {
	ID                    uint       `json:"id"`
	Lesson                uint       `json:"lesson"`
	Status                VideoStatus `json:"status"`
	HlsMasterPlaylistPath *string    `json:"hlsMasterPlaylistPath"`
	ThumbnailURL          *string    `json:"thumbnailUrl"`
	Variants              []Variant  `json:"variants"`
	Duration              *int       `json:"duration"`
	FailureReason         *string    `json:"failureReason,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// VideoMimeTypes upload allow-list
var VideoMimeTypes = []string{
	"video/mp4",
	"video/quicktime",
	"video/x-matroska",
	"video/webm",
}

// AllowedVideoMimeType check the upload allow-list
func AllowedVideoMimeType(mimeType string) bool {
	for _, m := range VideoMimeTypes {
		if m == mimeType {
			return true
		}
	}
	return false
}

// ThumbnailExtension maps an image mime type to the stored file extension
func ThumbnailExtension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
