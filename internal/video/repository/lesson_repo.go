package repository

import (
	"errors"

	"elearning_video_service/internal/video/domain"

	"gorm.io/gorm"
)

// ErrLessonNotFound lesson id does not exist
var ErrLessonNotFound = errors.New("lesson not found")

// LessonRepo definition lesson/course ownership access. Lesson and course
// CRUD belong to the excluded curriculum layer; this repo only answers "who
// owns this lesson" and tracks the lesson's current video pointer.
type LessonRepo interface {
	AutoMigrate() error
	GetLesson(id uint) (*domain.Lesson, error)
	CourseTeacher(lessonID uint) (string, error)
	SetCurrentVideo(lessonID, videoID uint) error
}

type lessonRepo struct {
	db *gorm.DB
}

// NewLessonRepo create LessonRepo
func NewLessonRepo(db *gorm.DB) LessonRepo {
	return &lessonRepo{db: db}
}

func (r *lessonRepo) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Course{}, &domain.Lesson{})
}

func (r *lessonRepo) GetLesson(id uint) (*domain.Lesson, error) {
	var lesson domain.Lesson
	if err := r.db.First(&lesson, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	return &lesson, nil
}

// CourseTeacher resolves lesson -> course -> teacher in one query
func (r *lessonRepo) CourseTeacher(lessonID uint) (string, error) {
	var teacherID string
	err := r.db.Model(&domain.Lesson{}).
		Select("courses.teacher_id").
		Joins("JOIN courses ON courses.id = lessons.course_id").
		Where("lessons.id = ?", lessonID).
		Scan(&teacherID).Error
	if err != nil {
		return "", err
	}
	if teacherID == "" {
		return "", ErrLessonNotFound
	}
	return teacherID, nil
}

// SetCurrentVideo points the lesson at its newest asset
func (r *lessonRepo) SetCurrentVideo(lessonID, videoID uint) error {
	return r.db.Model(&domain.Lesson{}).
		Where("id = ?", lessonID).
		Update("video_id", videoID).Error
}
