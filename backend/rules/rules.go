// Package rules holds the course progression and grading rules as plain
// functions over the persisted entities. Handlers ask this package whether an
// action is allowed before touching the database.
package rules

import (
	"errors"
	"time"

	"github.com/userpeaseonly/basirat-course/backend/models"
	"gorm.io/gorm"
)

const (
	// MaxAttempts is the hard cap of submissions per (material, student).
	MaxAttempts = 3
	// PassingScore is the single passing bar for task submissions.
	PassingScore = 90.0
	// MaxFreeResponseLen limits free-response answers.
	MaxFreeResponseLen = 5000
)

// LessonCompletedFor reports whether every material in the lesson has a
// completion for the user. A lesson without materials counts as completed.
// Unauthenticated users (userID 0) never complete anything.
func LessonCompletedFor(db *gorm.DB, lesson *models.Lesson, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}

	var materialIDs []uint
	if err := db.Model(&models.Material{}).
		Where("lesson_id = ?", lesson.ID).
		Pluck("id", &materialIDs).Error; err != nil {
		return false, err
	}
	if len(materialIDs) == 0 {
		return true, nil
	}

	var completed int64
	if err := db.Model(&models.MaterialCompletion{}).
		Where("material_id IN ? AND student_id = ?", materialIDs, userID).
		Count(&completed).Error; err != nil {
		return false, err
	}
	return completed == int64(len(materialIDs)), nil
}

// LessonAvailableFor reports whether every lesson of the same course with a
// strictly smaller sequence order is completed for the user. Lessons sharing
// an order value unlock together.
func LessonAvailableFor(db *gorm.DB, lesson *models.Lesson, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}

	var previous []models.Lesson
	if err := db.Where("course_id = ? AND sequence_order < ?", lesson.CourseID, lesson.SequenceOrder).
		Find(&previous).Error; err != nil {
		return false, err
	}

	for i := range previous {
		done, err := LessonCompletedFor(db, &previous[i], userID)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
	}
	return true, nil
}

// EnrollmentFor returns the user's enrollment in the course, or nil.
func EnrollmentFor(db *gorm.DB, courseID, userID uint) (*models.Enrollment, error) {
	if userID == 0 {
		return nil, nil
	}

	var enrollment models.Enrollment
	err := db.Where("course_id = ? AND student_id = ?", courseID, userID).First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ActiveEnrollmentFor returns the user's accepted enrollment, or nil.
func ActiveEnrollmentFor(db *gorm.DB, courseID, userID uint) (*models.Enrollment, error) {
	enrollment, err := EnrollmentFor(db, courseID, userID)
	if err != nil || enrollment == nil {
		return nil, err
	}
	if !enrollment.IsActive() {
		return nil, nil
	}
	return enrollment, nil
}

// AttemptsCount returns the number of submissions for (material, student).
func AttemptsCount(db *gorm.DB, materialID, studentID uint) (int, error) {
	var count int64
	err := db.Model(&models.TaskSubmission{}).
		Where("material_id = ? AND student_id = ?", materialID, studentID).
		Count(&count).Error
	return int(count), err
}

// CanSubmit reports whether the student has attempts remaining.
func CanSubmit(db *gorm.DB, materialID, studentID uint) (bool, error) {
	count, err := AttemptsCount(db, materialID, studentID)
	if err != nil {
		return false, err
	}
	return count < MaxAttempts, nil
}

// CompleteMaterial records a completion for (material, student). Idempotent:
// an existing completion is left untouched.
func CompleteMaterial(db *gorm.DB, materialID, studentID uint) error {
	completion := models.MaterialCompletion{
		MaterialID: materialID,
		StudentID:  studentID,
	}
	return db.Where("material_id = ? AND student_id = ?", materialID, studentID).
		Attrs(models.MaterialCompletion{CompletedAt: time.Now()}).
		FirstOrCreate(&completion).Error
}
