package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses
const (
	EnrollmentPending  = "pending"
	EnrollmentAccepted = "accepted"
	EnrollmentRejected = "rejected"
)

type Enrollment struct {
	gorm.Model
	CourseID    uint   `gorm:"uniqueIndex:idx_enrollments_course_student;not null"`
	StudentID   uint   `gorm:"uniqueIndex:idx_enrollments_course_student;not null"`
	Status      string `gorm:"default:pending"`
	RequestedAt time.Time
	AnsweredAt  *time.Time

	Course  Course `gorm:"foreignKey:CourseID"`
	Student User   `gorm:"foreignKey:StudentID"`
}

// IsActive reports whether the enrollment grants access to course content.
func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentAccepted
}
