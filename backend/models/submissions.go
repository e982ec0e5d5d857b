package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission statuses
const (
	SubmissionPending = "pending_review"
	SubmissionGraded  = "graded"
)

type MaterialCompletion struct {
	gorm.Model
	MaterialID  uint `gorm:"uniqueIndex:idx_completions_material_student;not null"`
	StudentID   uint `gorm:"uniqueIndex:idx_completions_material_student;not null"`
	CompletedAt time.Time

	Material Material `gorm:"foreignKey:MaterialID"`
	Student  User     `gorm:"foreignKey:StudentID"`
}

type TaskSubmission struct {
	gorm.Model
	MaterialID    uint `gorm:"uniqueIndex:idx_submissions_attempt;not null"`
	StudentID     uint `gorm:"uniqueIndex:idx_submissions_attempt;not null"`
	AttemptNumber int  `gorm:"uniqueIndex:idx_submissions_attempt;not null"`
	AnswerPayload datatypes.JSON
	Status        string `gorm:"default:pending_review"`
	Score         *float64
	Feedback      string
	SubmittedAt   time.Time
	GradedAt      *time.Time

	Material Material `gorm:"foreignKey:MaterialID"`
	Student  User     `gorm:"foreignKey:StudentID"`
}

// AnswerPayloadData is the raw answer stored with each attempt.
type AnswerPayloadData struct {
	Answer any `json:"answer"` // string for single choice/free response, []string for multiple choice
}
