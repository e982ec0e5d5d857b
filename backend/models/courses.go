package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Slug        string `gorm:"unique;not null"`
	Summary     string
	IsPublished bool `gorm:"default:false"`
	Lessons     []Lesson
	Enrollments []Enrollment
}

type Lesson struct {
	gorm.Model
	CourseID      uint   `gorm:"uniqueIndex:idx_lessons_course_slug;not null"`
	Title         string `gorm:"not null"`
	Slug          string `gorm:"uniqueIndex:idx_lessons_course_slug;not null"`
	Description   string
	SequenceOrder int `gorm:"default:0"`
	Materials     []Material
}

// Material types
const (
	MaterialLearning = "learning"
	MaterialTask     = "task"
)

// Question types for task materials
const (
	SingleChoice = "single_choice"
	MultiChoice  = "multiple_choice"
	FreeResponse = "free_response"
)

type Material struct {
	gorm.Model
	LessonID     uint   `gorm:"not null"`
	Title        string `gorm:"not null"`
	MaterialType string `gorm:"default:learning"`
	// Learning fields
	Content     string
	MediaURL    string
	IsProtected bool // UI hint discouraging downloads/copying; set explicitly on create
	// Task fields
	QuestionType    string
	QuestionPayload datatypes.JSON
	SequenceOrder   int `gorm:"default:0"`
}

// QuestionPayloadData is the structured payload stored for task materials.
type QuestionPayloadData struct {
	Question      string   `json:"question"`
	Choices       []string `json:"choices,omitempty"`
	CorrectAnswer any      `json:"correct_answer,omitempty"` // string for single choice, []string for multiple choice
	Hints         []string `json:"hints,omitempty"`
}

func (m *Material) IsTask() bool {
	return m.MaterialType == MaterialTask
}
