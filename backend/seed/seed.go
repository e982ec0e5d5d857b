// Package seed populates the database with demo data for local development,
// mirroring what administrators would create through the back office.
package seed

import (
	"encoding/json"
	"log"
	"time"

	"github.com/userpeaseonly/basirat-course/backend/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func Run(db *gorm.DB, logger *log.Logger) error {
	var courseCount int64
	db.Model(&models.Course{}).Count(&courseCount)
	if courseCount > 0 {
		logger.Println("seed: courses already present, skipping")
		return nil
	}

	admin, err := createUser(db, "+998900000001", "Admin", "User", "admin12345", false)
	if err != nil {
		return err
	}
	student, err := createUser(db, "+998901234567", "Demo", "Student", "student12345", true)
	if err != nil {
		return err
	}

	course := models.Course{
		Title:       "Introduction to Logic",
		Slug:        "intro-logic",
		Summary:     "Foundations of reasoning: statements, arguments and fallacies.",
		IsPublished: true,
	}
	if err := db.Create(&course).Error; err != nil {
		return err
	}

	lesson1 := models.Lesson{
		CourseID:      course.ID,
		Title:         "Statements and Truth",
		Slug:          "statements",
		Description:   "What makes a sentence a statement.",
		SequenceOrder: 1,
	}
	lesson2 := models.Lesson{
		CourseID:      course.ID,
		Title:         "Arguments",
		Slug:          "arguments",
		Description:   "Premises, conclusions and validity.",
		SequenceOrder: 2,
	}
	if err := db.Create(&lesson1).Error; err != nil {
		return err
	}
	if err := db.Create(&lesson2).Error; err != nil {
		return err
	}

	materials := []models.Material{
		{
			LessonID:      lesson1.ID,
			Title:         "Reading: What is a statement?",
			MaterialType:  models.MaterialLearning,
			Content:       "A statement is a sentence that is either true or false...",
			IsProtected:   true,
			SequenceOrder: 1,
		},
		{
			LessonID:      lesson1.ID,
			Title:         "Check: spot the statement",
			MaterialType:  models.MaterialTask,
			QuestionType:  models.SingleChoice,
			QuestionPayload: questionJSON(models.QuestionPayloadData{
				Question:      "Which of these is a statement?",
				Choices:       []string{"Close the door!", "The sky is blue.", "What time is it?"},
				CorrectAnswer: "The sky is blue.",
			}),
			SequenceOrder: 2,
		},
		{
			LessonID:      lesson2.ID,
			Title:         "Check: parts of an argument",
			MaterialType:  models.MaterialTask,
			QuestionType:  models.MultiChoice,
			QuestionPayload: questionJSON(models.QuestionPayloadData{
				Question:      "Select every part of an argument.",
				Choices:       []string{"Premise", "Conclusion", "Greeting"},
				CorrectAnswer: []string{"Premise", "Conclusion"},
			}),
			SequenceOrder: 1,
		},
		{
			LessonID:      lesson2.ID,
			Title:         "Essay: build your own argument",
			MaterialType:  models.MaterialTask,
			QuestionType:  models.FreeResponse,
			QuestionPayload: questionJSON(models.QuestionPayloadData{
				Question: "Write a short argument with two premises and a conclusion.",
			}),
			SequenceOrder: 2,
		},
	}
	for i := range materials {
		if err := db.Create(&materials[i]).Error; err != nil {
			return err
		}
	}

	now := time.Now()
	enrollment := models.Enrollment{
		CourseID:    course.ID,
		StudentID:   student.ID,
		Status:      models.EnrollmentAccepted,
		RequestedAt: now,
		AnsweredAt:  &now,
	}
	if err := db.Create(&enrollment).Error; err != nil {
		return err
	}

	logger.Printf("seed: created course %q, admin %s, student %s", course.Title, admin.PhoneNumber, student.PhoneNumber)
	return nil
}

func createUser(db *gorm.DB, phone, first, last, password string, isStudent bool) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := models.User{
		PhoneNumber:  phone,
		FirstName:    first,
		LastName:     last,
		PasswordHash: string(hashed),
		IsStudent:    isStudent,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func questionJSON(payload models.QuestionPayloadData) datatypes.JSON {
	raw, _ := json.Marshal(payload)
	return datatypes.JSON(raw)
}
