package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/userpeaseonly/basirat-course/backend/config"
	"github.com/userpeaseonly/basirat-course/backend/models"
	"github.com/userpeaseonly/basirat-course/backend/rules"
	"github.com/userpeaseonly/basirat-course/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminController exposes the back-office operations: content CRUD,
// enrollment review and submission grading.
type AdminController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAdminController(db *gorm.DB, cfg *config.Config) *AdminController {
	return &AdminController{DB: db, Cfg: cfg}
}

type CourseInput struct {
	Title       string `json:"title" validate:"required"`
	Slug        string `json:"slug" validate:"required"`
	Summary     string `json:"summary"`
	IsPublished *bool  `json:"is_published"`
}

func (ad *AdminController) CreateCourse(c *fiber.Ctx) error {
	var input CourseInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	course := models.Course{
		Title:   input.Title,
		Slug:    input.Slug,
		Summary: input.Summary,
	}
	if input.IsPublished != nil {
		course.IsPublished = *input.IsPublished
	}

	if err := ad.DB.Create(&course).Error; err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not create course, slug may already exist",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Course created",
		"course":  course,
	})
}

func (ad *AdminController) UpdateCourse(c *fiber.Ctx) error {
	var course models.Course
	if err := ad.DB.First(&course, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Course not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var input CourseInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	if input.Title != "" {
		course.Title = input.Title
	}
	if input.Slug != "" {
		course.Slug = input.Slug
	}
	if input.Summary != "" {
		course.Summary = input.Summary
	}
	if input.IsPublished != nil {
		course.IsPublished = *input.IsPublished
	}

	if err := ad.DB.Save(&course).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update course",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Course updated",
		"course":  course,
	})
}

type LessonInput struct {
	Title       string `json:"title" validate:"required"`
	Slug        string `json:"slug" validate:"required"`
	Description string `json:"description"`
	Order       *int   `json:"order"`
}

func (ad *AdminController) AddLesson(c *fiber.Ctx) error {
	var course models.Course
	if err := ad.DB.First(&course, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Course not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var input LessonInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	order := 0
	if input.Order != nil {
		order = *input.Order
	} else {
		var lessonCount int64
		ad.DB.Model(&models.Lesson{}).Where("course_id = ?", course.ID).Count(&lessonCount)
		order = int(lessonCount) + 1
	}

	lesson := models.Lesson{
		CourseID:      course.ID,
		Title:         input.Title,
		Slug:          input.Slug,
		Description:   input.Description,
		SequenceOrder: order,
	}

	if err := ad.DB.Create(&lesson).Error; err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not create lesson, slug may already exist in this course",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Lesson added",
		"lesson":  lesson,
	})
}

func (ad *AdminController) UpdateLesson(c *fiber.Ctx) error {
	var lesson models.Lesson
	if err := ad.DB.Where("id = ? AND course_id = ?", c.Params("lessonId"), c.Params("id")).
		First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var input LessonInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	if input.Title != "" {
		lesson.Title = input.Title
	}
	if input.Slug != "" {
		lesson.Slug = input.Slug
	}
	if input.Description != "" {
		lesson.Description = input.Description
	}
	if input.Order != nil {
		lesson.SequenceOrder = *input.Order
	}

	if err := ad.DB.Save(&lesson).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update lesson",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Lesson updated",
		"lesson":  lesson,
	})
}

type MaterialInput struct {
	Title        string                      `json:"title" validate:"required"`
	MaterialType string                      `json:"material_type" validate:"required,oneof=learning task"`
	Content      string                      `json:"content"`
	MediaURL     string                      `json:"media_url"`
	IsProtected  *bool                       `json:"is_protected"`
	QuestionType string                      `json:"question_type" validate:"omitempty,oneof=single_choice multiple_choice free_response"`
	Question     *models.QuestionPayloadData `json:"question_payload"`
	Order        *int                        `json:"order"`
}

// validateMaterial enforces the learning/task field exclusivity. Returns
// field errors, or nil when the definition is consistent.
func validateMaterial(input *MaterialInput) map[string]string {
	errs := make(map[string]string)

	if input.MaterialType == models.MaterialTask {
		if input.MediaURL != "" {
			errs["material_type"] = "Task questions must not include uploaded learning files"
		}
		if input.QuestionType == "" {
			errs["question_type"] = "Task materials require a question type"
		}
		if input.Question == nil {
			errs["question_payload"] = "Task materials require a payload describing the question"
		} else {
			switch input.QuestionType {
			case models.SingleChoice:
				answer, ok := input.Question.CorrectAnswer.(string)
				if len(input.Question.Choices) == 0 {
					errs["question_payload"] = "Choice questions require a choices list"
				} else if !ok || answer == "" {
					errs["question_payload"] = "Single choice questions require a correct answer string"
				}
			case models.MultiChoice:
				if len(input.Question.Choices) == 0 {
					errs["question_payload"] = "Choice questions require a choices list"
				} else if answers, ok := input.Question.CorrectAnswer.([]any); !ok || len(answers) == 0 {
					errs["question_payload"] = "Multiple choice questions require a correct answer list"
				}
			}
		}
	} else {
		if input.QuestionType != "" || input.Question != nil {
			errs["material_type"] = "Learning materials should not define question metadata"
		}
		if input.Content == "" && input.MediaURL == "" {
			errs["content"] = "Learning materials must include text or an uploaded asset"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (ad *AdminController) AddMaterial(c *fiber.Ctx) error {
	var lesson models.Lesson
	if err := ad.DB.First(&lesson, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var input MaterialInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}
	if errs := validateMaterial(&input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	order := 0
	if input.Order != nil {
		order = *input.Order
	} else {
		var materialCount int64
		ad.DB.Model(&models.Material{}).Where("lesson_id = ?", lesson.ID).Count(&materialCount)
		order = int(materialCount) + 1
	}

	material := models.Material{
		LessonID:      lesson.ID,
		Title:         input.Title,
		MaterialType:  input.MaterialType,
		Content:       input.Content,
		MediaURL:      input.MediaURL,
		QuestionType:  input.QuestionType,
		SequenceOrder: order,
	}
	if input.IsProtected != nil {
		material.IsProtected = *input.IsProtected
	} else {
		material.IsProtected = true
	}
	if input.Question != nil {
		raw, err := json.Marshal(input.Question)
		if err != nil {
			return utils.ValidationError(c, map[string]string{"question_payload": "Invalid value"})
		}
		material.QuestionPayload = datatypes.JSON(raw)
	}

	if err := ad.DB.Create(&material).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create material",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Material added",
		"material": material,
	})
}

func (ad *AdminController) UpdateMaterial(c *fiber.Ctx) error {
	var material models.Material
	if err := ad.DB.First(&material, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Material not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var input MaterialInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}
	if errs := validateMaterial(&input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	material.Title = input.Title
	material.MaterialType = input.MaterialType
	material.Content = input.Content
	material.MediaURL = input.MediaURL
	material.QuestionType = input.QuestionType
	material.QuestionPayload = nil
	if input.Question != nil {
		raw, err := json.Marshal(input.Question)
		if err != nil {
			return utils.ValidationError(c, map[string]string{"question_payload": "Invalid value"})
		}
		material.QuestionPayload = datatypes.JSON(raw)
	}
	if input.IsProtected != nil {
		material.IsProtected = *input.IsProtected
	}
	if input.Order != nil {
		material.SequenceOrder = *input.Order
	}

	if err := ad.DB.Save(&material).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update material",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Material updated",
		"material": material,
	})
}

// GetEnrollments lists enrollments for review, optionally filtered by status.
func (ad *AdminController) GetEnrollments(c *fiber.Ctx) error {
	query := ad.DB.Model(&models.Enrollment{}).Preload("Course").Preload("Student")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var enrollments []models.Enrollment
	if err := query.Order("requested_at DESC").Find(&enrollments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	result := make([]fiber.Map, 0, len(enrollments))
	for _, e := range enrollments {
		result = append(result, fiber.Map{
			"id":           e.ID,
			"course":       e.Course.Title,
			"course_slug":  e.Course.Slug,
			"student":      e.Student.FullName(),
			"phone_number": e.Student.PhoneNumber,
			"status":       e.Status,
			"requested_at": e.RequestedAt,
			"answered_at":  e.AnsweredAt,
		})
	}

	return c.JSON(fiber.Map{
		"enrollments": result,
	})
}

func (ad *AdminController) AcceptEnrollment(c *fiber.Ctx) error {
	return ad.answerEnrollment(c, models.EnrollmentAccepted, "Enrollment accepted")
}

func (ad *AdminController) RejectEnrollment(c *fiber.Ctx) error {
	return ad.answerEnrollment(c, models.EnrollmentRejected, "Enrollment rejected")
}

func (ad *AdminController) answerEnrollment(c *fiber.Ctx, status, message string) error {
	var enrollment models.Enrollment
	if err := ad.DB.First(&enrollment, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Enrollment not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	now := time.Now()
	enrollment.Status = status
	enrollment.AnsweredAt = &now

	if err := ad.DB.Save(&enrollment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update enrollment",
		})
	}

	return c.JSON(fiber.Map{
		"message": message,
		"enrollment": fiber.Map{
			"id":          enrollment.ID,
			"status":      enrollment.Status,
			"answered_at": enrollment.AnsweredAt,
		},
	})
}

// GetSubmissions lists task submissions for review, optionally filtered by
// status.
func (ad *AdminController) GetSubmissions(c *fiber.Ctx) error {
	query := ad.DB.Model(&models.TaskSubmission{}).Preload("Material").Preload("Student")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var submissions []models.TaskSubmission
	if err := query.Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	result := make([]fiber.Map, 0, len(submissions))
	for _, s := range submissions {
		entry := fiber.Map{
			"id":             s.ID,
			"material":       s.Material.Title,
			"question_type":  s.Material.QuestionType,
			"student":        s.Student.FullName(),
			"phone_number":   s.Student.PhoneNumber,
			"attempt_number": s.AttemptNumber,
			"answer_payload": s.AnswerPayload,
			"status":         s.Status,
			"feedback":       s.Feedback,
			"submitted_at":   s.SubmittedAt,
			"graded_at":      s.GradedAt,
		}
		if s.Score != nil {
			entry["score"] = *s.Score
		}
		result = append(result, entry)
	}

	return c.JSON(fiber.Map{
		"submissions": result,
	})
}

// GradeSubmission applies a manual score and feedback to one submission.
func (ad *AdminController) GradeSubmission(c *fiber.Ctx) error {
	var input struct {
		Score    *float64 `json:"score"`
		Feedback string   `json:"feedback"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if input.Score == nil || *input.Score < 0 || *input.Score > 100 {
		return utils.ValidationError(c, map[string]string{"score": "Score must be between 0 and 100"})
	}

	var submission models.TaskSubmission
	if err := ad.DB.First(&submission, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Submission not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	if err := rules.ApplyGrade(ad.DB, &submission, *input.Score, input.Feedback); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save grade",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Submission graded",
		"submission": fiber.Map{
			"id":        submission.ID,
			"status":    submission.Status,
			"score":     *submission.Score,
			"feedback":  submission.Feedback,
			"graded_at": submission.GradedAt,
		},
	})
}

type BulkSubmissionInput struct {
	IDs []uint `json:"ids" validate:"required,min=1"`
}

// MarkGraded flips pending submissions that already carry a score to graded,
// creating completions for passing ones.
func (ad *AdminController) MarkGraded(c *fiber.Ctx) error {
	var input BulkSubmissionInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	var pending []models.TaskSubmission
	if err := ad.DB.Where("id IN ? AND status = ?", input.IDs, models.SubmissionPending).
		Find(&pending).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	count := 0
	now := time.Now()
	for i := range pending {
		submission := &pending[i]
		if submission.Score == nil {
			continue
		}
		submission.Status = models.SubmissionGraded
		submission.GradedAt = &now
		if err := ad.DB.Save(submission).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not update submission",
			})
		}
		if rules.IsPassing(submission) {
			if err := rules.CompleteMaterial(ad.DB, submission.MaterialID, submission.StudentID); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Could not save completion",
				})
			}
		}
		count++
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("%d submissions marked as graded", count),
	})
}

// MarkPassing forces selected submissions to a 100 percent graded score and
// creates the completions.
func (ad *AdminController) MarkPassing(c *fiber.Ctx) error {
	var input BulkSubmissionInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	var submissions []models.TaskSubmission
	if err := ad.DB.Where("id IN ?", input.IDs).Find(&submissions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	now := time.Now()
	for i := range submissions {
		submission := &submissions[i]
		score := 100.0
		submission.Status = models.SubmissionGraded
		submission.Score = &score
		submission.GradedAt = &now
		if err := ad.DB.Save(submission).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not update submission",
			})
		}
		if err := rules.CompleteMaterial(ad.DB, submission.MaterialID, submission.StudentID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not save completion",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("%d submissions marked as passing", len(submissions)),
	})
}
