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

type LessonsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewLessonsController(db *gorm.DB, cfg *config.Config) *LessonsController {
	return &LessonsController{DB: db, Cfg: cfg}
}

// checkLessonAccess enforces the content gating order: accepted enrollment
// first, then lesson availability (re-access after completion is always
// allowed). Returns a *fiber.Error describing the denial, or nil when access
// is granted. Callers must write the response themselves: fiber's JSON
// helpers return nil on success, so a handler cannot branch on their result.
func (lc *LessonsController) checkLessonAccess(lesson *models.Lesson, userID uint) *fiber.Error {
	enrollment, err := rules.ActiveEnrollmentFor(lc.DB, lesson.CourseID, userID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Could not query database")
	}
	if enrollment == nil {
		return fiber.NewError(fiber.StatusForbidden, "You are not enrolled in this course")
	}

	available, err := rules.LessonAvailableFor(lc.DB, lesson, userID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Could not query database")
	}
	if !available {
		completed, err := rules.LessonCompletedFor(lc.DB, lesson, userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not query database")
		}
		if !completed {
			return fiber.NewError(fiber.StatusForbidden, "Complete the previous lessons before continuing")
		}
	}
	return nil
}

// GetLessonDetails returns a gated lesson with per-material completion and
// submission state.
func (lc *LessonsController) GetLessonDetails(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, lc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var lesson models.Lesson
	if err := lc.DB.Joins("JOIN courses ON courses.id = lessons.course_id").
		Where("courses.slug = ? AND lessons.slug = ?", c.Params("slug"), c.Params("lessonSlug")).
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

	if ferr := lc.checkLessonAccess(&lesson, userID); ferr != nil {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}

	var materials []models.Material
	if err := lc.DB.Where("lesson_id = ?", lesson.ID).
		Order("sequence_order ASC, title ASC").
		Find(&materials).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	materialData := make([]fiber.Map, 0, len(materials))
	for _, material := range materials {
		var completed int64
		lc.DB.Model(&models.MaterialCompletion{}).
			Where("material_id = ? AND student_id = ?", material.ID, userID).
			Count(&completed)

		data := fiber.Map{
			"id":            material.ID,
			"title":         material.Title,
			"material_type": material.MaterialType,
			"order":         material.SequenceOrder,
			"completed":     completed > 0,
		}

		if material.IsTask() {
			var submissions []models.TaskSubmission
			lc.DB.Where("material_id = ? AND student_id = ?", material.ID, userID).
				Order("submitted_at DESC").
				Find(&submissions)

			canSubmit, err := rules.CanSubmit(lc.DB, material.ID, userID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Could not query database",
				})
			}

			data["question_type"] = material.QuestionType
			data["question"] = publicQuestionPayload(&material)
			data["submissions"] = submissionMaps(submissions)
			data["attempts_used"] = len(submissions)
			data["can_submit"] = canSubmit
		} else {
			data["content"] = material.Content
			data["media_url"] = material.MediaURL
			data["is_protected"] = material.IsProtected
		}

		materialData = append(materialData, data)
	}

	return c.JSON(fiber.Map{
		"lesson": fiber.Map{
			"id":          lesson.ID,
			"title":       lesson.Title,
			"slug":        lesson.Slug,
			"description": lesson.Description,
			"order":       lesson.SequenceOrder,
		},
		"materials": materialData,
	})
}

// CompleteMaterial marks a learning material as consumed. Task materials
// require a submission instead.
func (lc *LessonsController) CompleteMaterial(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, lc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	material, ferr := lc.loadGatedMaterial(c, userID)
	if ferr != nil {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}

	if material.IsTask() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Task materials require submission, not simple completion",
		})
	}

	if err := rules.CompleteMaterial(lc.DB, material.ID, userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save completion",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Material marked as complete",
	})
}

// SubmitTask records one graded attempt for a task material.
func (lc *LessonsController) SubmitTask(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, lc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	material, ferr := lc.loadGatedMaterial(c, userID)
	if ferr != nil {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}

	if !material.IsTask() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Learning materials are completed, not submitted",
		})
	}

	canSubmit, err := rules.CanSubmit(lc.DB, material.ID, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}
	if !canSubmit {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": fmt.Sprintf("You have used all %d attempts for this task", rules.MaxAttempts),
		})
	}

	var input struct {
		Answer any `json:"answer"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	answerJSON, errMsg := normalizeAnswer(material, input.Answer)
	if errMsg != "" {
		return utils.ValidationError(c, map[string]string{"answer": errMsg})
	}

	attempts, err := rules.AttemptsCount(lc.DB, material.ID, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	submission := models.TaskSubmission{
		MaterialID:    material.ID,
		StudentID:     userID,
		AttemptNumber: attempts + 1,
		AnswerPayload: answerJSON,
		Status:        models.SubmissionPending,
		SubmittedAt:   time.Now(),
	}

	graded, err := rules.AutoGrade(material, &submission)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not grade submission",
		})
	}

	// Уникальный индекс (material, student, attempt) защищает от гонок
	if err := lc.DB.Create(&submission).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save submission",
		})
	}

	result := fiber.Map{
		"attempt_number": submission.AttemptNumber,
		"status":         submission.Status,
	}

	if !graded {
		result["message"] = "Your answer has been submitted for review"
		return c.JSON(result)
	}

	result["score"] = *submission.Score
	if rules.IsPassing(&submission) {
		if err := rules.CompleteMaterial(lc.DB, material.ID, userID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not save completion",
			})
		}
		result["message"] = fmt.Sprintf("Correct! Score: %d%%. Material completed", int(*submission.Score))
	} else {
		result["message"] = fmt.Sprintf(
			"Incorrect. Score: %d%%. You have %d attempts remaining",
			int(*submission.Score), rules.MaxAttempts-submission.AttemptNumber,
		)
	}

	return c.JSON(result)
}

// loadGatedMaterial resolves a material by ID and applies the full access
// gating chain for its lesson. On denial the material is nil and the
// *fiber.Error carries the status and message to send.
func (lc *LessonsController) loadGatedMaterial(c *fiber.Ctx, userID uint) (*models.Material, *fiber.Error) {
	var material models.Material
	if err := lc.DB.First(&material, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Material not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not query database")
	}

	var lesson models.Lesson
	if err := lc.DB.First(&lesson, material.LessonID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not query database")
	}

	if ferr := lc.checkLessonAccess(&lesson, userID); ferr != nil {
		return nil, ferr
	}

	return &material, nil
}

// normalizeAnswer validates the submitted answer against the material's
// question type and returns the payload to persist.
func normalizeAnswer(material *models.Material, answer any) (datatypes.JSON, string) {
	payload := models.AnswerPayloadData{}

	switch material.QuestionType {
	case models.SingleChoice:
		s, ok := answer.(string)
		if !ok || s == "" {
			return nil, "Select an answer"
		}
		payload.Answer = s
	case models.MultiChoice:
		choices, ok := answer.([]any)
		if !ok || len(choices) == 0 {
			return nil, "Select at least one choice"
		}
		selected := make([]string, 0, len(choices))
		for _, choice := range choices {
			s, ok := choice.(string)
			if !ok {
				return nil, "Select at least one choice"
			}
			selected = append(selected, s)
		}
		payload.Answer = selected
	case models.FreeResponse:
		s, ok := answer.(string)
		if !ok || s == "" {
			return nil, "Your answer is required"
		}
		if len(s) > rules.MaxFreeResponseLen {
			return nil, "Value is too long"
		}
		payload.Answer = s
	default:
		return nil, "Material has no question type"
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, "Invalid answer"
	}
	return datatypes.JSON(raw), ""
}

// publicQuestionPayload strips the correct answer before exposing a task
// question to students.
func publicQuestionPayload(material *models.Material) fiber.Map {
	var payload models.QuestionPayloadData
	if err := json.Unmarshal(material.QuestionPayload, &payload); err != nil {
		return fiber.Map{}
	}
	return fiber.Map{
		"question": payload.Question,
		"choices":  payload.Choices,
		"hints":    payload.Hints,
	}
}

// submissionMaps renders a student's own submissions.
func submissionMaps(submissions []models.TaskSubmission) []fiber.Map {
	out := make([]fiber.Map, 0, len(submissions))
	for _, s := range submissions {
		m := fiber.Map{
			"attempt_number": s.AttemptNumber,
			"status":         s.Status,
			"submitted_at":   s.SubmittedAt,
			"feedback":       s.Feedback,
		}
		if s.Score != nil {
			m["score"] = *s.Score
		}
		if s.GradedAt != nil {
			m["graded_at"] = *s.GradedAt
		}
		out = append(out, m)
	}
	return out
}
