package controllers

import (
	"github.com/userpeaseonly/basirat-course/backend/config"
	"github.com/userpeaseonly/basirat-course/backend/models"
	"github.com/userpeaseonly/basirat-course/backend/rules"
	"github.com/userpeaseonly/basirat-course/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProgressController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewProgressController(db *gorm.DB, cfg *config.Config) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg}
}

// GetSubmissionHistory godoc
// @Summary Get submission history
// @Description Returns the student's task submissions grouped by course and lesson
// @Tags progress
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /submissions [get]
func (pc *ProgressController) GetSubmissionHistory(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var enrollments []models.Enrollment
	if err := pc.DB.Preload("Course").
		Where("student_id = ? AND status = ?", userID, models.EnrollmentAccepted).
		Find(&enrollments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	history := make([]fiber.Map, 0, len(enrollments))
	for _, enrollment := range enrollments {
		var lessons []models.Lesson
		pc.DB.Where("course_id = ?", enrollment.CourseID).
			Order("sequence_order ASC, title ASC").
			Find(&lessons)

		lessonData := make([]fiber.Map, 0, len(lessons))
		for _, lesson := range lessons {
			var tasks []models.Material
			pc.DB.Where("lesson_id = ? AND material_type = ?", lesson.ID, models.MaterialTask).
				Order("sequence_order ASC").
				Find(&tasks)

			taskData := make([]fiber.Map, 0, len(tasks))
			for _, task := range tasks {
				var submissions []models.TaskSubmission
				pc.DB.Where("material_id = ? AND student_id = ?", task.ID, userID).
					Order("submitted_at DESC").
					Find(&submissions)
				if len(submissions) == 0 {
					continue
				}

				var bestScore *float64
				for _, s := range submissions {
					if s.Score != nil && (bestScore == nil || *s.Score > *bestScore) {
						bestScore = s.Score
					}
				}

				entry := fiber.Map{
					"material_id":    task.ID,
					"title":          task.Title,
					"question_type":  task.QuestionType,
					"submissions":    submissionMaps(submissions),
					"total_attempts": len(submissions),
				}
				if bestScore != nil {
					entry["best_score"] = *bestScore
				}
				taskData = append(taskData, entry)
			}

			if len(taskData) > 0 {
				lessonData = append(lessonData, fiber.Map{
					"lesson_id": lesson.ID,
					"title":     lesson.Title,
					"tasks":     taskData,
				})
			}
		}

		if len(lessonData) > 0 {
			history = append(history, fiber.Map{
				"course_id": enrollment.CourseID,
				"title":     enrollment.Course.Title,
				"slug":      enrollment.Course.Slug,
				"lessons":   lessonData,
			})
		}
	}

	return c.JSON(fiber.Map{
		"history": history,
	})
}

// GetProgress godoc
// @Summary Get progress dashboard
// @Description Returns lesson completion per enrolled course
// @Tags progress
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress [get]
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var enrollments []models.Enrollment
	if err := pc.DB.Preload("Course").
		Where("student_id = ? AND status = ?", userID, models.EnrollmentAccepted).
		Find(&enrollments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	courses := make([]fiber.Map, 0, len(enrollments))
	for _, enrollment := range enrollments {
		var lessons []models.Lesson
		pc.DB.Where("course_id = ?", enrollment.CourseID).
			Order("sequence_order ASC, title ASC").
			Find(&lessons)

		completedLessons := 0
		for i := range lessons {
			done, err := rules.LessonCompletedFor(pc.DB, &lessons[i], userID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Could not query database",
				})
			}
			if done {
				completedLessons++
			}
		}

		completionRate := 0.0
		if len(lessons) > 0 {
			completionRate = float64(completedLessons) / float64(len(lessons)) * 100
		}

		courses = append(courses, fiber.Map{
			"course_id":         enrollment.CourseID,
			"title":             enrollment.Course.Title,
			"slug":              enrollment.Course.Slug,
			"lessons":           len(lessons),
			"lessons_completed": completedLessons,
			"completion_rate":   completionRate,
		})
	}

	return c.JSON(fiber.Map{
		"progress": courses,
	})
}
