package controllers

import (
	"errors"
	"time"

	"github.com/userpeaseonly/basirat-course/backend/config"
	"github.com/userpeaseonly/basirat-course/backend/models"
	"github.com/userpeaseonly/basirat-course/backend/rules"
	"github.com/userpeaseonly/basirat-course/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CoursesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCoursesController(db *gorm.DB, cfg *config.Config) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg}
}

// GetCourses lists published courses. Supports ?q= search over title/summary
// and ?sort=title|newest.
func (cc *CoursesController) GetCourses(c *fiber.Ctx) error {
	q := c.Query("q")
	sort := c.Query("sort", "title")

	query := cc.DB.Model(&models.Course{}).Where("is_published = ?", true)

	if q != "" {
		like := "%" + q + "%"
		query = query.Where("title LIKE ? OR summary LIKE ?", like, like)
	}

	switch sort {
	case "newest":
		query = query.Order("created_at DESC")
	default:
		query = query.Order("title ASC")
	}

	var courses []models.Course
	if err := query.Preload("Lessons").Find(&courses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	result := make([]fiber.Map, 0, len(courses))
	for _, course := range courses {
		result = append(result, fiber.Map{
			"id":      course.ID,
			"title":   course.Title,
			"slug":    course.Slug,
			"summary": course.Summary,
			"lessons": len(course.Lessons),
		})
	}

	return c.JSON(result)
}

// GetCourseDetails returns a published course with the caller's enrollment
// state and a per-lesson availability/completion map. Works for anonymous
// callers too: every lesson then reports completed=false, available=false.
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	// Optional authentication
	userID, _ := utils.ExtractUserIDFromToken(c, cc.Cfg)

	var course models.Course
	if err := cc.DB.Preload("Lessons", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order ASC, title ASC")
	}).Where("slug = ? AND is_published = ?", c.Params("slug"), true).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Course not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	enrollment, err := rules.EnrollmentFor(cc.DB, course.ID, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	lessonStates := make([]fiber.Map, 0, len(course.Lessons))
	for i := range course.Lessons {
		lesson := &course.Lessons[i]
		completed, err := rules.LessonCompletedFor(cc.DB, lesson, userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not query database",
			})
		}
		available, err := rules.LessonAvailableFor(cc.DB, lesson, userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not query database",
			})
		}
		lessonStates = append(lessonStates, fiber.Map{
			"id":          lesson.ID,
			"title":       lesson.Title,
			"slug":        lesson.Slug,
			"description": lesson.Description,
			"order":       lesson.SequenceOrder,
			"completed":   completed,
			"available":   available,
		})
	}

	var enrollmentState fiber.Map
	if enrollment != nil {
		enrollmentState = fiber.Map{
			"status":       enrollment.Status,
			"requested_at": enrollment.RequestedAt,
			"answered_at":  enrollment.AnsweredAt,
		}
	}

	return c.JSON(fiber.Map{
		"course": fiber.Map{
			"id":      course.ID,
			"title":   course.Title,
			"slug":    course.Slug,
			"summary": course.Summary,
		},
		"enrollment": enrollmentState,
		"lessons":    lessonStates,
	})
}

// EnrollCourse godoc
// @Summary Request enrollment in a course
// @Description Creates a pending enrollment; a rejected enrollment becomes pending again
// @Tags courses
// @Accept json
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{slug}/enroll [post]
func (cc *CoursesController) EnrollCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var course models.Course
	if err := cc.DB.Where("slug = ? AND is_published = ?", c.Params("slug"), true).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Course not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	enrollment, err := rules.EnrollmentFor(cc.DB, course.ID, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	if enrollment == nil {
		enrollment = &models.Enrollment{
			CourseID:    course.ID,
			StudentID:   userID,
			Status:      models.EnrollmentPending,
			RequestedAt: time.Now(),
		}
		if err := cc.DB.Create(enrollment).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not create enrollment",
			})
		}
		return c.JSON(fiber.Map{
			"message":    "Enrollment request submitted",
			"enrollment": fiber.Map{"status": enrollment.Status},
		})
	}

	// Rejected students may re-request; the refreshed timestamp keeps the
	// request at the top of the review queue
	if enrollment.Status == models.EnrollmentRejected {
		enrollment.Status = models.EnrollmentPending
		enrollment.RequestedAt = time.Now()
		enrollment.AnsweredAt = nil
		if err := cc.DB.Save(enrollment).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not update enrollment",
			})
		}
		return c.JSON(fiber.Map{
			"message":    "Enrollment request submitted",
			"enrollment": fiber.Map{"status": enrollment.Status},
		})
	}

	return c.JSON(fiber.Map{
		"message":    "Your enrollment request is already pending or accepted",
		"enrollment": fiber.Map{"status": enrollment.Status},
	})
}
