package controllers

import (
	"github.com/userpeaseonly/basirat-course/backend/config"
	"github.com/userpeaseonly/basirat-course/backend/models"
	"github.com/userpeaseonly/basirat-course/backend/rules"
	"github.com/userpeaseonly/basirat-course/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns the authenticated user's profile with learning statistics
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	var enrolledCourses int64
	uc.DB.Model(&models.Enrollment{}).
		Where("student_id = ? AND status = ?", userID, models.EnrollmentAccepted).
		Count(&enrolledCourses)

	var pendingEnrollments int64
	uc.DB.Model(&models.Enrollment{}).
		Where("student_id = ? AND status = ?", userID, models.EnrollmentPending).
		Count(&pendingEnrollments)

	var completedMaterials int64
	uc.DB.Model(&models.MaterialCompletion{}).
		Where("student_id = ?", userID).
		Count(&completedMaterials)

	// Distinct tasks with a passing graded submission
	var passedTasks int64
	uc.DB.Model(&models.TaskSubmission{}).
		Where("student_id = ? AND status = ? AND score >= ?", userID, models.SubmissionGraded, rules.PassingScore).
		Distinct("material_id").
		Count(&passedTasks)

	var totalAttempts int64
	uc.DB.Model(&models.TaskSubmission{}).
		Where("student_id = ?", userID).
		Count(&totalAttempts)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":           user.ID,
		"phone_number": user.PhoneNumber,
		"first_name":   user.FirstName,
		"last_name":    user.LastName,
		"is_student":   user.IsStudent,
		"created_at":   user.CreatedAt,
		"statistics": fiber.Map{
			"enrolled_courses":    enrolledCourses,
			"pending_enrollments": pendingEnrollments,
			"completed_materials": completedMaterials,
			"passed_tasks":        passedTasks,
			"total_attempts":      totalAttempts,
		},
	})
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Updates names or changes the password
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	if input.FirstName != "" {
		user.FirstName = input.FirstName
	}
	if input.LastName != "" {
		user.LastName = input.LastName
	}

	// Смена пароля требует старый пароль
	if input.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
			return utils.BadRequest(c, "Old password is incorrect")
		}
		if len(input.NewPassword) < 8 {
			return utils.ValidationError(c, map[string]string{"new_password": "Value is too short"})
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.PasswordHash = string(hashed)
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update profile")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":         user.ID,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	})
}
