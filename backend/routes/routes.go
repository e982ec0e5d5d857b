package routes

import (
	"github.com/userpeaseonly/basirat-course/backend/config"
	"github.com/userpeaseonly/basirat-course/backend/controllers"
	"github.com/userpeaseonly/basirat-course/backend/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Course catalog (course detail is public; enrollment state appears when
	// a token is supplied)
	coursesController := controllers.NewCoursesController(db, cfg)
	app.Get("/api/courses", coursesController.GetCourses)
	app.Get("/api/courses/:slug", coursesController.GetCourseDetails)
	app.Post("/api/courses/:slug/enroll", authMiddleware, coursesController.EnrollCourse)

	// Lesson content and task submission
	lessonsController := controllers.NewLessonsController(db, cfg)
	app.Get("/api/courses/:slug/lessons/:lessonSlug", authMiddleware, lessonsController.GetLessonDetails)
	app.Post("/api/materials/:id/complete", authMiddleware, lessonsController.CompleteMaterial)
	app.Post("/api/materials/:id/submit", authMiddleware, lessonsController.SubmitTask)

	// Progress routes
	progressController := controllers.NewProgressController(db, cfg)
	app.Get("/api/submissions", authMiddleware, progressController.GetSubmissionHistory)
	app.Get("/api/progress", authMiddleware, progressController.GetProgress)

	// Admin routes
	adminController := controllers.NewAdminController(db, cfg)
	admin := app.Group("/api/admin", authMiddleware, adminMiddleware)
	admin.Post("/courses", adminController.CreateCourse)
	admin.Put("/courses/:id", adminController.UpdateCourse)
	admin.Post("/courses/:id/lessons", adminController.AddLesson)
	admin.Put("/courses/:id/lessons/:lessonId", adminController.UpdateLesson)
	admin.Post("/lessons/:id/materials", adminController.AddMaterial)
	admin.Put("/materials/:id", adminController.UpdateMaterial)
	admin.Get("/enrollments", adminController.GetEnrollments)
	admin.Post("/enrollments/:id/accept", adminController.AcceptEnrollment)
	admin.Post("/enrollments/:id/reject", adminController.RejectEnrollment)
	admin.Get("/submissions", adminController.GetSubmissions)
	admin.Put("/submissions/:id/grade", adminController.GradeSubmission)
	admin.Post("/submissions/mark-graded", adminController.MarkGraded)
	admin.Post("/submissions/mark-passing", adminController.MarkPassing)
}
