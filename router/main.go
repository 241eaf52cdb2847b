package router

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/config"
	"github.com/sahilchouksey/elms-api/database"
	"github.com/sahilchouksey/elms-api/handlers"
	admin_handlers "github.com/sahilchouksey/elms-api/handlers/admin"
	application_handlers "github.com/sahilchouksey/elms-api/handlers/application"
	auth_handlers "github.com/sahilchouksey/elms-api/handlers/auth"
	checkout_handlers "github.com/sahilchouksey/elms-api/handlers/checkout"
	course_handlers "github.com/sahilchouksey/elms-api/handlers/course"
	teacher_handlers "github.com/sahilchouksey/elms-api/handlers/teacher"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/services/events"
	"github.com/sahilchouksey/elms-api/services/objectstore"
	"github.com/sahilchouksey/elms-api/utils"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"github.com/sahilchouksey/elms-api/utils/cache"
	"github.com/sahilchouksey/elms-api/utils/middleware"
	"github.com/sahilchouksey/elms-api/utils/validation"
	"gorm.io/gorm"
)

// Dependencies are the infrastructure clients built at startup. Every field
// except Env and Store may be nil when the backing service is not configured.
type Dependencies struct {
	Env       *config.EnvironmentVariable
	Store     database.Storage
	Cache     *cache.RedisCache
	Gateway   services.PaymentGateway
	Objects   objectstore.Store
	Notifier  services.Notifier
	Publisher events.Publisher
}

func SetupRoutes(app *fiber.App, deps Dependencies) error {
	env := deps.Env
	if env.JWT_SECRET == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        env.JWT_ISSUER,
	})

	db, ok := deps.Store.GetDB().(*gorm.DB)
	if !ok {
		return errors.New("failed to get GORM DB instance")
	}

	// Brute force protection and the taxonomy cache both need redis
	var bruteForceProtection *middleware.BruteForceProtection
	var jsonCache cache.JSONCache
	if deps.Cache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(deps.Cache)
		jsonCache = deps.Cache
	} else {
		log.Warn("Redis is not available: brute force protection and catalog caching are disabled")
	}

	v := validation.NewValidator()

	// Services
	accountService := services.NewAccountService(db, jwtManager, v)
	catalogService := services.NewCatalogService(db, jsonCache)
	courseService := services.NewCourseService(db, deps.Objects, v)
	checkoutService := services.NewCheckoutService(db, deps.Gateway, v)
	paymentService := services.NewPaymentService(db, deps.Gateway, deps.Publisher)
	earningsService := services.NewEarningsService(db, deps.Store.Reports(), deps.Publisher)
	applicationService := services.NewApplicationService(services.ApplicationServiceConfig{
		DB:        db,
		Store:     deps.Objects,
		Notifier:  deps.Notifier,
		Publisher: deps.Publisher,
		Validator: v,
		AppName:   env.APP_NAME,
		AppURL:    env.APP_URL,
	})

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)
	authHandler := auth_handlers.NewAuthHandler(accountService, bruteForceProtection)
	courseHandler := course_handlers.NewCourseHandler(catalogService)
	teacherHandler := teacher_handlers.NewTeacherHandler(courseService, earningsService)
	checkoutHandler := checkout_handlers.NewCheckoutHandler(checkoutService, paymentService)
	adminHandler := admin_handlers.NewAdminHandler(earningsService, paymentService, applicationService)
	applicationHandler := application_handlers.NewApplicationHandler(applicationService)

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    env.ALLOWED_ORIGINS,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// API v1 group
	api := app.Group("/api/v1")

	// Health check endpoint (public)
	api.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, deps.Store))

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckLockout(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)

	requireStudent := authMiddleware.RequireRole(model.RoleStudent)
	requireTeacher := authMiddleware.RequireRole(model.RoleTeacher)

	// Profile
	api.Get("/profile", authMiddleware.Required(), authHandler.GetProfile)
	api.Put("/profile/student", requireStudent, authHandler.UpdateStudentProfile)

	// Catalog (public)
	api.Get("/taxonomy", courseHandler.ListTaxonomy)
	api.Get("/courses", courseHandler.ListCourses)
	api.Get("/courses/:slug", courseHandler.GetCourse)

	// Teacher applications (public, multipart)
	api.Post("/applications", applicationHandler.Submit)

	// Gateway callback (public, form or JSON)
	api.Post("/payments/verify", checkoutHandler.VerifyPayment)

	// Student
	api.Post("/checkout/:slug", requireStudent, checkoutHandler.Checkout)
	api.Get("/my-courses", requireStudent, checkoutHandler.MyCourses)
	api.Get("/courses/:slug/watch", requireStudent, checkoutHandler.Watch)

	// Teacher
	teacher := api.Group("/teacher", requireTeacher)
	teacher.Get("/dashboard", teacherHandler.Dashboard)
	teacher.Put("/profile", authHandler.UpdateTeacherProfile)
	teacher.Get("/courses", teacherHandler.ListCourses)
	teacher.Post("/courses", teacherHandler.CreateCourse)
	teacher.Put("/courses/:id", teacherHandler.UpdateCourse)
	teacher.Post("/courses/:id/image", teacherHandler.SetCourseImage)
	teacher.Get("/courses/:id/lessons", teacherHandler.ListLessons)
	teacher.Post("/lessons", teacherHandler.CreateLesson)
	teacher.Get("/lessons/:id/next-serial", teacherHandler.NextSerial)
	teacher.Post("/videos", teacherHandler.AddVideo)
	teacher.Get("/students", teacherHandler.Students)
	teacher.Get("/earnings", teacherHandler.Earnings)

	// Admin
	admin := api.Group("/admin", authMiddleware.RequireAdmin())
	admin.Get("/dashboard", adminHandler.Dashboard)
	admin.Get("/earnings", adminHandler.Earnings)
	admin.Get("/earnings/teachers", adminHandler.TeacherEarnings)
	admin.Post("/earnings/pay/:course_id", middleware.AdminAuditLog(db, "earnings_payout", "courses"), adminHandler.PayEarnings)
	admin.Get("/payments", adminHandler.Payments)
	admin.Get("/applications", adminHandler.ListApplications)
	admin.Post("/applications/:id/accept", middleware.AdminAuditLog(db, "application_accept", "teacher_applications"), adminHandler.AcceptApplication)
	admin.Post("/applications/:id/reject", middleware.AdminAuditLog(db, "application_reject", "teacher_applications"), adminHandler.RejectApplication)

	// Admin audit trail
	admin.Get("/audit", func(c *fiber.Ctx) error { return admin_handlers.ListAuditLogs(c, deps.Store) })
	admin.Get("/audit/:id", func(c *fiber.Ctx) error { return admin_handlers.GetAuditLog(c, deps.Store) })

	return nil
}
