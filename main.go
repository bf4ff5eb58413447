package main

import (
	"log"
	"net/http"

	"questline/config"
	"questline/database"
	"questline/handlers"
	"questline/middleware"
	"questline/models"
	"questline/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := config.Load()

	// Initialize JWT secret
	middleware.SetJWTSecret(cfg.JWTSecret)

	// Initialize database
	if err := database.Init(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	// Initialize services
	points := services.NewPointsService(db)
	notifications := services.NewNotificationService(db)
	submissions := services.NewSubmissionService(db, cfg, points, notifications)
	enrollments := services.NewEnrollmentService(db, points)
	cascade := services.NewCascadeService(db, points)
	tasks := services.NewTaskService(db, cascade)
	invites := services.NewInviteService(db, cfg)
	companies := services.NewCompanyService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg, invites)
	taskHandler := handlers.NewTaskHandler(tasks, enrollments, cascade)
	submissionHandler := handlers.NewSubmissionHandler(submissions)
	notificationHandler := handlers.NewNotificationHandler(notifications)
	adminHandler := handlers.NewAdminHandler(invites, companies, cascade, points)

	// Setup router
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	// Public routes
	router.Post("/login", authHandler.Login)
	router.Get("/invites/validate", authHandler.ValidateInvite)
	router.Post("/register", authHandler.Register)

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)

		r.Get("/logout", authHandler.Logout)
		r.Post("/change-password", authHandler.ChangePassword)

		// Tasks and participation (all authenticated users)
		r.Get("/tasks", taskHandler.List)
		r.Get("/tasks/{id}", taskHandler.Get)
		r.Post("/tasks/{id}/join", taskHandler.Join)
		r.Post("/tasks/{id}/leave", taskHandler.Leave)
		r.Post("/steps/{id}/submit", submissionHandler.Submit)

		// Notifications
		r.Get("/notifications", notificationHandler.List)
		r.Get("/notifications/unread-count", notificationHandler.UnreadCount)
		r.Post("/notifications/{id}/read", notificationHandler.MarkRead)
		r.Post("/notifications/read-all", notificationHandler.MarkAllRead)
		r.Delete("/notifications/read", notificationHandler.DeleteRead)

		// Manager and admin routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleManager))
			r.Post("/submissions/{id}/approve", submissionHandler.Approve)
			r.Post("/submissions/{id}/reject", submissionHandler.Reject)
			r.Get("/tasks/{id}/participants", taskHandler.Participants)
		})

		// Admin only routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Post("/tasks", taskHandler.Create)
			r.Put("/tasks/{id}", taskHandler.Update)
			r.Delete("/tasks/{id}", taskHandler.Delete)
			r.Post("/invites", adminHandler.CreateInvite)
			r.Get("/invites", adminHandler.ListInvites)
			r.Post("/companies", adminHandler.CreateCompany)
			r.Get("/companies", adminHandler.ListCompanies)
			r.Get("/companies/{id}/members", adminHandler.ListCompanyMembers)
			r.Post("/companies/{id}/members/{userID}", adminHandler.AddCompanyMember)
			r.Delete("/companies/{id}/members/{userID}", adminHandler.RemoveCompanyMember)
			r.Get("/users", adminHandler.ListUsers)
			r.Delete("/users/{id}", adminHandler.DeleteUser)
			r.Get("/admin/integrity", adminHandler.Integrity)
		})
	})

	log.Printf("Server starting on port %s", cfg.ServerPort)
	log.Printf("Default admin credentials: admin / admin")
	log.Fatal(http.ListenAndServe(":"+cfg.ServerPort, router))
}
