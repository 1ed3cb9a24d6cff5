package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/iorabi/canvas-lms/internal/api/http"
	"github.com/iorabi/canvas-lms/internal/audit"
	auth "github.com/iorabi/canvas-lms/internal/auth/middleware"
	"github.com/iorabi/canvas-lms/internal/config"
	"github.com/iorabi/canvas-lms/internal/course"
	"github.com/iorabi/canvas-lms/internal/db"
	"github.com/iorabi/canvas-lms/internal/gradebook"
	"github.com/iorabi/canvas-lms/internal/grading"
	"github.com/iorabi/canvas-lms/internal/rbac"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	if cfg.DefaultGradingScheme != "" {
		grading.SetDefaultKey(cfg.DefaultGradingScheme)
	}

	resolver := gradebook.NewResolver(cfg.CourseScoreSupported)
	scores := gradebook.NewSQLStore(dbh, cfg.DBDriver, resolver.CourseScoreSupported())
	svc := gradebook.NewService(scores, resolver, audit.NewLog(dbh))
	courses := course.NewStore(dbh)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(dbh, authSvc))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.AllowRoleClaimFallback))

		// Course/collaborator admin
		pr.With(rbac.Require("course:create")).
			Post("/courses", api.CreateCourseHandler(courses))
		pr.With(rbac.Require("course:update")).
			Patch("/courses/{courseID}", api.UpdateCourseHandler(courses))
		pr.With(rbac.Require("course:enroll")).
			Post("/courses/{courseID}/enrollments", api.EnrollUsersHandler(courses))
		pr.With(rbac.Require("course:update")).
			Post("/courses/{courseID}/grading_periods", api.CreateGradingPeriodHandler(courses))
		pr.With(rbac.Require("course:update")).
			Post("/courses/{courseID}/assignment_groups", api.CreateAssignmentGroupHandler(courses))

		// Scores
		pr.With(rbac.Require("score:update")).
			Put("/enrollments/{enrollmentID}/scores", api.UpsertScoreHandler(svc, courses))
		pr.With(rbac.Require("score:view")).
			Get("/enrollments/{enrollmentID}/scores", api.ListEnrollmentScoresHandler(svc, courses))
		pr.With(rbac.Require("score:view")).
			Get("/scores/{scoreID}", api.GetScoreHandler(svc, courses))
		pr.With(rbac.Require("score:delete")).
			Delete("/scores/{scoreID}", api.DeleteScoreHandler(svc, courses))

		// Users (teacher/admin)
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	log.Printf("gradebook listening on %s (db=%s, course_score_supported=%v)",
		cfg.HTTPAddr, cfg.DBDriver, cfg.CourseScoreSupported)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal(err)
	}
}
