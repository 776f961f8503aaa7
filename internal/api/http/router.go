// Package http wires the exam core onto a chi router with JWT auth and
// role-based permissions in front of every operation.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/AdhamEssa01/accademy/internal/attempt"
	"github.com/AdhamEssa01/accademy/internal/auth"
	"github.com/AdhamEssa01/accademy/internal/exam"
	"github.com/AdhamEssa01/accademy/internal/grading"
	"github.com/AdhamEssa01/accademy/internal/rbac"
	"github.com/AdhamEssa01/accademy/internal/stats"
)

type Deps struct {
	Auth     *auth.AuthService
	Users    auth.UserLookup
	Exams    *exam.Service
	Attempts *attempt.Service
	Auto     *grading.AutoGrader
	Manual   *grading.ManualGrader
	Stats    *stats.Aggregator

	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	// Protected API (JWT -> subject/role/academy in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		// catalog
		pr.With(rbac.Require("exam:create")).
			Post("/exams", CreateExamHandler(d.Exams))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", GetExamHandler(d.Exams))
		pr.With(rbac.Require("exam:create")).
			Post("/exams/{examID}/questions", AttachQuestionHandler(d.Exams))
		pr.With(rbac.Require("question:create")).
			Post("/questions", CreateQuestionHandler(d.Exams))
		pr.With(rbac.Require("question:view")).
			Get("/questions/{questionID}", GetQuestionHandler(d.Exams))

		// scheduling
		pr.With(rbac.Require("assignment:create")).
			Post("/exams/{examID}/assignments", CreateAssignmentHandler(d.Exams))
		pr.With(rbac.Require("assignment:view")).
			Get("/exams/{examID}/assignments", ListAssignmentsHandler(d.Exams))

		// student flow
		pr.With(rbac.Require("attempt:start")).
			Post("/assignments/{assignmentID}/attempts", StartAttemptHandler(d.Attempts))
		pr.With(rbac.Require("attempt:save")).
			Put("/attempts/{attemptID}/answers", SaveAnswersHandler(d.Attempts))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(d.Attempts, d.Auto))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", GetAttemptHandler(d.Attempts))

		// dashboards
		pr.With(rbac.Require("attempt:view-all")).
			Get("/attempts", ListAttemptsHandler(d.Attempts))
		pr.With(rbac.Require("attempt:view-children")).
			Get("/attempts/children", ListChildrenAttemptsHandler(d.Attempts))

		// grading + analytics
		pr.With(rbac.Require("answer:grade")).
			Post("/answers/{answerID}/grade", GradeAnswerHandler(d.Manual))
		pr.With(rbac.Require("stats:view")).
			Get("/exams/{examID}/stats", ExamStatsHandler(d.Stats))
	})

	return r
}
