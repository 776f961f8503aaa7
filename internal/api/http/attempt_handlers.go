package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AdhamEssa01/accademy/internal/attempt"
	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/grading"
	"github.com/AdhamEssa01/accademy/internal/rbac"
)

// POST /assignments/{assignmentID}/attempts
// Students always start for themselves; staff may start on a student's
// behalf by naming them in the body.
func StartAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentID string `json:"student_id"`
		}
		// body is optional for students
		_ = json.NewDecoder(r.Body).Decode(&req)

		studentID := req.StudentID
		if rbac.RoleFromContext(r.Context()) == domain.RoleStudent || studentID == "" {
			studentID = rbac.SubjectFromContext(r.Context())
		}
		a, err := svc.Start(r.Context(), chi.URLParam(r, "assignmentID"), studentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// PUT /attempts/{attemptID}/answers
func SaveAnswersHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers []attempt.AnswerInput `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := svc.SaveAnswers(r.Context(), chi.URLParam(r, "attemptID"), req.Answers); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /attempts/{attemptID}/submit
// Submit freezes the attempt, then immediately runs the auto-grading pass
// over it; the returned snapshot reflects any auto-resolved scores.
func SubmitAttemptHandler(svc *attempt.Service, auto *grading.AutoGrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		if _, err := svc.Submit(r.Context(), attemptID); err != nil {
			writeErr(w, err)
			return
		}
		a, err := auto.GradeAttempt(r.Context(), attemptID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, answers, err := svc.GetAttempt(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		// Students may only read their own attempts.
		role := rbac.RoleFromContext(r.Context())
		if role == domain.RoleStudent && a.StudentID != rbac.SubjectFromContext(r.Context()) {
			writeErr(w, domain.NotFoundf("attempt"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attempt": a, "answers": answers})
	}
}

// GET /attempts?exam_id=...&limit=50&offset=0
func ListAttemptsHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		examID := q.Get("exam_id")
		if examID == "" {
			http.Error(w, "exam_id required", http.StatusBadRequest)
			return
		}
		list, err := svc.ListForExam(r.Context(), examID,
			parseIntDefault(q.Get("limit"), 50), parseIntDefault(q.Get("offset"), 0))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /attempts/children?from=...&to=...&limit=50&offset=0
func ListChildrenAttemptsHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, err := parseTime(q.Get("from"))
		if err != nil {
			http.Error(w, "bad from", http.StatusBadRequest)
			return
		}
		to, err := parseTime(q.Get("to"))
		if err != nil {
			http.Error(w, "bad to", http.StatusBadRequest)
			return
		}
		list, err := svc.ListMyChildren(r.Context(), from, to,
			parseIntDefault(q.Get("limit"), 50), parseIntDefault(q.Get("offset"), 0))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
