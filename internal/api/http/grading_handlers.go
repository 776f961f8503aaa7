package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AdhamEssa01/accademy/internal/grading"
	"github.com/AdhamEssa01/accademy/internal/stats"
)

// POST /answers/{answerID}/grade  { "score": 4, "feedback": "..." }
func GradeAnswerHandler(manual *grading.ManualGrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Score    float64 `json:"score"`
			Feedback string  `json:"feedback"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := manual.GradeAnswer(r.Context(), chi.URLParam(r, "answerID"), req.Score, req.Feedback); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /exams/{examID}/stats
func ExamStatsHandler(agg *stats.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := agg.GetStats(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
