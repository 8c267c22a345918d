package services

import (
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hireflow/backend/repository"
)

type ReportEndpoints struct {
	repo *repository.GORMRepository
}

// JobReport aggregates a job's screening funnel for the employer dashboard.
type JobReport struct {
	JobID       string                       `json:"job_id"`
	StageCounts map[string]int64             `json:"stage_counts"`
	StatusCount map[string]int64             `json:"status_counts"`
	Averages    *repository.JobScoreAverages `json:"averages"`
	Percentiles map[string]int               `json:"overall_score_percentiles"`
	Completed   int                          `json:"completed_count"`
}

func NewReportEndpoints(repo *repository.GORMRepository) *ReportEndpoints {
	return &ReportEndpoints{repo: repo}
}

func (e *ReportEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(RequireEmployer)
		r.Get("/job/{jobID}", e.JobReportHandler)
	})
}

func (e *ReportEndpoints) JobReportHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	jobID := chi.URLParam(r, "jobID")

	if _, err := authorizeJob(r.Context(), e.repo, jobID, user); err != nil {
		writeError(w, r, err)
		return
	}

	stageCounts, err := e.repo.CountApplicationsByStage(r.Context(), jobID)
	if err != nil {
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}

	statusCounts, err := e.repo.CountApplicationsByStatus(r.Context(), jobID)
	if err != nil {
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}

	averages, err := e.repo.GetJobScoreAverages(r.Context(), jobID)
	if err != nil {
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}

	scores, err := e.repo.GetCompletedOverallScores(r.Context(), jobID)
	if err != nil {
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}

	report := JobReport{
		JobID:       jobID,
		StageCounts: stageCounts,
		StatusCount: statusCounts,
		Averages:    averages,
		Percentiles: scorePercentiles(scores),
		Completed:   len(scores),
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report})

	slog.Info("Job report generated", "job_id", jobID, "user_id", user.ID, "completed", len(scores))
}

// scorePercentiles computes p25/p50/p75/p90 over an ascending score slice
// using nearest-rank interpolation. Empty input yields an empty map.
func scorePercentiles(sorted []int) map[string]int {
	percentiles := make(map[string]int)
	if len(sorted) == 0 {
		return percentiles
	}

	at := func(p float64) int {
		rank := p / 100 * float64(len(sorted)-1)
		lo := int(math.Floor(rank))
		hi := int(math.Ceil(rank))
		if lo == hi {
			return sorted[lo]
		}
		frac := rank - float64(lo)
		return int(math.Round(float64(sorted[lo])*(1-frac) + float64(sorted[hi])*frac))
	}

	percentiles["p25"] = at(25)
	percentiles["p50"] = at(50)
	percentiles["p75"] = at(75)
	percentiles["p90"] = at(90)
	return percentiles
}
