package services

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hireflow/backend/models"
	"github.com/hireflow/backend/repository"
)

type JobEndpoints struct {
	repo     *repository.GORMRepository
	validate *validator.Validate
}

type CreateJobRequest struct {
	Title             string   `json:"title" validate:"required"`
	Location          string   `json:"location"`
	Description       string   `json:"description" validate:"required"`
	RequiredSkills    []string `json:"required_skills" validate:"required,min=1"`
	SalaryRange       string   `json:"salary_range"`
	EmploymentType    string   `json:"employment_type" validate:"omitempty,oneof=full-time part-time contract"`
	InterviewDuration int      `json:"interview_duration" validate:"omitempty,min=5,max=60"`
}

type GetJobsResponse struct {
	Jobs  []models.Job `json:"jobs"`
	Count int          `json:"count"`
}

func NewJobEndpoints(repo *repository.GORMRepository) *JobEndpoints {
	return &JobEndpoints{
		repo:     repo,
		validate: validator.New(),
	}
}

func (e *JobEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", e.ListJobsHandler)
		r.Get("/{id}", e.GetJobHandler)

		r.Group(func(r chi.Router) {
			r.Use(RequireEmployer)
			r.Post("/", e.CreateJobHandler)
			r.Get("/mine", e.GetMyJobsHandler)
			r.Put("/{id}", e.UpdateJobHandler)
			r.Delete("/{id}", e.DeleteJobHandler)
		})
	})
}

func (e *JobEndpoints) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := e.validate.Struct(req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	job := models.Job{
		PostedBy:          user.ID,
		Title:             req.Title,
		Company:           user.Company,
		Location:          req.Location,
		Description:       req.Description,
		RequiredSkills:    req.RequiredSkills,
		SalaryRange:       req.SalaryRange,
		EmploymentType:    req.EmploymentType,
		IsActive:          true,
		InterviewDuration: req.InterviewDuration,
	}
	if job.InterviewDuration == 0 {
		job.InterviewDuration = 15
	}

	if err := e.repo.CreateJob(r.Context(), &job); err != nil {
		slog.Error("Failed to create job", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to create job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"job":     job,
		"message": "Job created successfully",
	})

	slog.Info("Job created", "job_id", job.ID, "user_id", user.ID, "title", job.Title)
}

func (e *JobEndpoints) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs, err := e.repo.ListActiveJobs(r.Context())
	if err != nil {
		slog.Error("Failed to list jobs", "error", err)
		http.Error(w, "Failed to get jobs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, GetJobsResponse{Jobs: jobs, Count: len(jobs)})
}

func (e *JobEndpoints) GetMyJobsHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	jobs, err := e.repo.GetJobsByEmployer(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to get employer jobs", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to get jobs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, GetJobsResponse{Jobs: jobs, Count: len(jobs)})
}

func (e *JobEndpoints) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := e.repo.GetJob(r.Context(), jobID)
	if err != nil {
		slog.Error("Failed to get job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to get job", http.StatusInternalServerError)
		return
	}
	if job == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"job": job})
}

func (e *JobEndpoints) UpdateJobHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	jobID := chi.URLParam(r, "id")

	job, err := authorizeJob(r.Context(), e.repo, jobID, user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := e.validate.Struct(req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	job.Title = req.Title
	job.Location = req.Location
	job.Description = req.Description
	job.RequiredSkills = req.RequiredSkills
	job.SalaryRange = req.SalaryRange
	job.EmploymentType = req.EmploymentType
	if req.InterviewDuration != 0 {
		job.InterviewDuration = req.InterviewDuration
	}

	if err := e.repo.UpdateJob(r.Context(), job); err != nil {
		slog.Error("Failed to update job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to update job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job":     job,
		"message": "Job updated successfully",
	})

	slog.Info("Job updated", "job_id", jobID, "user_id", user.ID)
}

// DeleteJobHandler closes a posting. The row is soft deleted so existing
// applications keep their job reference.
func (e *JobEndpoints) DeleteJobHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	jobID := chi.URLParam(r, "id")

	if _, err := authorizeJob(r.Context(), e.repo, jobID, user); err != nil {
		writeError(w, r, err)
		return
	}

	if err := e.repo.DeleteJob(r.Context(), jobID); err != nil {
		slog.Error("Failed to delete job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to delete job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Job deleted successfully",
	})

	slog.Info("Job deleted", "job_id", jobID, "user_id", user.ID)
}
