package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hireflow/backend/models"
	"github.com/hireflow/backend/repository"
)

const maxResumeUploadBytes = 15 << 20 // 15MB

type ApplicationEndpoints struct {
	repo     *repository.GORMRepository
	pipeline *ScreeningPipeline
	parser   *ResumeParser
	validate *validator.Validate
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending reviewed shortlisted rejected hired"`
}

type BulkStatusRequest struct {
	ApplicationIDs []string `json:"application_ids" validate:"required,min=1"`
	Status         string   `json:"status" validate:"required,oneof=pending reviewed shortlisted rejected hired"`
}

type ScheduleInterviewRequest struct {
	Date     string `json:"date" validate:"required"` // YYYY-MM-DD
	Time     string `json:"time" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=onsite remote phone"`
	Contact  string `json:"contact"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

type EmployerFeedbackRequest struct {
	Feedback string `json:"feedback" validate:"required"`
	Decision string `json:"decision" validate:"omitempty,oneof=hired rejected"`
}

func NewApplicationEndpoints(repo *repository.GORMRepository, pipeline *ScreeningPipeline, parser *ResumeParser) *ApplicationEndpoints {
	return &ApplicationEndpoints{
		repo:     repo,
		pipeline: pipeline,
		parser:   parser,
		validate: validator.New(),
	}
}

func (e *ApplicationEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RequireCandidate)
			r.Post("/", e.ApplyHandler)
			r.Get("/", e.MyApplicationsHandler)
		})

		r.Get("/{id}", e.GetApplicationHandler)

		r.Group(func(r chi.Router) {
			r.Use(RequireEmployer)
			r.Get("/job/{jobID}", e.ListByJobHandler)
			r.Post("/job/{jobID}/bulk-status", e.BulkStatusHandler)
			r.Patch("/{id}/status", e.UpdateStatusHandler)
			r.Post("/{id}/schedule", e.ScheduleHandler)
			r.Post("/{id}/feedback", e.FeedbackHandler)
		})
	})
}

type jobGetter interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
}

// authorizeJob loads a job for an employer-scoped operation. Jobs are publicly
// listable, so someone else's job is forbidden rather than hidden.
func authorizeJob(ctx context.Context, store jobGetter, jobID string, user *models.User) (*models.Job, error) {
	job, err := store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &ErrNotFound{Resource: "job"}
	}
	if job.PostedBy != user.ID {
		return nil, &ErrAuthorization{Message: "job was posted by another employer"}
	}
	return job, nil
}

// authorizeApplication loads an application visible to the requester: the
// candidate who owns it or the employer who posted its job. Anyone else gets
// not-found rather than forbidden, so application ids leak nothing.
func authorizeApplication(ctx context.Context, repo *repository.GORMRepository, applicationID string, user *models.User) (*models.Application, error) {
	app, err := repo.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, &ErrNotFound{Resource: "application"}
	}

	if user.IsCandidate() && app.CandidateID == user.ID {
		return app, nil
	}
	if user.IsEmployer() {
		job, err := repo.GetJob(ctx, app.JobID)
		if err != nil {
			return nil, err
		}
		if job != nil && job.PostedBy == user.ID {
			return app, nil
		}
	}
	return nil, &ErrNotFound{Resource: "application"}
}

// ApplyHandler takes a multipart form with a job_id field and a resume file,
// scores the résumé and creates the application. A résumé below the threshold
// still creates the row, in the resume_rejected stage.
func (e *ApplicationEndpoints) ApplyHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	if err := r.ParseMultipartForm(maxResumeUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	jobID := r.FormValue("job_id")
	if jobID == "" {
		writeError(w, r, &ErrValidation{Field: "job_id", Message: "job_id is required"})
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		writeError(w, r, &ErrValidation{Field: "resume", Message: "resume file is required"})
		return
	}
	defer file.Close()

	path, err := e.parser.Save(header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resumeText, err := e.parser.ExtractText(path)
	if err != nil {
		writeError(w, r, err)
		return
	}

	app, created, err := e.pipeline.SubmitApplication(r.Context(), user, jobID, path, resumeText)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	message := "Application submitted successfully"
	if !created {
		status = http.StatusOK
		message = "You have already applied to this job"
	}

	writeJSON(w, status, map[string]interface{}{
		"application": app,
		"message":     message,
	})

	slog.Info("Application submitted", "application_id", app.ID, "job_id", jobID, "user_id", user.ID, "created", created)
}

func (e *ApplicationEndpoints) MyApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	apps, err := e.repo.GetApplicationsByCandidate(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to get candidate applications", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to get applications", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"applications": apps,
		"count":        len(apps),
	})
}

func (e *ApplicationEndpoints) GetApplicationHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	applicationID := chi.URLParam(r, "id")

	if _, err := authorizeApplication(r.Context(), e.repo, applicationID, user); err != nil {
		writeError(w, r, err)
		return
	}

	app, err := e.repo.GetApplicationWithDetails(r.Context(), applicationID)
	if err != nil {
		slog.Error("Failed to get application details", "error", err, "application_id", applicationID)
		http.Error(w, "Failed to get application", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"application": app})
}

// ListByJobHandler returns a job's applications ranked by overall score, for
// the employer review dashboard.
func (e *ApplicationEndpoints) ListByJobHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	jobID := chi.URLParam(r, "jobID")

	if _, err := authorizeJob(r.Context(), e.repo, jobID, user); err != nil {
		writeError(w, r, err)
		return
	}

	apps, err := e.repo.GetApplicationsByJob(r.Context(), jobID)
	if err != nil {
		slog.Error("Failed to get job applications", "error", err, "job_id", jobID)
		http.Error(w, "Failed to get applications", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"applications": apps,
		"count":        len(apps),
	})
}

func (e *ApplicationEndpoints) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	applicationID := chi.URLParam(r, "id")

	app, err := authorizeApplication(r.Context(), e.repo, applicationID, user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := e.validate.Struct(req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := e.pipeline.UpdateStatus(r.Context(), app, req.Status); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"application": app,
		"message":     "Status updated successfully",
	})

	slog.Info("Application status updated", "application_id", applicationID, "status", req.Status, "user_id", user.ID)
}

func (e *ApplicationEndpoints) BulkStatusHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	jobID := chi.URLParam(r, "jobID")

	if _, err := authorizeJob(r.Context(), e.repo, jobID, user); err != nil {
		writeError(w, r, err)
		return
	}

	var req BulkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := e.validate.Struct(req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := e.pipeline.BulkUpdateStatus(r.Context(), jobID, req.ApplicationIDs, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"updated_ids":   updated,
		"updated_count": len(updated),
		"message":       "Applications updated successfully",
	})

	slog.Info("Applications bulk updated", "job_id", jobID, "count", len(updated), "status", req.Status)
}

func (e *ApplicationEndpoints) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	applicationID := chi.URLParam(r, "id")

	app, err := authorizeApplication(r.Context(), e.repo, applicationID, user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req ScheduleInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := e.validate.Struct(req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, r, &ErrValidation{Field: "date", Message: "date must be YYYY-MM-DD"})
		return
	}

	if err := e.pipeline.ScheduleEmployerInterview(r.Context(), app, date, req.Time, req.Type, req.Contact, req.Location, req.Notes); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"application": app,
		"message":     "Interview scheduled successfully",
	})

	slog.Info("Employer interview scheduled", "application_id", applicationID, "user_id", user.ID)
}

func (e *ApplicationEndpoints) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	applicationID := chi.URLParam(r, "id")

	app, err := authorizeApplication(r.Context(), e.repo, applicationID, user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req EmployerFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := e.validate.Struct(req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := e.pipeline.RecordEmployerFeedback(r.Context(), app, req.Feedback, req.Decision); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"application": app,
		"message":     "Feedback recorded successfully",
	})

	slog.Info("Employer feedback recorded", "application_id", applicationID, "decision", req.Decision, "user_id", user.ID)
}
