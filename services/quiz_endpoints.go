package services

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hireflow/backend/models"
	"github.com/hireflow/backend/repository"
)

type QuizEndpoints struct {
	repo       *repository.GORMRepository
	quizEngine *QuizEngine
}

type SubmitQuizRequest struct {
	// Answers maps question id to the selected option index.
	Answers map[string]int `json:"answers"`
}

func NewQuizEndpoints(repo *repository.GORMRepository, quizEngine *QuizEngine) *QuizEndpoints {
	return &QuizEndpoints{
		repo:       repo,
		quizEngine: quizEngine,
	}
}

func (e *QuizEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/quizzes", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RequireCandidate)
			r.Post("/application/{id}/start", e.StartQuizHandler)
			r.Post("/application/{id}/submit", e.SubmitQuizHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireEmployer)
			r.Get("/job/{jobID}", e.GetJobQuizHandler)
		})
	})
}

// StartQuizHandler begins the candidate's single scored attempt and returns
// the questions. Correct answers and explanations are never serialized.
func (e *QuizEndpoints) StartQuizHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	applicationID := chi.URLParam(r, "id")

	app, err := authorizeApplication(r.Context(), e.repo, applicationID, user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	quiz, err := e.quizEngine.StartAttempt(r.Context(), app)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"quiz":        quiz,
		"application": app,
	})

	slog.Info("Quiz started", "application_id", applicationID, "user_id", user.ID)
}

func (e *QuizEndpoints) SubmitQuizHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	applicationID := chi.URLParam(r, "id")

	app, err := authorizeApplication(r.Context(), e.repo, applicationID, user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req SubmitQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := e.quizEngine.SubmitAttempt(r.Context(), app, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":      result,
		"application": app,
	})

	slog.Info("Quiz submitted", "application_id", applicationID, "score", result.Score, "passed", result.Passed)
}

// JobQuizQuestion is the employer's view of a question, answer key included.
type JobQuizQuestion struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation,omitempty"`
	Difficulty   string   `json:"difficulty"`
	Skill        string   `json:"skill,omitempty"`
}

type JobQuizResponse struct {
	ID           string            `json:"id"`
	JobID        string            `json:"job_id"`
	PassingScore int               `json:"passing_score"`
	TimeLimit    int               `json:"time_limit"`
	EasyCount    int               `json:"easy_count"`
	MediumCount  int               `json:"medium_count"`
	HardCount    int               `json:"hard_count"`
	Questions    []JobQuizQuestion `json:"questions"`
}

// jobQuizView projects a quiz for its owning employer. QuizQuestion hides
// CorrectIndex and Explanation from serialization so candidates never see
// them, which means the employer response needs its own shape.
func jobQuizView(quiz *models.Quiz) JobQuizResponse {
	resp := JobQuizResponse{
		ID:           quiz.ID,
		JobID:        quiz.JobID,
		PassingScore: quiz.PassingScore,
		TimeLimit:    quiz.TimeLimit,
		EasyCount:    quiz.EasyCount,
		MediumCount:  quiz.MediumCount,
		HardCount:    quiz.HardCount,
		Questions:    make([]JobQuizQuestion, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		resp.Questions = append(resp.Questions, JobQuizQuestion{
			ID:           q.ID,
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
			Explanation:  q.Explanation,
			Difficulty:   q.Difficulty,
			Skill:        q.Skill,
		})
	}
	return resp
}

// GetJobQuizHandler lets the employer inspect the generated quiz for a job
// they posted, correct answers and explanations included.
func (e *QuizEndpoints) GetJobQuizHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	jobID := chi.URLParam(r, "jobID")

	if _, err := authorizeJob(r.Context(), e.repo, jobID, user); err != nil {
		writeError(w, r, err)
		return
	}

	quiz, err := e.repo.GetQuizByJob(r.Context(), jobID)
	if err != nil {
		http.Error(w, "Failed to get quiz", http.StatusInternalServerError)
		return
	}
	if quiz == nil {
		writeError(w, r, &ErrNotFound{Resource: "quiz"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"quiz": jobQuizView(quiz)})
}
