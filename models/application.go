package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Screening stages. An application only ever moves forward through the pipeline;
// the transition table lives in the pipeline service.
const (
	StageResumeUploaded             = "resume_uploaded"
	StageResumeRejected             = "resume_rejected"
	StageQuizPending                = "quiz_pending"
	StageQuizInProgress             = "quiz_in_progress"
	StageQuizFailed                 = "quiz_failed"
	StageVideoPending               = "video_pending"
	StageVideoInProgress            = "video_in_progress"
	StageVideoCompleted             = "video_completed"
	StageFinalReview                = "final_review"
	StageSelectedForEmployer        = "selected_for_employer"
	StageEmployerScheduled          = "employer_scheduled"
	StageEmployerInterviewCompleted = "employer_interview_completed"
	StageHired                      = "hired"
)

// Coarse employer-facing status, independent of the fine-grained screening stage.
const (
	StatusPending     = "pending"
	StatusReviewed    = "reviewed"
	StatusShortlisted = "shortlisted"
	StatusRejected    = "rejected"
	StatusHired       = "hired"
)

const (
	SpeakerInterviewer = "interviewer"
	SpeakerCandidate   = "candidate"
)

// Application is one (job, candidate) pair, unique on that pair. It is created
// only after the résumé has been scored and reaches terminal states rather than
// being deleted.
type Application struct {
	ID          string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	JobID       string `gorm:"type:uuid;not null;index;uniqueIndex:idx_job_candidate" json:"job_id"`
	CandidateID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_job_candidate" json:"candidate_id"`

	ScreeningStage string `gorm:"not null;default:'resume_uploaded'" json:"screening_stage"`
	Status         string `gorm:"not null;default:'pending';check:status IN ('pending', 'reviewed', 'shortlisted', 'rejected', 'hired')" json:"status"`

	// Resume scoring
	ResumePath      string     `gorm:"size:500" json:"resume_path,omitempty"`
	ResumeText      string     `gorm:"type:text" json:"-"`
	AIMatchScore    *int       `json:"ai_match_score,omitempty"` // 0-100, nil until scored
	AIJustification string     `gorm:"type:text" json:"ai_justification,omitempty"`
	AIAnalysisDate  *time.Time `json:"ai_analysis_date,omitempty"`

	// Skills gap (advisory only, never drives stage transitions)
	MatchedSkills    pq.StringArray `gorm:"type:text[]" json:"matched_skills,omitempty"`
	MissingSkills    pq.StringArray `gorm:"type:text[]" json:"missing_skills,omitempty"`
	AdditionalSkills pq.StringArray `gorm:"type:text[]" json:"additional_skills,omitempty"`
	SkillMatchPct    *int           `json:"skill_match_pct,omitempty"`

	// Quiz results
	QuizScore       *int       `json:"quiz_score,omitempty"`
	QuizStartedAt   *time.Time `json:"quiz_started_at,omitempty"`
	QuizCompletedAt *time.Time `json:"quiz_completed_at,omitempty"`
	QuizAttempts    int        `gorm:"default:0" json:"quiz_attempts"`

	// Video interview results
	VideoInterviewStartedAt   *time.Time `json:"video_interview_started_at,omitempty"`
	VideoInterviewCompletedAt *time.Time `json:"video_interview_completed_at,omitempty"`

	// Employer interview stage
	EmployerInterviewDate     *time.Time `json:"employer_interview_date,omitempty"`
	EmployerInterviewTime     string     `gorm:"size:20" json:"employer_interview_time,omitempty"`
	EmployerInterviewType     string     `gorm:"size:50" json:"employer_interview_type,omitempty"` // onsite, remote, phone
	EmployerInterviewContact  string     `gorm:"size:255" json:"employer_interview_contact,omitempty"`
	EmployerInterviewLocation string     `gorm:"size:500" json:"employer_interview_location,omitempty"` // Meeting link or address
	EmployerInterviewNotes    string     `gorm:"type:text" json:"employer_interview_notes,omitempty"`
	EmployerFeedback          string     `gorm:"type:text" json:"employer_feedback,omitempty"`
	EmployerDecision          string     `gorm:"size:20" json:"employer_decision,omitempty"` // hired, rejected

	// Weighted blend of the stage scores present so far
	OverallScore *int `json:"overall_score,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Job            Job             `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Candidate      User            `gorm:"foreignKey:CandidateID" json:"candidate,omitempty"`
	StageHistory   []StageEvent    `gorm:"foreignKey:ApplicationID" json:"stage_history,omitempty"`
	QuizAnswers    []QuizAnswer    `gorm:"foreignKey:ApplicationID" json:"quiz_answers,omitempty"`
	VideoReport    *VideoReport    `gorm:"foreignKey:ApplicationID" json:"video_report,omitempty"`
	InterviewTurns []InterviewTurn `gorm:"foreignKey:ApplicationID" json:"interview_turns,omitempty"`
}

func (a *Application) IsTerminal() bool {
	switch a.ScreeningStage {
	case StageResumeRejected, StageQuizFailed, StageHired:
		return true
	}
	return a.Status == StatusRejected
}

// StageEvent is one entry of the append-only stage audit trail.
type StageEvent struct {
	ID            string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ApplicationID string         `gorm:"type:uuid;not null;index" json:"application_id"`
	Stage         string         `gorm:"not null" json:"stage"`
	Outcome       string         `gorm:"size:50" json:"outcome,omitempty"` // passed, failed, advanced
	Score         *int           `json:"score,omitempty"`
	Notes         string         `gorm:"type:text" json:"notes,omitempty"`
	Timestamp     time.Time      `gorm:"not null" json:"timestamp"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Application Application `gorm:"foreignKey:ApplicationID" json:"-"`
}

// QuizAnswer records the per-question grading detail of the candidate's single
// scored quiz attempt.
type QuizAnswer struct {
	ID             string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ApplicationID  string         `gorm:"type:uuid;not null;index" json:"application_id"`
	QuestionID     string         `gorm:"type:uuid;not null" json:"question_id"`
	SubmittedIndex *int           `json:"submitted_index,omitempty"` // nil when no answer was submitted
	CorrectIndex   int            `gorm:"not null" json:"correct_index"`
	IsCorrect      bool           `gorm:"not null" json:"is_correct"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Application Application `gorm:"foreignKey:ApplicationID" json:"-"`
}

// VideoReport stores the final AI analysis of the video interview, one per
// application. Unanalyzed is set when the analysis collaborator failed and the
// transcript was persisted without scores; employer review surfaces the flag.
type VideoReport struct {
	ID                 string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ApplicationID      string         `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	OverallScore       int            `json:"overall_score"`
	CommunicationScore int            `json:"communication_score"`
	TechnicalScore     int            `json:"technical_score"`
	ConfidenceScore    int            `json:"confidence_score"`
	Feedback           string         `gorm:"type:text" json:"feedback"`
	RedFlags           pq.StringArray `gorm:"type:text[]" json:"red_flags,omitempty"`
	Unanalyzed         bool           `gorm:"default:false" json:"unanalyzed"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Application Application `gorm:"foreignKey:ApplicationID" json:"-"`
}

// InterviewTurn stores the ordered, turn-by-turn text of the video interview.
type InterviewTurn struct {
	ID            string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ApplicationID string         `gorm:"type:uuid;not null;index" json:"application_id"`
	TurnOrder     int            `gorm:"not null" json:"turn_order"`
	Speaker       string         `gorm:"not null;check:speaker IN ('interviewer', 'candidate')" json:"speaker"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	Timestamp     time.Time      `gorm:"not null" json:"timestamp"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Application Application `gorm:"foreignKey:ApplicationID" json:"-"`
}
