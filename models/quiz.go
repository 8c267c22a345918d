package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Quiz is the screening quiz for a job, one per job, generated lazily when the
// first application qualifies. The question set is immutable once created so
// every candidate for the job sees the same quiz.
type Quiz struct {
	ID           string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	JobID        string         `gorm:"type:uuid;not null;uniqueIndex" json:"job_id"`
	PassingScore int            `gorm:"not null" json:"passing_score"` // Percentage threshold
	TimeLimit    int            `gorm:"not null" json:"time_limit"`    // Minutes
	EasyCount    int            `gorm:"not null" json:"easy_count"`
	MediumCount  int            `gorm:"not null" json:"medium_count"`
	HardCount    int            `gorm:"not null" json:"hard_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Job       Job            `gorm:"foreignKey:JobID" json:"-"`
	Questions []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (q *Quiz) TotalQuestions() int {
	return q.EasyCount + q.MediumCount + q.HardCount
}

// QuizQuestion is a single multiple-choice question. CorrectIndex and
// Explanation are never serialized to candidates; grading strips them until the
// attempt is scored.
type QuizQuestion struct {
	ID           string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	QuizID       string         `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Text         string         `gorm:"type:text;not null" json:"text"`
	Options      pq.StringArray `gorm:"type:text[];not null" json:"options"` // Exactly 4
	CorrectIndex int            `gorm:"not null" json:"-"`
	Explanation  string         `gorm:"type:text" json:"-"`
	Difficulty   string         `gorm:"not null;check:difficulty IN ('easy', 'medium', 'hard')" json:"difficulty"`
	Skill        string         `gorm:"size:100" json:"skill,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Quiz Quiz `gorm:"foreignKey:QuizID" json:"-"`
}
