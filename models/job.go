package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Job is an employer-owned posting. Candidates apply to it; a Quiz is generated
// lazily for it once the first application qualifies.
type Job struct {
	ID                string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PostedBy          string         `gorm:"type:uuid;not null;index" json:"posted_by"`
	Title             string         `gorm:"not null" json:"title"`
	Company           string         `gorm:"size:255" json:"company"`
	Location          string         `gorm:"size:255" json:"location,omitempty"`
	Description       string         `gorm:"type:text;not null" json:"description"`
	RequiredSkills    pq.StringArray `gorm:"type:text[]" json:"required_skills"`
	SalaryRange       string         `gorm:"size:100" json:"salary_range,omitempty"`
	EmploymentType    string         `gorm:"size:50" json:"employment_type,omitempty"` // full-time, part-time, contract
	IsActive          bool           `gorm:"default:true" json:"is_active"`
	InterviewDuration int            `gorm:"default:15" json:"interview_duration"` // Minutes
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Employer     User          `gorm:"foreignKey:PostedBy" json:"employer,omitempty"`
	Applications []Application `gorm:"foreignKey:JobID" json:"applications,omitempty"`
	Quiz         *Quiz         `gorm:"foreignKey:JobID" json:"quiz,omitempty"`
}
