package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hireflow/backend/models"
)

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected int
	}{
		{"plain score", 85, 85},
		{"rounds half up", 72.5, 73},
		{"ratio scales up", 0.85, 85},
		{"one is a full ratio", 1, 100},
		{"zero stays zero", 0, 0},
		{"clamps above 100", 140, 100},
		{"clamps below 0", -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeScore(tt.input))
		})
	}
}

func TestInterviewContentsSkipEmptyTurns(t *testing.T) {
	turns := []models.InterviewTurn{
		{Speaker: models.SpeakerInterviewer, Content: "Tell me about yourself."},
		{Speaker: models.SpeakerCandidate, Content: "   "},
		{Speaker: models.SpeakerCandidate, Content: "I build backend services."},
	}
	contents := buildInterviewContents(turns)
	assert.Len(t, contents, 2)
}
