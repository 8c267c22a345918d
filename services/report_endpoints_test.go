package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorePercentiles(t *testing.T) {
	tests := []struct {
		name     string
		scores   []int
		expected map[string]int
	}{
		{
			name:     "empty",
			scores:   nil,
			expected: map[string]int{},
		},
		{
			name:   "single score",
			scores: []int{80},
			expected: map[string]int{
				"p25": 80, "p50": 80, "p75": 80, "p90": 80,
			},
		},
		{
			name:   "two scores interpolate",
			scores: []int{60, 100},
			expected: map[string]int{
				"p25": 70, "p50": 80, "p75": 90, "p90": 96,
			},
		},
		{
			name:   "five scores",
			scores: []int{50, 60, 70, 80, 90},
			expected: map[string]int{
				"p25": 60, "p50": 70, "p75": 80, "p90": 86,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scorePercentiles(tt.scores))
		})
	}
}
