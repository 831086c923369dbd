package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseScore(t *testing.T) {
	score, err := parseScore("85")
	assert.NoError(t, err)
	assert.Equal(t, 85, score)

	// Models sometimes wrap the number in prose
	score, err = parseScore("Score: 42 out of 100")
	assert.NoError(t, err)
	assert.Equal(t, 42, score)

	score, err = parseScore("  7\n")
	assert.NoError(t, err)
	assert.Equal(t, 7, score)

	// Clamped to the 0-100 range
	score, err = parseScore("150")
	assert.NoError(t, err)
	assert.Equal(t, 100, score)

	_, err = parseScore("no number here")
	assert.Error(t, err)
}
