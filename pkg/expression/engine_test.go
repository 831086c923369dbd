package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngine_EvaluateCondition(t *testing.T) {
	engine := NewEngine()

	t.Run("Simple comparison", func(t *testing.T) {
		env := map[string]interface{}{
			"amount": 50000.0,
			"stage":  "Negotiation",
		}

		result, err := engine.EvaluateCondition("amount > 10000 && stage == 'Negotiation'", env)
		assert.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("Empty condition is always true", func(t *testing.T) {
		result, err := engine.EvaluateCondition("   ", map[string]interface{}{})
		assert.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("Undefined variable evaluates to nil", func(t *testing.T) {
		result, err := engine.EvaluateCondition("missing_field == 'x'", map[string]interface{}{})
		assert.NoError(t, err)
		assert.False(t, result)
	})

	t.Run("Non-boolean result is an error", func(t *testing.T) {
		_, err := engine.EvaluateCondition("1 + 1", map[string]interface{}{})
		assert.Error(t, err)
	})

	t.Run("Custom functions", func(t *testing.T) {
		env := map[string]interface{}{
			"industry": "Software",
			"website":  "",
		}

		result, err := engine.EvaluateCondition("CONTAINS(industry, 'soft') && ISBLANK(website)", env)
		assert.NoError(t, err)
		assert.True(t, result)

		result, err = engine.EvaluateCondition("LOWER(industry) == 'software'", env)
		assert.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("Invalid syntax", func(t *testing.T) {
		err := engine.Validate("amount >><")
		assert.Error(t, err)
	})

	t.Run("Program cache reuse", func(t *testing.T) {
		env := map[string]interface{}{"score": 80}

		for i := 0; i < 3; i++ {
			result, err := engine.EvaluateCondition("score >= 70", env)
			assert.NoError(t, err)
			assert.True(t, result)
		}
	})
}
