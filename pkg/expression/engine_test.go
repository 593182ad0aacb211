package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateBool(t *testing.T) {
	engine := NewEngine()
	env := map[string]interface{}{
		"day":           11,
		"isBusinessDay": true,
	}

	result, err := engine.EvaluateBool("day == 11 && isBusinessDay", env)
	assert.NoError(t, err)
	assert.True(t, result)

	result, err = engine.EvaluateBool("day > 20", env)
	assert.NoError(t, err)
	assert.False(t, result)
}

func TestEvaluateBoolErrors(t *testing.T) {
	engine := NewEngine()
	env := map[string]interface{}{"day": 11}

	_, err := engine.EvaluateBool("day +", env)
	assert.Error(t, err)

	_, err = engine.EvaluateBool("day + 1", env)
	assert.Error(t, err, "non-boolean result is rejected at compile time")
}

func TestProgramCacheReuse(t *testing.T) {
	engine := NewEngine()
	env := map[string]interface{}{"day": 11}

	_, err := engine.EvaluateBool("day == 11", env)
	assert.NoError(t, err)
	assert.Len(t, engine.programCache, 1)

	_, err = engine.EvaluateBool("day == 11", env)
	assert.NoError(t, err)
	assert.Len(t, engine.programCache, 1)
}
