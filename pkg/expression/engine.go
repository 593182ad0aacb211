// Package expression wraps expr-lang/expr with a compiled-program cache.
// It evaluates the optional per-workflow trigger conditions.
package expression

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Engine compiles and caches expressions keyed by source text.
type Engine struct {
	mu           sync.RWMutex
	programCache map[string]*vm.Program
}

// NewEngine creates a new expression engine
func NewEngine() *Engine {
	return &Engine{programCache: make(map[string]*vm.Program)}
}

// EvaluateBool runs a boolean expression against the given environment.
// A non-boolean result is an error, never a silent truthy coercion.
func (e *Engine) EvaluateBool(expression string, env map[string]interface{}) (bool, error) {
	program, err := e.getProgram(expression, env)
	if err != nil {
		return false, err
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", expression, output)
	}
	return result, nil
}

func (e *Engine) getProgram(expression string, env map[string]interface{}) (*vm.Program, error) {
	e.mu.RLock()
	if prog, ok := e.programCache[expression]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double check
	if prog, ok := e.programCache[expression]; ok {
		return prog, nil
	}

	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}

	e.programCache[expression] = program
	return program, nil
}
