// Package query compiles expr-lang expressions into docdb predicates.
//
// Entry expressions see:
//
//	ID    the top-level key
//	data  the entry value as plain Go values (map[string]any, []any, float64, ...)
//
// Element expressions (for pull) see:
//
//	value  the array element
//	index  its position
//
// Expressions must evaluate to a bool.
package query

import (
	"errors"
	"fmt"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/calvinalkan/docdb/pkg/docdb"
)

// Errors returned by [Compile] and [Program.Err].
var (
	ErrEmpty   = errors.New("expression must not be empty")
	ErrCompile = errors.New("invalid expression")
	ErrEval    = errors.New("expression failed")
	ErrNotBool = errors.New("expression must evaluate to a bool")
)

// Program is a compiled expression.
//
// Evaluation errors cannot be returned through docdb's predicate types, so
// the match methods return false on error and remember the first one; check
// [Program.Err] after use.
type Program struct {
	source  string
	program *exprvm.Program

	mu  sync.Mutex
	err error
}

// Compile parses expression. Unknown variables are allowed at compile time
// and evaluate to nil.
func Compile(expression string) (*Program, error) {
	if expression == "" {
		return nil, ErrEmpty
	}

	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrCompile, expression, err)
	}

	return &Program{source: expression, program: program}, nil
}

// String returns the source expression.
func (p *Program) String() string {
	return p.source
}

// MatchEntry evaluates p against a top-level entry.
// It satisfies [docdb.EntryPredicate].
func (p *Program) MatchEntry(e docdb.Entry) bool {
	return p.eval(map[string]any{
		"ID":   e.ID,
		"data": e.Data.Any(),
	})
}

// MatchElement evaluates p against an array element.
// It satisfies [docdb.ElementPredicate].
func (p *Program) MatchElement(value docdb.Node, index int) bool {
	return p.eval(map[string]any{
		"value": value.Any(),
		"index": index,
	})
}

// Err returns the first evaluation error, if any.
func (p *Program) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

func (p *Program) eval(env map[string]any) bool {
	result, err := exprlang.Run(p.program, env)
	if err != nil {
		p.fail(fmt.Errorf("%w %q: %w", ErrEval, p.source, err))

		return false
	}

	matched, ok := result.(bool)
	if !ok {
		p.fail(fmt.Errorf("%w: %q returned %T", ErrNotBool, p.source, result))

		return false
	}

	return matched
}

func (p *Program) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err == nil {
		p.err = err
	}
}

var (
	_ docdb.EntryPredicate   = (*Program)(nil).MatchEntry
	_ docdb.ElementPredicate = (*Program)(nil).MatchElement
)
