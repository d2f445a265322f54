package docdb

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operator is an arithmetic operator accepted by [DB.Math].
type Operator string

// Math operators.
const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"
	OpMod Operator = "%"
)

// ParseOperator validates s as an [Operator].
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return op, nil
	default:
		return "", wrapMsg(ErrInvalidValue, fmt.Sprintf("unknown operator %q (want one of + - * / %%)", s))
	}
}

// ElementPredicate reports whether an array element (at index) matches.
type ElementPredicate func(value Node, index int) bool

// Math applies op with value to the number stored at key and stores the
// result.
//
// value must be a positive finite number. A missing or null stored value is
// initialized to value. Stored strings are parsed as decimal numbers and
// booleans count as 1 and 0; anything else fails with [ErrNotNumber].
// For [OpSub] without allowNegative, results below 1 become 0.
func (db *DB) Math(key string, op Operator, value float64, allowNegative bool) (Node, error) {
	if _, err := ParseOperator(string(op)); err != nil {
		return Node{}, db.err(err, "math", key)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return Node{}, db.err(wrapMsg(ErrInvalidValue, fmt.Sprintf("operand must be a positive number, got %v", value)), "math", key)
	}

	segs, err := splitPath(key)
	if err != nil {
		return Node{}, db.err(err, "math", key)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	root, err := db.load()
	if err != nil {
		return Node{}, db.err(err, "math", key)
	}

	current, ok, err := getPath(root, segs)
	if err != nil {
		return Node{}, db.err(err, "math", key)
	}

	if !ok || current.IsNull() {
		return db.store("math", key, segs, root, Number(value), writeConfig{})
	}

	stored, err := toNumber(current)
	if err != nil {
		return Node{}, db.err(err, "math", key)
	}

	result := applyOperator(stored, op, value)

	if op == OpSub && !allowNegative && result < 1 {
		result = 0
	}

	if math.IsNaN(result) || math.IsInf(result, 0) {
		return Node{}, db.err(wrapMsg(ErrInvalidValue, "result is not a finite number"), "math", key)
	}

	return db.store("math", key, segs, root, Number(result), writeConfig{})
}

// Add adds value to the number at key.
func (db *DB) Add(key string, value float64) (Node, error) {
	return db.Math(key, OpAdd, value, false)
}

// Subtract subtracts value from the number at key. See [DB.Math] for the
// clamping applied without allowNegative.
func (db *DB) Subtract(key string, value float64, allowNegative bool) (Node, error) {
	return db.Math(key, OpSub, value, allowNegative)
}

// Push appends value to the array at key. A missing or non-array value is
// replaced by a one-element array.
func (db *DB) Push(key string, value Node) (Node, error) {
	segs, err := splitPath(key)
	if err != nil {
		return Node{}, db.err(err, "push", key)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	root, err := db.load()
	if err != nil {
		return Node{}, db.err(err, "push", key)
	}

	current, _, err := getPath(root, segs)
	if err != nil {
		return Node{}, db.err(err, "push", key)
	}

	items, ok := current.AsArray()
	if !ok {
		return db.store("push", key, segs, root, Array(value), writeConfig{})
	}

	return db.store("push", key, segs, root, Array(append(items, value)...), writeConfig{})
}

// Pull removes elements matching pred from the array at key and reports
// whether the key held a value.
//
// With multiple, every match is removed; otherwise only the first. When
// nothing matches, the array is stored unchanged. A non-array value fails
// with [ErrNotArray].
func (db *DB) Pull(key string, pred ElementPredicate, multiple bool) (Node, bool, error) {
	if pred == nil {
		return Node{}, false, db.err(wrapMsg(ErrInvalidValue, "predicate must not be nil"), "pull", key)
	}

	segs, err := splitPath(key)
	if err != nil {
		return Node{}, false, db.err(err, "pull", key)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	root, err := db.load()
	if err != nil {
		return Node{}, false, db.err(err, "pull", key)
	}

	current, ok, err := getPath(root, segs)
	if err != nil {
		return Node{}, false, db.err(err, "pull", key)
	}

	if !ok || current.IsNull() {
		return Node{}, false, nil
	}

	items, isArray := current.AsArray()
	if !isArray {
		return Node{}, false, db.err(wrap(ErrInvalidValue, ErrNotArray), "pull", key)
	}

	kept := make([]Node, 0, len(items))
	removed := false

	for i, item := range items {
		if (multiple || !removed) && pred(item, i) {
			removed = true

			continue
		}

		kept = append(kept, item)
	}

	stored, err := db.store("pull", key, segs, root, Array(kept...), writeConfig{})
	if err != nil {
		return Node{}, false, err
	}

	return stored, true, nil
}

// --- Private api ---

// toNumber coerces a stored value for Math.
func toNumber(n Node) (float64, error) {
	switch n.Kind() {
	case KindNumber:
		f, _ := n.AsNumber()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, wrap(ErrInvalidValue, ErrNotNumber)
		}

		return f, nil
	case KindBool:
		if b, _ := n.AsBool(); b {
			return 1, nil
		}

		return 0, nil
	case KindString:
		s, _ := n.AsString()

		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, wrap(ErrInvalidValue, fmt.Errorf("%w: %q", ErrNotNumber, s))
		}

		return f, nil
	default:
		return 0, wrap(ErrInvalidValue, fmt.Errorf("%w: stored value is %s", ErrNotNumber, n.Tag()))
	}
}

func applyOperator(a float64, op Operator, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpMod:
		return math.Mod(a, b)
	default:
		return math.NaN()
	}
}
