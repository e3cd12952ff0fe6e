package hostenv

import (
	lru "github.com/hashicorp/golang-lru/v2"

	amerrors "github.com/Aman-CERP/artman/internal/errors"
)

// conditionCacheSize bounds the number of parsed conditions kept.
const conditionCacheSize = 256

// Evaluator parses and evaluates conditions, caching parsed expressions.
// It is safe for concurrent use.
type Evaluator struct {
	cache *lru.Cache[string, *Condition]
}

// NewEvaluator returns an Evaluator.
func NewEvaluator() *Evaluator {
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, *Condition](conditionCacheSize)
	return &Evaluator{cache: cache}
}

// IsValid reports whether cond parses.
func (e *Evaluator) IsValid(cond string) bool {
	_, err := e.parse(cond)
	return err == nil
}

// Match evaluates cond on ctx.
func (e *Evaluator) Match(cond string, ctx *Context) (bool, error) {
	c, err := e.parse(cond)
	if err != nil {
		return false, err
	}
	return c.Match(ctx), nil
}

// Bind returns a function matching conditions against ctx.
func (e *Evaluator) Bind(ctx *Context) func(cond string) (bool, error) {
	return func(cond string) (bool, error) {
		return e.Match(cond, ctx)
	}
}

func (e *Evaluator) parse(cond string) (*Condition, error) {
	if c, ok := e.cache.Get(cond); ok {
		return c, nil
	}
	c, err := Parse(cond)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeInvalidCondition, "invalid condition "+quote(cond), err)
	}
	e.cache.Add(cond, c)
	return c, nil
}

func quote(s string) string {
	return "\"" + s + "\""
}
