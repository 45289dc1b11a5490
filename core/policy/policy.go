// Package policy implements lexicographic selection chains. A chain is an
// ordered list of terms; each term extracts a numeric key from a candidate
// and sorts ascending or descending. Later terms only break ties left by
// earlier ones.
package policy

import "sort"

// Direction orders a term's key.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Term is one criterion of a chain.
type Term[T any] struct {
	Key func(T) float64
	Dir Direction
}

// Asc builds an ascending term.
func Asc[T any](key func(T) float64) Term[T] { return Term[T]{Key: key, Dir: Ascending} }

// Desc builds a descending term.
func Desc[T any](key func(T) float64) Term[T] { return Term[T]{Key: key, Dir: Descending} }

// Chain compares candidates term by term.
type Chain[T any] []Term[T]

// Less reports whether a ranks strictly before b.
func (c Chain[T]) Less(a, b T) bool {
	for _, t := range c {
		ka, kb := t.Key(a), t.Key(b)
		if ka == kb {
			continue
		}
		if t.Dir == Ascending {
			return ka < kb
		}
		return ka > kb
	}
	return false
}

// Sort orders candidates in place. The sort is stable so candidates equal
// under every term keep their input order.
func (c Chain[T]) Sort(candidates []T) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return c.Less(candidates[i], candidates[j])
	})
}

// Best returns the minimum of candidates under the chain. The boolean is
// false for an empty slice. Among equals the earliest candidate wins.
func (c Chain[T]) Best(candidates []T) (T, bool) {
	var best T
	if len(candidates) == 0 {
		return best, false
	}
	best = candidates[0]
	for _, cand := range candidates[1:] {
		if c.Less(cand, best) {
			best = cand
		}
	}
	return best, true
}

// Top sorts a copy of candidates and returns the first n. It returns all
// of them when n exceeds the slice length.
func (c Chain[T]) Top(candidates []T, n int) []T {
	cp := make([]T, len(candidates))
	copy(cp, candidates)
	c.Sort(cp)
	if n < len(cp) {
		cp = cp[:n]
	}
	return cp
}
